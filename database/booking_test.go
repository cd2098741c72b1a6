/*
Copyright 2025 Heavyrent Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

func bookingRows(booking *model.Booking) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "booking_number", "customer_id", "start_date", "end_date",
		"total_amount_cents", "currency", "status", "payment_method_id", "gateway_customer_id",
		"security_hold_intent_id", "hold_security_amount_cents", "created_at", "meta_data",
	}).AddRow(
		booking.ID, booking.BookingID, booking.BookingNumber, booking.CustomerID,
		booking.StartDate, booking.EndDate, booking.TotalAmountCents, booking.Currency,
		booking.Status, booking.PaymentMethodID, booking.GatewayCustomerID,
		booking.SecurityHoldIntentID, booking.HoldSecurityAmountCents, booking.CreatedAt, []byte(`{}`),
	)
}

func TestRecordBooking_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	booking := &model.Booking{
		BookingID:        "bkg_" + gofakeit.UUID(),
		BookingNumber:    model.GenerateBookingNumber(),
		CustomerID:       "cus_" + gofakeit.UUID(),
		StartDate:        time.Now().Add(72 * time.Hour),
		EndDate:          time.Now().Add(96 * time.Hour),
		TotalAmountCents: 15000,
		Currency:         "cad",
		Status:           model.StatusPendingVerification,
		CreatedAt:        time.Now(),
	}

	mock.ExpectExec("INSERT INTO rentahold.bookings").
		WithArgs(booking.BookingID, booking.BookingNumber, booking.CustomerID, booking.StartDate,
			booking.EndDate, booking.TotalAmountCents, booking.Currency, booking.Status,
			booking.PaymentMethodID, booking.GatewayCustomerID, booking.SecurityHoldIntentID,
			booking.HoldSecurityAmountCents, booking.CreatedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err = ds.RecordBooking(context.TODO(), booking)
	assert.NoError(t, err)
}

func TestRecordBooking_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	booking := &model.Booking{BookingID: "bkg_123", Status: model.StatusPendingVerification}

	mock.ExpectExec("INSERT INTO rentahold.bookings").
		WillReturnError(&pq.Error{Code: "23505", Message: "unique_violation"})

	_, err = ds.RecordBooking(context.TODO(), booking)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrConflict, err.(apierror.APIError).Code)
}

func TestGetBooking_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	expected := &model.Booking{
		ID:               1,
		BookingID:        "bkg_123",
		BookingNumber:    "BK-TEST-ABC123",
		CustomerID:       "cus_456",
		StartDate:        time.Now().Add(72 * time.Hour),
		EndDate:          time.Now().Add(96 * time.Hour),
		TotalAmountCents: 15000,
		Currency:         "cad",
		Status:           model.StatusVerifyHoldOK,
		PaymentMethodID:  "pm_789",
		CreatedAt:        time.Now(),
	}

	mock.ExpectQuery("SELECT id, booking_id, booking_number").
		WithArgs("bkg_123").
		WillReturnRows(bookingRows(expected))

	booking, err := ds.GetBooking(context.TODO(), "bkg_123")
	assert.NoError(t, err)
	assert.Equal(t, expected.BookingID, booking.BookingID)
	assert.Equal(t, expected.Status, booking.Status)
	assert.Equal(t, expected.PaymentMethodID, booking.PaymentMethodID)
}

func TestGetBooking_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT id, booking_id, booking_number").
		WithArgs("bkg_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = ds.GetBooking(context.TODO(), "bkg_missing")
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrNotFound, err.(apierror.APIError).Code)
}

func TestSaveCardOnBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE rentahold.bookings").
		WithArgs("bkg_123", "pm_789", "cus_456").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.SaveCardOnBooking(context.TODO(), "bkg_123", "pm_789", "cus_456")
	assert.NoError(t, err)
}

func TestTransitionBookingStatus_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE rentahold.bookings").
		WithArgs("bkg_123", model.StatusPendingVerification, model.StatusVerifyHoldOK).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.TransitionBookingStatus(context.TODO(), "bkg_123", model.StatusPendingVerification, model.StatusVerifyHoldOK)
	assert.NoError(t, err)
}

func TestTransitionBookingStatus_InvalidEdge(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	err = ds.TransitionBookingStatus(context.TODO(), "bkg_123", model.StatusPendingVerification, model.StatusCaptured)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrBadRequest, err.(apierror.APIError).Code)
}

func TestTransitionBookingStatus_LostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE rentahold.bookings").
		WithArgs("bkg_123", model.StatusVerifyHoldOK, model.StatusHoldPlaced).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM rentahold.bookings").
		WithArgs("bkg_123").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.StatusHoldPlaced))

	err = ds.TransitionBookingStatus(context.TODO(), "bkg_123", model.StatusVerifyHoldOK, model.StatusHoldPlaced)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrConflict, err.(apierror.APIError).Code)
}
