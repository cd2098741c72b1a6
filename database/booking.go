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
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

// RecordBooking inserts a new booking row.
func (d Datasource) RecordBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	ctx, span := otel.Tracer("Bookings").Start(ctx, "Saving booking to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(booking.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx,
		`INSERT INTO rentahold.bookings (booking_id, booking_number, customer_id, start_date, end_date, total_amount_cents, currency, status, payment_method_id, gateway_customer_id, security_hold_intent_id, hold_security_amount_cents, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		booking.BookingID, booking.BookingNumber, booking.CustomerID, booking.StartDate, booking.EndDate,
		booking.TotalAmountCents, booking.Currency, booking.Status, booking.PaymentMethodID,
		booking.GatewayCustomerID, booking.SecurityHoldIntentID, booking.HoldSecurityAmountCents,
		booking.CreatedAt, metaDataJSON,
	)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Booking with ID '%s' already exists", booking.BookingID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record booking", err)
	}

	return booking, nil
}

// GetBooking retrieves a booking by its booking ID.
func (d Datasource) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	ctx, span := otel.Tracer("Bookings").Start(ctx, "Fetching booking from db")
	defer span.End()

	return d.scanBooking(d.Conn.QueryRowContext(ctx, `
		SELECT id, booking_id, booking_number, customer_id, start_date, end_date, total_amount_cents, currency, status, payment_method_id, gateway_customer_id, security_hold_intent_id, hold_security_amount_cents, created_at, meta_data
		FROM rentahold.bookings
		WHERE booking_id = $1
	`, id), id)
}

// GetBookingByNumber retrieves a booking by its human-facing booking number.
func (d Datasource) GetBookingByNumber(ctx context.Context, number string) (*model.Booking, error) {
	ctx, span := otel.Tracer("Bookings").Start(ctx, "Fetching booking by number from db")
	defer span.End()

	return d.scanBooking(d.Conn.QueryRowContext(ctx, `
		SELECT id, booking_id, booking_number, customer_id, start_date, end_date, total_amount_cents, currency, status, payment_method_id, gateway_customer_id, security_hold_intent_id, hold_security_amount_cents, created_at, meta_data
		FROM rentahold.bookings
		WHERE booking_number = $1
	`, number), number)
}

func (d Datasource) scanBooking(row *sql.Row, ref string) (*model.Booking, error) {
	booking := &model.Booking{}
	var metaDataJSON []byte
	var paymentMethodID, gatewayCustomerID, holdIntentID sql.NullString
	var holdOverride sql.NullInt64

	err := row.Scan(
		&booking.ID, &booking.BookingID, &booking.BookingNumber, &booking.CustomerID,
		&booking.StartDate, &booking.EndDate, &booking.TotalAmountCents, &booking.Currency,
		&booking.Status, &paymentMethodID, &gatewayCustomerID, &holdIntentID,
		&holdOverride, &booking.CreatedAt, &metaDataJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Booking '%s' not found", ref), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve booking", err)
	}

	booking.PaymentMethodID = paymentMethodID.String
	booking.GatewayCustomerID = gatewayCustomerID.String
	booking.SecurityHoldIntentID = holdIntentID.String
	booking.HoldSecurityAmountCents = holdOverride.Int64

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &booking.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return booking, nil
}

// SaveCardOnBooking stores the verified payment method and gateway customer
// references on a booking.
func (d Datasource) SaveCardOnBooking(ctx context.Context, id, paymentMethodID, gatewayCustomerID string) error {
	ctx, span := otel.Tracer("Bookings").Start(ctx, "Saving card references on booking")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.bookings
		SET payment_method_id = $2, gateway_customer_id = $3
		WHERE booking_id = $1
	`, id, paymentMethodID, gatewayCustomerID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save card on booking", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save card on booking", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Booking '%s' not found", id), nil)
	}
	return nil
}

// SetSecurityHoldIntent stores the gateway payment-intent reference backing
// the booking's security hold.
func (d Datasource) SetSecurityHoldIntent(ctx context.Context, id, intentID string) error {
	ctx, span := otel.Tracer("Bookings").Start(ctx, "Saving security hold intent on booking")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.bookings
		SET security_hold_intent_id = $2
		WHERE booking_id = $1
	`, id, intentID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save security hold intent", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save security hold intent", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Booking '%s' not found", id), nil)
	}
	return nil
}

// TransitionBookingStatus advances a booking from one status to another. The
// update is conditional on the current status, so a concurrent transition
// loses cleanly instead of overwriting.
func (d Datasource) TransitionBookingStatus(ctx context.Context, id string, from, to model.BookingStatus) error {
	ctx, span := otel.Tracer("Bookings").Start(ctx, "Transitioning booking status")
	defer span.End()

	if !from.CanTransitionTo(to) {
		return apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Booking status cannot move from '%s' to '%s'", from, to), nil)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.bookings
		SET status = $3
		WHERE booking_id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to transition booking status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to transition booking status", err)
	}
	if rows == 0 {
		// Either the booking is missing or another writer moved it first.
		var current model.BookingStatus
		scanErr := d.Conn.QueryRowContext(ctx, `SELECT status FROM rentahold.bookings WHERE booking_id = $1`, id).Scan(&current)
		if scanErr == sql.ErrNoRows {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Booking '%s' not found", id), scanErr)
		}
		if scanErr != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to transition booking status", scanErr)
		}
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Booking '%s' is '%s', expected '%s'", id, current, from), nil)
	}
	return nil
}
