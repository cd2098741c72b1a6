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
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

const paymentColumns = `id, payment_id, booking_id, purpose, amount_cents, currency, gateway_reference_id, idempotency_key, status, error_message, created_at, meta_data`

func paymentsCacheKey(bookingID string) string {
	return fmt.Sprintf("payments:booking:%s", bookingID)
}

// invalidatePaymentsCache drops the cached ledger for a booking after a
// write. Failures are logged only; the database row is the source of truth.
func (d Datasource) invalidatePaymentsCache(ctx context.Context, bookingID string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Delete(ctx, paymentsCacheKey(bookingID)); err != nil {
		logrus.WithError(err).WithField("booking_id", bookingID).Warn("failed to invalidate payments cache")
	}
}

// RecordPayment inserts a hold-ledger row. A duplicate idempotency key means
// this money movement was already attempted: the existing row is returned
// alongside a conflict error so the caller can short-circuit instead of
// hitting the gateway again.
func (d Datasource) RecordPayment(ctx context.Context, payment *model.BookingPayment) (*model.BookingPayment, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Saving payment to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(payment.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO rentahold.booking_payments (payment_id, booking_id, purpose, amount_cents, currency, gateway_reference_id, idempotency_key, status, error_message, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, payment.PaymentID, payment.BookingID, payment.Purpose, payment.AmountCents, payment.Currency,
		payment.GatewayReferenceID, payment.IdempotencyKey, payment.Status, payment.ErrorMessage,
		payment.CreatedAt, metaDataJSON)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			existing, getErr := d.GetPaymentByIdempotencyKey(ctx, payment.IdempotencyKey)
			if getErr != nil {
				return nil, getErr
			}
			return existing, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payment with idempotency key '%s' already recorded", payment.IdempotencyKey), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payment", err)
	}

	d.invalidatePaymentsCache(ctx, payment.BookingID)
	return payment, nil
}

// GetPaymentByIdempotencyKey retrieves a hold-ledger row by its idempotency key.
func (d Datasource) GetPaymentByIdempotencyKey(ctx context.Context, key string) (*model.BookingPayment, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Fetching payment by idempotency key")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM rentahold.booking_payments
		WHERE idempotency_key = $1
	`, key)

	payment := &model.BookingPayment{}
	var gatewayRef, errMsg sql.NullString
	var metaDataJSON []byte

	err := row.Scan(
		&payment.ID, &payment.PaymentID, &payment.BookingID, &payment.Purpose,
		&payment.AmountCents, &payment.Currency, &gatewayRef, &payment.IdempotencyKey,
		&payment.Status, &errMsg, &payment.CreatedAt, &metaDataJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payment with idempotency key '%s' not found", key), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment", err)
	}

	payment.GatewayReferenceID = gatewayRef.String
	payment.ErrorMessage = errMsg.String

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &payment.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return payment, nil
}

// UpdatePaymentOutcome records the gateway outcome on a pending ledger row.
// Succeeded and failed rows are immutable, so only pending rows match.
func (d Datasource) UpdatePaymentOutcome(ctx context.Context, id string, status model.PaymentStatus, gatewayRef, errMsg string) error {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Updating payment outcome")
	defer span.End()

	var bookingID string
	err := d.Conn.QueryRowContext(ctx, `
		UPDATE rentahold.booking_payments
		SET status = $2, gateway_reference_id = $3, error_message = $4
		WHERE payment_id = $1 AND status = $5
		RETURNING booking_id
	`, id, status, gatewayRef, errMsg, model.PaymentPending).Scan(&bookingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payment '%s' is not pending", id), nil)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update payment outcome", err)
	}

	d.invalidatePaymentsCache(ctx, bookingID)
	return nil
}

// GetPaymentsByBooking retrieves the full hold ledger for a booking, newest
// first.
func (d Datasource) GetPaymentsByBooking(ctx context.Context, bookingID string) ([]*model.BookingPayment, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Fetching payments for booking")
	defer span.End()

	var payments []*model.BookingPayment
	if d.Cache != nil {
		if err := d.Cache.Get(ctx, paymentsCacheKey(bookingID), &payments); err == nil && len(payments) > 0 {
			return payments, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM rentahold.booking_payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
	`, bookingID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payments", err)
	}
	defer rows.Close()

	for rows.Next() {
		payment := &model.BookingPayment{}
		var gatewayRef, errMsg sql.NullString
		var metaDataJSON []byte

		err = rows.Scan(
			&payment.ID, &payment.PaymentID, &payment.BookingID, &payment.Purpose,
			&payment.AmountCents, &payment.Currency, &gatewayRef, &payment.IdempotencyKey,
			&payment.Status, &errMsg, &payment.CreatedAt, &metaDataJSON,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payment", err)
		}

		payment.GatewayReferenceID = gatewayRef.String
		payment.ErrorMessage = errMsg.String

		if len(metaDataJSON) > 0 {
			if err := json.Unmarshal(metaDataJSON, &payment.MetaData); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
			}
		}

		payments = append(payments, payment)
	}

	if d.Cache != nil && len(payments) > 0 {
		if err := d.Cache.Set(ctx, paymentsCacheKey(bookingID), payments, 5*time.Minute); err != nil {
			logrus.WithError(err).Warn("failed to cache payments")
		}
	}

	return payments, nil
}
