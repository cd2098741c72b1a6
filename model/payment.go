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

package model

import "time"

// PaymentPurpose classifies a hold-ledger row.
type PaymentPurpose string

const (
	PurposeVerifyCard   PaymentPurpose = "verify_card"
	PurposeSecurityHold PaymentPurpose = "security_hold"
	PurposeCapture      PaymentPurpose = "capture"
	PurposeRelease      PaymentPurpose = "release"
)

// PaymentStatus is the outcome of a hold-ledger row.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentPending   PaymentStatus = "pending"
)

// BookingPayment is one row of the hold ledger: a single attempted
// money-state mutation against the gateway. Every gateway call that mutates
// money-state is preceded by writing (or reusing) one of these rows, and the
// gateway call carries the same idempotency key. Rows are immutable once
// succeeded or failed.
type BookingPayment struct {
	ID                 int64                  `json:"-"`
	PaymentID          string                 `json:"payment_id"`
	BookingID          string                 `json:"booking_id"`
	Purpose            PaymentPurpose         `json:"purpose"`
	AmountCents        int64                  `json:"amount_cents"`
	Currency           string                 `json:"currency"`
	GatewayReferenceID string                 `json:"gateway_reference_id,omitempty"`
	IdempotencyKey     string                 `json:"idempotency_key"`
	Status             PaymentStatus          `json:"status"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	MetaData           map[string]interface{} `json:"meta_data,omitempty"`
}
