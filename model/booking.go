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

// BookingStatus is the hold-relevant lifecycle status of a booking.
type BookingStatus string

const (
	StatusPendingVerification BookingStatus = "pending_verification"
	StatusVerifyHoldOK        BookingStatus = "verify_hold_ok"
	StatusHoldPlaced          BookingStatus = "hold_placed"
	StatusReturnedOK          BookingStatus = "returned_ok"
	StatusReleased            BookingStatus = "released"
	StatusCaptured            BookingStatus = "captured"
	StatusCancelled           BookingStatus = "cancelled"
)

// bookingTransitions encodes the allowed status graph. A booking only ever
// advances along these edges; released, captured and cancelled are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	StatusPendingVerification: {StatusVerifyHoldOK, StatusCancelled},
	StatusVerifyHoldOK:        {StatusHoldPlaced, StatusCancelled},
	StatusHoldPlaced:          {StatusReturnedOK, StatusReleased, StatusCaptured, StatusCancelled},
	StatusReturnedOK:          {StatusReleased, StatusCaptured},
}

// CanTransitionTo reports whether the status graph permits moving from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the hold lifecycle is finished for this status.
func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusReleased, StatusCaptured, StatusCancelled:
		return true
	}
	return false
}

// Booking is an equipment-rental booking as seen by the hold engine. Bookings
// are created by the booking flow and are only ever status-transitioned here,
// never deleted.
type Booking struct {
	ID                      int64                  `json:"-"`
	BookingID               string                 `json:"booking_id"`
	BookingNumber           string                 `json:"booking_number"`
	CustomerID              string                 `json:"customer_id"`
	StartDate               time.Time              `json:"start_date"`
	EndDate                 time.Time              `json:"end_date"`
	TotalAmountCents        int64                  `json:"total_amount_cents"`
	Currency                string                 `json:"currency"`
	Status                  BookingStatus          `json:"status"`
	PaymentMethodID         string                 `json:"payment_method_id,omitempty"`
	GatewayCustomerID       string                 `json:"gateway_customer_id,omitempty"`
	SecurityHoldIntentID    string                 `json:"security_hold_intent_id,omitempty"`
	HoldSecurityAmountCents int64                  `json:"hold_security_amount_cents,omitempty"`
	CreatedAt               time.Time              `json:"created_at"`
	MetaData                map[string]interface{} `json:"meta_data,omitempty"`
}

// HoldAmountCents resolves the security-hold amount for this booking, falling
// back to defaultCents when no per-booking override is set.
func (b *Booking) HoldAmountCents(defaultCents int64) int64 {
	if b.HoldSecurityAmountCents > 0 {
		return b.HoldSecurityAmountCents
	}
	return defaultCents
}
