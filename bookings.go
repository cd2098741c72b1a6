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

package rentahold

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/model"
)

// CreateBooking persists a new booking in pending_verification. Identifiers
// are assigned here; callers supply only the rental facts. Everything after
// creation is driven by the hold state machine.
func (r *Rentahold) CreateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	ctx, span := otel.Tracer("Bookings").Start(ctx, "Creating booking")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	booking.BookingID = model.GenerateUUIDWithSuffix("bkg")
	if booking.BookingNumber == "" {
		booking.BookingNumber = model.GenerateBookingNumber()
	}
	if booking.Currency == "" {
		booking.Currency = cnf.Hold.Currency
	}
	booking.Status = model.StatusPendingVerification
	booking.CreatedAt = r.clock.Now()

	return r.datasource.RecordBooking(ctx, booking)
}

// GetBookingByNumber looks a booking up by its human-readable number.
func (r *Rentahold) GetBookingByNumber(ctx context.Context, number string) (*model.Booking, error) {
	return r.datasource.GetBookingByNumber(ctx, number)
}
