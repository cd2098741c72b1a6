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
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/gateway"
	"github.com/heavyrent/rentahold/internal/apierror"
	redlock "github.com/heavyrent/rentahold/internal/lock"
	"github.com/heavyrent/rentahold/internal/notification"
	"github.com/heavyrent/rentahold/model"
)

// VerificationResult is returned by CompleteCardVerification. Schedule is
// the hold-placement schedule for the booking, whether this call created it
// or a previous verification already had.
type VerificationResult struct {
	Booking       *model.Booking  `json:"booking"`
	HoldScheduled bool            `json:"hold_scheduled"`
	HoldPlacedNow bool            `json:"hold_placed_now"`
	Schedule      *model.Schedule `json:"schedule,omitempty"`
}

// SettlementResult is returned by FinalizeReturn.
type SettlementResult struct {
	Booking       *model.Booking `json:"booking"`
	Action        string         `json:"action"` // "captured" or "released"
	AmountCents   int64          `json:"amount_cents"`
	GatewayRefID  string         `json:"gateway_reference_id"`
}

// CompleteCardVerification confirms that the customer's card passed the
// gateway's verification setup, stores the card references on the booking,
// and arranges for the security hold: scheduled at lead time before the
// rental starts, or placed immediately when the start is already inside the
// lead window. The whole operation is idempotent; re-verifying an already
// verified booking keeps the stored card, schedules nothing new, and returns
// the schedule the first verification arranged.
//
// callerID is the authenticated customer acting on the booking; an empty
// callerID marks a trusted internal caller and skips the ownership check.
func (r *Rentahold) CompleteCardVerification(ctx context.Context, callerID, bookingID, setupID string) (*VerificationResult, error) {
	ctx, span := otel.Tracer("Holds").Start(ctx, "Completing card verification")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	booking, err := r.datasource.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if callerID != "" && callerID != booking.CustomerID {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, fmt.Sprintf("Booking '%s' does not belong to caller", bookingID), nil)
	}
	if booking.Status != model.StatusPendingVerification && booking.Status != model.StatusVerifyHoldOK {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Booking '%s' is '%s', cannot verify card", bookingID, booking.Status), nil)
	}

	now := r.clock.Now()

	// A booking that already carries a card is a verification replay. The
	// stored card stays as it is, even when the replay names a different
	// setup; only the transition and scheduling tail below runs, in case
	// the first pass crashed partway through.
	if booking.PaymentMethodID == "" {
		setup, err := r.gateway.RetrieveSetup(ctx, setupID)
		if err != nil {
			return nil, err
		}
		if !setup.Succeeded() {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Card verification '%s' is '%s', expected succeeded", setupID, setup.Status), nil)
		}

		if err := r.datasource.SaveCardOnBooking(ctx, bookingID, setup.PaymentMethodID, setup.CustomerID); err != nil {
			return nil, err
		}
		booking.PaymentMethodID = setup.PaymentMethodID
		booking.GatewayCustomerID = setup.CustomerID

		verifyRow := &model.BookingPayment{
			PaymentID:          model.GenerateUUIDWithSuffix("pay"),
			BookingID:          bookingID,
			Purpose:            model.PurposeVerifyCard,
			AmountCents:        0,
			Currency:           booking.Currency,
			GatewayReferenceID: setup.SetupID,
			IdempotencyKey:     model.VerifyCardKey(bookingID, setupID),
			Status:             model.PaymentSucceeded,
			CreatedAt:          now,
		}
		if _, err := r.datasource.RecordPayment(ctx, verifyRow); err != nil && !apierror.IsConflict(err) {
			return nil, err
		}
	}

	if booking.Status == model.StatusPendingVerification {
		err = r.datasource.TransitionBookingStatus(ctx, bookingID, model.StatusPendingVerification, model.StatusVerifyHoldOK)
		if err != nil && !apierror.IsConflict(err) {
			return nil, err
		}
		booking.Status = model.StatusVerifyHoldOK
	}

	result := &VerificationResult{Booking: booking}

	leadTime := time.Duration(cnf.Hold.LeadTimeHours) * time.Hour
	holdAt := booking.StartDate.Add(-leadTime)

	if !holdAt.After(now) {
		// The rental starts inside the lead window; there is no point
		// scheduling a job that is already due.
		if _, err := r.PlaceSecurityHold(ctx, bookingID); err != nil {
			return nil, err
		}
		result.HoldPlacedNow = true
	} else {
		schedule := &model.Schedule{
			ScheduleID:     model.GenerateUUIDWithSuffix("sch"),
			BookingID:      bookingID,
			JobType:        model.JobPlaceHold,
			RunAtUTC:       holdAt.UTC(),
			Status:         model.ScheduleStatusPending,
			IdempotencyKey: model.SchedulePlaceHoldKey(bookingID, booking.StartDate),
			CreatedAt:      now,
		}
		created, err := r.datasource.CreateSchedule(ctx, schedule)
		if err != nil {
			return nil, err
		}
		result.HoldScheduled = created
		result.Schedule = schedule
		if !created {
			existing, err := r.datasource.GetScheduleByIdempotencyKey(ctx, schedule.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			result.Schedule = existing
		}
	}

	r.SendWebhook(NewWebhook{
		Event:   "booking.card_verified",
		Payload: booking,
	})

	return result, nil
}

// PlaceSecurityHold places the security hold for a booking: a
// manual-capture, off-session authorization against the stored card. Called
// by the scheduler at lead time, by card verification for short-notice
// bookings, and by the manual job trigger. A booking that already carries a
// hold short-circuits to success.
func (r *Rentahold) PlaceSecurityHold(ctx context.Context, bookingID string) (*model.Booking, error) {
	ctx, span := otel.Tracer("Holds").Start(ctx, "Placing security hold")
	defer span.End()

	var booking *model.Booking
	err := redlock.WithLock(ctx, r.redis, "place-hold:"+bookingID, 2*time.Minute, func(ctx context.Context) error {
		var lockedErr error
		booking, lockedErr = r.placeSecurityHold(ctx, bookingID)
		return lockedErr
	})
	if err == redlock.ErrHeld {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Hold placement for booking '%s' is already in progress", bookingID), err)
	}
	return booking, err
}

func (r *Rentahold) placeSecurityHold(ctx context.Context, bookingID string) (*model.Booking, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	booking, err := r.datasource.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Already held: nothing to do. This is the path double-fired schedules
	// and manual re-triggers land on.
	if booking.Status == model.StatusHoldPlaced && booking.SecurityHoldIntentID != "" {
		return booking, nil
	}
	if booking.Status != model.StatusVerifyHoldOK {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Booking '%s' is '%s', cannot place hold", bookingID, booking.Status), nil)
	}
	if booking.PaymentMethodID == "" || booking.GatewayCustomerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Booking '%s' has no verified card on file", bookingID), nil)
	}

	amountCents := booking.HoldAmountCents(cnf.Hold.DefaultAmountCents)
	currency := booking.Currency
	if currency == "" {
		currency = cnf.Hold.Currency
	}
	key := model.SecurityHoldKey(bookingID, booking.StartDate)

	ledgerRow := &model.BookingPayment{
		PaymentID:      model.GenerateUUIDWithSuffix("pay"),
		BookingID:      bookingID,
		Purpose:        model.PurposeSecurityHold,
		AmountCents:    amountCents,
		Currency:       currency,
		IdempotencyKey: key,
		Status:         model.PaymentPending,
		CreatedAt:      r.clock.Now(),
	}

	row, err := r.datasource.RecordPayment(ctx, ledgerRow)
	if err != nil {
		if !apierror.IsConflict(err) {
			return nil, err
		}
		// A row with this key already exists: this hold was attempted
		// before.
		switch row.Status {
		case model.PaymentSucceeded:
			return r.finishHoldPlacement(ctx, booking, row.GatewayReferenceID)
		case model.PaymentFailed:
			return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Hold for booking '%s' already failed: %s", bookingID, row.ErrorMessage), nil)
		}
		// Pending: a prior attempt died mid-call. The gateway key makes
		// re-confirming safe, so fall through and finish the work.
		ledgerRow = row
	}

	hold, err := r.gateway.AuthorizeHold(ctx, gateway.AuthorizeRequest{
		AmountCents:     amountCents,
		Currency:        currency,
		CustomerID:      booking.GatewayCustomerID,
		PaymentMethodID: booking.PaymentMethodID,
		IdempotencyKey:  key,
		Description:     fmt.Sprintf("Security hold for booking %s", booking.BookingNumber),
		MetaData: map[string]string{
			"booking_id":     bookingID,
			"booking_number": booking.BookingNumber,
		},
	})
	if err != nil {
		if gateway.IsCardDeclined(err) {
			if failErr := r.datasource.UpdatePaymentOutcome(ctx, ledgerRow.PaymentID, model.PaymentFailed, "", err.Error()); failErr != nil {
				return nil, failErr
			}
			notification.NotifyHoldPlacementFailure(bookingID, amountCents, err)
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Card declined for booking '%s'", bookingID), err)
		}
		// Transport failure even after retry. The row stays pending so the
		// next attempt resumes against the same gateway key.
		notification.NotifyHoldPlacementFailure(bookingID, amountCents, err)
		return nil, err
	}

	if err := r.datasource.UpdatePaymentOutcome(ctx, ledgerRow.PaymentID, model.PaymentSucceeded, hold.IntentID, ""); err != nil && !apierror.IsConflict(err) {
		return nil, err
	}

	return r.finishHoldPlacement(ctx, booking, hold.IntentID)
}

// finishHoldPlacement stores the hold reference and advances the booking.
// It tolerates replays: a conflict on the transition means another path
// already finished the same placement.
func (r *Rentahold) finishHoldPlacement(ctx context.Context, booking *model.Booking, intentID string) (*model.Booking, error) {
	if err := r.datasource.SetSecurityHoldIntent(ctx, booking.BookingID, intentID); err != nil {
		return nil, err
	}

	err := r.datasource.TransitionBookingStatus(ctx, booking.BookingID, model.StatusVerifyHoldOK, model.StatusHoldPlaced)
	if err != nil && !apierror.IsConflict(err) {
		return nil, err
	}

	booking.SecurityHoldIntentID = intentID
	booking.Status = model.StatusHoldPlaced

	r.SendWebhook(NewWebhook{
		Event:   "booking.hold_placed",
		Payload: booking,
	})
	return booking, nil
}

// FinalizeReturn settles the outstanding hold when the equipment comes back.
// With no damage the hold is released in full; with damage the charge is
// captured from the hold, never more than the authorized amount. The
// remainder of a partial capture is returned to the card by the gateway.
func (r *Rentahold) FinalizeReturn(ctx context.Context, bookingID string, damageAmountCents int64) (*SettlementResult, error) {
	ctx, span := otel.Tracer("Holds").Start(ctx, "Finalizing return")
	defer span.End()

	if damageAmountCents < 0 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Damage amount cannot be negative", nil)
	}

	booking, err := r.datasource.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status != model.StatusHoldPlaced && booking.Status != model.StatusReturnedOK {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Booking '%s' is '%s', cannot finalize return", bookingID, booking.Status), nil)
	}
	if booking.SecurityHoldIntentID == "" {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Booking '%s' has no hold to settle", bookingID), nil)
	}

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	holdAmount := booking.HoldAmountCents(cnf.Hold.DefaultAmountCents)
	// Capturing more than was authorized is a caller mistake, caught before
	// any state change or gateway call.
	if damageAmountCents > holdAmount {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Damage amount %d exceeds held amount %d", damageAmountCents, holdAmount), nil)
	}

	if booking.Status == model.StatusHoldPlaced {
		err = r.datasource.TransitionBookingStatus(ctx, bookingID, model.StatusHoldPlaced, model.StatusReturnedOK)
		if err != nil && !apierror.IsConflict(err) {
			return nil, err
		}
		booking.Status = model.StatusReturnedOK
	}

	var (
		purpose     model.PaymentPurpose
		action      string
		finalStatus model.BookingStatus
		amountCents int64
		event       string
	)
	if damageAmountCents > 0 {
		purpose = model.PurposeCapture
		action = "captured"
		finalStatus = model.StatusCaptured
		amountCents = damageAmountCents
		event = "booking.hold_captured"
	} else {
		purpose = model.PurposeRelease
		action = "released"
		finalStatus = model.StatusReleased
		amountCents = holdAmount
		event = "booking.hold_released"
	}

	// The end date is the stable logical return slot, so a replayed
	// settlement derives the same key and collides instead of double
	// charging.
	key := model.SettlementKey(bookingID, purpose, booking.EndDate)

	ledgerRow := &model.BookingPayment{
		PaymentID:      model.GenerateUUIDWithSuffix("pay"),
		BookingID:      bookingID,
		Purpose:        purpose,
		AmountCents:    amountCents,
		Currency:       booking.Currency,
		IdempotencyKey: key,
		Status:         model.PaymentPending,
		CreatedAt:      r.clock.Now(),
	}

	row, err := r.datasource.RecordPayment(ctx, ledgerRow)
	if err != nil {
		if !apierror.IsConflict(err) {
			return nil, err
		}
		switch row.Status {
		case model.PaymentSucceeded:
			return r.finishSettlement(ctx, booking, action, finalStatus, amountCents, row.GatewayReferenceID, event)
		case model.PaymentFailed:
			return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Settlement for booking '%s' already failed: %s", bookingID, row.ErrorMessage), nil)
		}
		ledgerRow = row
	}

	var result *gateway.HoldResult
	if purpose == model.PurposeCapture {
		result, err = r.gateway.CaptureHold(ctx, booking.SecurityHoldIntentID, amountCents, key)
	} else {
		result, err = r.gateway.CancelHold(ctx, booking.SecurityHoldIntentID, key)
	}
	if err != nil {
		if gateway.IsCardDeclined(err) {
			if failErr := r.datasource.UpdatePaymentOutcome(ctx, ledgerRow.PaymentID, model.PaymentFailed, "", err.Error()); failErr != nil {
				return nil, failErr
			}
		}
		notification.NotifyError(err)
		return nil, err
	}

	if err := r.datasource.UpdatePaymentOutcome(ctx, ledgerRow.PaymentID, model.PaymentSucceeded, result.IntentID, ""); err != nil && !apierror.IsConflict(err) {
		return nil, err
	}

	return r.finishSettlement(ctx, booking, action, finalStatus, amountCents, result.IntentID, event)
}

func (r *Rentahold) finishSettlement(ctx context.Context, booking *model.Booking, action string, finalStatus model.BookingStatus, amountCents int64, gatewayRef, event string) (*SettlementResult, error) {
	err := r.datasource.TransitionBookingStatus(ctx, booking.BookingID, model.StatusReturnedOK, finalStatus)
	if err != nil && !apierror.IsConflict(err) {
		return nil, err
	}
	booking.Status = finalStatus

	r.SendWebhook(NewWebhook{
		Event:   event,
		Payload: booking,
	})

	return &SettlementResult{
		Booking:      booking,
		Action:       action,
		AmountCents:  amountCents,
		GatewayRefID: gatewayRef,
	}, nil
}

// GetBooking exposes booking lookup to the API layer.
func (r *Rentahold) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return r.datasource.GetBooking(ctx, id)
}

// GetBookingPayments returns the full hold ledger for a booking.
func (r *Rentahold) GetBookingPayments(ctx context.Context, bookingID string) ([]*model.BookingPayment, error) {
	if _, err := r.datasource.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return r.datasource.GetPaymentsByBooking(ctx, bookingID)
}
