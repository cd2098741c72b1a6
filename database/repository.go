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
	"time"

	"github.com/heavyrent/rentahold/model"
)

// IDataSource defines the interface for data source operations, grouping
// related functionalities.
type IDataSource interface {
	booking  // Booking lookups and status transitions
	schedule // Durable one-shot job rows
	payment  // Hold-ledger rows
	payout   // Gateway payout mirror
	jobRun   // Job execution records
}

// booking defines methods for reading and advancing bookings. The engine
// never creates or deletes bookings; RecordBooking exists for seeding and
// tests.
type booking interface {
	RecordBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error)               // Inserts a booking
	GetBooking(ctx context.Context, id string) (*model.Booking, error)                               // Retrieves a booking by ID
	GetBookingByNumber(ctx context.Context, number string) (*model.Booking, error)                   // Retrieves a booking by its human-facing number
	SaveCardOnBooking(ctx context.Context, id, paymentMethodID, gatewayCustomerID string) error      // Stores the verified card references
	SetSecurityHoldIntent(ctx context.Context, id, intentID string) error                            // Stores the gateway hold reference
	TransitionBookingStatus(ctx context.Context, id string, from, to model.BookingStatus) error      // Conditional status advance
}

// schedule defines methods for the durable schedule queue.
type schedule interface {
	CreateSchedule(ctx context.Context, schedule *model.Schedule) (bool, error)                     // Inserts a schedule; false when the idempotency key already exists
	GetSchedule(ctx context.Context, id string) (*model.Schedule, error)                            // Retrieves a schedule by ID
	GetScheduleByIdempotencyKey(ctx context.Context, key string) (*model.Schedule, error)           // Retrieves a schedule by its idempotency key
	GetDueSchedules(ctx context.Context, asOf time.Time, limit int) ([]*model.Schedule, error)      // Retrieves pending schedules whose run time has passed
	ClaimSchedule(ctx context.Context, id string, claimedAt time.Time) (bool, error)                // Moves pending to processing; false when another worker won
	CompleteSchedule(ctx context.Context, id string, completedAt time.Time) error                   // Moves processing to completed
	FailSchedule(ctx context.Context, id string, errMsg string, failedAt time.Time) error           // Moves processing to failed
	ExpireStuckSchedules(ctx context.Context, claimedBefore time.Time) (int64, error)               // Expires processing rows whose claim went stale
}

// payment defines methods for the hold ledger.
type payment interface {
	RecordPayment(ctx context.Context, payment *model.BookingPayment) (*model.BookingPayment, error) // Inserts a ledger row; returns the existing row with a conflict error on duplicate key
	GetPaymentByIdempotencyKey(ctx context.Context, key string) (*model.BookingPayment, error)       // Retrieves a ledger row by its idempotency key
	UpdatePaymentOutcome(ctx context.Context, id string, status model.PaymentStatus, gatewayRef, errMsg string) error
	GetPaymentsByBooking(ctx context.Context, bookingID string) ([]*model.BookingPayment, error) // Retrieves all ledger rows for a booking
}

// payout defines methods for the nightly payout mirror.
type payout interface {
	UpsertPayoutReconciliation(ctx context.Context, rec *model.PayoutReconciliation) (bool, error)  // Upserts keyed by gateway payout ID; true when the row is new
	GetPayoutReconciliation(ctx context.Context, gatewayPayoutID string) (*model.PayoutReconciliation, error)
	GetPayoutReconciliations(ctx context.Context, limit, offset int) ([]*model.PayoutReconciliation, error)
}

// jobRun defines methods for job execution records.
type jobRun interface {
	StartJobRun(ctx context.Context, run *model.JobRun) error                    // Inserts a running record
	FinishJobRun(ctx context.Context, run *model.JobRun) error                   // Moves a running record to its terminal status
	GetJobRun(ctx context.Context, id string) (*model.JobRun, error)             // Retrieves a run by ID
	GetJobRuns(ctx context.Context, jobName string, limit, offset int) ([]*model.JobRun, error)
}
