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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/heavyrent/rentahold/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Booking methods

func (m *MockDataSource) RecordBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockDataSource) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockDataSource) GetBookingByNumber(ctx context.Context, number string) (*model.Booking, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockDataSource) SaveCardOnBooking(ctx context.Context, id, paymentMethodID, gatewayCustomerID string) error {
	args := m.Called(ctx, id, paymentMethodID, gatewayCustomerID)
	return args.Error(0)
}

func (m *MockDataSource) SetSecurityHoldIntent(ctx context.Context, id, intentID string) error {
	args := m.Called(ctx, id, intentID)
	return args.Error(0)
}

func (m *MockDataSource) TransitionBookingStatus(ctx context.Context, id string, from, to model.BookingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

// Schedule methods

func (m *MockDataSource) CreateSchedule(ctx context.Context, schedule *model.Schedule) (bool, error) {
	args := m.Called(ctx, schedule)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockDataSource) GetScheduleByIdempotencyKey(ctx context.Context, key string) (*model.Schedule, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockDataSource) GetDueSchedules(ctx context.Context, asOf time.Time, limit int) ([]*model.Schedule, error) {
	args := m.Called(ctx, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Schedule), args.Error(1)
}

func (m *MockDataSource) ClaimSchedule(ctx context.Context, id string, claimedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, claimedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) CompleteSchedule(ctx context.Context, id string, completedAt time.Time) error {
	args := m.Called(ctx, id, completedAt)
	return args.Error(0)
}

func (m *MockDataSource) FailSchedule(ctx context.Context, id string, errMsg string, failedAt time.Time) error {
	args := m.Called(ctx, id, errMsg, failedAt)
	return args.Error(0)
}

func (m *MockDataSource) ExpireStuckSchedules(ctx context.Context, claimedBefore time.Time) (int64, error) {
	args := m.Called(ctx, claimedBefore)
	return args.Get(0).(int64), args.Error(1)
}

// Payment methods

func (m *MockDataSource) RecordPayment(ctx context.Context, payment *model.BookingPayment) (*model.BookingPayment, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingPayment), args.Error(1)
}

func (m *MockDataSource) GetPaymentByIdempotencyKey(ctx context.Context, key string) (*model.BookingPayment, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingPayment), args.Error(1)
}

func (m *MockDataSource) UpdatePaymentOutcome(ctx context.Context, id string, status model.PaymentStatus, gatewayRef, errMsg string) error {
	args := m.Called(ctx, id, status, gatewayRef, errMsg)
	return args.Error(0)
}

func (m *MockDataSource) GetPaymentsByBooking(ctx context.Context, bookingID string) ([]*model.BookingPayment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.BookingPayment), args.Error(1)
}

// Payout methods

func (m *MockDataSource) UpsertPayoutReconciliation(ctx context.Context, rec *model.PayoutReconciliation) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetPayoutReconciliation(ctx context.Context, gatewayPayoutID string) (*model.PayoutReconciliation, error) {
	args := m.Called(ctx, gatewayPayoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PayoutReconciliation), args.Error(1)
}

func (m *MockDataSource) GetPayoutReconciliations(ctx context.Context, limit, offset int) ([]*model.PayoutReconciliation, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PayoutReconciliation), args.Error(1)
}

// Job run methods

func (m *MockDataSource) StartJobRun(ctx context.Context, run *model.JobRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDataSource) FinishJobRun(ctx context.Context, run *model.JobRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDataSource) GetJobRun(ctx context.Context, id string) (*model.JobRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobRun), args.Error(1)
}

func (m *MockDataSource) GetJobRuns(ctx context.Context, jobName string, limit, offset int) ([]*model.JobRun, error) {
	args := m.Called(ctx, jobName, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.JobRun), args.Error(1)
}
