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

package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockClient is an in-memory gateway for tests and local development. It
// honors idempotency keys the way the real gateway does: replaying a key
// returns the original result instead of creating a second hold.
type MockClient struct {
	mu sync.Mutex

	DeclineNext bool
	FailNext    bool
	Payouts     []*Payout

	holds  map[string]*HoldResult // keyed by intent ID
	byKey  map[string]*HoldResult // keyed by idempotency key
	setups map[string]*SetupResult
}

func NewMockClient() *MockClient {
	return &MockClient{
		holds:  make(map[string]*HoldResult),
		byKey:  make(map[string]*HoldResult),
		setups: make(map[string]*SetupResult),
	}
}

// SeedSetup registers a completed card-verification setup.
func (m *MockClient) SeedSetup(setupID, paymentMethodID, customerID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setups[setupID] = &SetupResult{
		SetupID:         setupID,
		Status:          status,
		PaymentMethodID: paymentMethodID,
		CustomerID:      customerID,
	}
}

func (m *MockClient) RetrieveSetup(_ context.Context, setupID string) (*SetupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	setup, ok := m.setups[setupID]
	if !ok {
		return nil, &CardDeclinedError{Code: "resource_missing", Message: "no such setup"}
	}
	return setup, nil
}

func (m *MockClient) AuthorizeHold(_ context.Context, req AuthorizeRequest) (*HoldResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byKey[req.IdempotencyKey]; ok {
		return existing, nil
	}
	if m.FailNext {
		m.FailNext = false
		return nil, context.DeadlineExceeded
	}
	if m.DeclineNext {
		m.DeclineNext = false
		return nil, &CardDeclinedError{Code: "card_declined", DeclineCode: "insufficient_funds", Message: "Your card has insufficient funds."}
	}

	hold := &HoldResult{
		IntentID:    "pi_mock_" + uuid.New().String(),
		Status:      "requires_capture",
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}
	m.holds[hold.IntentID] = hold
	m.byKey[req.IdempotencyKey] = hold
	return hold, nil
}

func (m *MockClient) CaptureHold(_ context.Context, intentID string, amountCents int64, _ string) (*HoldResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[intentID]
	if !ok {
		return nil, &CardDeclinedError{Code: "resource_missing", Message: "no such payment intent"}
	}
	captured := &HoldResult{
		IntentID:    hold.IntentID,
		Status:      "succeeded",
		AmountCents: amountCents,
		Currency:    hold.Currency,
	}
	m.holds[intentID] = captured
	return captured, nil
}

func (m *MockClient) CancelHold(_ context.Context, intentID string, _ string) (*HoldResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[intentID]
	if !ok {
		return nil, &CardDeclinedError{Code: "resource_missing", Message: "no such payment intent"}
	}
	canceled := &HoldResult{
		IntentID:    hold.IntentID,
		Status:      "canceled",
		AmountCents: hold.AmountCents,
		Currency:    hold.Currency,
	}
	m.holds[intentID] = canceled
	return canceled, nil
}

func (m *MockClient) ListPayouts(_ context.Context, arrivedSince time.Time, _ int) ([]*Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payouts []*Payout
	for _, p := range m.Payouts {
		if p.ArrivalDate == nil || !p.ArrivalDate.Before(arrivedSince) {
			payouts = append(payouts, p)
		}
	}
	return payouts, nil
}
