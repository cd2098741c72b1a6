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

// Package gateway abstracts the card-payment provider behind a small client
// interface. The engine only ever speaks to this interface; the concrete
// Stripe client lives alongside a mock used in tests and local development.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SetupResult is the outcome of a card-verification setup at the gateway.
type SetupResult struct {
	SetupID         string `json:"setup_id"`
	Status          string `json:"status"`
	PaymentMethodID string `json:"payment_method_id"`
	CustomerID      string `json:"customer_id"`
}

// Succeeded reports whether the card verification completed at the gateway.
func (s *SetupResult) Succeeded() bool {
	return s.Status == "succeeded"
}

// HoldResult is the state of an authorization at the gateway after a place,
// capture or cancel call.
type HoldResult struct {
	IntentID    string `json:"intent_id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Payout is one settlement payout as reported by the gateway.
type Payout struct {
	PayoutID    string     `json:"payout_id"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	ArrivalDate *time.Time `json:"arrival_date,omitempty"`
	Status      string     `json:"status"`
	Method      string     `json:"method,omitempty"`
	Description string     `json:"description,omitempty"`
}

// AuthorizeRequest describes a security hold to place: a manual-capture,
// off-session authorization against a stored card. The idempotency key makes
// replays of the same logical hold a no-op at the gateway.
type AuthorizeRequest struct {
	AmountCents     int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	IdempotencyKey  string
	Description     string
	MetaData        map[string]string
}

// Client is the card-gateway surface the engine depends on.
type Client interface {
	RetrieveSetup(ctx context.Context, setupID string) (*SetupResult, error)
	AuthorizeHold(ctx context.Context, req AuthorizeRequest) (*HoldResult, error)
	CaptureHold(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) (*HoldResult, error)
	CancelHold(ctx context.Context, intentID string, idempotencyKey string) (*HoldResult, error)
	ListPayouts(ctx context.Context, arrivedSince time.Time, limit int) ([]*Payout, error)
}

// CardDeclinedError is returned when the gateway refuses an authorization or
// capture for card reasons. It is a business outcome, not a transport
// failure, so callers must not retry it.
type CardDeclinedError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *CardDeclinedError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("card declined (%s/%s): %s", e.Code, e.DeclineCode, e.Message)
	}
	return fmt.Sprintf("card declined (%s): %s", e.Code, e.Message)
}

// IsCardDeclined reports whether err is a card decline.
func IsCardDeclined(err error) bool {
	var declined *CardDeclinedError
	return errors.As(err, &declined)
}
