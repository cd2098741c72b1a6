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
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/internal/request"
)

// StripeClient talks to the Stripe REST API directly. Stripe takes
// form-encoded bodies and returns JSON; every mutating call carries an
// Idempotency-Key header so that the same logical operation replayed after a
// timeout lands on the original result.
type StripeClient struct {
	secretKey     string
	baseURL       string
	timeout       time.Duration
	retryCooldown time.Duration
}

// NewStripeClient builds a client from the loaded configuration.
func NewStripeClient() (*StripeClient, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if cnf.Gateway.SecretKey == "" {
		return nil, fmt.Errorf("gateway secret key is not configured")
	}
	return &StripeClient{
		secretKey:     cnf.Gateway.SecretKey,
		baseURL:       cnf.Gateway.BaseURL,
		timeout:       time.Duration(cnf.Gateway.TimeoutSeconds) * time.Second,
		retryCooldown: time.Duration(cnf.Hold.RetryCooldownSeconds) * time.Second,
	}, nil
}

// stripeError is the error envelope Stripe returns alongside a non-2xx
// status.
type stripeError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

type setupIntentResponse struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	PaymentMethod string       `json:"payment_method"`
	Customer      string       `json:"customer"`
	Error         *stripeError `json:"error"`
}

type paymentIntentResponse struct {
	ID       string       `json:"id"`
	Status   string       `json:"status"`
	Amount   int64        `json:"amount"`
	Currency string       `json:"currency"`
	Error    *stripeError `json:"error"`
}

type payoutListResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Amount      int64  `json:"amount"`
		Currency    string `json:"currency"`
		ArrivalDate int64  `json:"arrival_date"`
		Status      string `json:"status"`
		Method      string `json:"method"`
		Description string `json:"description"`
	} `json:"data"`
	HasMore bool         `json:"has_more"`
	Error   *stripeError `json:"error"`
}

// RetrieveSetup fetches a card-verification setup by its gateway ID.
func (s *StripeClient) RetrieveSetup(ctx context.Context, setupID string) (*SetupResult, error) {
	var resp setupIntentResponse
	if err := s.do(ctx, http.MethodGet, "/v1/setup_intents/"+setupID, nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, gatewayError(resp.Error)
	}
	return &SetupResult{
		SetupID:         resp.ID,
		Status:          resp.Status,
		PaymentMethodID: resp.PaymentMethod,
		CustomerID:      resp.Customer,
	}, nil
}

// AuthorizeHold places a manual-capture, off-session authorization against
// the stored card. Declines come back as CardDeclinedError; transport
// failures are retried once before surfacing.
func (s *StripeClient) AuthorizeHold(ctx context.Context, req AuthorizeRequest) (*HoldResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", req.Currency)
	form.Set("customer", req.CustomerID)
	form.Set("payment_method", req.PaymentMethodID)
	form.Set("capture_method", "manual")
	form.Set("off_session", "true")
	form.Set("confirm", "true")
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	for k, v := range req.MetaData {
		form.Set("metadata["+k+"]", v)
	}

	var resp paymentIntentResponse
	if err := s.do(ctx, http.MethodPost, "/v1/payment_intents", form, req.IdempotencyKey, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, gatewayError(resp.Error)
	}
	return holdResult(&resp), nil
}

// CaptureHold captures up to the authorized amount of an existing hold.
func (s *StripeClient) CaptureHold(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) (*HoldResult, error) {
	form := url.Values{}
	form.Set("amount_to_capture", strconv.FormatInt(amountCents, 10))

	var resp paymentIntentResponse
	if err := s.do(ctx, http.MethodPost, "/v1/payment_intents/"+intentID+"/capture", form, idempotencyKey, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, gatewayError(resp.Error)
	}
	return holdResult(&resp), nil
}

// CancelHold releases an uncaptured hold back to the card.
func (s *StripeClient) CancelHold(ctx context.Context, intentID string, idempotencyKey string) (*HoldResult, error) {
	var resp paymentIntentResponse
	if err := s.do(ctx, http.MethodPost, "/v1/payment_intents/"+intentID+"/cancel", url.Values{}, idempotencyKey, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, gatewayError(resp.Error)
	}
	return holdResult(&resp), nil
}

// ListPayouts pages through payouts that arrived on or after arrivedSince.
func (s *StripeClient) ListPayouts(ctx context.Context, arrivedSince time.Time, limit int) ([]*Payout, error) {
	var payouts []*Payout
	startingAfter := ""

	for {
		path := fmt.Sprintf("/v1/payouts?limit=%d&arrival_date[gte]=%d", limit, arrivedSince.Unix())
		if startingAfter != "" {
			path += "&starting_after=" + startingAfter
		}

		var resp payoutListResponse
		if err := s.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, gatewayError(resp.Error)
		}

		for _, p := range resp.Data {
			payout := &Payout{
				PayoutID:    p.ID,
				AmountCents: p.Amount,
				Currency:    p.Currency,
				Status:      p.Status,
				Method:      p.Method,
				Description: p.Description,
			}
			if p.ArrivalDate > 0 {
				arrival := time.Unix(p.ArrivalDate, 0).UTC()
				payout.ArrivalDate = &arrival
			}
			payouts = append(payouts, payout)
		}

		if !resp.HasMore || len(resp.Data) == 0 {
			break
		}
		startingAfter = resp.Data[len(resp.Data)-1].ID
	}

	return payouts, nil
}

// do performs one Stripe round trip, retrying transport failures once after
// the configured retry cooldown. Responses that decode (including Stripe error envelopes)
// are never retried here; only the caller can judge whether a decoded error
// is safe to replay.
func (s *StripeClient) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, response interface{}) error {
	operation := func() error {
		var req *http.Request
		var err error

		if form != nil {
			req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, request.ToFormReq(form))
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		} else {
			req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
		}

		req.Header.Set("Authorization", "Bearer "+s.secretKey)
		if idempotencyKey != "" {
			req.Header.Set(request.IdempotencyHeader, idempotencyKey)
		}

		resp, err := request.CallWithTimeout(req, response, s.timeout)
		if err != nil {
			logrus.WithError(err).WithField("path", path).Warn("gateway call failed, retrying")
			return err
		}
		defer resp.Body.Close()
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryCooldown), 1), ctx)
	return backoff.Retry(operation, policy)
}

func holdResult(resp *paymentIntentResponse) *HoldResult {
	return &HoldResult{
		IntentID:    resp.ID,
		Status:      resp.Status,
		AmountCents: resp.Amount,
		Currency:    resp.Currency,
	}
}

// gatewayError maps a Stripe error envelope to a typed error. Card errors
// become CardDeclinedError; everything else surfaces as a plain error.
func gatewayError(e *stripeError) error {
	if e.Type == "card_error" {
		return &CardDeclinedError{
			Code:        e.Code,
			DeclineCode: e.DeclineCode,
			Message:     e.Message,
		}
	}
	return fmt.Errorf("gateway error (%s/%s): %s", e.Type, e.Code, e.Message)
}
