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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/internal/request"
)

func testClient(baseURL string) *StripeClient {
	return &StripeClient{
		secretKey:     "sk_test_123",
		baseURL:       baseURL,
		timeout:       5 * time.Second,
		retryCooldown: 10 * time.Millisecond,
	}
}

func TestNewStripeClient_UsesConfiguredRetryCooldown(t *testing.T) {
	config.MockConfig(&config.Configuration{
		Gateway: config.GatewayConfig{SecretKey: "sk_test_123"},
		Hold:    config.HoldConfig{RetryCooldownSeconds: 7},
	})

	client, err := NewStripeClient()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, client.retryCooldown)
}

func TestRetrieveSetup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/setup_intents/seti_123", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"seti_123","status":"succeeded","payment_method":"pm_789","customer":"cus_456"}`))
	}))
	defer server.Close()

	setup, err := testClient(server.URL).RetrieveSetup(context.Background(), "seti_123")
	require.NoError(t, err)
	assert.True(t, setup.Succeeded())
	assert.Equal(t, "pm_789", setup.PaymentMethodID)
	assert.Equal(t, "cus_456", setup.CustomerID)
}

func TestAuthorizeHold_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "bkg_123:security_hold:1760000000", r.Header.Get(request.IdempotencyHeader))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "50000", r.PostForm.Get("amount"))
		assert.Equal(t, "cad", r.PostForm.Get("currency"))
		assert.Equal(t, "manual", r.PostForm.Get("capture_method"))
		assert.Equal(t, "true", r.PostForm.Get("off_session"))
		assert.Equal(t, "true", r.PostForm.Get("confirm"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_abc","status":"requires_capture","amount":50000,"currency":"cad"}`))
	}))
	defer server.Close()

	hold, err := testClient(server.URL).AuthorizeHold(context.Background(), AuthorizeRequest{
		AmountCents:     50000,
		Currency:        "cad",
		CustomerID:      "cus_456",
		PaymentMethodID: "pm_789",
		IdempotencyKey:  "bkg_123:security_hold:1760000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_abc", hold.IntentID)
	assert.Equal(t, "requires_capture", hold.Status)
	assert.Equal(t, int64(50000), hold.AmountCents)
}

func TestAuthorizeHold_Declined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card has insufficient funds."}}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).AuthorizeHold(context.Background(), AuthorizeRequest{
		AmountCents:     50000,
		Currency:        "cad",
		CustomerID:      "cus_456",
		PaymentMethodID: "pm_789",
		IdempotencyKey:  "bkg_123:security_hold:1760000000",
	})
	require.Error(t, err)
	assert.True(t, IsCardDeclined(err))

	declined := err.(*CardDeclinedError)
	assert.Equal(t, "insufficient_funds", declined.DeclineCode)
}

func TestCaptureHold_PartialAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_abc/capture", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "15000", r.PostForm.Get("amount_to_capture"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_abc","status":"succeeded","amount":15000,"currency":"cad"}`))
	}))
	defer server.Close()

	hold, err := testClient(server.URL).CaptureHold(context.Background(), "pi_abc", 15000, "bkg_123:capture:1760300000")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", hold.Status)
	assert.Equal(t, int64(15000), hold.AmountCents)
}

func TestCancelHold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_abc/cancel", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_abc","status":"canceled","amount":50000,"currency":"cad"}`))
	}))
	defer server.Close()

	hold, err := testClient(server.URL).CancelHold(context.Background(), "pi_abc", "bkg_123:release:1760300000")
	require.NoError(t, err)
	assert.Equal(t, "canceled", hold.Status)
}

func TestListPayouts_Paginates(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("starting_after") == "" {
			_, _ = w.Write([]byte(`{"data":[{"id":"po_1","amount":120000,"currency":"cad","arrival_date":1760000000,"status":"paid","method":"standard"}],"has_more":true}`))
			return
		}
		assert.Equal(t, "po_1", r.URL.Query().Get("starting_after"))
		_, _ = w.Write([]byte(`{"data":[{"id":"po_2","amount":95000,"currency":"cad","arrival_date":1760086400,"status":"paid","method":"standard"}],"has_more":false}`))
	}))
	defer server.Close()

	payouts, err := testClient(server.URL).ListPayouts(context.Background(), time.Now().AddDate(0, 0, -14), 100)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, "po_1", payouts[0].PayoutID)
	assert.Equal(t, "po_2", payouts[1].PayoutID)
	assert.Equal(t, 2, calls)
}

func TestAuthorizeHold_RetriesTransportFailure(t *testing.T) {
	attempts := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			// Drop the connection so the client sees a transport error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_retry","status":"requires_capture","amount":50000,"currency":"cad"}`))
	}))
	defer server.Close()

	hold, err := testClient(server.URL).AuthorizeHold(context.Background(), AuthorizeRequest{
		AmountCents:     50000,
		Currency:        "cad",
		CustomerID:      "cus_456",
		PaymentMethodID: "pm_789",
		IdempotencyKey:  "bkg_retry:security_hold:1760000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_retry", hold.IntentID)
	assert.Equal(t, 2, attempts)
}

func TestMockClient_IdempotentAuthorize(t *testing.T) {
	mock := NewMockClient()

	first, err := mock.AuthorizeHold(context.Background(), AuthorizeRequest{
		AmountCents:    50000,
		Currency:       "cad",
		IdempotencyKey: "bkg_123:security_hold:1760000000",
	})
	require.NoError(t, err)

	second, err := mock.AuthorizeHold(context.Background(), AuthorizeRequest{
		AmountCents:    50000,
		Currency:       "cad",
		IdempotencyKey: "bkg_123:security_hold:1760000000",
	})
	require.NoError(t, err)
	assert.Equal(t, first.IntentID, second.IntentID)
}
