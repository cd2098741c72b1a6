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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavyrent/rentahold/config"
)

func webhookConfig(addr, url string) *config.Configuration {
	cnf := &config.Configuration{
		Redis: config.RedisConfig{Dns: addr},
	}
	cnf.Notification.Webhook.Url = url
	return cnf
}

func TestSendWebhook_EnqueuesTask(t *testing.T) {
	mr := miniredis.RunT(t)
	cnf := webhookConfig(mr.Addr(), "http://localhost:5001/webhook")
	config.MockConfig(cnf)

	engine := &Rentahold{queue: NewQueue(cnf)}
	defer engine.queue.Close()

	engine.SendWebhook(NewWebhook{
		Event:   "booking.hold_placed",
		Payload: map[string]string{"booking_id": "bkg_123"},
	})

	assert.NotEmpty(t, mr.Keys(), "expected the webhook task to be enqueued")
}

func TestSendWebhook_NoopWithoutEndpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	cnf := webhookConfig(mr.Addr(), "")
	config.MockConfig(cnf)

	// queue left nil on purpose; without an endpoint SendWebhook must
	// return before touching it.
	engine := &Rentahold{}
	engine.SendWebhook(NewWebhook{Event: "booking.card_verified"})

	assert.Empty(t, mr.Keys())
}

func TestProcessWebhook_DeliversEvent(t *testing.T) {
	var received NewWebhook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	config.MockConfig(webhookConfig("localhost:6379", srv.URL))

	payload, err := json.Marshal(NewWebhook{
		Event:   "booking.start_reminder",
		Payload: map[string]string{"booking_id": "bkg_123"},
	})
	require.NoError(t, err)

	task := asynq.NewTask(WEBHOOK_QUEUE, payload)
	require.NoError(t, ProcessWebhook(context.Background(), task))
	assert.Equal(t, "booking.start_reminder", received.Event)
}

func TestProcessWebhook_EndpointErrorIsNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream"}`))
	}))
	defer srv.Close()

	config.MockConfig(webhookConfig("localhost:6379", srv.URL))

	payload, err := json.Marshal(NewWebhook{Event: "booking.hold_placed"})
	require.NoError(t, err)

	// A non-2xx response is logged and dropped rather than failing the
	// task into asynq's retry loop.
	task := asynq.NewTask(WEBHOOK_QUEUE, payload)
	assert.NoError(t, ProcessWebhook(context.Background(), task))
}
