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
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/internal/request"
)

// NewWebhook is the envelope every outbound booking event is wrapped in.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// SendWebhook enqueues a booking event for asynchronous delivery. Delivery
// is best effort; a booking operation never fails because the webhook
// endpoint is down.
func (r *Rentahold) SendWebhook(newWebhook NewWebhook) {
	conf, err := config.Fetch()
	if err != nil {
		logrus.WithError(err).Error("dropping webhook, config not loaded")
		return
	}
	if conf.Notification.Webhook.Url == "" {
		return
	}

	payload, err := json.Marshal(newWebhook)
	if err != nil {
		logrus.WithError(err).Error("dropping webhook, payload not serializable")
		return
	}

	task := asynq.NewTask(WEBHOOK_QUEUE, payload, asynq.Queue(WEBHOOK_QUEUE))
	if _, err := r.queue.Client.Enqueue(task); err != nil {
		logrus.WithError(err).WithField("event", newWebhook.Event).Error("failed to enqueue webhook")
	}
}

// ProcessWebhook delivers a queued booking event to the configured endpoint.
// Registered as the WEBHOOK_QUEUE handler in the worker process.
func ProcessWebhook(_ context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling webhook payload: %v", err)
		return err
	}

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, conf.Notification.Webhook.Url, body)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	var response map[string]interface{}
	resp, err := request.Call(req, &response)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Webhook delivery for %s returned status %d", payload.Event, resp.StatusCode)
		return nil
	}
	return nil
}
