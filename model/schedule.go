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

package model

import (
	"fmt"
	"time"
)

// JobKind is the closed set of schedule job types. Handlers are dispatched
// through a typed registry, so an unknown kind is a parse error rather than
// a runtime switch falling through.
type JobKind string

const (
	JobPlaceHold    JobKind = "place_hold"
	JobSendReminder JobKind = "send_reminder"
)

// ParseJobKind validates a stored job_type value.
func ParseJobKind(s string) (JobKind, error) {
	switch JobKind(s) {
	case JobPlaceHold, JobSendReminder:
		return JobKind(s), nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// ScheduleStatus is the lifecycle status of a schedule row.
type ScheduleStatus string

const (
	ScheduleStatusPending    ScheduleStatus = "pending"
	ScheduleStatusProcessing ScheduleStatus = "processing"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusFailed     ScheduleStatus = "failed"
	ScheduleStatusExpired    ScheduleStatus = "expired"
)

// Schedule is a durable one-shot job owned by a booking, fired by the
// scheduler when run_at_utc passes. The idempotency key is unique in storage,
// so re-inserting the same logical job is a no-op.
type Schedule struct {
	ID             int64                  `json:"-"`
	ScheduleID     string                 `json:"schedule_id"`
	BookingID      string                 `json:"booking_id"`
	JobType        JobKind                `json:"job_type"`
	RunAtUTC       time.Time              `json:"run_at_utc"`
	Status         ScheduleStatus         `json:"status"`
	IdempotencyKey string                 `json:"idempotency_key"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	ClaimedAt      *time.Time             `json:"claimed_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	MetaData       map[string]interface{} `json:"meta_data,omitempty"`
}
