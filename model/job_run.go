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

import "time"

// TriggerKind distinguishes cron-fired runs from manual re-triggers.
type TriggerKind string

const (
	TriggerCron   TriggerKind = "cron"
	TriggerManual TriggerKind = "manual"
)

// JobRunStatus is the lifecycle status of a job run record.
type JobRunStatus string

const (
	JobRunRunning JobRunStatus = "running"
	JobRunSuccess JobRunStatus = "success"
	JobRunFailed  JobRunStatus = "failed"
)

// JobRun records one triggered execution of a named job, cron or manual.
// Exactly one running row exists per execution attempt; it is updated to a
// terminal status once, then immutable. Batch jobs are success only when
// their failure count is zero.
type JobRun struct {
	ID             int64                  `json:"-"`
	JobRunID       string                 `json:"job_run_id"`
	JobName        string                 `json:"job_name"`
	JobType        TriggerKind            `json:"job_type"`
	Status         JobRunStatus           `json:"status"`
	TriggeredBy    string                 `json:"triggered_by,omitempty"`
	ProcessedCount int                    `json:"processed_count"`
	SuccessCount   int                    `json:"success_count"`
	FailureCount   int                    `json:"failure_count"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	FinishedAt     *time.Time             `json:"finished_at,omitempty"`
	MetaData       map[string]interface{} `json:"meta_data,omitempty"`
}
