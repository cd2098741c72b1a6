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
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

const scheduleColumns = `id, schedule_id, booking_id, job_type, run_at_utc, status, idempotency_key, error_message, created_at, claimed_at, completed_at, meta_data`

// CreateSchedule inserts a new schedule row. The insert is keyed on the
// idempotency key, so scheduling the same logical job twice reports false
// instead of creating a duplicate.
func (d Datasource) CreateSchedule(ctx context.Context, schedule *model.Schedule) (bool, error) {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Saving schedule to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(schedule.MetaData)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	result, err := d.Conn.ExecContext(ctx, `
		INSERT INTO rentahold.schedules (schedule_id, booking_id, job_type, run_at_utc, status, idempotency_key, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, schedule.ScheduleID, schedule.BookingID, schedule.JobType, schedule.RunAtUTC,
		schedule.Status, schedule.IdempotencyKey, schedule.CreatedAt, metaDataJSON)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record schedule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record schedule", err)
	}
	return rows == 1, nil
}

// GetSchedule retrieves a schedule by its ID.
func (d Datasource) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Fetching schedule from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM rentahold.schedules
		WHERE schedule_id = $1
	`, id)
	return scanSchedule(row, id)
}

// GetScheduleByIdempotencyKey retrieves a schedule by its idempotency key.
func (d Datasource) GetScheduleByIdempotencyKey(ctx context.Context, key string) (*model.Schedule, error) {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Fetching schedule by idempotency key")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM rentahold.schedules
		WHERE idempotency_key = $1
	`, key)
	return scanSchedule(row, key)
}

func scanSchedule(row *sql.Row, ref string) (*model.Schedule, error) {
	schedule := &model.Schedule{}
	var jobType string
	var errMsg sql.NullString
	var metaDataJSON []byte

	err := row.Scan(
		&schedule.ID, &schedule.ScheduleID, &schedule.BookingID, &jobType,
		&schedule.RunAtUTC, &schedule.Status, &schedule.IdempotencyKey, &errMsg,
		&schedule.CreatedAt, &schedule.ClaimedAt, &schedule.CompletedAt, &metaDataJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Schedule '%s' not found", ref), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve schedule", err)
	}

	kind, err := model.ParseJobKind(jobType)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Schedule has unknown job type", err)
	}
	schedule.JobType = kind
	schedule.ErrorMessage = errMsg.String

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &schedule.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return schedule, nil
}

// GetDueSchedules retrieves pending schedules whose run time has passed,
// oldest first.
func (d Datasource) GetDueSchedules(ctx context.Context, asOf time.Time, limit int) ([]*model.Schedule, error) {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Fetching due schedules from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM rentahold.schedules
		WHERE status = $1 AND run_at_utc <= $2
		ORDER BY run_at_utc ASC
		LIMIT $3
	`, model.ScheduleStatusPending, asOf, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve due schedules", err)
	}
	defer rows.Close()

	var schedules []*model.Schedule
	for rows.Next() {
		schedule := &model.Schedule{}
		var jobType string
		var errMsg sql.NullString
		var metaDataJSON []byte

		err = rows.Scan(
			&schedule.ID, &schedule.ScheduleID, &schedule.BookingID, &jobType,
			&schedule.RunAtUTC, &schedule.Status, &schedule.IdempotencyKey, &errMsg,
			&schedule.CreatedAt, &schedule.ClaimedAt, &schedule.CompletedAt, &metaDataJSON,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan schedule", err)
		}

		kind, err := model.ParseJobKind(jobType)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Schedule has unknown job type", err)
		}
		schedule.JobType = kind
		schedule.ErrorMessage = errMsg.String

		if len(metaDataJSON) > 0 {
			if err := json.Unmarshal(metaDataJSON, &schedule.MetaData); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
			}
		}

		schedules = append(schedules, schedule)
	}

	return schedules, nil
}

// ClaimSchedule moves a pending schedule to processing. Exactly one of the
// competing workers gets true; the rest see zero rows updated.
func (d Datasource) ClaimSchedule(ctx context.Context, id string, claimedAt time.Time) (bool, error) {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Claiming schedule")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.schedules
		SET status = $2, claimed_at = $3
		WHERE schedule_id = $1 AND status = $4
	`, id, model.ScheduleStatusProcessing, claimedAt, model.ScheduleStatusPending)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim schedule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim schedule", err)
	}
	return rows == 1, nil
}

// CompleteSchedule moves a processing schedule to completed.
func (d Datasource) CompleteSchedule(ctx context.Context, id string, completedAt time.Time) error {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Completing schedule")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.schedules
		SET status = $2, completed_at = $3
		WHERE schedule_id = $1 AND status = $4
	`, id, model.ScheduleStatusCompleted, completedAt, model.ScheduleStatusProcessing)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to complete schedule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to complete schedule", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Schedule '%s' is not processing", id), nil)
	}
	return nil
}

// FailSchedule moves a processing schedule to failed, recording the error.
func (d Datasource) FailSchedule(ctx context.Context, id string, errMsg string, failedAt time.Time) error {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Failing schedule")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.schedules
		SET status = $2, error_message = $3, completed_at = $4
		WHERE schedule_id = $1 AND status = $5
	`, id, model.ScheduleStatusFailed, errMsg, failedAt, model.ScheduleStatusProcessing)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fail schedule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fail schedule", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Schedule '%s' is not processing", id), nil)
	}
	return nil
}

// ExpireStuckSchedules expires processing rows claimed before the cutoff.
// A crashed worker leaves its claim behind; the scheduler sweeps these so
// operators can re-trigger them deliberately.
func (d Datasource) ExpireStuckSchedules(ctx context.Context, claimedBefore time.Time) (int64, error) {
	ctx, span := otel.Tracer("Schedules").Start(ctx, "Expiring stuck schedules")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.schedules
		SET status = $1, error_message = 'claim expired'
		WHERE status = $2 AND claimed_at < $3
	`, model.ScheduleStatusExpired, model.ScheduleStatusProcessing, claimedBefore)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to expire stuck schedules", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to expire stuck schedules", err)
	}
	return rows, nil
}
