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

	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

const jobRunColumns = `id, job_run_id, job_name, job_type, status, triggered_by, processed_count, success_count, failure_count, error_message, started_at, finished_at, meta_data`

// StartJobRun inserts a running execution record.
func (d Datasource) StartJobRun(ctx context.Context, run *model.JobRun) error {
	ctx, span := otel.Tracer("JobRuns").Start(ctx, "Saving job run to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(run.MetaData)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO rentahold.job_runs (job_run_id, job_name, job_type, status, triggered_by, processed_count, success_count, failure_count, started_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.JobRunID, run.JobName, run.JobType, run.Status, run.TriggeredBy,
		run.ProcessedCount, run.SuccessCount, run.FailureCount, run.StartedAt, metaDataJSON)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record job run", err)
	}

	return nil
}

// FinishJobRun moves a running record to its terminal status with final
// counts. Terminal records are immutable, so only the running row matches.
func (d Datasource) FinishJobRun(ctx context.Context, run *model.JobRun) error {
	ctx, span := otel.Tracer("JobRuns").Start(ctx, "Finishing job run")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE rentahold.job_runs
		SET status = $2, processed_count = $3, success_count = $4, failure_count = $5, error_message = $6, finished_at = $7
		WHERE job_run_id = $1 AND status = $8
	`, run.JobRunID, run.Status, run.ProcessedCount, run.SuccessCount, run.FailureCount,
		run.ErrorMessage, run.FinishedAt, model.JobRunRunning)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finish job run", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finish job run", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Job run '%s' is not running", run.JobRunID), nil)
	}
	return nil
}

// GetJobRun retrieves a job run by its ID.
func (d Datasource) GetJobRun(ctx context.Context, id string) (*model.JobRun, error) {
	ctx, span := otel.Tracer("JobRuns").Start(ctx, "Fetching job run from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+jobRunColumns+`
		FROM rentahold.job_runs
		WHERE job_run_id = $1
	`, id)

	run, err := scanJobRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Job run '%s' not found", id), err)
		}
		return nil, err
	}
	return run, nil
}

// GetJobRuns retrieves execution records, newest first. An empty jobName
// matches all jobs.
func (d Datasource) GetJobRuns(ctx context.Context, jobName string, limit, offset int) ([]*model.JobRun, error) {
	ctx, span := otel.Tracer("JobRuns").Start(ctx, "Fetching job runs from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+jobRunColumns+`
		FROM rentahold.job_runs
		WHERE ($1 = '' OR job_name = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`, jobName, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve job runs", err)
	}
	defer rows.Close()

	var runs []*model.JobRun
	for rows.Next() {
		run, err := scanJobRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, nil
}

func scanJobRun(scan func(dest ...interface{}) error) (*model.JobRun, error) {
	run := &model.JobRun{}
	var triggeredBy, errMsg sql.NullString
	var metaDataJSON []byte

	err := scan(
		&run.ID, &run.JobRunID, &run.JobName, &run.JobType, &run.Status,
		&triggeredBy, &run.ProcessedCount, &run.SuccessCount, &run.FailureCount,
		&errMsg, &run.StartedAt, &run.FinishedAt, &metaDataJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan job run", err)
	}

	run.TriggeredBy = triggeredBy.String
	run.ErrorMessage = errMsg.String

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &run.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return run, nil
}
