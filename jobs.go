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
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

// Job names addressable through the trigger endpoint and the cron entries.
const (
	JobProcessSchedules = "process-due-schedules"
	JobReconcilePayouts = "reconcile-gateway-payouts"
)

// jobOutcome is what a job body reports back to the registry.
type jobOutcome struct {
	Processed int
	Succeeded int
	Failed    int
	Result    interface{}
}

// jobFunc is one runnable job body.
type jobFunc func(ctx context.Context) (*jobOutcome, error)

// JobRegistry maps job names to their bodies and records a JobRun around
// every execution, cron or manual. Names are a closed set; triggering an
// unknown name is a not-found error, not a silent no-op.
type JobRegistry struct {
	engine *Rentahold
	jobs   map[string]jobFunc
}

// NewJobRegistry builds the registry with every runnable job bound.
func NewJobRegistry(engine *Rentahold) *JobRegistry {
	registry := &JobRegistry{
		engine: engine,
		jobs:   make(map[string]jobFunc),
	}

	registry.jobs[JobProcessSchedules] = func(ctx context.Context) (*jobOutcome, error) {
		tick, err := engine.ProcessDueSchedules(ctx)
		if err != nil {
			return nil, err
		}
		return &jobOutcome{
			Processed: tick.Processed,
			Succeeded: tick.Succeeded,
			Failed:    tick.Failed,
			Result:    tick,
		}, nil
	}

	registry.jobs[JobReconcilePayouts] = func(ctx context.Context) (*jobOutcome, error) {
		rec, err := engine.ReconcilePayouts(ctx)
		if err != nil {
			return nil, err
		}
		return &jobOutcome{
			Processed: rec.Processed,
			Succeeded: rec.Created + rec.Updated,
			Failed:    rec.Failed,
			Result:    rec,
		}, nil
	}

	return registry
}

// Names returns the registered job names.
func (jr *JobRegistry) Names() []string {
	names := make([]string, 0, len(jr.jobs))
	for name := range jr.jobs {
		names = append(names, name)
	}
	return names
}

// TriggerResult is returned to the caller of a manual trigger.
type TriggerResult struct {
	Success  bool        `json:"success"`
	JobRunID string      `json:"jobRunId"`
	Result   interface{} `json:"result"`
}

// TriggerJob runs a named job on demand, recording who asked for it.
func (r *Rentahold) TriggerJob(ctx context.Context, name, triggeredBy string) (*TriggerResult, error) {
	return r.jobs.run(ctx, name, model.TriggerManual, triggeredBy)
}

// RunCronJob runs a named job on behalf of the periodic scheduler.
func (r *Rentahold) RunCronJob(ctx context.Context, name string) (*TriggerResult, error) {
	return r.jobs.run(ctx, name, model.TriggerCron, "scheduler")
}

// JobNames returns the job names the engine can run.
func (r *Rentahold) JobNames() []string {
	return r.jobs.Names()
}

// GetJobRuns exposes execution records to the API layer.
func (r *Rentahold) GetJobRuns(ctx context.Context, jobName string, limit, offset int) ([]*model.JobRun, error) {
	return r.datasource.GetJobRuns(ctx, jobName, limit, offset)
}

// GetJobRun retrieves a single execution record by its ID.
func (r *Rentahold) GetJobRun(ctx context.Context, id string) (*model.JobRun, error) {
	return r.datasource.GetJobRun(ctx, id)
}

func (jr *JobRegistry) run(ctx context.Context, name string, trigger model.TriggerKind, triggeredBy string) (*TriggerResult, error) {
	job, ok := jr.jobs[name]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Unknown job '%s'", name), nil)
	}

	engine := jr.engine
	run := &model.JobRun{
		JobRunID:    model.GenerateUUIDWithSuffix("run"),
		JobName:     name,
		JobType:     trigger,
		Status:      model.JobRunRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   engine.clock.Now(),
	}
	if name == JobReconcilePayouts {
		if cnf, err := config.Fetch(); err == nil {
			from, to := reconciliationWindow(run.StartedAt, cnf.Reconciliation.WindowDays)
			run.MetaData = map[string]interface{}{
				"window_from": from.Format("2006-01-02"),
				"window_to":   to.Format("2006-01-02"),
			}
		}
	}

	if err := engine.datasource.StartJobRun(ctx, run); err != nil {
		return nil, err
	}

	outcome, jobErr := job(ctx)

	run.FinishedAt = ptr.Time(engine.clock.Now())

	if jobErr != nil {
		run.Status = model.JobRunFailed
		run.ErrorMessage = jobErr.Error()
	} else {
		run.ProcessedCount = outcome.Processed
		run.SuccessCount = outcome.Succeeded
		run.FailureCount = outcome.Failed
		// A batch run with any failure is a failed run, even when the
		// rest of the batch went through.
		if outcome.Failed > 0 {
			run.Status = model.JobRunFailed
			run.ErrorMessage = fmt.Sprintf("%d of %d items failed", outcome.Failed, outcome.Processed)
		} else {
			run.Status = model.JobRunSuccess
		}
	}

	if err := engine.datasource.FinishJobRun(ctx, run); err != nil {
		logrus.WithError(err).WithField("job_run_id", run.JobRunID).Error("failed to finish job run")
	}

	if jobErr != nil {
		return &TriggerResult{Success: false, JobRunID: run.JobRunID}, jobErr
	}

	return &TriggerResult{
		Success:  run.Status == model.JobRunSuccess,
		JobRunID: run.JobRunID,
		Result:   outcome.Result,
	}, nil
}
