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
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/config"
	redlock "github.com/heavyrent/rentahold/internal/lock"
	"github.com/heavyrent/rentahold/internal/notification"
	"github.com/heavyrent/rentahold/model"
)

// schedulerLockTTL bounds one tick. A tick that outlives its lock is not
// fatal; claims make every schedule single-execution regardless.
const schedulerLockTTL = 4 * time.Minute

// TickResult summarizes one scheduler pass.
type TickResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Expired   int `json:"expired"`
}

// ProcessDueSchedules runs one scheduler tick: sweep stale claims, fetch the
// batch of due schedules, and execute each under a claim. Only one node
// ticks at a time; losers of the lock return an empty result. A schedule
// whose handler fails is marked failed and alerted on, never silently
// requeued, so a repeating decline cannot turn into a retry storm.
func (r *Rentahold) ProcessDueSchedules(ctx context.Context) (*TickResult, error) {
	ctx, span := otel.Tracer("Scheduler").Start(ctx, "Processing due schedules")
	defer span.End()

	result := &TickResult{}
	err := redlock.WithLock(ctx, r.redis, "scheduler:tick", schedulerLockTTL, func(ctx context.Context) error {
		return r.processDueSchedules(ctx, result)
	})
	if err == redlock.ErrHeld {
		logrus.Debug("scheduler tick already running elsewhere, skipping")
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Rentahold) processDueSchedules(ctx context.Context, result *TickResult) error {
	cnf, err := config.Fetch()
	if err != nil {
		return err
	}

	now := r.clock.Now()

	// A processing claim older than the grace window belongs to a dead worker.
	grace := time.Duration(cnf.Hold.GraceMinutes) * time.Minute
	expired, err := r.datasource.ExpireStuckSchedules(ctx, now.Add(-grace))
	if err != nil {
		return err
	}
	result.Expired = int(expired)
	if expired > 0 {
		logrus.WithField("count", expired).Warn("expired stale schedule claims")
	}

	due, err := r.datasource.GetDueSchedules(ctx, now, cnf.Hold.SchedulerBatchSize)
	if err != nil {
		return err
	}

	for _, schedule := range due {
		claimed, err := r.datasource.ClaimSchedule(ctx, schedule.ScheduleID, r.clock.Now())
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}
		result.Processed++

		if runErr := r.runSchedule(ctx, schedule); runErr != nil {
			result.Failed++
			if failErr := r.datasource.FailSchedule(ctx, schedule.ScheduleID, runErr.Error(), r.clock.Now()); failErr != nil {
				logrus.WithError(failErr).WithField("schedule_id", schedule.ScheduleID).Error("failed to mark schedule failed")
			}
			notification.NotifyError(fmt.Errorf("schedule %s (%s) for booking %s failed: %w",
				schedule.ScheduleID, schedule.JobType, schedule.BookingID, runErr))
			continue
		}

		result.Succeeded++
		if err := r.datasource.CompleteSchedule(ctx, schedule.ScheduleID, r.clock.Now()); err != nil {
			logrus.WithError(err).WithField("schedule_id", schedule.ScheduleID).Error("failed to mark schedule completed")
		}
	}

	return nil
}

// runSchedule dispatches one claimed schedule to its handler.
func (r *Rentahold) runSchedule(ctx context.Context, schedule *model.Schedule) error {
	switch schedule.JobType {
	case model.JobPlaceHold:
		_, err := r.PlaceSecurityHold(ctx, schedule.BookingID)
		return err
	case model.JobSendReminder:
		return r.sendStartReminder(ctx, schedule.BookingID)
	}
	return fmt.Errorf("no handler for job kind %q", schedule.JobType)
}

// GetSchedule exposes a schedule row to the API layer.
func (r *Rentahold) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	return r.datasource.GetSchedule(ctx, id)
}

// sendStartReminder notifies the booking channel that the rental is about to
// start.
func (r *Rentahold) sendStartReminder(ctx context.Context, bookingID string) error {
	booking, err := r.datasource.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	r.SendWebhook(NewWebhook{
		Event:   "booking.start_reminder",
		Payload: booking,
	})
	return nil
}
