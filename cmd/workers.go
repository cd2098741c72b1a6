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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/heavyrent/rentahold"
	"github.com/heavyrent/rentahold/config"
	redis_db "github.com/heavyrent/rentahold/internal/redis-db"
)

// processScheduleTick runs one scheduler pass on behalf of the periodic
// task. The engine records a JobRun either way; asynq retries are safe
// because claims keep every schedule single-execution.
func (app *appInstance) processScheduleTick(ctx context.Context, _ *asynq.Task) error {
	result, err := app.engine.RunCronJob(ctx, rentahold.JobProcessSchedules)
	if err != nil {
		logrus.WithError(err).Error("schedule tick failed")
		return err
	}
	if !result.Success {
		logrus.WithField("job_run_id", result.JobRunID).Warn("schedule tick finished with failures")
	}
	return nil
}

// reconcilePayouts mirrors recent gateway payouts on behalf of the nightly
// task.
func (app *appInstance) reconcilePayouts(ctx context.Context, _ *asynq.Task) error {
	result, err := app.engine.RunCronJob(ctx, rentahold.JobReconcilePayouts)
	if err != nil {
		logrus.WithError(err).Error("payout reconciliation failed")
		return err
	}
	if !result.Success {
		logrus.WithField("job_run_id", result.JobRunID).Warn("payout reconciliation finished with failures")
	}
	return nil
}

func redisConnOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	connOpt, err := redisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(
		connOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				rentahold.WEBHOOK_QUEUE: 3,
				"default":               1,
			},
		},
	), nil
}

// initializeScheduler registers the periodic entries: the schedule tick
// every five minutes and the payout mirror nightly.
func initializeScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	connOpt, err := redisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(connOpt, nil)

	if _, err := scheduler.Register("*/5 * * * *", asynq.NewTask(rentahold.SCHEDULE_TICK_TASK, nil)); err != nil {
		return nil, err
	}
	if _, err := scheduler.Register("0 2 * * *", asynq.NewTask(rentahold.RECONCILE_TASK, nil)); err != nil {
		return nil, err
	}

	return scheduler, nil
}

func initializeTaskHandlers(app *appInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(rentahold.WEBHOOK_QUEUE, rentahold.ProcessWebhook)
	mux.HandleFunc(rentahold.SCHEDULE_TICK_TASK, app.processScheduleTick)
	mux.HandleFunc(rentahold.RECONCILE_TASK, app.reconcilePayouts)
}

// workerCommands defines the "workers" command: the asynq server consuming
// webhook and periodic tasks, the asynq scheduler emitting them, and the
// asynqmon monitoring UI.
func workerCommands(app *appInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start rentahold workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(app, mux)

			scheduler, err := initializeScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			go func() {
				if err := scheduler.Run(); err != nil {
					log.Fatalf("could not run scheduler: %v", err)
				}
			}()

			// Monitoring UI for queue health.
			connOpt, _ := redisConnOpt(conf)
			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: connOpt,
			})
			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
