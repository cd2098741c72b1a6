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
	"log"

	"github.com/hibiken/asynq"

	"github.com/heavyrent/rentahold/config"
	redis_db "github.com/heavyrent/rentahold/internal/redis-db"
)

const (
	// WEBHOOK_QUEUE carries booking lifecycle events to the outbound
	// webhook worker.
	WEBHOOK_QUEUE = "rentahold:webhooks"

	// SCHEDULE_TICK_TASK and RECONCILE_TASK are the periodic tasks the
	// worker process registers with the asynq scheduler.
	SCHEDULE_TICK_TASK = "schedules:process"
	RECONCILE_TASK     = "payouts:reconcile"
)

// Queue wraps the asynq client used to enqueue background work.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes a new Queue instance from the configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// Close releases the underlying asynq connections.
func (q *Queue) Close() error {
	return q.Client.Close()
}
