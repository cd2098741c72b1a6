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
	"embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/database"
	"github.com/heavyrent/rentahold/gateway"
	redis_db "github.com/heavyrent/rentahold/internal/redis-db"
)

// Clock supplies the current time. The engine never calls time.Now directly;
// every schedule decision, idempotency key and run record goes through the
// injected clock so tests can pin the timeline.
type Clock interface {
	Now() time.Time
}

// RealClock is the production clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Rentahold is the hold-lifecycle engine for equipment-rental bookings. It
// owns card verification, deferred security-hold placement, return
// settlement and the nightly payout mirror.
type Rentahold struct {
	datasource database.IDataSource
	gateway    gateway.Client
	queue      *Queue
	redis      redis.UniversalClient
	clock      Clock
	jobs       *JobRegistry
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewRentahold initializes the engine with the provided datasource. The
// gateway client, redis connection and queue are built from the loaded
// configuration.
func NewRentahold(db database.IDataSource) (*Rentahold, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	stripeClient, err := gateway.NewStripeClient()
	if err != nil {
		return nil, err
	}

	newQueue := NewQueue(configuration)

	engine := &Rentahold{
		datasource: db,
		gateway:    stripeClient,
		queue:      newQueue,
		redis:      redisClient.Client(),
		clock:      RealClock{},
	}
	engine.jobs = NewJobRegistry(engine)
	return engine, nil
}
