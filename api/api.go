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
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/heavyrent/rentahold"
	"github.com/heavyrent/rentahold/api/middleware"
	"github.com/heavyrent/rentahold/config"
)

type Api struct {
	engine *rentahold.Rentahold
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/bookings", a.CreateBooking)
	router.GET("/bookings/:id", a.GetBooking)
	router.GET("/bookings/:id/payments", a.GetBookingPayments)
	router.POST("/bookings/:id/verify-card", a.VerifyCard)
	router.POST("/bookings/:id/return", a.FinalizeReturn)

	router.GET("/schedules/:id", a.GetSchedule)

	router.POST("/jobs/:name/trigger", a.TriggerJob)
	router.GET("/jobs", a.GetJobNames)
	router.GET("/jobs/runs", a.GetJobRuns)
	router.GET("/jobs/runs/:id", a.GetJobRun)

	router.GET("/payout-reconciliations", a.GetPayoutReconciliations)
	router.GET("/payout-reconciliations/:id", a.GetPayoutReconciliation)
	return a.router
}

func NewAPI(engine *rentahold.Rentahold) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{engine: engine, router: r}
}
