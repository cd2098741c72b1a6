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
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/heavyrent/rentahold/api/model"
	"github.com/heavyrent/rentahold/internal/apierror"
)

// TriggerJob runs a named job on demand.
//
// Responses:
// - 404 Not Found: If no job is registered under the name.
// - 200 OK: The trigger result, success or not; a run that failed part of
//   its batch still returns its job run id.
func (a Api) TriggerJob(c *gin.Context) {
	name, passed := c.Params.Get("name")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required. pass name in the route /:name"})
		return
	}

	// The body is optional; an empty trigger is attributed to "api".
	var req model2.TriggerJob
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	resp, err := a.engine.TriggerJob(c.Request.Context(), name, triggeredBy)
	if err != nil {
		if resp != nil {
			// The job ran and failed; the caller still gets the run id.
			c.JSON(http.StatusOK, resp)
			return
		}
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetJobNames lists the jobs that can be triggered.
func (a Api) GetJobNames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": a.engine.JobNames()})
}

// GetJobRuns lists job execution records, optionally filtered by job name.
func (a Api) GetJobRuns(c *gin.Context) {
	limit, offset := paginationParams(c)

	resp, err := a.engine.GetJobRuns(c.Request.Context(), c.Query("job_name"), limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetJobRun returns a single job execution record by its run ID.
func (a Api) GetJobRun(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.GetJobRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayoutReconciliations lists mirrored gateway payouts.
func (a Api) GetPayoutReconciliations(c *gin.Context) {
	limit, offset := paginationParams(c)

	resp, err := a.engine.GetPayoutReconciliations(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayoutReconciliation returns one mirrored payout by its gateway payout
// ID.
func (a Api) GetPayoutReconciliation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.GetPayoutReconciliation(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
