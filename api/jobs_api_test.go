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
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/heavyrent/rentahold"
	model2 "github.com/heavyrent/rentahold/api/model"
	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

func TestTriggerJob_NotFound(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, model2.TriggerJob{TriggeredBy: "ops@example.com"}),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/jobs/no-such-job/trigger",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	mockDS.AssertNotCalled(t, "StartJobRun", mock.Anything, mock.Anything)
}

func TestTriggerJob_ProcessSchedules(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	mockDS.On("StartJobRun", mock.Anything, mock.MatchedBy(func(run *model.JobRun) bool {
		return run.JobType == model.TriggerManual && run.TriggeredBy == "ops@example.com"
	})).Return(nil)
	mockDS.On("ExpireStuckSchedules", mock.Anything, mock.Anything).Return(int64(0), nil)
	mockDS.On("GetDueSchedules", mock.Anything, mock.Anything, mock.Anything).Return([]*model.Schedule{}, nil)
	mockDS.On("FinishJobRun", mock.Anything, mock.Anything).Return(nil)

	var response rentahold.TriggerResult
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  toJSON(t, model2.TriggerJob{TriggeredBy: "ops@example.com"}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/jobs/" + rentahold.JobProcessSchedules + "/trigger",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, response.Success)
	assert.NotEmpty(t, response.JobRunID)
	mockDS.AssertExpectations(t)
}

func TestGetJobNames(t *testing.T) {
	router, _ := setupRouter(t, nil)

	var response struct {
		Jobs []string `json:"jobs"`
	}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/jobs",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.ElementsMatch(t, []string{rentahold.JobProcessSchedules, rentahold.JobReconcilePayouts}, response.Jobs)
}

func TestGetJobRuns_FiltersByName(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	runs := []*model.JobRun{
		{JobRunID: "run_1", JobName: rentahold.JobReconcilePayouts, Status: model.JobRunSuccess},
	}
	mockDS.On("GetJobRuns", mock.Anything, rentahold.JobReconcilePayouts, 50, 0).Return(runs, nil)

	var response []*model.JobRun
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/jobs/runs?job_name=" + rentahold.JobReconcilePayouts,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, response, 1)
	assert.Equal(t, "run_1", response[0].JobRunID)
}

func TestGetJobRun(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	run := &model.JobRun{
		JobRunID: "run_1",
		JobName:  rentahold.JobProcessSchedules,
		JobType:  model.TriggerManual,
		Status:   model.JobRunSuccess,
	}
	mockDS.On("GetJobRun", mock.Anything, "run_1").Return(run, nil)

	var response model.JobRun
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/jobs/runs/run_1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "run_1", response.JobRunID)
	assert.Equal(t, rentahold.JobProcessSchedules, response.JobName)
}

func TestGetJobRun_NotFound(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	mockDS.On("GetJobRun", mock.Anything, "run_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Job run 'run_missing' not found", nil))

	resp, err := SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/jobs/runs/run_missing",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetPayoutReconciliations(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	arrival := time.Now().UTC()
	recs := []*model.PayoutReconciliation{
		{
			ReconciliationID: "rcn_1",
			GatewayPayoutID:  "po_1",
			Amount:           decimal.NewFromFloat(1250.00),
			Currency:         "cad",
			ArrivalDate:      &arrival,
			Status:           model.ReconciliationStatusPending,
		},
	}
	mockDS.On("GetPayoutReconciliations", mock.Anything, 50, 0).Return(recs, nil)

	var response []*model.PayoutReconciliation
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/payout-reconciliations",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, response, 1)
	assert.Equal(t, "po_1", response[0].GatewayPayoutID)
}

func TestGetPayoutReconciliation_ByGatewayID(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	arrival := time.Now().UTC()
	rec := &model.PayoutReconciliation{
		ReconciliationID: "rcn_1",
		GatewayPayoutID:  "po_1",
		Amount:           decimal.NewFromFloat(1250.00),
		Currency:         "cad",
		ArrivalDate:      &arrival,
		Status:           model.ReconciliationStatusPending,
	}
	mockDS.On("GetPayoutReconciliation", mock.Anything, "po_1").Return(rec, nil)

	var response model.PayoutReconciliation
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/payout-reconciliations/po_1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "rcn_1", response.ReconciliationID)
	assert.True(t, response.Amount.Equal(decimal.NewFromFloat(1250.00)))
}
