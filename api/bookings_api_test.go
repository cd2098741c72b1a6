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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/heavyrent/rentahold"
	model2 "github.com/heavyrent/rentahold/api/model"
	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/database/mocks"
	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		if err := json.NewDecoder(resp.Body).Decode(s.Response); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// setupRouter builds the API around a mocked datasource and a local stub of
// the card gateway.
func setupRouter(t *testing.T, gatewayHandler http.Handler) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()

	mr := miniredis.RunT(t)

	gatewayURL := "https://api.stripe.com"
	if gatewayHandler != nil {
		srv := httptest.NewServer(gatewayHandler)
		t.Cleanup(srv.Close)
		gatewayURL = srv.URL
	}

	config.MockConfig(&config.Configuration{
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		DataSource: config.DataSourceConfig{Dns: "postgres://postgres:@localhost:5432/rentahold?sslmode=disable"},
		Gateway:    config.GatewayConfig{SecretKey: "sk_test_xyz", BaseURL: gatewayURL},
	})

	mockDS := new(mocks.MockDataSource)
	engine, err := rentahold.NewRentahold(mockDS)
	require.NoError(t, err)

	return NewAPI(engine).Router(), mockDS
}

func toJSON(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestCreateBooking(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	mockDS.On("RecordBooking", mock.Anything, mock.MatchedBy(func(b *model.Booking) bool {
		return b.Status == model.StatusPendingVerification &&
			b.BookingID != "" && b.BookingNumber != ""
	})).Return(&model.Booking{BookingID: "bkg_123", Status: model.StatusPendingVerification}, nil)

	payload := model2.CreateBooking{
		CustomerID:       "cus_456",
		StartDate:        time.Now().Add(7 * 24 * time.Hour).Format(time.RFC3339),
		EndDate:          time.Now().Add(9 * 24 * time.Hour).Format(time.RFC3339),
		TotalAmountCents: 35000,
		Currency:         "cad",
	}

	var response model.Booking
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  toJSON(t, payload),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/bookings",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "bkg_123", response.BookingID)
	mockDS.AssertExpectations(t)
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	tests := []struct {
		name    string
		payload model2.CreateBooking
	}{
		{
			name: "missing customer",
			payload: model2.CreateBooking{
				StartDate:        time.Now().Add(24 * time.Hour).Format(time.RFC3339),
				EndDate:          time.Now().Add(48 * time.Hour).Format(time.RFC3339),
				TotalAmountCents: 35000,
			},
		},
		{
			name: "bad date format",
			payload: model2.CreateBooking{
				CustomerID:       "cus_456",
				StartDate:        "2026-04-01",
				EndDate:          time.Now().Add(48 * time.Hour).Format(time.RFC3339),
				TotalAmountCents: 35000,
			},
		},
		{
			name: "end before start",
			payload: model2.CreateBooking{
				CustomerID:       "cus_456",
				StartDate:        time.Now().Add(48 * time.Hour).Format(time.RFC3339),
				EndDate:          time.Now().Add(24 * time.Hour).Format(time.RFC3339),
				TotalAmountCents: 35000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := SetUpTestRequest(TestRequest{
				Payload: toJSON(t, tt.payload),
				Router:  router,
				Method:  http.MethodPost,
				Route:   "/bookings",
			})
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
	mockDS.AssertNotCalled(t, "RecordBooking", mock.Anything, mock.Anything)
}

func TestGetBooking_NotFound(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	mockDS.On("GetBooking", mock.Anything, "bkg_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Booking 'bkg_missing' not found", nil))

	resp, err := SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/bookings/bkg_missing",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestVerifyCard(t *testing.T) {
	booking := &model.Booking{
		BookingID:     "bkg_123",
		BookingNumber: "BK-TEST-ABC123",
		CustomerID:    "cus_456",
		StartDate:     time.Now().Add(7 * 24 * time.Hour).UTC(),
		EndDate:       time.Now().Add(9 * 24 * time.Hour).UTC(),
		Currency:      "cad",
		Status:        model.StatusPendingVerification,
	}

	stub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"seti_1","status":"succeeded","payment_method":"pm_1","customer":"cus_456"}`)
	})

	router, mockDS := setupRouter(t, stub)

	mockDS.On("GetBooking", mock.Anything, "bkg_123").Return(booking, nil)
	mockDS.On("SaveCardOnBooking", mock.Anything, "bkg_123", "pm_1", "cus_456").Return(nil)
	mockDS.On("RecordPayment", mock.Anything, mock.Anything).Return(&model.BookingPayment{}, nil)
	mockDS.On("TransitionBookingStatus", mock.Anything, "bkg_123", model.StatusPendingVerification, model.StatusVerifyHoldOK).Return(nil)
	mockDS.On("CreateSchedule", mock.Anything, mock.Anything).Return(true, nil)

	var response rentahold.VerificationResult
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  toJSON(t, model2.VerifyCard{SetupID: "seti_1"}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/bookings/bkg_123/verify-card",
		Header:   map[string]string{"X-Customer-Id": "cus_456"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, response.HoldScheduled)
	mockDS.AssertExpectations(t)
}

func TestVerifyCard_ForeignCustomerForbidden(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	mockDS.On("GetBooking", mock.Anything, "bkg_123").
		Return(&model.Booking{BookingID: "bkg_123", CustomerID: "cus_456", Status: model.StatusPendingVerification}, nil)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, model2.VerifyCard{SetupID: "seti_1"}),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/bookings/bkg_123/verify-card",
		Header:  map[string]string{"X-Customer-Id": "cus_other"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	mockDS.AssertNotCalled(t, "SaveCardOnBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyCard_MissingSetupID(t *testing.T) {
	router, _ := setupRouter(t, nil)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, model2.VerifyCard{}),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/bookings/bkg_123/verify-card",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFinalizeReturn_Conflict(t *testing.T) {
	router, mockDS := setupRouter(t, nil)

	mockDS.On("GetBooking", mock.Anything, "bkg_123").
		Return(&model.Booking{BookingID: "bkg_123", Status: model.StatusReleased}, nil)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, model2.FinalizeReturn{}),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/bookings/bkg_123/return",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestFinalizeReturn_NegativeDamage(t *testing.T) {
	router, _ := setupRouter(t, nil)

	damage := int64(-100)
	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, model2.FinalizeReturn{DamageAmountCents: &damage}),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/bookings/bkg_123/return",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
