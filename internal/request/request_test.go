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

package request_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/heavyrent/rentahold/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJsonReq(t *testing.T) {
	buf, err := request.ToJsonReq(map[string]string{"booking_id": "bk_1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"booking_id":"bk_1"}`, buf.String())
}

func TestToFormReq(t *testing.T) {
	values := url.Values{}
	values.Set("amount", "50000")
	values.Set("currency", "cad")

	body, err := io.ReadAll(request.ToFormReq(values))
	require.NoError(t, err)
	assert.Equal(t, "amount=50000&currency=cad", string(body))
}

func TestCallDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get(request.IdempotencyHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"requires_capture"}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(request.IdempotencyHeader, "key-123")

	var response map[string]interface{}
	resp, err := request.Call(req, &response)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pi_1", response["id"])
}

func TestCallWithTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	var response map[string]interface{}
	_, err = request.CallWithTimeout(req, &response, 5*time.Millisecond)
	assert.Error(t, err)
}
