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

package redis_db

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name         string
		rawURL       string
		wantAddr     string
		wantPassword string
		wantErr      bool
	}{
		{
			name:     "bare docker-style address",
			rawURL:   "redis:6379",
			wantAddr: "redis:6379",
		},
		{
			name:     "redis scheme",
			rawURL:   "redis://localhost:6379",
			wantAddr: "localhost:6379",
		},
		{
			name:         "password without username colon",
			rawURL:       "redis://s3cr3t@cache.internal:6380",
			wantAddr:     "cache.internal:6380",
			wantPassword: "s3cr3t",
		},
		{
			name:         "standard user colon password",
			rawURL:       "redis://:s3cr3t@cache.internal:6380",
			wantAddr:     "cache.internal:6380",
			wantPassword: "s3cr3t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseRedisURL(tt.rawURL, false)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantPassword, opts.Password)
		})
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rds, err := NewRedisClient([]string{mr.Addr()}, false)
	require.NoError(t, err)
	require.NotNil(t, rds.Client())
	assert.Equal(t, rds.Client(), rds.MakeRedisClient())
}

func TestNewRedisClientEmptyAddresses(t *testing.T) {
	_, err := NewRedisClient(nil, false)
	require.Error(t, err)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient([]string{"127.0.0.1:1"}, false)
	require.Error(t, err)
}
