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

package model

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("bk")
	assert.True(t, strings.HasPrefix(id, "bk_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("bk"))
}

func TestGenerateBookingNumber(t *testing.T) {
	number := GenerateBookingNumber()
	assert.True(t, strings.HasPrefix(number, "BK-"))
	assert.Len(t, strings.Split(number, "-"), 3)
}

func TestIdempotencyKeysAreStable(t *testing.T) {
	start := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)

	first := SchedulePlaceHoldKey("bk_123", start)
	second := SchedulePlaceHoldKey("bk_123", start)
	assert.Equal(t, first, second)
	assert.Equal(t, fmt.Sprintf("bk_123:place_security_hold:%d", start.Unix()), first)

	// Same instant expressed in another zone must derive the same key.
	est := start.In(time.FixedZone("EST", -5*3600))
	assert.Equal(t, first, SchedulePlaceHoldKey("bk_123", est))

	assert.NotEqual(t, SecurityHoldKey("bk_123", start), SecurityHoldKey("bk_456", start))
	assert.NotEqual(t,
		SettlementKey("bk_123", PurposeCapture, start),
		SettlementKey("bk_123", PurposeRelease, start),
	)
}

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, StatusPendingVerification.CanTransitionTo(StatusVerifyHoldOK))
	assert.True(t, StatusVerifyHoldOK.CanTransitionTo(StatusHoldPlaced))
	assert.True(t, StatusHoldPlaced.CanTransitionTo(StatusReleased))
	assert.True(t, StatusHoldPlaced.CanTransitionTo(StatusCaptured))
	assert.True(t, StatusReturnedOK.CanTransitionTo(StatusCaptured))

	assert.False(t, StatusPendingVerification.CanTransitionTo(StatusHoldPlaced))
	assert.False(t, StatusVerifyHoldOK.CanTransitionTo(StatusReleased))
	assert.False(t, StatusReleased.CanTransitionTo(StatusHoldPlaced))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusVerifyHoldOK))
}

func TestBookingStatusTerminal(t *testing.T) {
	assert.True(t, StatusReleased.Terminal())
	assert.True(t, StatusCaptured.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusHoldPlaced.Terminal())
}

func TestParseJobKind(t *testing.T) {
	kind, err := ParseJobKind("place_hold")
	assert.NoError(t, err)
	assert.Equal(t, JobPlaceHold, kind)

	_, err = ParseJobKind("check_insurance")
	assert.Error(t, err)
}

func TestHoldAmountCents(t *testing.T) {
	b := &Booking{}
	assert.Equal(t, int64(50000), b.HoldAmountCents(50000))

	b.HoldSecurityAmountCents = 75000
	assert.Equal(t, int64(75000), b.HoldAmountCents(50000))
}
