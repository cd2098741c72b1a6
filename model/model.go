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
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a prefixed UUID for an entity, e.g. "bk_<uuid>".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// GenerateBookingNumber produces a human-readable booking number such as
// "BK-LX3K9A-4F7Q2M". Uniqueness is enforced by the bookings table, not here.
func GenerateBookingNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	b := make([]byte, 6)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return fmt.Sprintf("BK-%s-%s", ts, string(b))
}

// Idempotency keys are pure functions of stable logical identifiers, so any
// two code paths that intend the same operation derive the same key and
// collide on the storage-level uniqueness constraint instead of relying on
// caller discipline. Wall-clock-at-call-time never participates.

// SchedulePlaceHoldKey is the idempotency key for the T-48 place_hold
// schedule row of a booking.
func SchedulePlaceHoldKey(bookingID string, startDate time.Time) string {
	return fmt.Sprintf("%s:place_security_hold:%d", bookingID, startDate.UTC().Unix())
}

// SecurityHoldKey is the idempotency key for the security-hold authorization
// of a booking. It is also handed to the gateway so that network retries
// cannot create a second authorization.
func SecurityHoldKey(bookingID string, startDate time.Time) string {
	return fmt.Sprintf("%s:%s:%d", bookingID, PurposeSecurityHold, startDate.UTC().Unix())
}

// VerifyCardKey is the idempotency key for recording a completed card
// verification, keyed by the gateway setup reference.
func VerifyCardKey(bookingID, setupID string) string {
	return fmt.Sprintf("%s:%s:%s", bookingID, PurposeVerifyCard, setupID)
}

// SettlementKey is the idempotency key for a capture or release of a
// booking's outstanding hold, keyed by the logical return timestamp.
func SettlementKey(bookingID string, purpose PaymentPurpose, returnedAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d", bookingID, purpose, returnedAt.UTC().Unix())
}
