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
	"time"

	"github.com/shopspring/decimal"
)

// PayoutReconciliation mirrors one gateway payout into the internal ledger.
// Rows are upserted nightly keyed by the gateway payout ID and never deleted;
// the internally assigned Status survives re-syncs, only gateway-observable
// fields are refreshed.
type PayoutReconciliation struct {
	ID               int64                  `json:"-"`
	ReconciliationID string                 `json:"reconciliation_id"`
	GatewayPayoutID  string                 `json:"gateway_payout_id"`
	Amount           decimal.Decimal        `json:"amount"`
	Currency         string                 `json:"currency"`
	ArrivalDate      *time.Time             `json:"arrival_date,omitempty"`
	Status           string                 `json:"status"`
	Details          map[string]interface{} `json:"details,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ReconciliationStatusPending is the internal status assigned to a payout row
// on first sight; admins move it forward out of band.
const ReconciliationStatusPending = "pending"
