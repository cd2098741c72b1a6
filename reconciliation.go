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
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/config"
	"github.com/heavyrent/rentahold/model"
)

// ReconcileResult summarizes one payout reconciliation pass.
type ReconcileResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// ReconcilePayouts mirrors the gateway's recent payouts into the internal
// ledger. The trailing window overlaps previous runs on purpose: payouts
// already mirrored are re-upserted, which refreshes their gateway-observable
// fields without touching the internally assigned status. One bad payout
// does not abort the pass; failures are counted and reported.
func (r *Rentahold) ReconcilePayouts(ctx context.Context) (*ReconcileResult, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Reconciling gateway payouts")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	since := r.clock.Now().AddDate(0, 0, -cnf.Reconciliation.WindowDays)
	payouts, err := r.gateway.ListPayouts(ctx, since, cnf.Reconciliation.PageSize)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	now := r.clock.Now()

	for _, payout := range payouts {
		result.Processed++

		rec := &model.PayoutReconciliation{
			ReconciliationID: model.GenerateUUIDWithSuffix("rcn"),
			GatewayPayoutID:  payout.PayoutID,
			Amount:           decimal.NewFromInt(payout.AmountCents).Div(decimal.NewFromInt(100)),
			Currency:         payout.Currency,
			ArrivalDate:      payout.ArrivalDate,
			Status:           model.ReconciliationStatusPending,
			Details: map[string]interface{}{
				"gateway_status": payout.Status,
				"method":         payout.Method,
				"description":    payout.Description,
				"amount_cents":   payout.AmountCents,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}

		created, err := r.datasource.UpsertPayoutReconciliation(ctx, rec)
		if err != nil {
			result.Failed++
			logrus.WithError(err).WithField("payout_id", payout.PayoutID).Error("failed to upsert payout")
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

// GetPayoutReconciliations exposes the payout mirror to the API layer.
func (r *Rentahold) GetPayoutReconciliations(ctx context.Context, limit, offset int) ([]*model.PayoutReconciliation, error) {
	return r.datasource.GetPayoutReconciliations(ctx, limit, offset)
}

// GetPayoutReconciliation retrieves one mirrored payout by its gateway
// payout ID.
func (r *Rentahold) GetPayoutReconciliation(ctx context.Context, gatewayPayoutID string) (*model.PayoutReconciliation, error) {
	return r.datasource.GetPayoutReconciliation(ctx, gatewayPayoutID)
}

// reconciliationWindow reports the window a run starting at now covers.
// Exposed for the job registry's run metadata.
func reconciliationWindow(now time.Time, windowDays int) (time.Time, time.Time) {
	return now.AddDate(0, 0, -windowDays), now
}
