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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/heavyrent/rentahold/internal/apierror"
	"github.com/heavyrent/rentahold/model"
)

const payoutColumns = `id, reconciliation_id, gateway_payout_id, amount, currency, arrival_date, status, details, created_at, updated_at`

// UpsertPayoutReconciliation mirrors one gateway payout into the internal
// ledger, keyed by the gateway payout ID. Re-syncing an existing row only
// refreshes gateway-observable fields; the internally assigned status and
// created_at survive. Returns true when the row was newly inserted.
func (d Datasource) UpsertPayoutReconciliation(ctx context.Context, rec *model.PayoutReconciliation) (bool, error) {
	ctx, span := otel.Tracer("Payouts").Start(ctx, "Upserting payout reconciliation")
	defer span.End()

	detailsJSON, err := json.Marshal(rec.Details)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal details", err)
	}

	// xmax = 0 holds only for rows this statement freshly inserted.
	var inserted bool
	err = d.Conn.QueryRowContext(ctx, `
		INSERT INTO rentahold.payout_reconciliations (reconciliation_id, gateway_payout_id, amount, currency, arrival_date, status, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (gateway_payout_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			arrival_date = EXCLUDED.arrival_date,
			details = EXCLUDED.details,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`, rec.ReconciliationID, rec.GatewayPayoutID, rec.Amount, rec.Currency, rec.ArrivalDate,
		rec.Status, detailsJSON, rec.UpdatedAt).Scan(&inserted)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert payout reconciliation", err)
	}

	return inserted, nil
}

// GetPayoutReconciliation retrieves a payout row by its gateway payout ID.
func (d Datasource) GetPayoutReconciliation(ctx context.Context, gatewayPayoutID string) (*model.PayoutReconciliation, error) {
	ctx, span := otel.Tracer("Payouts").Start(ctx, "Fetching payout reconciliation")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+payoutColumns+`
		FROM rentahold.payout_reconciliations
		WHERE gateway_payout_id = $1
	`, gatewayPayoutID)

	rec, err := scanPayout(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payout '%s' not found", gatewayPayoutID), err)
		}
		return nil, err
	}
	return rec, nil
}

// GetPayoutReconciliations retrieves payout rows, most recently updated first.
func (d Datasource) GetPayoutReconciliations(ctx context.Context, limit, offset int) ([]*model.PayoutReconciliation, error) {
	ctx, span := otel.Tracer("Payouts").Start(ctx, "Fetching payout reconciliations")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+payoutColumns+`
		FROM rentahold.payout_reconciliations
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payout reconciliations", err)
	}
	defer rows.Close()

	var recs []*model.PayoutReconciliation
	for rows.Next() {
		rec, err := scanPayout(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, nil
}

func scanPayout(scan func(dest ...interface{}) error) (*model.PayoutReconciliation, error) {
	rec := &model.PayoutReconciliation{}
	var detailsJSON []byte

	err := scan(
		&rec.ID, &rec.ReconciliationID, &rec.GatewayPayoutID, &rec.Amount, &rec.Currency,
		&rec.ArrivalDate, &rec.Status, &detailsJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payout reconciliation", err)
	}

	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &rec.Details); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal details", err)
		}
	}

	return rec, nil
}
