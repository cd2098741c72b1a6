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

	"github.com/heavyrent/rentahold/model"
)

// CreateBooking is the request body for booking intake.
type CreateBooking struct {
	CustomerID              string                 `json:"customer_id"`
	StartDate               string                 `json:"start_date"`
	EndDate                 string                 `json:"end_date"`
	TotalAmountCents        int64                  `json:"total_amount_cents"`
	Currency                string                 `json:"currency"`
	HoldSecurityAmountCents int64                  `json:"hold_security_amount_cents"`
	MetaData                map[string]interface{} `json:"meta_data"`
}

// ToBooking converts a validated request into a model booking. Dates are
// already known to parse; ValidateCreateBooking runs first.
func (b *CreateBooking) ToBooking() *model.Booking {
	start, _ := time.Parse(time.RFC3339, b.StartDate)
	end, _ := time.Parse(time.RFC3339, b.EndDate)
	return &model.Booking{
		CustomerID:              b.CustomerID,
		StartDate:               start,
		EndDate:                 end,
		TotalAmountCents:        b.TotalAmountCents,
		Currency:                b.Currency,
		HoldSecurityAmountCents: b.HoldSecurityAmountCents,
		MetaData:                b.MetaData,
	}
}

// VerifyCard is the request body for completing card verification.
type VerifyCard struct {
	SetupID string `json:"setup_id"`
}

// FinalizeReturn is the request body for settling a returned booking. A nil
// damage amount means no damage.
type FinalizeReturn struct {
	DamageAmountCents *int64 `json:"damage_amount_cents"`
}

// Damage resolves the optional damage amount.
func (f *FinalizeReturn) Damage() int64 {
	if f.DamageAmountCents == nil {
		return 0
	}
	return *f.DamageAmountCents
}

// TriggerJob is the request body for the manual job trigger.
type TriggerJob struct {
	TriggeredBy string `json:"triggered_by"`
}
