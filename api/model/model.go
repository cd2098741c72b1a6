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
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func validateDateFormat(format, value string) error {
	_, err := time.Parse(format, value)
	if err != nil {
		return errors.New("please format the date as 'YYYY-MM-DDTHH:MM:SS+00:00' (e.g., 2026-04-22T15:28:03+00:00)")
	}
	return nil
}

func rfc3339Rule(value interface{}) error {
	dateStr, ok := value.(string)
	if !ok {
		return errors.New("invalid type for date")
	}
	return validateDateFormat("2006-01-02T15:04:05Z07:00", dateStr)
}

func (b *CreateBooking) ValidateCreateBooking() error {
	err := validation.ValidateStruct(b,
		validation.Field(&b.CustomerID, validation.Required),
		validation.Field(&b.StartDate, validation.Required, validation.By(rfc3339Rule)),
		validation.Field(&b.EndDate, validation.Required, validation.By(rfc3339Rule)),
		validation.Field(&b.TotalAmountCents, validation.Required, validation.Min(int64(1))),
		validation.Field(&b.HoldSecurityAmountCents, validation.Min(int64(0))),
	)
	if err != nil {
		return err
	}

	start, _ := time.Parse(time.RFC3339, b.StartDate)
	end, _ := time.Parse(time.RFC3339, b.EndDate)
	if !end.After(start) {
		return errors.New("end_date must be after start_date")
	}
	return nil
}

func (v *VerifyCard) ValidateVerifyCard() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.SetupID, validation.Required),
	)
}

func (f *FinalizeReturn) ValidateFinalizeReturn() error {
	if f.DamageAmountCents != nil && *f.DamageAmountCents < 0 {
		return errors.New("damage_amount_cents cannot be negative")
	}
	return nil
}
