// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package models

import "time"

// ZoneSnapshot records a committed, immutable zone-file snapshot for one
// (tld, date) pair. Identified by the unique (Tld, Date) pair, never
// mutated after creation; eviction is retention's job, not an update.
type ZoneSnapshot struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Tld        string    `json:"tld" gorm:"uniqueIndex:idx_zonesnapshot_tld_date;not null"`
	Date       string    `json:"date" gorm:"uniqueIndex:idx_zonesnapshot_tld_date;not null"` // YYYY-MM-DD
	Path       string    `json:"path" gorm:"not null"`
	SizeBytes  int64     `json:"sizeBytes"`
	Sha256     string    `json:"sha256"`
	Compressed bool      `json:"compressed"`
	FetchedAt  time.Time `json:"fetchedAt" gorm:"autoCreateTime"`
}
