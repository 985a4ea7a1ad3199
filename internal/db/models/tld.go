// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package models

import "time"

// TLD is the unit of scheduling: one row per tracked top-level domain.
type TLD struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Name            string     `json:"name" gorm:"unique;not null"`
	DisplayName     string     `json:"displayName"`
	IsActive        bool       `json:"isActive" gorm:"default:true"`
	Priority        int        `json:"priority" gorm:"default:0"`
	Notes           string     `json:"notes"`
	LastImportDate  *time.Time `json:"lastImportDate"`
	LastDropCount   int        `json:"lastDropCount" gorm:"default:0"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}
