// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package models

import "time"

type CharsetType string

const (
	CharsetLetters    CharsetType = "letters"
	CharsetNumbers    CharsetType = "numbers"
	CharsetMixed      CharsetType = "mixed"
	CharsetHyphenated CharsetType = "hyphenated"
	CharsetIDN        CharsetType = "idn"
)

// DropRecord is an SLD label present in a TLD's zone on DropDate-1 and
// absent on DropDate. Never mutated after insertion; uniqueness is on
// (Label, Tld, DropDate).
type DropRecord struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	Label        string      `json:"label" gorm:"uniqueIndex:idx_droprecord_label_tld_date;not null"`
	Tld          string      `json:"tld" gorm:"uniqueIndex:idx_droprecord_label_tld_date;not null"`
	DropDate     string      `json:"dropDate" gorm:"uniqueIndex:idx_droprecord_label_tld_date;not null"` // YYYY-MM-DD
	Length       int         `json:"length"`
	LabelCount   int         `json:"labelCount" gorm:"default:1"`
	CharsetType  CharsetType `json:"charsetType"`
	QualityScore *int        `json:"qualityScore"`
	CreatedAt    time.Time   `json:"createdAt" gorm:"autoCreateTime"`
}
