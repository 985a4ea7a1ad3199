// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package models

import "time"

type PatternKind string

const (
	PatternGlob     PatternKind = "glob"
	PatternRegex    PatternKind = "regex"
	PatternContains PatternKind = "contains"
	PatternPrefix   PatternKind = "prefix"
	PatternSuffix   PatternKind = "suffix"
)

// Watchlist is a user-owned filter over drops. Pattern compilation is the
// matcher's job (internal/services/watchlist); this row is the durable
// declaration of intent.
type Watchlist struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	UserID          uint        `json:"userId" gorm:"index;not null"`
	IsActive        bool        `json:"isActive" gorm:"default:true"`
	PatternKind     PatternKind `json:"patternKind" gorm:"not null"`
	Pattern         string      `json:"pattern" gorm:"not null"`
	// RegexUnanchored opts a regex pattern out of the default
	// whole-label-match behavior, restoring plain substring search.
	// Only meaningful when PatternKind is PatternRegex.
	RegexUnanchored bool `json:"regexUnanchored"`
	MinLength       *int        `json:"minLength"`
	MaxLength       *int        `json:"maxLength"`
	AllowedTlds     string      `json:"allowedTlds"`    // comma-separated, empty = all
	AllowedCharsets string      `json:"allowedCharsets"` // comma-separated, empty = all
	MinQuality      *int        `json:"minQuality"`
	InactiveReason  string      `json:"inactiveReason"`
	CreatedAt       time.Time   `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time   `json:"updatedAt" gorm:"autoUpdateTime"`
}
