// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package models

import "time"

type JobKind string

const (
	JobKindIngest JobKind = "ingest"
	JobKindParse  JobKind = "parse"
	JobKindDetect JobKind = "detect"
	JobKindFull   JobKind = "full"
)

// Job is a per-TLD cron descriptor. NextRunAt is recomputed by the
// dispatcher every time the job's schedule fires or is edited.
type Job struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Tld        string    `json:"tld" gorm:"uniqueIndex:idx_job_tld_kind;not null"`
	Kind       JobKind   `json:"kind" gorm:"uniqueIndex:idx_job_tld_kind;not null"`
	Schedule   string    `json:"schedule" gorm:"not null"` // cron expression
	IsEnabled  bool      `json:"isEnabled" gorm:"default:true"`
	Timeout    int64     `json:"timeoutSeconds" gorm:"default:7200"`
	MaxRetries int       `json:"maxRetries" gorm:"default:5"`
	NextRunAt  *time.Time `json:"nextRunAt"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
