// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package models

import "time"

type JobOutcome string

const (
	OutcomePending JobOutcome = "pending"
	OutcomeRunning JobOutcome = "running"
	OutcomeSuccess JobOutcome = "success"
	OutcomeSkipped JobOutcome = "skipped"
	OutcomeFailed  JobOutcome = "failed"
	OutcomeTimedOut JobOutcome = "timed_out"
)

// JobRun is an append-only record of one execution attempt. The index on
// (Tld, TargetDate, Kind) is a plain, non-unique lookup index: many runs
// may share a key. Single-flight admission per key is enforced by the
// separate Lease table below, not by this index.
type JobRun struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	JobID       uint       `json:"jobId" gorm:"index;not null"`
	Tld         string     `json:"tld" gorm:"index:idx_jobrun_tld_date_kind;not null"`
	TargetDate  string     `json:"targetDate" gorm:"index:idx_jobrun_tld_date_kind;not null"`
	Kind        JobKind    `json:"kind" gorm:"index:idx_jobrun_tld_date_kind;not null"`
	StartedAt   time.Time  `json:"startedAt" gorm:"autoCreateTime"`
	FinishedAt  *time.Time `json:"finishedAt"`
	Outcome     JobOutcome `json:"outcome" gorm:"not null"`
	RetryCount  int        `json:"retryCount"`
	ErrorClass  string     `json:"errorClass"`
	Error       string     `json:"error"`

	BytesDownloaded int64 `json:"bytesDownloaded"`
	LabelsParsed    int64 `json:"labelsParsed"`
	DropsDetected   int64 `json:"dropsDetected"`
	DropsInserted   int64 `json:"dropsInserted"`
}

func (j *JobRun) GetID() uint             { return j.ID }
func (j *JobRun) GetCreatedAt() time.Time { return j.StartedAt }

// Lease enforces single-flight admission per (Tld, TargetDate, Kind):
// acquiring it is a single atomic insert on the unique key, released on
// the run's terminal transition.
type Lease struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Tld        string    `json:"tld" gorm:"uniqueIndex:idx_lease_key;not null"`
	TargetDate string    `json:"targetDate" gorm:"uniqueIndex:idx_lease_key;not null"`
	Kind       JobKind   `json:"kind" gorm:"uniqueIndex:idx_lease_key;not null"`
	JobRunID   uint      `json:"jobRunId"`
	AcquiredAt time.Time `json:"acquiredAt" gorm:"autoCreateTime"`
}
