// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package scheduler

import (
	"errors"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/gorm"
)

var ErrLeaseHeld = errors.New("scheduler: lease already held")

// AcquireLease is a single atomic insert on the unique (tld, target_date,
// kind) key, the DB-backed generalization of the teacher's in-memory
// runningJobs guard — needed here because tickets are dequeued by any of
// W workers, not a single in-process mutex.
func AcquireLease(gdb *gorm.DB, tld, targetDate string, kind models.JobKind, jobRunID uint) error {
	lease := models.Lease{Tld: tld, TargetDate: targetDate, Kind: kind, JobRunID: jobRunID}
	err := gdb.Create(&lease).Error
	if err != nil {
		return ErrLeaseHeld
	}
	return nil
}

// ReleaseLease is called on every terminal JobRun transition.
func ReleaseLease(gdb *gorm.DB, tld, targetDate string, kind models.JobKind) error {
	return gdb.Where("tld = ? AND target_date = ? AND kind = ?", tld, targetDate, kind).
		Delete(&models.Lease{}).Error
}
