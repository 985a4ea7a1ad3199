// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package db

import (
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/gorm"
)

// PruneJobRuns thins the JobRun history with the same grandfather-father-son
// retention ApplyGFS already implements: full resolution for the last hour,
// then coarser sampling out to 70 days, everything older dropped. JobRun
// rows are an operational log, not the drop data itself, so losing
// resolution on old runs costs nothing the pipeline depends on.
func PruneJobRuns(gdb *gorm.DB, now time.Time) error {
	var runs []*models.JobRun
	if err := gdb.Where("finished_at IS NOT NULL").Find(&runs).Error; err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	_, deleteIDs := ApplyGFS(now, runs)
	if len(deleteIDs) == 0 {
		return nil
	}

	return gdb.Where("id IN ?", deleteIDs).Delete(&models.JobRun{}).Error
}
