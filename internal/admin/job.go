// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package admin

import (
	"strings"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertJob creates or updates the (tld, kind) job descriptor. Changing
// Schedule takes effect on the dispatcher's next tick; toggling IsEnabled
// takes effect on the same tick since the dispatcher re-reads it every
// pass rather than caching it.
func UpsertJob(gdb *gorm.DB, tld string, kind models.JobKind, schedule string, timeoutSeconds int64, maxRetries int) (*models.Job, error) {
	tld = strings.ToLower(strings.TrimSpace(tld))
	job := models.Job{
		Tld:        tld,
		Kind:       kind,
		Schedule:   schedule,
		IsEnabled:  true,
		Timeout:    timeoutSeconds,
		MaxRetries: maxRetries,
	}

	err := gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tld"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"schedule", "timeout", "max_retries", "next_run_at"}),
	}).Create(&job).Error
	if err != nil {
		return nil, err
	}

	var out models.Job
	if err := gdb.Where("tld = ? AND kind = ?", tld, kind).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func SetJobEnabled(gdb *gorm.DB, tld string, kind models.JobKind, enabled bool) error {
	return gdb.Model(&models.Job{}).Where("tld = ? AND kind = ?", strings.ToLower(tld), kind).
		Update("is_enabled", enabled).Error
}

func ListJobs(gdb *gorm.DB) ([]models.Job, error) {
	var rows []models.Job
	err := gdb.Order("tld ASC").Find(&rows).Error
	return rows, err
}
