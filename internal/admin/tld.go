// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package admin provides idempotent CRUD over TLD and Job rows for the
// CLI and any future management surface.
package admin

import (
	"strings"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertTLD creates or updates a TLD by name; safe to call repeatedly with
// the same arguments.
func UpsertTLD(gdb *gorm.DB, name, displayName string, priority int) (*models.TLD, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	tld := models.TLD{Name: name, DisplayName: displayName, Priority: priority, IsActive: true}

	err := gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "priority"}),
	}).Create(&tld).Error
	if err != nil {
		return nil, err
	}

	var out models.TLD
	if err := gdb.Where("name = ?", name).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTLDActive flips IsActive; an inactive TLD is skipped by the scheduler.
func SetTLDActive(gdb *gorm.DB, name string, active bool) error {
	return gdb.Model(&models.TLD{}).Where("name = ?", strings.ToLower(name)).
		Update("is_active", active).Error
}

func ListTLDs(gdb *gorm.DB) ([]models.TLD, error) {
	var rows []models.TLD
	err := gdb.Order("priority DESC, name ASC").Find(&rows).Error
	return rows, err
}
