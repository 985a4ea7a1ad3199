// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package db

import (
	"github.com/dropwatch/core/internal/charset"
	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/logger"
	"gorm.io/gorm"
)

type fixup struct {
	name string
	run  func(*gorm.DB) error
}

// Fixups runs each named one-off repair exactly once, recording completion
// in the migrations table so restarts don't re-run it.
func Fixups(gdb *gorm.DB) error {
	fixups := []fixup{
		{name: "backfill_charset_type", run: backfillCharsetType},
	}

	for _, f := range fixups {
		var count int64
		if err := gdb.Model(&models.Migrations{}).Where("name = ?", f.name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		if err := f.run(gdb); err != nil {
			return err
		}

		if err := gdb.Create(&models.Migrations{Name: f.name}).Error; err != nil {
			return err
		}
		logger.L.Info().Str("fixup", f.name).Msg("applied database fixup")
	}

	return nil
}

// backfillCharsetType classifies any DropRecord rows left over from before
// charset classification existed (empty CharsetType), the way a schema
// would evolve under a long-running deployment.
func backfillCharsetType(gdb *gorm.DB) error {
	var rows []models.DropRecord
	if err := gdb.Where("charset_type = ? OR charset_type IS NULL", "").Find(&rows).Error; err != nil {
		return err
	}

	for _, r := range rows {
		ct := charset.Classify(r.Label)
		if err := gdb.Model(&models.DropRecord{}).Where("id = ?", r.ID).
			Update("charset_type", ct).Error; err != nil {
			return err
		}
	}

	return nil
}
