// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package db

import (
	"fmt"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// SetupDatabase opens the gorm/sqlite connection used for all pipeline
// state (TLDs, snapshots, drops, watchlists, jobs/runs). WAL journaling
// and a single open connection avoid SQLITE_BUSY under the worker pool's
// concurrent writers the same way the teacher's backup database does.
func SetupDatabase(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_timeout=5000&_fk=false", path)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if err := gdb.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}

	if err := gdb.AutoMigrate(
		&models.Migrations{},
		&models.TLD{},
		&models.ZoneSnapshot{},
		&models.DropRecord{},
		&models.Watchlist{},
		&models.WatchlistMatch{},
		&models.Job{},
		&models.JobRun{},
		&models.Lease{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := Fixups(gdb); err != nil {
		return nil, fmt.Errorf("failed to run fixups: %w", err)
	}

	logger.L.Info().Str("path", path).Msg("database ready")
	return gdb, nil
}
