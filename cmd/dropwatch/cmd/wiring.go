// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package cmd implements the dropwatch CLI: serve, ingest, catch-up,
// replay, admin, and query subcommands sharing one bootstrap sequence.
package cmd

import (
	"fmt"
	"time"

	"github.com/dropwatch/core/internal/config"
	"github.com/dropwatch/core/internal/db"
	"github.com/dropwatch/core/internal/logger"
	"github.com/dropwatch/core/internal/services/coordinator"
	"github.com/dropwatch/core/internal/services/czds"
	"github.com/dropwatch/core/internal/services/scheduler"
	"github.com/dropwatch/core/internal/services/watchlist"
	"github.com/dropwatch/core/internal/services/zonestore"
	"gorm.io/gorm"
)

// ExitGeneric, ExitFatalConfig, ExitInformational are the process exit
// codes every subcommand returns through, per the operator contract.
const (
	ExitOK            = 0
	ExitGeneric       = 1
	ExitFatalConfig   = 2
	ExitInformational = 3
)

// app bundles the services every subcommand needs, built once from the
// resolved config file.
type app struct {
	Config      *config.Config
	DB          *gorm.DB
	Scheduler   *scheduler.Service
	Coordinator *coordinator.Coordinator
}

func bootstrap(configPath string) (*app, error) {
	cfg := config.ParseConfig(configPath)
	logger.InitLogger(cfg.DataPath, cfg.LogLevel)

	gdb, err := db.SetupDatabase(mustDBPath())
	if err != nil {
		return nil, fmt.Errorf("database setup: %w", err)
	}
	_ = db.SetupCache(cfg)

	if err := db.SetupQueue(cfg, false, logger.L); err != nil {
		return nil, fmt.Errorf("queue setup: %w", err)
	}

	storeRoot, err := config.GetZoneStorePath()
	if err != nil {
		return nil, err
	}
	store := zonestore.New(storeRoot, gdb)

	client := czds.New(czds.Config{
		Username:       cfg.CZDS.Username,
		Password:       cfg.CZDS.Password,
		AuthURL:        cfg.CZDS.AuthURL,
		BaseURL:        cfg.CZDS.BaseURL,
		RequestTimeout: time.Duration(cfg.CZDS.RequestSecs) * time.Second,
	})

	matcher := watchlist.NewMatcher(gdb, watchlist.QueueNotifier{})

	coord := &coordinator.Coordinator{
		DB:         gdb,
		Store:      store,
		CZDS:       client,
		Matcher:    matcher,
		SpillDir:   storeRoot,
		RetainKeep: 90,
	}

	sched := scheduler.NewService(gdb, coord)
	sched.RegisterJobs()

	return &app{Config: cfg, DB: gdb, Scheduler: sched, Coordinator: coord}, nil
}

func mustDBPath() string {
	path, err := config.GetDatabasePath()
	if err != nil {
		logger.BootstrapFatal(err.Error())
	}
	return path
}
