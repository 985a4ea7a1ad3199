// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package cmd

import (
	"context"
	"time"

	"github.com/dropwatch/core/internal/db"
	"github.com/dropwatch/core/internal/logger"
	"github.com/spf13/cobra"
)

var catchUpHorizon int

var catchUpCmd = &cobra.Command{
	Use:   "catch-up",
	Short: "Enqueue missed days for every enabled job, oldest first",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}

		horizon := catchUpHorizon
		if horizon <= 0 {
			horizon = a.Config.CatchUp.HorizonDays
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		go db.StartQueue(ctx)

		if err := a.Scheduler.CatchUp(ctx, horizon); err != nil {
			return exitErr(ExitGeneric, err)
		}

		logger.L.Info().Int("horizon_days", horizon).Msg("catch-up enqueued")
		return nil
	},
}

func init() {
	catchUpCmd.Flags().IntVar(&catchUpHorizon, "horizon", 0, "override the configured catch-up horizon in days")
}
