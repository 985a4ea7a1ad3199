// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/dropwatch/core/internal/db"
	"github.com/dropwatch/core/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and queue workers continuously",
	RunE: func(c *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go db.StartQueue(ctx)
		go a.Scheduler.StartDispatcher(ctx)

		if a.Config.CatchUp.HorizonDays > 0 {
			go func() {
				if err := a.Scheduler.CatchUp(ctx, a.Config.CatchUp.HorizonDays); err != nil {
					logger.L.Warn().Err(err).Msg("startup catch-up failed")
				}
			}()
		}

		logger.L.Info().Msg("dropwatch serving")
		<-ctx.Done()
		logger.L.Info().Msg("shutting down")
		return nil
	},
}
