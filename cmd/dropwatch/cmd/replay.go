// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/logger"
	"github.com/dropwatch/core/internal/services/scheduler"
	"github.com/spf13/cobra"
)

var (
	replayTld  string
	replayDate string
)

// replayCmd re-runs parse/detect/persist/match for a day whose snapshot
// is already in the zone store, without touching CZDS. Persistence is
// idempotent, so this is safe to run repeatedly after a watchlist or
// scorer change.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run detection for an already-fetched snapshot",
	RunE: func(c *cobra.Command, args []string) error {
		if replayTld == "" || replayDate == "" {
			return exitErr(ExitFatalConfig, fmt.Errorf("--tld and --date are both required"))
		}

		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}

		date, err := time.Parse("2006-01-02", replayDate)
		if err != nil {
			return exitErr(ExitFatalConfig, fmt.Errorf("invalid --date: %w", err))
		}

		exists, err := a.Coordinator.Store.Exists(replayTld, date)
		if err != nil {
			return exitErr(ExitGeneric, err)
		}
		if !exists {
			return exitErr(ExitFatalConfig, fmt.Errorf("no snapshot on file for %s/%s, run ingest first", replayTld, replayDate))
		}

		if err := scheduler.AcquireLease(a.DB, replayTld, replayDate, models.JobKindDetect, 0); err != nil {
			return exitErr(ExitGeneric, fmt.Errorf("ticket already running for %s/%s", replayTld, replayDate))
		}
		defer scheduler.ReleaseLease(a.DB, replayTld, replayDate, models.JobKindDetect)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		stats, err := a.Coordinator.Run(ctx, replayTld, date)
		if err != nil {
			return exitErr(ExitGeneric, err)
		}

		logger.L.Info().
			Str("tld", replayTld).
			Str("date", replayDate).
			Int64("drops_detected", stats.DropsDetected).
			Int64("drops_inserted", stats.DropsInserted).
			Msg("replay complete")

		if stats.Note == "no-baseline" {
			return exitErr(ExitInformational, fmt.Errorf("no baseline snapshot available for %s", replayTld))
		}

		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayTld, "tld", "", "TLD to replay")
	replayCmd.Flags().StringVar(&replayDate, "date", "", "target date YYYY-MM-DD")
}
