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
	ingestTld  string
	ingestDate string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one fetch/parse/detect cycle for a TLD synchronously",
	RunE: func(c *cobra.Command, args []string) error {
		if ingestTld == "" {
			return exitErr(ExitFatalConfig, fmt.Errorf("--tld is required"))
		}

		a, err := bootstrap(configPath)
		if err != nil {
			return exitErr(ExitFatalConfig, err)
		}

		date := time.Now().UTC()
		if ingestDate != "" {
			date, err = time.Parse("2006-01-02", ingestDate)
			if err != nil {
				return exitErr(ExitFatalConfig, fmt.Errorf("invalid --date: %w", err))
			}
		}
		dateKey := date.Format("2006-01-02")

		if err := scheduler.AcquireLease(a.DB, ingestTld, dateKey, models.JobKindFull, 0); err != nil {
			return exitErr(ExitGeneric, fmt.Errorf("ticket already running for %s/%s", ingestTld, dateKey))
		}
		defer scheduler.ReleaseLease(a.DB, ingestTld, dateKey, models.JobKindFull)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		stats, err := a.Coordinator.Run(ctx, ingestTld, date)
		if err != nil {
			return exitErr(ExitGeneric, err)
		}

		logger.L.Info().
			Str("tld", ingestTld).
			Str("date", dateKey).
			Int64("drops_detected", stats.DropsDetected).
			Int64("drops_inserted", stats.DropsInserted).
			Str("note", stats.Note).
			Msg("ingest complete")

		if stats.Note == "no-baseline" {
			return exitErr(ExitInformational, fmt.Errorf("no baseline snapshot available yet for %s", ingestTld))
		}

		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTld, "tld", "", "TLD to ingest")
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "target date YYYY-MM-DD (default today)")
}
