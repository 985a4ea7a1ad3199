// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package scheduler

import (
	"context"
	"time"

	"github.com/dropwatch/core/internal/db"
	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/logger"
)

// CatchUp enqueues one ticket per missed day, oldest first, for every
// enabled job whose last successful import trails today by more than a
// day, bounded by horizonDays so a long-dead job doesn't flood the queue
// with years of backfill on its first re-enable.
func (s *Service) CatchUp(ctx context.Context, horizonDays int) error {
	if horizonDays <= 0 {
		horizonDays = 7
	}

	var jobs []models.Job
	if err := s.DB.Where("is_enabled = ?", true).Find(&jobs).Error; err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	earliest := today.AddDate(0, 0, -horizonDays)

	for i := range jobs {
		job := jobs[i]

		var tld models.TLD
		if err := s.DB.Where("name = ?", job.Tld).First(&tld).Error; err != nil {
			logger.L.Warn().Err(err).Str("tld", job.Tld).Msg("catch-up: tld marker missing, skipping")
			continue
		}

		start := earliest
		if tld.LastImportDate != nil {
			candidate := tld.LastImportDate.AddDate(0, 0, 1)
			if candidate.After(start) {
				start = candidate
			}
		}

		for d := start; d.Before(today); d = d.AddDate(0, 0, 1) {
			ticket := Ticket{JobID: job.ID, Tld: job.Tld, TargetDate: d.Format("2006-01-02"), Kind: job.Kind}
			enqueueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := db.EnqueueJSON(enqueueCtx, TicketQueueName, ticket)
			cancel()
			if err != nil {
				logger.L.Warn().Err(err).Str("tld", job.Tld).Str("date", ticket.TargetDate).Msg("catch-up enqueue failed")
			}
		}
	}

	return nil
}
