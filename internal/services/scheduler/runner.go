// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/errs"
	"github.com/dropwatch/core/internal/logger"
)

// retryPolicy is the job-runner's backoff, distinct from the CZDS client's:
// base 30s, cap 1h, per the per-cycle retry budget.
func retryPolicy() *backoff.ExponentialBackOff {
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = 30 * time.Second
	p.MaxInterval = time.Hour
	p.MaxElapsedTime = 0
	return p
}

// runTicket executes one ticket to a terminal JobRun outcome, retrying
// transient failures in-process up to the owning job's MaxRetries before
// giving up. A single ticket therefore occupies one worker slot for the
// whole retry sequence rather than re-entering the queue, keeping the
// lease held continuously across an attempt's retries.
func (s *Service) runTicket(ctx context.Context, t Ticket) error {
	var job models.Job
	if err := s.DB.Where("tld = ? AND kind = ?", t.Tld, t.Kind).First(&job).Error; err != nil {
		return fmt.Errorf("ticket references unknown job %s/%s: %w", t.Tld, t.Kind, err)
	}

	if !job.IsEnabled {
		return nil
	}

	timeout := s.JobTimeout
	if job.Timeout > 0 {
		timeout = time.Duration(job.Timeout) * time.Second
	}

	if err := AcquireLease(s.DB, t.Tld, t.TargetDate, t.Kind, 0); err != nil {
		logger.L.Debug().Str("tld", t.Tld).Str("date", t.TargetDate).Msg("ticket skipped, lease already held")
		skipped := models.JobRun{
			JobID:      job.ID,
			Tld:        t.Tld,
			TargetDate: t.TargetDate,
			Kind:       t.Kind,
			Outcome:    models.OutcomeSkipped,
			FinishedAt: timePtr(time.Now().UTC()),
			Error:      "lease already held",
		}
		if err := s.DB.Create(&skipped).Error; err != nil {
			logger.L.Error().Err(err).Str("tld", t.Tld).Str("date", t.TargetDate).Msg("failed to record skipped job run")
		}
		return nil
	}
	defer ReleaseLease(s.DB, t.Tld, t.TargetDate, t.Kind)

	run := models.JobRun{
		JobID:      job.ID,
		Tld:        t.Tld,
		TargetDate: t.TargetDate,
		Kind:       t.Kind,
		Outcome:    models.OutcomeRunning,
	}
	if err := s.DB.Create(&run).Error; err != nil {
		return fmt.Errorf("create job run: %w", err)
	}

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	policy := retryPolicy()
	attempt := 0

	for {
		attempt++
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		outcome, cycleErr := s.attempt(runCtx, t, &run)
		cancel()

		if cycleErr == nil {
			s.finish(&run, outcome, "", "", attempt-1)
			return nil
		}

		kind, _ := errs.KindOf(cycleErr)

		if errors.Is(cycleErr, context.DeadlineExceeded) {
			if attempt > maxRetries {
				s.finish(&run, models.OutcomeTimedOut, string(errs.KindFatalIO), cycleErr.Error(), attempt-1)
				return cycleErr
			}
		} else if !errs.Retryable(cycleErr) || attempt > maxRetries {
			s.finish(&run, models.OutcomeFailed, string(kind), cycleErr.Error(), attempt-1)
			return cycleErr
		}

		wait := policy.NextBackOff()
		logger.L.Warn().Err(cycleErr).Str("tld", t.Tld).Str("date", t.TargetDate).
			Int("attempt", attempt).Dur("wait", wait).Msg("cycle failed, retrying")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			s.finish(&run, models.OutcomeFailed, string(errs.KindCancellation), ctx.Err().Error(), attempt-1)
			return ctx.Err()
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func (s *Service) attempt(ctx context.Context, t Ticket, run *models.JobRun) (models.JobOutcome, error) {
	date, err := time.Parse("2006-01-02", t.TargetDate)
	if err != nil {
		return models.OutcomeFailed, errs.Config("invalid target date %q", t.TargetDate)
	}

	stats, err := s.Coordinator.Run(ctx, t.Tld, date)

	run.BytesDownloaded = stats.BytesDownloaded
	run.LabelsParsed = stats.LabelsParsed
	run.DropsDetected = stats.DropsDetected
	run.DropsInserted = stats.DropsInserted

	if err != nil {
		return models.OutcomeFailed, err
	}
	return models.OutcomeSuccess, nil
}

func (s *Service) finish(run *models.JobRun, outcome models.JobOutcome, errClass, errMsg string, retries int) {
	now := time.Now().UTC()
	updates := map[string]any{
		"outcome":          outcome,
		"finished_at":      now,
		"retry_count":      retries,
		"error_class":      errClass,
		"error":            errMsg,
		"bytes_downloaded": run.BytesDownloaded,
		"labels_parsed":    run.LabelsParsed,
		"drops_detected":   run.DropsDetected,
		"drops_inserted":   run.DropsInserted,
	}
	if err := s.DB.Model(&models.JobRun{}).Where("id = ?", run.ID).Updates(updates).Error; err != nil {
		logger.L.Error().Err(err).Uint("job_run_id", run.ID).Msg("failed to record job run outcome")
	}

	logger.L.Info().
		Str("tld", run.Tld).
		Str("target_date", run.TargetDate).
		Str("kind", string(run.Kind)).
		Str("outcome", string(outcome)).
		Dur("duration", now.Sub(run.StartedAt)).
		Int64("bytes_downloaded", run.BytesDownloaded).
		Int64("labels_parsed", run.LabelsParsed).
		Int64("drops_detected", run.DropsDetected).
		Int64("drops_inserted", run.DropsInserted).
		Str("error_class", errClass).
		Msg("cycle finished")
}
