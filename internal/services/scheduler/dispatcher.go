// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package scheduler ticks enabled jobs against their cron schedules,
// dispatches tickets onto the durable queue, and runs each ticket through
// the coordinator with a lease, a hard timeout, and bounded retries.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropwatch/core/internal/db"
	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/logger"
	"github.com/dropwatch/core/internal/services/coordinator"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const TicketQueueName = "dropwatch-tickets"

// Ticket is the queue payload for one (tld, date, kind) attempt.
type Ticket struct {
	JobID      uint          `json:"jobId"`
	Tld        string        `json:"tld"`
	TargetDate string        `json:"targetDate"`
	Kind       models.JobKind `json:"kind"`
	RetryCount int           `json:"retryCount"`
}

// Service owns the cron dispatch loop and ticket execution.
type Service struct {
	DB          *gorm.DB
	Coordinator *coordinator.Coordinator
	JobTimeout  time.Duration // fallback when a Job row carries none
}

func NewService(gdb *gorm.DB, coord *coordinator.Coordinator) *Service {
	return &Service{DB: gdb, Coordinator: coord, JobTimeout: 2 * time.Hour}
}

// RegisterJobs wires the ticket queue handler, the durable-queue analogue
// of a direct function call, so tickets survive a process restart between
// dispatch and execution.
func (s *Service) RegisterJobs() {
	db.QueueRegisterJSON(TicketQueueName, func(ctx context.Context, payload Ticket) error {
		return s.runTicket(ctx, payload)
	})
}

// StartDispatcher ticks every 30 seconds, recomputing NextRunAt for every
// enabled job whose schedule has elapsed and enqueueing a ticket for today.
func (s *Service) StartDispatcher(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				logger.L.Warn().Err(err).Msg("scheduler tick failed")
			}
		case <-cleanupTicker.C:
			if err := db.PruneJobRuns(s.DB, time.Now().UTC()); err != nil {
				logger.L.Warn().Err(err).Msg("job run retention prune failed")
			}
		}
	}
}

func (s *Service) tick(ctx context.Context) error {
	now := time.Now().UTC()

	var jobs []models.Job
	if err := s.DB.Where("is_enabled = ?", true).Find(&jobs).Error; err != nil {
		return err
	}

	for i := range jobs {
		job := jobs[i]

		nextAt, err := nextRunTime(job.Schedule, now)
		if err != nil {
			logger.L.Warn().Err(err).Uint("job_id", job.ID).Str("schedule", job.Schedule).Msg("invalid cron schedule")
			continue
		}

		if job.NextRunAt == nil {
			if err := s.DB.Model(&models.Job{}).Where("id = ?", job.ID).Update("next_run_at", nextAt).Error; err != nil {
				logger.L.Warn().Err(err).Uint("job_id", job.ID).Msg("failed to seed next_run_at")
			}
			continue
		}

		if now.Before(*job.NextRunAt) {
			continue
		}

		if err := s.DB.Model(&models.Job{}).Where("id = ?", job.ID).Update("next_run_at", nextAt).Error; err != nil {
			logger.L.Warn().Err(err).Uint("job_id", job.ID).Msg("failed to advance next_run_at")
			continue
		}

		ticket := Ticket{JobID: job.ID, Tld: job.Tld, TargetDate: now.Format("2006-01-02"), Kind: job.Kind}
		enqueueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.EnqueueJSON(enqueueCtx, TicketQueueName, ticket)
		cancel()
		if err != nil {
			logger.L.Warn().Err(err).Uint("job_id", job.ID).Msg("failed to enqueue scheduled ticket")
		}
	}

	return nil
}

func nextRunTime(schedule string, now time.Time) (time.Time, error) {
	spec := strings.TrimSpace(schedule)
	if spec == "" {
		return time.Time{}, fmt.Errorf("schedule_required")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}
