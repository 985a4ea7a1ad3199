// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/services/coordinator"
	"github.com/dropwatch/core/internal/services/zonestore"
)

func TestRetryPolicyBounds(t *testing.T) {
	p := retryPolicy()
	if p.InitialInterval != 30*time.Second {
		t.Errorf("InitialInterval = %v, want 30s", p.InitialInterval)
	}
	if p.MaxInterval != time.Hour {
		t.Errorf("MaxInterval = %v, want 1h", p.MaxInterval)
	}
	if p.MaxElapsedTime != 0 {
		t.Errorf("MaxElapsedTime = %v, want 0 (unbounded)", p.MaxElapsedTime)
	}
}

func TestRetryPolicyNeverExceedsJitteredMaxInterval(t *testing.T) {
	p := retryPolicy()
	p.Reset()
	for i := 0; i < 20; i++ {
		wait := p.NextBackOff()
		if wait > p.MaxInterval+p.MaxInterval/2 {
			t.Fatalf("NextBackOff() = %v exceeds max interval bound at iteration %d", wait, i)
		}
	}
}

// TestConcurrentTicketsRaceOnLease is scenario S5: two workers racing the
// same (tld, date, kind) ticket must produce exactly one non-skipped
// JobRun and one skipped, never two runs proceeding concurrently.
func TestConcurrentTicketsRaceOnLease(t *testing.T) {
	gdb := openTestDB(t)

	if err := gdb.Create(&models.TLD{Name: "net"}).Error; err != nil {
		t.Fatalf("seed TLD failed: %v", err)
	}
	job := models.Job{Tld: "net", Kind: models.JobKindFull, Schedule: "@daily", IsEnabled: true}
	if err := gdb.Create(&job).Error; err != nil {
		t.Fatalf("seed Job failed: %v", err)
	}

	store := zonestore.New(t.TempDir(), gdb)
	date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	handle, err := store.Reserve("net", date, false)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := handle.File.WriteString("alpha.net. NS ns1.example.\n"); err != nil {
		t.Fatalf("write snapshot failed: %v", err)
	}
	info, err := handle.File.Stat()
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if _, err := store.Commit(handle, info.Size(), ""); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	s := &Service{
		DB:          gdb,
		Coordinator: &coordinator.Coordinator{DB: gdb, Store: store},
		JobTimeout:  time.Minute,
	}

	ticket := Ticket{JobID: job.ID, Tld: "net", TargetDate: "2025-04-01", Kind: models.JobKindFull}

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_ = s.runTicket(context.Background(), ticket)
		}()
	}
	wg.Wait()

	var runs []models.JobRun
	if err := gdb.Where("tld = ? AND target_date = ? AND kind = ?", "net", "2025-04-01", models.JobKindFull).Find(&runs).Error; err != nil {
		t.Fatalf("loading job runs failed: %v", err)
	}

	var successes, skipped int
	for _, r := range runs {
		switch r.Outcome {
		case models.OutcomeSuccess:
			successes++
		case models.OutcomeSkipped:
			skipped++
		default:
			t.Errorf("unexpected outcome %q", r.Outcome)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}
