// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package scheduler

import (
	"testing"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Lease{}, &models.JobRun{}, &models.Job{}, &models.TLD{}, &models.ZoneSnapshot{}, &models.DropRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func TestAcquireLeaseIsSingleFlight(t *testing.T) {
	gdb := openTestDB(t)

	if err := AcquireLease(gdb, "com", "2026-08-01", models.JobKindFull, 1); err != nil {
		t.Fatalf("first AcquireLease failed: %v", err)
	}
	if err := AcquireLease(gdb, "com", "2026-08-01", models.JobKindFull, 2); err != ErrLeaseHeld {
		t.Errorf("second AcquireLease on same key = %v, want ErrLeaseHeld", err)
	}

	// A different date is a different key and acquires cleanly.
	if err := AcquireLease(gdb, "com", "2026-08-02", models.JobKindFull, 3); err != nil {
		t.Errorf("AcquireLease on different date failed: %v", err)
	}
}

func TestReleaseLeaseAllowsReacquire(t *testing.T) {
	gdb := openTestDB(t)

	if err := AcquireLease(gdb, "net", "2026-08-01", models.JobKindDetect, 1); err != nil {
		t.Fatalf("AcquireLease failed: %v", err)
	}
	if err := ReleaseLease(gdb, "net", "2026-08-01", models.JobKindDetect); err != nil {
		t.Fatalf("ReleaseLease failed: %v", err)
	}
	if err := AcquireLease(gdb, "net", "2026-08-01", models.JobKindDetect, 2); err != nil {
		t.Errorf("AcquireLease after release failed: %v", err)
	}
}
