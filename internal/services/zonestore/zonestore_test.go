// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package zonestore

import (
	"compress/gzip"
	"io"
	"os"
	"testing"
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newGzipWriter(t *testing.T, w io.Writer) *gzip.Writer {
	t.Helper()
	return gzip.NewWriter(w)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.ZoneSnapshot{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestReserveCommitOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	date := mustDate(t, "2026-08-01")

	h, err := store.Reserve("com", date, false)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	content := "hello zone\n"
	if _, err := h.File.WriteString(content); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := store.Commit(h, int64(len(content)), ""); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	exists, err := store.Exists("com", date)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("snapshot should exist after commit")
	}

	rc, err := store.Open("com", date)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != content {
		t.Errorf("got %q, want %q", got, content)
	}
}

func TestReserveRejectsDuplicate(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	date := mustDate(t, "2026-08-01")

	h, err := store.Reserve("com", date, false)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	h.File.WriteString("x")
	if _, err := store.Commit(h, 1, ""); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := store.Reserve("com", date, false); err != ErrAlreadyExists {
		t.Errorf("second Reserve = %v, want ErrAlreadyExists", err)
	}
}

func TestCommitRejectsSizeMismatch(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	date := mustDate(t, "2026-08-01")

	h, err := store.Reserve("com", date, false)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	h.File.WriteString("short")

	if _, err := store.Commit(h, 999, ""); err == nil {
		t.Error("Commit with mismatched declared size should fail")
	}

	if _, statErr := os.Stat(h.tmpPath); !os.IsNotExist(statErr) {
		t.Error("rejected commit should remove the partial file")
	}

	exists, err := store.Exists("com", date)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("rejected commit should not register a snapshot")
	}
}

func TestAbortLeavesNoTrace(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	date := mustDate(t, "2026-08-01")

	h, err := store.Reserve("com", date, false)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	tmp := h.tmpPath
	h.Abort()

	if _, statErr := os.Stat(tmp); !os.IsNotExist(statErr) {
		t.Error("Abort should remove the temp file")
	}
}

func TestLatestBeforeNoBaseline(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	_, ok, err := store.LatestBefore("com", mustDate(t, "2026-08-01"))
	if err != nil {
		t.Fatalf("LatestBefore failed: %v", err)
	}
	if ok {
		t.Error("expected ok=false with no prior snapshots")
	}
}

func TestLatestBeforeFindsMostRecentPriorDay(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	for _, d := range []string{"2026-07-30", "2026-07-31", "2026-08-01"} {
		h, err := store.Reserve("com", mustDate(t, d), false)
		if err != nil {
			t.Fatalf("Reserve(%s) failed: %v", d, err)
		}
		h.File.WriteString("x")
		if _, err := store.Commit(h, 1, ""); err != nil {
			t.Fatalf("Commit(%s) failed: %v", d, err)
		}
	}

	got, ok, err := store.LatestBefore("com", mustDate(t, "2026-08-01"))
	if err != nil {
		t.Fatalf("LatestBefore failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a baseline to be found")
	}
	if got.Format("2006-01-02") != "2026-07-31" {
		t.Errorf("got %s, want 2026-07-31", got.Format("2006-01-02"))
	}
}

func TestPruneKeepsMostRecentNAndDeletesRest(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	dates := []string{"2026-07-28", "2026-07-29", "2026-07-30", "2026-07-31", "2026-08-01"}
	for _, d := range dates {
		h, err := store.Reserve("com", mustDate(t, d), false)
		if err != nil {
			t.Fatalf("Reserve(%s) failed: %v", d, err)
		}
		h.File.WriteString("x")
		if _, err := store.Commit(h, 1, ""); err != nil {
			t.Fatalf("Commit(%s) failed: %v", d, err)
		}
	}

	if err := store.Prune("com", 2); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	var remaining []models.ZoneSnapshot
	store.db.Where("tld = ?", "com").Find(&remaining)
	if len(remaining) != 2 {
		t.Fatalf("got %d remaining snapshots, want 2", len(remaining))
	}
	for _, s := range remaining {
		if s.Date != "2026-07-31" && s.Date != "2026-08-01" {
			t.Errorf("unexpected snapshot retained: %s", s.Date)
		}
		if _, err := os.Stat(s.Path); err != nil {
			t.Errorf("retained snapshot file missing: %v", err)
		}
	}
}

func TestPruneRejectsKeepBelowTwo(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	if err := store.Prune("com", 1); err == nil {
		t.Error("Prune with keep < 2 should error")
	}
}

func TestOpenDecompressesGzip(t *testing.T) {
	store := New(t.TempDir(), openTestDB(t))
	date := mustDate(t, "2026-08-01")

	h, err := store.Reserve("com", date, true)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	gw := newGzipWriter(t, h.File)
	content := "compressed zone data\n"
	if _, err := gw.Write([]byte(content)); err != nil {
		t.Fatalf("gzip write failed: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close failed: %v", err)
	}

	info, err := h.File.Stat()
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if _, err := store.Commit(h, info.Size(), ""); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	rc, err := store.Open("com", date)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != content {
		t.Errorf("got %q, want %q", got, content)
	}
}
