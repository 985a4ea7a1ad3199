// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package persister

import (
	"testing"
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/services/detector"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.DropRecord{}, &models.TLD{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := gdb.Create(&models.TLD{Name: "com"}).Error; err != nil {
		t.Fatalf("seed TLD failed: %v", err)
	}
	return gdb
}

func TestPersistInsertsAndUpdatesMarkers(t *testing.T) {
	gdb := openTestDB(t)
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	drops := []detector.Drop{
		{Label: "foo", Tld: "com", DropDate: "2026-08-01", Length: 3, CharsetType: models.CharsetLetters},
		{Label: "bar", Tld: "com", DropDate: "2026-08-01", Length: 3, CharsetType: models.CharsetLetters},
	}

	res, err := Persist(gdb, "com", date, drops, 0)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if res.Inserted != 2 || res.Skipped != 0 {
		t.Errorf("got %+v, want 2 inserted, 0 skipped", res)
	}

	var tld models.TLD
	gdb.Where("name = ?", "com").First(&tld)
	if tld.LastDropCount != 2 {
		t.Errorf("LastDropCount = %d, want 2", tld.LastDropCount)
	}
	if tld.LastImportDate == nil || !tld.LastImportDate.Equal(date) {
		t.Errorf("LastImportDate = %v, want %v", tld.LastImportDate, date)
	}
}

func TestPersistIsIdempotentOnRerun(t *testing.T) {
	gdb := openTestDB(t)
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	drops := []detector.Drop{
		{Label: "foo", Tld: "com", DropDate: "2026-08-01", Length: 3, CharsetType: models.CharsetLetters},
	}

	if _, err := Persist(gdb, "com", date, drops, 0); err != nil {
		t.Fatalf("first Persist failed: %v", err)
	}

	res, err := Persist(gdb, "com", date, drops, 0)
	if err != nil {
		t.Fatalf("second Persist failed: %v", err)
	}
	if res.Inserted != 0 || res.Skipped != 1 {
		t.Errorf("got %+v, want 0 inserted, 1 skipped on rerun", res)
	}

	var count int64
	gdb.Model(&models.DropRecord{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one DropRecord row, got %d", count)
	}
}

func TestPersistBatchesAcrossMultipleChunks(t *testing.T) {
	gdb := openTestDB(t)
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	var drops []detector.Drop
	for i := 0; i < 25; i++ {
		drops = append(drops, detector.Drop{
			Label: string(rune('a' + i)), Tld: "com", DropDate: "2026-08-01",
			Length: 1, CharsetType: models.CharsetLetters,
		})
	}

	res, err := Persist(gdb, "com", date, drops, 10)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if res.Inserted != 25 {
		t.Errorf("Inserted = %d, want 25", res.Inserted)
	}

	var count int64
	gdb.Model(&models.DropRecord{}).Count(&count)
	if count != 25 {
		t.Errorf("expected 25 rows, got %d", count)
	}
}
