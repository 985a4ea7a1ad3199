// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package query

import (
	"testing"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.DropRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func seedDrops(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	score := 80
	rows := []models.DropRecord{
		{Label: "foo", Tld: "com", DropDate: "2026-08-01", Length: 3, CharsetType: models.CharsetLetters, QualityScore: &score},
		{Label: "bar123", Tld: "com", DropDate: "2026-08-01", Length: 6, CharsetType: models.CharsetMixed},
		{Label: "baz", Tld: "net", DropDate: "2026-07-31", Length: 3, CharsetType: models.CharsetLetters},
	}
	for i := range rows {
		if err := gdb.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}
}

func TestQueryDropsFiltersByTld(t *testing.T) {
	gdb := openTestDB(t)
	seedDrops(t, gdb)

	page, err := QueryDrops(gdb, DropFilter{Tld: "COM"})
	if err != nil {
		t.Fatalf("QueryDrops failed: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Total = %d, want 2", page.Total)
	}
}

func TestQueryDropsFiltersBySubstring(t *testing.T) {
	gdb := openTestDB(t)
	seedDrops(t, gdb)

	page, err := QueryDrops(gdb, DropFilter{Substring: "ar1"})
	if err != nil {
		t.Fatalf("QueryDrops failed: %v", err)
	}
	if page.Total != 1 || page.Data[0].Label != "bar123" {
		t.Errorf("got %+v, want single bar123 match", page.Data)
	}
}

func TestQueryDropsFiltersByQuality(t *testing.T) {
	gdb := openTestDB(t)
	seedDrops(t, gdb)

	min := 50
	page, err := QueryDrops(gdb, DropFilter{MinQuality: &min})
	if err != nil {
		t.Fatalf("QueryDrops failed: %v", err)
	}
	if page.Total != 1 || page.Data[0].Label != "foo" {
		t.Errorf("got %+v, want single foo match", page.Data)
	}
}

func TestQueryDropsPaginationClampsAndComputesLastPage(t *testing.T) {
	gdb := openTestDB(t)
	seedDrops(t, gdb)

	page, err := QueryDrops(gdb, DropFilter{Page: 0, PageSize: -5})
	if err != nil {
		t.Fatalf("QueryDrops failed: %v", err)
	}
	if page.Page != 1 {
		t.Errorf("Page = %d, want clamped to 1", page.Page)
	}
	if page.PageSize != defaultPageSize {
		t.Errorf("PageSize = %d, want default %d", page.PageSize, defaultPageSize)
	}
	if page.LastPage != 1 {
		t.Errorf("LastPage = %d, want 1", page.LastPage)
	}

	page, err = QueryDrops(gdb, DropFilter{PageSize: 1_000_000})
	if err != nil {
		t.Fatalf("QueryDrops failed: %v", err)
	}
	if page.PageSize != maxPageSize {
		t.Errorf("PageSize = %d, want clamped to %d", page.PageSize, maxPageSize)
	}
}

func TestQueryDropsOrdersNewestFirst(t *testing.T) {
	gdb := openTestDB(t)
	seedDrops(t, gdb)

	page, err := QueryDrops(gdb, DropFilter{})
	if err != nil {
		t.Fatalf("QueryDrops failed: %v", err)
	}
	if len(page.Data) != 3 {
		t.Fatalf("got %d rows, want 3", len(page.Data))
	}
	if page.Data[0].DropDate < page.Data[len(page.Data)-1].DropDate {
		t.Errorf("rows not ordered newest-first: %v", page.Data)
	}
}
