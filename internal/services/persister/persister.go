// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package persister writes drop records idempotently, batched, and
// updates the owning TLD's markers on overall success.
package persister

import (
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/services/detector"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultBatchSize = 5000

// Result reports how many of the submitted records were newly inserted
// vs. already present under the unique (label, tld, drop_date) key.
type Result struct {
	Inserted int
	Skipped  int
}

// Persist writes drops in batches of batchSize (0 = DefaultBatchSize),
// using insert-if-not-exists so re-running a cycle is a no-op on the
// second pass. TLD markers are only advanced after every batch commits.
func Persist(gdb *gorm.DB, tld string, date time.Time, drops []detector.Drop, batchSize int) (Result, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var result Result

	for start := 0; start < len(drops); start += batchSize {
		end := start + batchSize
		if end > len(drops) {
			end = len(drops)
		}
		chunk := drops[start:end]

		rows := make([]models.DropRecord, 0, len(chunk))
		for _, d := range chunk {
			rows = append(rows, models.DropRecord{
				Label:        d.Label,
				Tld:          d.Tld,
				DropDate:     d.DropDate,
				Length:       d.Length,
				LabelCount:   1,
				CharsetType:  d.CharsetType,
				QualityScore: d.QualityScore,
			})
		}

		err := gdb.Transaction(func(tx *gorm.DB) error {
			before := len(rows)

			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
			if res.Error != nil {
				return res.Error
			}

			inserted := int(res.RowsAffected)
			result.Inserted += inserted
			result.Skipped += before - inserted
			return nil
		})
		if err != nil {
			return result, err
		}
	}

	if err := gdb.Model(&models.TLD{}).Where("name = ?", tld).Updates(map[string]any{
		"last_import_date": date,
		"last_drop_count":  result.Inserted + result.Skipped,
	}).Error; err != nil {
		return result, err
	}

	return result, nil
}
