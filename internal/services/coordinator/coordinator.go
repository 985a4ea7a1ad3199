// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package coordinator sequentially orchestrates one (tld, date) cycle:
// fetch, parse, detect, persist, match.
package coordinator

import (
	"context"
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/errs"
	"github.com/dropwatch/core/internal/interfaces/quality"
	"github.com/dropwatch/core/internal/logger"
	"github.com/dropwatch/core/internal/services/czds"
	"github.com/dropwatch/core/internal/services/detector"
	"github.com/dropwatch/core/internal/services/parser"
	"github.com/dropwatch/core/internal/services/persister"
	"github.com/dropwatch/core/internal/services/watchlist"
	"github.com/dropwatch/core/internal/services/zonestore"
	"gorm.io/gorm"
)

type Coordinator struct {
	DB         *gorm.DB
	Store      *zonestore.Store
	CZDS       *czds.Client
	Matcher    *watchlist.Matcher
	Scorer     quality.Scorer
	SpillDir   string
	MemBudget  int64
	RetainKeep int
}

// CycleStats mirrors the structured log record from spec.md §4.6.
type CycleStats struct {
	Outcome         models.JobOutcome
	BytesDownloaded int64
	LabelsParsed    int64
	DropsDetected   int64
	DropsInserted   int64
	Note            string
}

// Run executes one full cycle for (tld, date). It assumes the caller has
// already acquired the single-flight lease.
func (c *Coordinator) Run(ctx context.Context, tld string, date time.Time) (CycleStats, error) {
	var stats CycleStats

	exists, err := c.Store.Exists(tld, date)
	if err != nil {
		return stats, errs.TransientIO(err, "checking snapshot existence")
	}

	if !exists {
		if err := c.fetch(ctx, tld, date, &stats); err != nil {
			return stats, err
		}
	}

	baselineDate, hasBaseline, err := c.Store.LatestBefore(tld, date)
	if err != nil {
		return stats, errs.TransientIO(err, "resolving baseline snapshot")
	}
	if !hasBaseline {
		stats.Outcome = models.OutcomeSuccess
		stats.Note = "no-baseline"
		if err := c.advanceMarkers(tld, date, 0); err != nil {
			return stats, err
		}
		return stats, nil
	}

	today, todayParseStats, err := c.parseSnapshot(ctx, tld, date)
	if err != nil {
		c.quarantineOnParserError(tld, date, err)
		return stats, err
	}
	defer today.Close()
	stats.LabelsParsed = todayParseStats.LabelsEmitted

	prev, _, err := c.parseSnapshot(ctx, tld, baselineDate)
	if err != nil {
		c.quarantineOnParserError(tld, baselineDate, err)
		return stats, err
	}
	defer prev.Close()

	drops, err := detector.Detect(tld, date.Format("2006-01-02"), prev, today, scorerAdapter{c.Scorer}, c.MemBudget)
	if err != nil {
		if kind, ok := errs.KindOf(err); ok && kind == errs.KindMissingBaseline {
			stats.Outcome = models.OutcomeSuccess
			stats.Note = "no-baseline"
			return stats, nil
		}
		return stats, err
	}
	stats.DropsDetected = int64(len(drops))

	result, err := persister.Persist(c.DB, tld, date, drops, 0)
	if err != nil {
		return stats, errs.TransientIO(err, "persisting drops")
	}
	stats.DropsInserted = int64(result.Inserted)

	if c.Matcher != nil {
		inserted, err := insertedRows(c.DB, tld, date.Format("2006-01-02"))
		if err != nil {
			logger.L.Error().Err(err).Msg("failed to load inserted drops for matching")
		} else {
			if err := c.Matcher.Load(); err != nil {
				logger.L.Error().Err(err).Msg("failed to load watchlists")
			} else if _, err := c.Matcher.Match(inserted); err != nil {
				logger.L.Error().Err(err).Msg("watchlist matching failed")
			}
		}
	}

	if c.RetainKeep > 0 {
		if err := c.Store.Prune(tld, c.RetainKeep); err != nil {
			logger.L.Warn().Err(err).Msg("zone store prune failed")
		}
	}

	stats.Outcome = models.OutcomeSuccess
	return stats, nil
}

func (c *Coordinator) fetch(ctx context.Context, tld string, date time.Time, stats *CycleStats) error {
	zones, err := c.CZDS.ListZones(ctx)
	if err != nil {
		return err
	}

	url, err := czds.URLForTLD(zones, tld)
	if err != nil {
		return errs.FatalIO(err, "resolving czds url for %s", tld)
	}

	head, err := c.CZDS.Head(ctx, url)
	if err != nil {
		return err
	}

	handle, err := c.Store.Reserve(tld, date, true)
	if err != nil {
		return errs.TransientIO(err, "reserving zone store handle")
	}

	n, err := c.CZDS.Download(ctx, url, handle.PartPath())
	if err != nil {
		handle.Abort()
		return err
	}
	stats.BytesDownloaded = n

	if _, err := c.Store.Commit(handle, head.Size, ""); err != nil {
		return errs.TransientIO(err, "committing zone snapshot")
	}

	return nil
}

// quarantineOnParserError renames the offending snapshot out of the way so
// a structurally corrupt zone file isn't parsed again on the next cycle.
// Errors other than KindParser (transient I/O, cancellation) leave the
// snapshot in place, since the file itself wasn't at fault.
func (c *Coordinator) quarantineOnParserError(tld string, date time.Time, cause error) {
	kind, ok := errs.KindOf(cause)
	if !ok || kind != errs.KindParser {
		return
	}
	if err := c.Store.Quarantine(tld, date); err != nil {
		logger.L.Error().Err(err).Str("tld", tld).Time("date", date).Msg("failed to quarantine unparseable snapshot")
	}
}

func (c *Coordinator) parseSnapshot(ctx context.Context, tld string, date time.Time) (*parser.LabelSet, parser.Stats, error) {
	stream, err := c.Store.Open(tld, date)
	if err != nil {
		return nil, parser.Stats{}, errs.TransientIO(err, "opening snapshot")
	}
	defer stream.Close()

	return parser.BuildLabelSet(stream, tld, ctx.Done(), c.SpillDir, c.MemBudget)
}

func (c *Coordinator) advanceMarkers(tld string, date time.Time, dropCount int) error {
	return c.DB.Model(&models.TLD{}).Where("name = ?", tld).Updates(map[string]any{
		"last_import_date": date,
		"last_drop_count":  dropCount,
	}).Error
}

func insertedRows(gdb *gorm.DB, tld, date string) ([]models.DropRecord, error) {
	var rows []models.DropRecord
	err := gdb.Where("tld = ? AND drop_date = ?", tld, date).Find(&rows).Error
	return rows, err
}

type scorerAdapter struct{ s quality.Scorer }

func (a scorerAdapter) Score(label, tld string) (int, bool) {
	if a.s == nil {
		return 0, false
	}
	return a.s.Score(label, tld)
}
