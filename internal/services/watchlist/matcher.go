// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package watchlist evaluates freshly-inserted drops against active
// user watchlists and emits deduplicated matches for the external
// notifier to pick up.
package watchlist

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/interfaces/notify"
	"github.com/dropwatch/core/internal/logger"
	"github.com/gobwas/glob"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// compiled is a watchlist with its pattern pre-compiled once per load,
// not per drop, per the design note.
type compiled struct {
	row             models.Watchlist
	glob            glob.Glob
	regex           *regexp.Regexp
	allowedTlds     map[string]struct{}
	allowedCharsets map[models.CharsetType]struct{}
}

// Matcher holds a compiled index of active watchlists for one matching
// cycle.
type Matcher struct {
	db       *gorm.DB
	notifier notify.Sink
	compiled []compiled
}

func NewMatcher(gdb *gorm.DB, notifier notify.Sink) *Matcher {
	return &Matcher{db: gdb, notifier: notifier}
}

// Load reads active watchlists and compiles their patterns. Invalid
// patterns mark the watchlist inactive with a reason rather than
// aborting the whole load.
func (m *Matcher) Load() error {
	var rows []models.Watchlist
	if err := m.db.Where("is_active = ?", true).Find(&rows).Error; err != nil {
		return err
	}

	m.compiled = m.compiled[:0]
	for _, row := range rows {
		c, err := compileWatchlist(row)
		if err != nil {
			logger.L.Warn().Uint("watchlist_id", row.ID).Err(err).Msg("deactivating watchlist with invalid pattern")
			row.IsActive = false
			row.InactiveReason = err.Error()
			if uerr := m.db.Model(&models.Watchlist{}).Where("id = ?", row.ID).
				Updates(map[string]any{"is_active": false, "inactive_reason": err.Error()}).Error; uerr != nil {
				logger.L.Error().Err(uerr).Msg("failed to persist watchlist deactivation")
			}
			continue
		}
		m.compiled = append(m.compiled, c)
	}

	return nil
}

func compileWatchlist(row models.Watchlist) (compiled, error) {
	c := compiled{row: row}

	if row.AllowedTlds != "" {
		c.allowedTlds = make(map[string]struct{})
		for _, t := range strings.Split(row.AllowedTlds, ",") {
			t = strings.TrimSpace(strings.ToLower(t))
			if t != "" {
				c.allowedTlds[t] = struct{}{}
			}
		}
	}

	if row.AllowedCharsets != "" {
		c.allowedCharsets = make(map[models.CharsetType]struct{})
		for _, cs := range strings.Split(row.AllowedCharsets, ",") {
			cs = strings.TrimSpace(cs)
			if cs != "" {
				c.allowedCharsets[models.CharsetType(cs)] = struct{}{}
			}
		}
	}

	switch row.PatternKind {
	case models.PatternGlob:
		g, err := glob.Compile(row.Pattern)
		if err != nil {
			return compiled{}, fmt.Errorf("invalid glob pattern: %w", err)
		}
		c.glob = g
	case models.PatternRegex:
		pattern := row.Pattern
		if !row.RegexUnanchored {
			// Anchored by default (spec: regex patterns match the whole
			// label unless a watchlist opts out), wrapping rather than
			// bracketing with ^/$ directly so alternations in the user's
			// pattern don't silently change precedence.
			pattern = "^(?:" + pattern + ")$"
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return compiled{}, fmt.Errorf("invalid regex pattern: %w", err)
		}
		c.regex = re
	case models.PatternContains, models.PatternPrefix, models.PatternSuffix:
		// no compilation needed
	default:
		return compiled{}, fmt.Errorf("unknown pattern kind %q", row.PatternKind)
	}

	return c, nil
}

// Match evaluates every compiled watchlist against each drop, in the
// short-circuiting predicate order from spec.md §4.7: tld, length,
// charset, quality, pattern. Matches are inserted deduplicated on the
// (watchlist_id, drop_id) unique key and forwarded to the notifier sink.
func (m *Matcher) Match(drops []models.DropRecord) (int, error) {
	matched := 0

	for _, drop := range drops {
		for _, c := range m.compiled {
			if !predicatesHold(c, drop) {
				continue
			}

			match := models.WatchlistMatch{WatchlistID: c.row.ID, DropID: drop.ID}
			res := m.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
			if res.Error != nil {
				return matched, res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			matched++

			if m.notifier != nil {
				if err := m.notifier.SubmitNotification(notify.Request{
					UserID:      c.row.UserID,
					Drop:        drop,
					WatchlistID: c.row.ID,
				}); err != nil {
					logger.L.Error().Err(err).Uint("watchlist_id", c.row.ID).Msg("failed to submit notification")
				}
			}
		}
	}

	return matched, nil
}

func predicatesHold(c compiled, drop models.DropRecord) bool {
	if c.allowedTlds != nil {
		if _, ok := c.allowedTlds[strings.ToLower(drop.Tld)]; !ok {
			return false
		}
	}

	if c.row.MinLength != nil && drop.Length < *c.row.MinLength {
		return false
	}
	if c.row.MaxLength != nil && drop.Length > *c.row.MaxLength {
		return false
	}

	if c.allowedCharsets != nil {
		if _, ok := c.allowedCharsets[drop.CharsetType]; !ok {
			return false
		}
	}

	if c.row.MinQuality != nil {
		if drop.QualityScore == nil || *drop.QualityScore < *c.row.MinQuality {
			return false
		}
	}

	switch c.row.PatternKind {
	case models.PatternGlob:
		return c.glob.Match(drop.Label)
	case models.PatternRegex:
		return c.regex.MatchString(drop.Label)
	case models.PatternContains:
		return strings.Contains(drop.Label, c.row.Pattern)
	case models.PatternPrefix:
		return strings.HasPrefix(drop.Label, c.row.Pattern)
	case models.PatternSuffix:
		return strings.HasSuffix(drop.Label, c.row.Pattern)
	default:
		return false
	}
}
