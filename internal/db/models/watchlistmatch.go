// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package models

import "time"

// WatchlistMatch records that a drop satisfied a watchlist's predicates.
// Unique on (WatchlistID, DropID) so re-evaluation of the same drop is a
// no-op rather than a duplicate notification.
type WatchlistMatch struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	WatchlistID uint      `json:"watchlistId" gorm:"uniqueIndex:idx_watchlistmatch_wl_drop;not null"`
	DropID      uint      `json:"dropId" gorm:"uniqueIndex:idx_watchlistmatch_wl_drop;not null"`
	MatchedAt   time.Time `json:"matchedAt" gorm:"autoCreateTime"`
}
