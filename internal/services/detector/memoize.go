// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package detector

import (
	"encoding/binary"

	"github.com/dropwatch/core/internal/db"
	"github.com/dropwatch/core/internal/interfaces/quality"
)

// MemoizedScorer wraps a quality.Scorer with a badger-backed cache keyed
// by (label, tld), so a flaky or slow scorer implementation never makes
// the detector redo work for a label it has already scored. Per the
// design notes, scores are snapshotted at detection time and never
// back-filled, so the TTL here only bounds cache size, not correctness.
type MemoizedScorer struct {
	inner quality.Scorer
	ttl   int64
}

func NewMemoizedScorer(inner quality.Scorer, ttlSeconds int64) *MemoizedScorer {
	if ttlSeconds <= 0 {
		ttlSeconds = 86400 * 30
	}
	return &MemoizedScorer{inner: inner, ttl: ttlSeconds}
}

func (m *MemoizedScorer) Score(label, tld string) (int, bool) {
	key := "qscore:" + tld + ":" + label

	if cached, found := db.GetValue(key); found {
		if len(cached) == 0 {
			return 0, false
		}
		return int(binary.BigEndian.Uint32(cached)), true
	}

	score, ok := m.inner.Score(label, tld)
	if !ok {
		_ = db.SetValue(key, nil, m.ttl)
		return 0, false
	}

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(score))
	_ = db.SetValue(key, buf, m.ttl)
	return score, true
}
