// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package quality declares the pluggable QualityScorer contract named in
// spec.md §6. The scoring policy itself is out of scope for the core.
package quality

// Scorer rates a label's commercial/aesthetic value, 0..100, or reports
// it has no opinion. Implementations must be pure and fast (<=1ms
// amortized); the detector may memoize results.
type Scorer interface {
	Score(label, tld string) (score int, ok bool)
}
