// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package charset classifies SLD labels by character composition. It has
// no dependency on the database or detection pipeline so both can import
// it without creating a cycle (the detector needs it for drop metadata,
// db's migration fixups need it to backfill old rows).
package charset

import "github.com/dropwatch/core/internal/db/models"

// Classify applies the one-pass charset rules from spec.md §4.4: numbers
// if all digits, letters if all ASCII letters, hyphenated if any hyphen,
// idn if xn-- prefixed, mixed otherwise.
func Classify(label string) models.CharsetType {
	if len(label) >= 4 && label[:4] == "xn--" {
		return models.CharsetIDN
	}

	allDigits, allLetters, hasHyphen := true, true, false
	for _, r := range label {
		switch {
		case r == '-':
			hasHyphen = true
			allDigits, allLetters = false, false
		case r >= '0' && r <= '9':
			allLetters = false
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			allDigits = false
		default:
			allDigits, allLetters = false, false
		}
	}

	switch {
	case allDigits:
		return models.CharsetNumbers
	case allLetters:
		return models.CharsetLetters
	case hasHyphen:
		return models.CharsetHyphenated
	default:
		return models.CharsetMixed
	}
}

// Length is the rune count of the label, per the open-question resolution
// in DESIGN.md: the stored (possibly xn-- encoded) form, not a
// decoded Unicode form.
func Length(label string) int {
	return len([]rune(label))
}
