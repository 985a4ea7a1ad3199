// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package parser streams a master-file zone and extracts the unique set
// of lowercased second-level-domain labels under a given TLD.
package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/dropwatch/core/internal/errs"
	"github.com/miekg/dns"
)

// YieldEvery is how many parsed records pass between cooperative
// cancellation checkpoints, per the concurrency model's "explicit yield
// checkpoints every N parser lines" requirement.
const YieldEvery = 100_000

var sldLabelRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// Stats summarizes one parse pass.
type Stats struct {
	RecordsSeen int64
	LabelsEmitted int64
}

// Stream reads z (standard master-file zone data) and calls emit once for
// every extracted, lowercased SLD label immediately under tld, in the
// order records appear in the file. Duplicate owner names are not
// suppressed here — that is the caller's job, so this function never has
// to hold more than one label in memory at a time regardless of which
// deduplication strategy (in-memory set vs. external sort) is in use.
//
// It uses miekg/dns's streaming zone parser so $ORIGIN/$TTL directives
// and comments are handled the same way any DNS server would handle
// them, rather than hand-rolling that grammar.
func Stream(z io.Reader, tld string, cancel <-chan struct{}, emit func(label string)) (Stats, error) {
	origin := tld + "."
	zp := dns.NewZoneParser(z, origin, "")
	zp.SetIncludeAllowed(false)

	var stats Stats

	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		stats.RecordsSeen++

		if stats.RecordsSeen%YieldEvery == 0 {
			select {
			case <-cancel:
				return stats, errs.ErrCancelled
			default:
			}
		}

		sld, ok := extractSLD(rr.Header().Name, tld)
		if !ok {
			continue
		}

		emit(sld)
		stats.LabelsEmitted++
	}

	if err := zp.Err(); err != nil {
		return stats, errs.Parser(err, "zone parse failed for tld %q", tld)
	}

	return stats, nil
}

// extractSLD applies the owner-name grammar from the spec: lowercase
// ASCII-fold, require exactly two labels under the TLD, validate the SLD
// label grammar (or xn-- IDN prefix).
func extractSLD(owner string, tld string) (string, bool) {
	name := strings.ToLower(strings.TrimSuffix(owner, "."))
	tld = strings.ToLower(tld)

	suffix := "." + tld
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}

	sld := strings.TrimSuffix(name, suffix)
	if sld == "" || strings.Contains(sld, ".") {
		return "", false
	}

	if strings.HasPrefix(sld, "xn--") {
		return sld, true
	}

	if !sldLabelRe.MatchString(sld) {
		return "", false
	}

	return sld, true
}
