// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package detector

import (
	"sort"
	"strings"
	"testing"

	"github.com/dropwatch/core/internal/errs"
	"github.com/dropwatch/core/internal/services/parser"
)

func buildSet(t *testing.T, budget int64, labels ...string) *parser.LabelSet {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("$ORIGIN example.\n")
	for _, l := range labels {
		sb.WriteString(l + " 3600 IN NS ns1." + l + ".example.\n")
	}
	ls, _, err := parser.BuildLabelSet(strings.NewReader(sb.String()), "example", nil, t.TempDir(), budget)
	if err != nil {
		t.Fatalf("BuildLabelSet failed: %v", err)
	}
	return ls
}

type fixedScorer struct {
	score int
	ok    bool
}

func (f fixedScorer) Score(label, tld string) (int, bool) { return f.score, f.ok }

func labelsOf(drops []Drop) []string {
	out := make([]string, len(drops))
	for i, d := range drops {
		out[i] = d.Label
	}
	sort.Strings(out)
	return out
}

func TestDetectInMemoryFindsDroppedLabels(t *testing.T) {
	prev := buildSet(t, parser.MemoryBudget, "foo", "bar", "baz")
	defer prev.Close()
	today := buildSet(t, parser.MemoryBudget, "foo")
	defer today.Close()

	drops, err := Detect("example", "2026-08-01", prev, today, nil, parser.MemoryBudget)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	got := labelsOf(drops)
	want := []string{"bar", "baz"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got drops %v, want %v", got, want)
	}
}

func TestDetectExternalMatchesInMemory(t *testing.T) {
	prev := buildSet(t, 1, "foo", "bar", "baz")
	defer prev.Close()
	today := buildSet(t, 1, "foo")
	defer today.Close()

	drops, err := Detect("example", "2026-08-01", prev, today, nil, 1)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	got := labelsOf(drops)
	want := []string{"bar", "baz"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got drops %v, want %v", got, want)
	}
}

func TestDetectNoBaselineReturnsError(t *testing.T) {
	today := buildSet(t, parser.MemoryBudget, "foo")
	defer today.Close()

	_, err := Detect("example", "2026-08-01", nil, today, nil, parser.MemoryBudget)
	if err != errs.ErrMissingBaseline {
		t.Errorf("Detect with nil baseline = %v, want errs.ErrMissingBaseline", err)
	}
}

func TestDetectEmptyTodayMeansEverythingDropped(t *testing.T) {
	prev := buildSet(t, parser.MemoryBudget, "foo", "bar")
	defer prev.Close()

	drops, err := Detect("example", "2026-08-01", prev, nil, nil, parser.MemoryBudget)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	got := labelsOf(drops)
	want := []string{"bar", "foo"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got drops %v, want %v", got, want)
	}
}

func TestDeriveDropAppliesScorerWhenPresent(t *testing.T) {
	prev := buildSet(t, parser.MemoryBudget, "foo")
	defer prev.Close()

	drops, err := Detect("example", "2026-08-01", prev, nil, fixedScorer{score: 42, ok: true}, parser.MemoryBudget)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(drops) != 1 {
		t.Fatalf("got %d drops, want 1", len(drops))
	}
	if drops[0].QualityScore == nil || *drops[0].QualityScore != 42 {
		t.Errorf("QualityScore = %v, want 42", drops[0].QualityScore)
	}
}

func TestDeriveDropOmitsScoreWhenScorerDeclines(t *testing.T) {
	prev := buildSet(t, parser.MemoryBudget, "foo")
	defer prev.Close()

	drops, err := Detect("example", "2026-08-01", prev, nil, fixedScorer{ok: false}, parser.MemoryBudget)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(drops) != 1 {
		t.Fatalf("got %d drops, want 1", len(drops))
	}
	if drops[0].QualityScore != nil {
		t.Errorf("QualityScore = %v, want nil", drops[0].QualityScore)
	}
}
