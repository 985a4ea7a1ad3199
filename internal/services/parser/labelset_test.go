// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package parser

import (
	"sort"
	"strings"
	"testing"
)

func collect(t *testing.T, ls *LabelSet) []string {
	t.Helper()
	var got []string
	if err := ls.Each(func(label string) error {
		got = append(got, label)
		return nil
	}); err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	sort.Strings(got)
	return got
}

func TestBuildLabelSetDedupesInMemory(t *testing.T) {
	zone := `$ORIGIN example.
foo 3600 IN NS ns1.foo.example.
foo 3600 IN NS ns2.foo.example.
bar 3600 IN NS ns1.bar.example.
`
	ls, stats, err := BuildLabelSet(strings.NewReader(zone), "example", nil, t.TempDir(), MemoryBudget)
	if err != nil {
		t.Fatalf("BuildLabelSet failed: %v", err)
	}
	defer ls.Close()

	if ls.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ls.Len())
	}
	got := collect(t, ls)
	want := []string{"bar", "foo"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
	if stats.LabelsEmitted != 3 {
		t.Errorf("LabelsEmitted = %d, want 3", stats.LabelsEmitted)
	}
}

func TestBuildLabelSetSpillsToDiskOverBudget(t *testing.T) {
	zone := `$ORIGIN example.
foo 3600 IN NS ns1.foo.example.
foo 3600 IN NS ns2.foo.example.
bar 3600 IN NS ns1.bar.example.
baz 3600 IN NS ns1.baz.example.
`
	// budget of 1 forces the external-sort path after the second unique
	// label ("bar") is observed.
	ls, _, err := BuildLabelSet(strings.NewReader(zone), "example", nil, t.TempDir(), 1)
	if err != nil {
		t.Fatalf("BuildLabelSet failed: %v", err)
	}
	defer ls.Close()

	if ls.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ls.Len())
	}
	got := collect(t, ls)
	want := []string{"bar", "baz", "foo"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildLabelSetEmptyZone(t *testing.T) {
	ls, stats, err := BuildLabelSet(strings.NewReader("$ORIGIN example.\n"), "example", nil, t.TempDir(), MemoryBudget)
	if err != nil {
		t.Fatalf("BuildLabelSet failed: %v", err)
	}
	defer ls.Close()

	if ls.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ls.Len())
	}
	if stats.LabelsEmitted != 0 {
		t.Errorf("LabelsEmitted = %d, want 0", stats.LabelsEmitted)
	}
}
