// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package detector computes the set-difference of adjacent daily label
// sets and derives per-drop metadata.
package detector

import (
	"bufio"
	"os"
	"sort"

	"github.com/dropwatch/core/internal/charset"
	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/internal/errs"
	"github.com/dropwatch/core/internal/services/parser"
)

// QualityScorer is the pluggable, optional policy from spec.md §6: pure,
// fast, and may be absent. The detector never blocks on it.
type QualityScorer interface {
	Score(label, tld string) (score int, ok bool)
}

// Drop is the detector's output before persistence assigns an ID.
type Drop struct {
	Label        string
	Tld          string
	DropDate     string
	Length       int
	CharsetType  models.CharsetType
	QualityScore *int
}

// Detect computes prev \ today and derives metadata for each emitted
// label, selecting the in-memory or external-sorted-merge strategy based
// on prev's size vs. memoryBudget. scorer may be nil.
func Detect(tld, dropDate string, prev, today *parser.LabelSet, scorer QualityScorer, memoryBudget int64) ([]Drop, error) {
	if prev == nil {
		return nil, errs.ErrMissingBaseline
	}

	if memoryBudget <= 0 {
		memoryBudget = parser.MemoryBudget
	}

	if prev.Len() <= memoryBudget {
		return detectInMemory(tld, dropDate, prev, today, scorer)
	}
	return detectExternal(tld, dropDate, prev, today, scorer)
}

func detectInMemory(tld, dropDate string, prev, today *parser.LabelSet, scorer QualityScorer) ([]Drop, error) {
	todaySet := make(map[string]struct{})
	if today != nil {
		if err := today.Each(func(label string) error {
			todaySet[label] = struct{}{}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	var drops []Drop
	err := prev.Each(func(label string) error {
		if _, present := todaySet[label]; present {
			return nil
		}
		drops = append(drops, deriveDrop(label, tld, dropDate, scorer))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return drops, nil
}

// detectExternal performs a linear two-pointer walk over both label sets
// materialized as sorted streams, avoiding holding both fully in memory
// at once — the external path spec.md §4.4/§9 calls for, taken when
// prev exceeds the memory budget.
func detectExternal(tld, dropDate string, prev, today *parser.LabelSet, scorer QualityScorer) ([]Drop, error) {
	prevSorted, prevOwned, err := sortedSource(prev)
	if err != nil {
		return nil, err
	}
	if prevOwned {
		defer os.Remove(prevSorted)
	}

	todaySorted, todayOwned, err := sortedSource(today)
	if err != nil {
		return nil, err
	}
	if todayOwned {
		defer os.Remove(todaySorted)
	}

	pf, err := os.Open(prevSorted)
	if err != nil {
		return nil, err
	}
	defer pf.Close()
	pScan := bufio.NewScanner(pf)
	pScan.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tScan *bufio.Scanner
	var tFile *os.File
	if todaySorted != "" {
		tFile, err = os.Open(todaySorted)
		if err != nil {
			return nil, err
		}
		defer tFile.Close()
		tScan = bufio.NewScanner(tFile)
		tScan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	}

	var drops []Drop
	hasT := false
	var tLabel string
	if tScan != nil {
		hasT = tScan.Scan()
		tLabel = tScan.Text()
	}

	for pScan.Scan() {
		pLabel := pScan.Text()

		for hasT && tLabel < pLabel {
			hasT = tScan.Scan()
			tLabel = tScan.Text()
		}

		if hasT && tLabel == pLabel {
			continue
		}

		drops = append(drops, deriveDrop(pLabel, tld, dropDate, scorer))
	}

	if err := pScan.Err(); err != nil {
		return nil, err
	}
	if tScan != nil {
		if err := tScan.Err(); err != nil {
			return nil, err
		}
	}

	return drops, nil
}

// sortedSource returns a sorted, on-disk view of ls. A disk-resident
// LabelSet is already sorted by BuildLabelSet, so its existing file is
// returned directly (owned=false: the caller must not remove it, that's
// LabelSet.Close's job) rather than re-reading potentially the whole
// external-sorted file back into memory just to sort it again. Only an
// in-memory LabelSet — bounded by the same budget that kept it resident —
// is materialized into a new temp file here.
func sortedSource(ls *parser.LabelSet) (path string, owned bool, err error) {
	if ls == nil {
		return "", false, nil
	}
	if p, ok := ls.SortedPath(); ok {
		return p, false, nil
	}

	p, err := materializeSorted(ls)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// materializeSorted sorts an in-memory label set into a new temp file. It
// is only reached for sets small enough to already be held in memory in
// full, so sorting the slice in place here adds no new memory pressure
// beyond what BuildLabelSet already committed to.
func materializeSorted(ls *parser.LabelSet) (string, error) {
	var labels []string
	if err := ls.Each(func(label string) error {
		labels = append(labels, label)
		return nil
	}); err != nil {
		return "", err
	}
	sort.Strings(labels)

	f, err := os.CreateTemp("", "detector-sorted-*.txt")
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	for _, l := range labels {
		if _, err := w.WriteString(l + "\n"); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func deriveDrop(label, tld, dropDate string, scorer QualityScorer) Drop {
	d := Drop{
		Label:       label,
		Tld:         tld,
		DropDate:    dropDate,
		Length:      charset.Length(label),
		CharsetType: charset.Classify(label),
	}

	if scorer != nil {
		if score, ok := scorer.Score(label, tld); ok {
			d.QualityScore = &score
		}
	}

	return d
}
