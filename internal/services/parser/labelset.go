// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package parser

import (
	"bufio"
	"container/heap"
	"io"
	"os"
	"sort"

	"github.com/caffix/stringset"
)

// MemoryBudget is the default cardinality above which BuildLabelSet falls
// back to external-sort deduplication instead of an in-memory hash set.
const MemoryBudget = 20_000_000

// LabelSet is the deduplicated output of a parse pass, either held
// in-memory (small TLDs) or spilled to a sorted file on disk (TLDs
// whose label count would otherwise blow the memory budget).
type LabelSet struct {
	mem        *stringset.Set
	sortedPath string
	count      int64
}

func (l *LabelSet) Len() int64 { return l.count }

// SortedPath returns the backing file for a disk-resident label set,
// already sorted and deduplicated by BuildLabelSet, and true. It returns
// ("", false) for a set small enough to be held in memory. A caller that
// needs a sorted, on-disk view of the set (e.g. a merge-style consumer)
// should use this path directly instead of re-reading and re-sorting an
// already-sorted file.
func (l *LabelSet) SortedPath() (string, bool) {
	return l.sortedPath, l.sortedPath != ""
}

// Close releases resources held by the set (the in-memory set itself, or
// the backing sorted file).
func (l *LabelSet) Close() {
	if l.mem != nil {
		l.mem.Close()
	}
	if l.sortedPath != "" {
		_ = os.Remove(l.sortedPath)
	}
}

// Each calls fn once per unique label, in the set's natural order
// (unordered for the in-memory path, lexicographic for the external
// path). Consumers must not depend on a particular order, per spec.
func (l *LabelSet) Each(fn func(label string) error) error {
	if l.mem != nil {
		for _, label := range l.mem.Slice() {
			if err := fn(label); err != nil {
				return err
			}
		}
		return nil
	}

	f, err := os.Open(l.sortedPath)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := fn(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// BuildLabelSet drains a Stream of emitted labels into a LabelSet,
// switching from an in-memory hash set to external-sort deduplication
// once the observed cardinality exceeds budget labels. spillDir receives
// the external path's unsorted spill file; the sorted runs and the final
// sorted file are written under os.TempDir().
func BuildLabelSet(z io.Reader, tld string, cancel <-chan struct{}, spillDir string, budget int64) (*LabelSet, Stats, error) {
	if budget <= 0 {
		budget = MemoryBudget
	}

	mem := stringset.New()
	var spillFile *os.File
	var spillWriter *bufio.Writer
	seenMem := make(map[string]struct{})
	var unique int64

	flushToSpill := func() error {
		f, err := os.CreateTemp(spillDir, "labelset-*.tmp")
		if err != nil {
			return err
		}
		spillFile = f
		spillWriter = bufio.NewWriter(f)
		for _, label := range mem.Slice() {
			if _, err := spillWriter.WriteString(label + "\n"); err != nil {
				return err
			}
		}
		return nil
	}

	var flushErr error
	emit := func(label string) {
		if flushErr != nil {
			return
		}

		if spillWriter == nil {
			if _, dup := seenMem[label]; dup {
				return
			}
			seenMem[label] = struct{}{}
			mem.Insert(label)
			unique++

			if unique > budget {
				if err := flushToSpill(); err != nil {
					flushErr = err
					return
				}
			}
			return
		}

		if _, err := spillWriter.WriteString(label + "\n"); err != nil {
			flushErr = err
		}
	}

	stats, err := Stream(z, tld, cancel, emit)
	if err != nil {
		mem.Close()
		if spillFile != nil {
			spillFile.Close()
			os.Remove(spillFile.Name())
		}
		return nil, stats, err
	}
	if flushErr != nil {
		mem.Close()
		if spillFile != nil {
			spillFile.Close()
			os.Remove(spillFile.Name())
		}
		return nil, stats, flushErr
	}

	if spillWriter == nil {
		mem.Close()
		set := stringset.New()
		for label := range seenMem {
			set.Insert(label)
		}
		return &LabelSet{mem: set, count: unique}, stats, nil
	}

	// External path: flush, sort+dedupe the spill file, replace it with
	// the sorted result.
	if err := spillWriter.Flush(); err != nil {
		spillFile.Close()
		os.Remove(spillFile.Name())
		mem.Close()
		return nil, stats, err
	}
	spillPath := spillFile.Name()
	spillFile.Close()
	mem.Close()

	sortedPath, count, err := sortAndDedupeFile(spillPath, budget)
	os.Remove(spillPath)
	if err != nil {
		return nil, stats, err
	}

	return &LabelSet{sortedPath: sortedPath, count: count}, stats, nil
}

// sortAndDedupeFile reads path (one label per line, not necessarily sorted
// or unique) and writes a sorted, deduplicated version to a new temp file,
// returning its path and the number of unique labels. It never holds more
// than chunkLines labels in memory at once: the input is split into
// in-memory-sorted runs of at most chunkLines labels each, spilled to their
// own temp files, and merged back together with a k-way heap merge, the
// external-sort shape spec.md §4.4/§9 names for TLDs whose cardinality
// exceeds the in-memory budget.
func sortAndDedupeFile(path string, chunkLines int64) (string, int64, error) {
	if chunkLines <= 0 {
		chunkLines = MemoryBudget
	}

	chunkPaths, err := splitIntoSortedRuns(path, chunkLines)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		for _, p := range chunkPaths {
			os.Remove(p)
		}
	}()

	return mergeSortedRuns(chunkPaths)
}

// splitIntoSortedRuns reads path in chunks of at most chunkLines labels,
// sorts each chunk in memory, and writes it to its own temp file.
func splitIntoSortedRuns(path string, chunkLines int64) (chunkPaths []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defer func() {
		if err != nil {
			for _, p := range chunkPaths {
				os.Remove(p)
			}
			chunkPaths = nil
		}
	}()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	buf := make([]string, 0, chunkLines)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		sort.Strings(buf)

		cf, cerr := os.CreateTemp(os.TempDir(), "labelset-chunk-*.txt")
		if cerr != nil {
			return cerr
		}
		w := bufio.NewWriter(cf)
		for _, label := range buf {
			if _, werr := w.WriteString(label + "\n"); werr != nil {
				cf.Close()
				os.Remove(cf.Name())
				return werr
			}
		}
		if ferr := w.Flush(); ferr != nil {
			cf.Close()
			os.Remove(cf.Name())
			return ferr
		}
		if cerr := cf.Close(); cerr != nil {
			os.Remove(cf.Name())
			return cerr
		}
		chunkPaths = append(chunkPaths, cf.Name())
		buf = buf[:0]
		return nil
	}

	for sc.Scan() {
		buf = append(buf, sc.Text())
		if int64(len(buf)) >= chunkLines {
			if err = flush(); err != nil {
				return nil, err
			}
		}
	}
	if err = sc.Err(); err != nil {
		return nil, err
	}
	if err = flush(); err != nil {
		return nil, err
	}

	return chunkPaths, nil
}

// runCursor is one sorted run's position in the k-way merge.
type runCursor struct {
	label string
	run   int
}

type mergeHeap []runCursor

func (h mergeHeap) Len() int            { return len(h) }
func (h mergeHeap) Less(i, j int) bool  { return h[i].label < h[j].label }
func (h mergeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)         { *h = append(*h, x.(runCursor)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeSortedRuns merges already-sorted chunk files into a single sorted,
// deduplicated output file, reading only one line per run at a time.
func mergeSortedRuns(chunkPaths []string) (string, int64, error) {
	out, err := os.CreateTemp(os.TempDir(), "labelset-sorted-*.txt")
	if err != nil {
		return "", 0, err
	}
	w := bufio.NewWriter(out)

	fail := func(err error) (string, int64, error) {
		out.Close()
		os.Remove(out.Name())
		return "", 0, err
	}

	if len(chunkPaths) == 0 {
		if err := w.Flush(); err != nil {
			return fail(err)
		}
		if err := out.Close(); err != nil {
			return fail(err)
		}
		return out.Name(), 0, nil
	}

	files := make([]*os.File, len(chunkPaths))
	scanners := make([]*bufio.Scanner, len(chunkPaths))
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()

	for i, p := range chunkPaths {
		rf, ferr := os.Open(p)
		if ferr != nil {
			return fail(ferr)
		}
		files[i] = rf
		sc := bufio.NewScanner(rf)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanners[i] = sc
	}

	h := &mergeHeap{}
	heap.Init(h)
	for i, sc := range scanners {
		if sc.Scan() {
			heap.Push(h, runCursor{label: sc.Text(), run: i})
		} else if err := sc.Err(); err != nil {
			return fail(err)
		}
	}

	var count int64
	var last string
	first := true

	for h.Len() > 0 {
		cur := heap.Pop(h).(runCursor)

		if first || cur.label != last {
			first = false
			last = cur.label
			count++
			if _, err := w.WriteString(cur.label + "\n"); err != nil {
				return fail(err)
			}
		}

		sc := scanners[cur.run]
		if sc.Scan() {
			heap.Push(h, runCursor{label: sc.Text(), run: cur.run})
		} else if err := sc.Err(); err != nil {
			return fail(err)
		}
	}

	if err := w.Flush(); err != nil {
		return fail(err)
	}
	if err := out.Close(); err != nil {
		return fail(err)
	}

	return out.Name(), count, nil
}
