// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package zonestore is the authoritative, content-addressed filesystem
// store for daily zone snapshots: <root>/<tld>/<YYYYMMDD>.zone[.gz].
package zonestore

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dropwatch/core/internal/db/models"
	"github.com/dropwatch/core/pkg/utils"
	"gorm.io/gorm"
)

var ErrAlreadyExists = errors.New("zonestore: snapshot already exists")

// Store owns the on-disk layout and the ZoneSnapshot rows that describe it.
type Store struct {
	root string
	db   *gorm.DB
}

func New(root string, gdb *gorm.DB) *Store {
	return &Store{root: root, db: gdb}
}

// Handle is a reserved, uncommitted destination for a download in
// progress. Bytes written to Handle.File (the .part file) are not
// observable to readers until Commit renames it into place.
type Handle struct {
	store      *Store
	tld        string
	date       string
	tmpPath    string
	finalPath  string
	compressed bool
	File       *os.File
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func pathFor(root, tld, date string, compressed bool) string {
	fname := toCompact(date) + ".zone"
	if compressed {
		fname += ".gz"
	}
	return filepath.Join(root, tld, fname)
}

func toCompact(date string) string {
	// date is YYYY-MM-DD; canonical filename uses YYYYMMDD.
	if len(date) == 10 {
		return date[0:4] + date[5:7] + date[8:10]
	}
	return date
}

// Reserve opens a .part handle for (tld, date). It fails with
// ErrAlreadyExists if a committed snapshot for that key already exists.
func (s *Store) Reserve(tld string, date time.Time, compressed bool) (*Handle, error) {
	d := dateKey(date)

	exists, err := s.Exists(tld, date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	dir := filepath.Join(s.root, tld)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("zonestore: mkdir %s: %w", dir, err)
	}

	final := pathFor(s.root, tld, d, compressed)
	tmp := final + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("zonestore: create %s: %w", tmp, err)
	}

	return &Handle{
		store:      s,
		tld:        tld,
		date:       d,
		tmpPath:    tmp,
		finalPath:  final,
		compressed: compressed,
		File:       f,
	}, nil
}

// PartPath is the on-disk path of the reservation's temporary file. A
// caller that wants to write through something other than Handle.File
// itself (for example a downloader that manages its own resumable file
// writes) can operate on this path directly; the bytes land in the same
// place either way, and Commit still renames from here into place.
func (h *Handle) PartPath() string { return h.tmpPath }

// Abort discards a reservation, leaving no trace on disk.
func (h *Handle) Abort() {
	_ = h.File.Close()
	_ = os.Remove(h.tmpPath)
}

// Commit atomically publishes the snapshot: the declared size must match
// what was actually written, and if a checksum was supplied it must match
// too, or the partial file is discarded rather than committed.
func (s *Store) Commit(h *Handle, size int64, sha256Hex string) (*models.ZoneSnapshot, error) {
	info, err := h.File.Stat()
	if err != nil {
		h.Abort()
		return nil, fmt.Errorf("zonestore: stat handle: %w", err)
	}
	if err := h.File.Close(); err != nil {
		_ = os.Remove(h.tmpPath)
		return nil, fmt.Errorf("zonestore: close handle: %w", err)
	}

	if size > 0 && info.Size() != size {
		_ = os.Remove(h.tmpPath)
		return nil, fmt.Errorf("zonestore: size mismatch: declared %d, wrote %d", size, info.Size())
	}

	if sha256Hex != "" {
		sum, err := fileSHA256(h.tmpPath)
		if err != nil {
			_ = os.Remove(h.tmpPath)
			return nil, err
		}
		if sum != sha256Hex {
			_ = os.Remove(h.tmpPath)
			return nil, fmt.Errorf("zonestore: checksum mismatch: declared %s, computed %s", sha256Hex, sum)
		}
	}

	if err := os.Rename(h.tmpPath, h.finalPath); err != nil {
		_ = os.Remove(h.tmpPath)
		return nil, fmt.Errorf("zonestore: rename into place: %w", err)
	}

	snap := &models.ZoneSnapshot{
		Tld:        h.tld,
		Date:       h.date,
		Path:       h.finalPath,
		SizeBytes:  info.Size(),
		Sha256:     sha256Hex,
		Compressed: h.compressed,
	}
	if err := s.db.Create(snap).Error; err != nil {
		return nil, fmt.Errorf("zonestore: record snapshot: %w", err)
	}

	return snap, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Open returns a lazy, decompressing byte stream for an existing snapshot.
func (s *Store) Open(tld string, date time.Time) (io.ReadCloser, error) {
	d := dateKey(date)

	var snap models.ZoneSnapshot
	if err := s.db.Where("tld = ? AND date = ?", tld, d).First(&snap).Error; err != nil {
		return nil, fmt.Errorf("zonestore: no snapshot for %s/%s: %w", tld, d, err)
	}

	f, err := os.Open(snap.Path)
	if err != nil {
		return nil, fmt.Errorf("zonestore: open %s: %w", snap.Path, err)
	}

	if !snap.Compressed {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zonestore: gzip reader: %w", err)
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipReadCloser) Close() error {
	_ = g.gz.Close()
	return g.f.Close()
}

// Quarantine renames a snapshot's file with a ".bad" suffix and removes its
// database row, so a corrupt or unparseable snapshot stops being treated as
// present: the next cycle for (tld, date) re-fetches a fresh copy instead
// of repeatedly failing to parse the same bytes.
func (s *Store) Quarantine(tld string, date time.Time) error {
	d := dateKey(date)

	var snap models.ZoneSnapshot
	if err := s.db.Where("tld = ? AND date = ?", tld, d).First(&snap).Error; err != nil {
		return fmt.Errorf("zonestore: no snapshot for %s/%s: %w", tld, d, err)
	}

	quarantined := snap.Path + ".bad"
	if err := os.Rename(snap.Path, quarantined); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("zonestore: quarantine %s: %w", snap.Path, err)
	}

	if err := s.db.Delete(&snap).Error; err != nil {
		return fmt.Errorf("zonestore: remove quarantined snapshot record: %w", err)
	}

	return nil
}

func (s *Store) Exists(tld string, date time.Time) (bool, error) {
	d := dateKey(date)
	var count int64
	if err := s.db.Model(&models.ZoneSnapshot{}).Where("tld = ? AND date = ?", tld, d).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestBefore returns the most recent snapshot date strictly before date,
// or ok=false if there is none (no-baseline case).
func (s *Store) LatestBefore(tld string, date time.Time) (result time.Time, ok bool, err error) {
	d := dateKey(date)
	var snaps []models.ZoneSnapshot
	if err := s.db.Where("tld = ? AND date < ?", tld, d).Order("date desc").Limit(1).Find(&snaps).Error; err != nil {
		return time.Time{}, false, err
	}
	if len(snaps) == 0 {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", snaps[0].Date)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// Prune keeps the `keep` most recent snapshots for a TLD and removes the
// rest from both disk and the database; keep must be at least 2 so
// adjacent-day diffing always has a baseline available.
func (s *Store) Prune(tld string, keep int) error {
	if keep < 2 {
		return fmt.Errorf("zonestore: keep must be >= 2, got %d", keep)
	}

	var snaps []models.ZoneSnapshot
	if err := s.db.Where("tld = ?", tld).Find(&snaps).Error; err != nil {
		return err
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Date > snaps[j].Date })
	if len(snaps) <= keep {
		return nil
	}

	for _, old := range snaps[keep:] {
		if err := utils.DeleteFile(old.Path); err != nil {
			return fmt.Errorf("zonestore: %w", err)
		}
		if err := s.db.Delete(&old).Error; err != nil {
			return err
		}
	}

	return nil
}
