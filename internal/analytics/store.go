// Package analytics keeps per-album view counters and the rotating visit
// log, and aggregates the log into reports.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"albumd/internal/album"
	"albumd/internal/fs"
)

const (
	StatsFileName  = "_stats.json"
	VisitsFileName = "_visits.jsonl"
	// BackupSuffix is appended to VisitsFileName for the single rotated
	// generation.
	BackupSuffix = ".1"

	DefaultMaxLogBytes int64 = 10 << 20
)

// Store implements album.VisitLog. Stats and the visit log are guarded by
// separate locks.
type Store struct {
	dir         string
	clock       album.Clock
	locator     album.Locator
	logger      album.Logger
	maxLogBytes int64

	statsMu sync.Mutex
	logMu   sync.Mutex
}

var _ album.VisitLog = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxLogBytes sets the size at which the live log is rotated.
func WithMaxLogBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxLogBytes = n
		}
	}
}

// NewStore creates a store keeping its files in dir. locator may be nil.
func NewStore(dir string, clock album.Clock, locator album.Locator, logger album.Logger, opts ...Option) *Store {
	s := &Store{
		dir:         dir,
		clock:       clock,
		locator:     locator,
		logger:      logger,
		maxLogBytes: DefaultMaxLogBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordVisit bumps the counters of key and appends a visit record.
// It never fails: errors are logged and dropped.
func (s *Store) RecordVisit(key, token, ip, userAgent string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recording visit panicked", "key", key, "panic", r)
		}
	}()

	now := s.clock.Now().UTC()
	if err := s.bump(key, now); err != nil {
		s.logger.Warn("updating stats failed", "key", key, "error", err)
	}

	v := album.Visit{
		Token:     token,
		IP:        ip,
		UserAgent: userAgent,
		Time:      now.Format(time.RFC3339),
	}
	s.locate(&v)
	if err := s.appendVisit(v); err != nil {
		s.logger.Warn("appending visit failed", "token", token, "error", err)
	}
}

// Stats returns the counters of every key.
func (s *Store) Stats() (map[string]album.StatsEntry, error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.loadStats()
}

func (s *Store) bump(key string, now time.Time) error {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	stats, err := s.loadStats()
	if err != nil {
		return err
	}
	ts := now.Format(time.RFC3339)
	entry := stats[key]
	entry.Views++
	if entry.FirstVisit == "" {
		entry.FirstVisit = ts
	}
	entry.LastVisit = ts
	stats[key] = entry

	return fs.WriteJSONAtomic(filepath.Join(s.dir, StatsFileName), stats)
}

func (s *Store) loadStats() (map[string]album.StatsEntry, error) {
	stats := make(map[string]album.StatsEntry)
	if _, err := fs.ReadJSON(filepath.Join(s.dir, StatsFileName), &stats); err != nil {
		return nil, album.IOError("reading stats", err)
	}
	if stats == nil {
		stats = make(map[string]album.StatsEntry)
	}
	return stats, nil
}

func (s *Store) locate(v *album.Visit) {
	if IsLocalIP(v.IP) {
		v.City = LocalCity
		return
	}
	if s.locator == nil {
		return
	}
	if loc, ok := s.locator.Lookup(v.IP); ok {
		v.City = loc.City
		v.Region = loc.Region
		v.Country = loc.Country
	}
}

func (s *Store) appendVisit(v album.Visit) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding visit: %w", err)
	}
	line = append(line, '\n')

	s.logMu.Lock()
	defer s.logMu.Unlock()

	live := filepath.Join(s.dir, VisitsFileName)
	if err := s.rotateIfNeeded(live); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(live, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening visit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("writing visit log: %w", err)
	}
	return f.Close()
}

// rotateIfNeeded moves the live log to the backup slot once it has reached
// the threshold, replacing any previous backup.
func (s *Store) rotateIfNeeded(live string) error {
	info, err := os.Stat(live)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking visit log: %w", err)
	}
	if info.Size() < s.maxLogBytes {
		return nil
	}
	if err := os.Rename(live, live+BackupSuffix); err != nil {
		return fmt.Errorf("rotating visit log: %w", err)
	}
	s.logger.Info("visit log rotated", "size", info.Size())
	return nil
}
