// Package state persists a small JSON snapshot of dnsync's runtime
// status (counters, last-known public IPs, tracked records) so restarts
// and external tooling can observe recent activity.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultDebounce is how long Store waits for further updates before
// writing, when constructed without WithDebounce.
const DefaultDebounce = 2 * time.Second

// TrackedRecord summarizes one record dnsync manages, for display and
// debugging; it is not used to drive reconciliation.
type TrackedRecord struct {
	Hostname   string    `json:"hostname"`
	Type       string    `json:"type"`
	Provider   string    `json:"provider"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Document is the full persisted state shape. Unknown keys at load time
// are ignored; missing keys keep their zero value.
type Document struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Errors    int `json:"errors"`
	LastPoll  time.Time `json:"last_poll"`

	PublicIPv4 string `json:"public_ipv4,omitempty"`
	PublicIPv6 string `json:"public_ipv6,omitempty"`

	Records []TrackedRecord `json:"records"`
}

// Store holds the current Document in memory and debounces writes to
// disk. The zero value is not usable; use New.
type Store struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	doc      Document
	timer    *time.Timer
	pending  bool
	flushErr error
}

// Option configures a Store.
type Option func(*Store)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the logger used to report write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store backed by path. If path already contains a valid
// document, it is loaded as the initial state.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if doc, err := load(path); err == nil {
		s.doc = doc
	}

	return s
}

func load(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return doc, nil
}

// Snapshot returns a copy of the current in-memory document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Records = append([]TrackedRecord(nil), s.doc.Records...)
	return doc
}

// Update applies mutate to the in-memory document and schedules a
// debounced write to disk.
func (s *Store) Update(mutate func(*Document)) {
	s.mu.Lock()
	mutate(&s.doc)
	s.scheduleFlushLocked()
	s.mu.Unlock()
}

func (s *Store) scheduleFlushLocked() {
	if s.pending {
		return
	}
	s.pending = true
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.pending = false
		doc := s.doc
		doc.Records = append([]TrackedRecord(nil), s.doc.Records...)
		s.mu.Unlock()

		if err := writeAtomic(s.path, doc); err != nil {
			s.logger.Error("state: failed to write state file", "path", s.path, "error", err)
		}
	})
}

// Flush writes the current document to disk immediately, bypassing the
// debounce timer. Intended for graceful shutdown.
func (s *Store) Flush(_ context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = false
	doc := s.doc
	doc.Records = append([]TrackedRecord(nil), s.doc.Records...)
	s.mu.Unlock()

	return writeAtomic(s.path, doc)
}

// writeAtomic writes doc to path via a temp file in the same directory
// followed by a rename, so readers never observe a partially written
// file.
func writeAtomic(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp state file into place: %w", err)
	}

	return nil
}
