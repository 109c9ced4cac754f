package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUpdateThenFlushWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s := New(path, WithDebounce(time.Hour))
	s.Update(func(d *Document) {
		d.Created = 3
		d.PublicIPv4 = "203.0.113.1"
	})

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshaling state file: %v", err)
	}
	if doc.Created != 3 || doc.PublicIPv4 != "203.0.113.1" {
		t.Errorf("doc = %+v, unexpected contents", doc)
	}
}

func TestNewLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	seed := Document{Created: 5, Records: []TrackedRecord{{Hostname: "app.example.com"}}}
	data, _ := json.Marshal(seed)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(path)
	got := s.Snapshot()
	if got.Created != 5 || len(got.Records) != 1 {
		t.Errorf("Snapshot() = %+v, want loaded seed data", got)
	}
}

func TestNewToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.json")

	s := New(path)
	got := s.Snapshot()
	if got.Created != 0 {
		t.Errorf("Snapshot() = %+v, want zero-value document for missing file", got)
	}
}

func TestUpdateDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s := New(path, WithDebounce(30*time.Millisecond))
	s.Update(func(d *Document) { d.Created = 1 })
	s.Update(func(d *Document) { d.Created = 2 })

	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected no file to exist before the debounce window elapses")
	}

	time.Sleep(100 * time.Millisecond)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading state file after debounce: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Created != 2 {
		t.Errorf("doc.Created = %d, want 2 (last write wins)", doc.Created)
	}
}
