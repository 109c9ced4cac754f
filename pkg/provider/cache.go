package provider

import (
	"strings"
	"sync"
	"time"
)

// Cache is an in-memory vector of Records plus the time they were last
// refreshed from upstream. It is exclusive to a single ProviderClient;
// caches are never shared across provider instances. A sync.RWMutex
// serializes writers so readers never observe a torn record: a read
// sees either the pre- or post-update state of any given record.
type Cache struct {
	mu            sync.RWMutex
	records       []Record
	lastRefreshed time.Time
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// Replace atomically swaps the entire cache contents, used by
// RefreshCache after a full upstream enumeration, and stamps
// LastRefreshed to now.
func (c *Cache) Replace(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append([]Record(nil), records...)
	c.lastRefreshed = time.Now()
}

// Upsert replaces the record with a matching ExternalID, or appends it
// if no match exists.
func (c *Cache) Upsert(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.records {
		if r.ExternalID == rec.ExternalID {
			c.records[i] = rec
			return
		}
	}
	c.records = append(c.records, rec)
}

// Remove deletes the record with the given ExternalID, if present.
func (c *Cache) Remove(externalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	filtered := c.records[:0:0]
	for _, r := range c.records {
		if r.ExternalID != externalID {
			filtered = append(filtered, r)
		}
	}
	c.records = filtered
}

// List returns a copy of every cached record.
func (c *Cache) List() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Find returns the first cached record matching predicate.
func (c *Cache) Find(predicate func(Record) bool) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if predicate(r) {
			return r, true
		}
	}
	return Record{}, false
}

// FindByTypeAndName looks up a record by type and hostname, normalizing
// trailing dots and case before comparing so "x.example.com" and
// "x.example.com." are treated as equal.
func (c *Cache) FindByTypeAndName(t RecordType, name string) (Record, bool) {
	name = normalizeHostname(name)
	return c.Find(func(r Record) bool {
		return r.Type == t && normalizeHostname(r.Hostname) == name
	})
}

// LastRefreshed returns when Replace was last called.
func (c *Cache) LastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshed
}

// normalizeHostname lowercases and strips a single trailing dot, so apex
// and FQDN-with-trailing-dot forms compare equal.
func normalizeHostname(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
