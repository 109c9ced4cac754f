// Package orphanreaper deletes DNS records that no longer correspond to
// any desired hostname, after they have sat unclaimed for a configurable
// grace period.
package orphanreaper

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dnsync/internal/eventbus"
	"dnsync/pkg/provider"
)

// DefaultGracePeriod is used when a Reaper is constructed without
// WithGracePeriod.
const DefaultGracePeriod = 15 * time.Minute

type orphanKey struct {
	providerName string
	externalID   string
}

// Reaper tracks, per provider record, how long it has looked orphaned
// and deletes it once that exceeds the grace period.
type Reaper struct {
	gracePeriod time.Duration
	preserved   []string
	bus         *eventbus.Bus
	logger      *slog.Logger

	mu                sync.Mutex
	firstSeenOrphanAt map[orphanKey]time.Time
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithGracePeriod sets how long a record must remain unclaimed before
// deletion.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.gracePeriod = d
		}
	}
}

// WithPreservedHostnames sets exact/leading-wildcard patterns that the
// reaper must never delete.
func WithPreservedHostnames(patterns []string) Option {
	return func(r *Reaper) {
		r.preserved = patterns
	}
}

// WithEventBus sets the bus that DNSRecordDeletedEvent is published to.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(r *Reaper) {
		r.bus = bus
	}
}

// WithLogger sets the logger used for reaper activity.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reaper) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Reaper. The firstSeenOrphanAt side table lives only in
// memory: a process restart resets the grace period for every record.
func New(opts ...Option) *Reaper {
	r := &Reaper{
		gracePeriod:       DefaultGracePeriod,
		logger:            slog.Default(),
		firstSeenOrphanAt: make(map[orphanKey]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SweepResult summarizes one Sweep call.
type SweepResult struct {
	Deleted  []provider.Record
	Orphaned int // records newly or still tracked as orphaned but not yet due
	Skipped  int // preserved or user-owned records encountered
}

// Sweep inspects every record in prov's cache against the desired
// hostname set and deletes anything that has exceeded the grace period.
// desired must already be lowercased. When cleanupEnabled is false,
// orphan age is still tracked but nothing is deleted.
func (r *Reaper) Sweep(ctx context.Context, providerName string, prov provider.Provider, desired map[string]struct{}, cleanupEnabled bool) (*SweepResult, error) {
	records, err := prov.List(ctx)
	if err != nil {
		return nil, err
	}

	caps := prov.Capabilities()
	ownershipMarked := ownedHostnames(records)

	now := time.Now()
	result := &SweepResult{}
	seen := make(map[orphanKey]struct{}, len(records))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		if rec.Type == provider.RecordTypeTXT && provider.IsOwnershipRecord(rec.Hostname) {
			continue
		}

		key := orphanKey{providerName: providerName, externalID: rec.ExternalID}
		seen[key] = struct{}{}

		name := strings.ToLower(strings.TrimSuffix(rec.Hostname, "."))

		if _, ok := desired[name]; ok {
			delete(r.firstSeenOrphanAt, key)
			continue
		}

		if matchesPreserved(name, r.preserved) {
			delete(r.firstSeenOrphanAt, key)
			result.Skipped++
			continue
		}

		if caps.SupportsOwnershipMarker() && !ownershipMarked[name] {
			// User-owned record; never track or touch it.
			result.Skipped++
			continue
		}

		firstSeen, tracked := r.firstSeenOrphanAt[key]
		if !tracked {
			r.firstSeenOrphanAt[key] = now
			result.Orphaned++
			continue
		}

		if now.Sub(firstSeen) < r.gracePeriod {
			result.Orphaned++
			continue
		}

		if !cleanupEnabled {
			result.Orphaned++
			continue
		}

		if err := prov.Delete(ctx, rec); err != nil {
			r.logger.Warn("orphan reaper: delete failed",
				"provider", providerName, "hostname", rec.Hostname, "error", err)
			continue
		}

		delete(r.firstSeenOrphanAt, key)
		result.Deleted = append(result.Deleted, rec)
		r.logger.Info("orphan reaper: deleted stale record",
			"provider", providerName, "hostname", rec.Hostname, "type", rec.Type)
		if r.bus != nil {
			eventbus.Publish(r.bus, eventbus.DNSRecordDeletedEvent{ProviderID: providerName, Record: rec})
		}
	}

	// Drop side-table entries for records no longer present upstream.
	for key := range r.firstSeenOrphanAt {
		if key.providerName != providerName {
			continue
		}
		if _, ok := seen[key]; !ok {
			delete(r.firstSeenOrphanAt, key)
		}
	}

	return result, nil
}

// ownedHostnames returns the set of hostnames (lowercased) that carry a
// valid ownership TXT marker.
func ownedHostnames(records []provider.Record) map[string]bool {
	owned := make(map[string]bool)
	for _, rec := range records {
		if rec.Type != provider.RecordTypeTXT || !provider.IsOwnershipRecord(rec.Hostname) {
			continue
		}
		if rec.Target != provider.OwnershipValue {
			continue
		}
		hostname := provider.ExtractHostnameFromOwnership(rec.Hostname)
		owned[strings.ToLower(strings.TrimSuffix(hostname, "."))] = true
	}
	return owned
}
