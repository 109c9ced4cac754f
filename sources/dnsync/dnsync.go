// Package dnsync provides a Source implementation for extracting hostnames
// from native dnsync labels on Docker containers/services.
//
// This package parses Docker container labels in two formats:
//
// 1. Simple hostname (uses provider defaults for type/target):
//
//	dnsync.hostname=app.example.com
//
// 2. Named records (explicit control per record):
//
//	dnsync.records.myapp.hostname=app.example.com
//	dnsync.records.myapp.type=A
//	dnsync.records.myapp.target=192.0.2.100
//	dnsync.records.myapp.provider=internal-dns
//	dnsync.records.myapp.ttl=300
//
// For SRV records:
//
//	dnsync.records.mc.hostname=_minecraft._tcp.mc.example.com
//	dnsync.records.mc.type=SRV
//	dnsync.records.mc.target=mc-server.example.com
//	dnsync.records.mc.port=25565
//	dnsync.records.mc.priority=0
//	dnsync.records.mc.weight=5
package dnsync

import (
	"context"
	"log/slog"

	"dnsync/pkg/source"
)

const sourceName = "dnsync"

// DNSync implements the source.Source interface for extracting hostnames
// from native dnsync container labels.
type DNSync struct {
	parser *Parser
	logger *slog.Logger
}

// Option is a functional option for configuring DNSync.
type Option func(*DNSync)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DNSync) {
		d.logger = logger
	}
}

// New creates a new DNSync source.
func New(opts ...Option) *DNSync {
	d := &DNSync{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.parser = NewParser(WithParserLogger(d.logger))

	return d
}

// Name returns the source identifier.
func (d *DNSync) Name() string {
	return sourceName
}

// Extract parses dnsync labels and returns discovered hostnames.
//
// This method looks for:
//   - dnsync.hostname=<hostname> (simple format)
//   - dnsync.records.<name>.hostname=<hostname> (named record format)
//
// Returns an empty slice if no dnsync labels are found.
// Malformed labels are logged and skipped.
func (d *DNSync) Extract(ctx context.Context, labels map[string]string) ([]source.Hostname, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	extractions := d.parser.ExtractHostnames(labels)

	hostnames := make([]source.Hostname, 0, len(extractions))
	for _, e := range extractions {
		h := source.Hostname{
			Name:   e.Hostname,
			Source: sourceName,
			Router: e.RecordName, // Use record name as router identifier
		}

		// Copy record hints if present
		if e.HasHints() {
			h.RecordHints = &source.RecordHints{
				Type:     e.Type,
				Target:   e.Target,
				TTL:      e.TTL,
				Provider: e.Provider,
			}
			if e.SRV != nil {
				h.RecordHints.SRV = &source.SRVHints{
					Port:     e.Port,
					Priority: e.Priority,
					Weight:   e.Weight,
				}
			}
		}

		hostnames = append(hostnames, h)
	}

	if len(hostnames) > 0 {
		d.logger.Debug("extracted hostnames from dnsync labels",
			slog.Int("count", len(hostnames)),
		)
	}

	return hostnames, nil
}

// Discover is not supported for native labels.
// Native dnsync labels only come from container labels, not static files.
func (d *DNSync) Discover(ctx context.Context) ([]source.Hostname, error) {
	return nil, nil
}

// SupportsDiscovery returns false since native labels don't support file discovery.
func (d *DNSync) SupportsDiscovery() bool {
	return false
}

// Ensure DNSync implements source.Source
var _ source.Source = (*DNSync)(nil)
