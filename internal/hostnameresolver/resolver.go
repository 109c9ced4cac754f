// Package hostnameresolver merges hostnames discovered from router
// snapshots, container labels, and operator-declared managed hostnames
// into a deduplicated set of DesiredRecords.
package hostnameresolver

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"dnsync/internal/config"
	"dnsync/pkg/provider"
)

// DesiredRecord is the hostname-source-agnostic record a provider
// instance should converge its zone toward.
type DesiredRecord struct {
	Type     provider.RecordType
	Name     string
	Content  string
	TTL      int
	Priority uint16
	Weight   uint16
	Port     uint16
	Flags    uint8
	Tag      string
	Proxied  bool

	// Source identifies where this hostname came from: "traefik",
	// "direct" (container label), "managed", or "api".
	Source string

	NeedsPublicIPv4 bool
	NeedsPublicIPv6 bool
}

type recordKey struct {
	recordType provider.RecordType
	name       string
}

// Defaults holds the system-wide fallback record shape applied when a
// hostname carries no more specific override.
type Defaults struct {
	Type          provider.RecordType
	Content       string
	TTL           int
	Proxied       bool
	CNAMETarget   string // default CNAME target for non-apex hostnames, e.g. the apex domain
	ApexHostnames []string
}

// Resolver merges hostnames from multiple sources into DesiredRecords,
// applying the label-prefix override grammar of §4.5a.
type Resolver struct {
	labelPrefix string
	defaults    Defaults
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLabelPrefix overrides the default "dnsync" label namespace.
func WithLabelPrefix(prefix string) Option {
	return func(r *Resolver) {
		if prefix != "" {
			r.labelPrefix = prefix
		}
	}
}

// WithLogger sets the logger used to report dropped/duplicate hostnames.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver.
func New(defaults Defaults, opts ...Option) *Resolver {
	r := &Resolver{
		labelPrefix: "dnsync",
		defaults:    defaults,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve merges routerHostnames, containerLabelsByHostname (the owning
// container's full label set, keyed by the hostname it declared), and
// managed into the deduplicated DesiredRecord set. Managed hostnames take
// the global defaults plus their own explicit fields; container-label and
// router hostnames take the global defaults plus any matching
// "<prefix>.<hostname>.*" labels. Label overrides are not applied to
// managed hostnames. A (type, name) collision keeps the first occurrence
// encountered, in the order: managed hostnames, then container-label
// hostnames, then router hostnames.
func (r *Resolver) Resolve(routerHostnames []string, containerLabelsByHostname map[string]map[string]string, managed []config.ManagedHostname) []DesiredRecord {
	seen := make(map[recordKey]struct{})
	var out []DesiredRecord

	for _, m := range managed {
		rec := r.resolveManaged(m)
		key := recordKey{rec.Type, strings.ToLower(rec.Name)}
		if _, dup := seen[key]; dup {
			r.logger.Warn("hostnameresolver: dropping duplicate managed hostname", "hostname", m.Hostname, "type", rec.Type)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}

	for hostname, labels := range containerLabelsByHostname {
		rec := r.resolveWithLabels(hostname, "direct", labels)
		if rec == nil {
			continue
		}
		key := recordKey{rec.Type, strings.ToLower(rec.Name)}
		if _, dup := seen[key]; dup {
			r.logger.Warn("hostnameresolver: dropping duplicate hostname", "hostname", hostname, "type", rec.Type)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, *rec)
	}

	for _, hostname := range routerHostnames {
		rec := r.resolveWithLabels(hostname, "traefik", nil)
		if rec == nil {
			continue
		}
		key := recordKey{rec.Type, strings.ToLower(rec.Name)}
		if _, dup := seen[key]; dup {
			r.logger.Warn("hostnameresolver: dropping duplicate hostname", "hostname", hostname, "type", rec.Type)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, *rec)
	}

	return out
}

func (r *Resolver) resolveManaged(m config.ManagedHostname) DesiredRecord {
	rt := provider.RecordType(m.Type)
	if rt == "" {
		rt = r.defaults.Type
	}
	rec := DesiredRecord{
		Type:    rt,
		Name:    m.Hostname,
		Content: m.Content,
		TTL:     m.TTL,
		Proxied: m.Proxied,
		Source:  "managed",
	}
	if rec.TTL == 0 {
		rec.TTL = r.defaults.TTL
	}
	r.fillContent(&rec)
	return rec
}

// resolveWithLabels builds a DesiredRecord for hostname, applying global
// defaults then any "<prefix>.<hostname>.*" labels found in labels. A
// "<prefix>.<hostname>.manage=false" label removes the hostname from the
// desired set (returns nil).
func (r *Resolver) resolveWithLabels(hostname, source string, labels map[string]string) *DesiredRecord {
	rec := &DesiredRecord{
		Type:    r.defaults.Type,
		Name:    hostname,
		Content: r.defaults.Content,
		TTL:     r.defaults.TTL,
		Proxied: r.defaults.Proxied,
		Source:  source,
	}

	prefix := fmt.Sprintf("%s.%s.", r.labelPrefix, strings.ToLower(hostname))
	for key, value := range labels {
		if !strings.HasPrefix(strings.ToLower(key), prefix) {
			continue
		}
		field := strings.ToLower(strings.TrimPrefix(strings.ToLower(key), prefix))
		switch field {
		case "type":
			rec.Type = provider.RecordType(strings.ToUpper(value))
		case "content":
			rec.Content = value
		case "ttl":
			if ttl, err := strconv.Atoi(value); err == nil {
				rec.TTL = ttl
			}
		case "proxied":
			rec.Proxied = value == "true" || value == "1"
		case "manage":
			if value == "false" || value == "0" {
				return nil
			}
		}
	}

	r.fillContent(rec)
	return rec
}

// fillContent applies the content-inference rules of §4.5 when no
// explicit content was supplied.
func (r *Resolver) fillContent(rec *DesiredRecord) {
	if rec.Content != "" {
		return
	}

	isApex := false
	for _, apex := range r.defaults.ApexHostnames {
		if strings.EqualFold(apex, rec.Name) {
			isApex = true
			break
		}
	}

	switch rec.Type {
	case provider.RecordTypeA:
		rec.NeedsPublicIPv4 = true
	case provider.RecordTypeAAAA:
		rec.NeedsPublicIPv6 = true
	case provider.RecordTypeCNAME:
		if !isApex {
			rec.Content = r.defaults.CNAMETarget
		} else {
			rec.NeedsPublicIPv4 = true
		}
	}
}
