package powerdns

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	pdns "github.com/joeig/go-powerdns/v3"

	"dnsync/pkg/provider"
)

// Provider implements provider.Provider for PowerDNS Authoritative Server.
type Provider struct {
	name   string
	zone   string
	ttl    int
	client *pdns.Client
	logger *slog.Logger
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClient overrides the PowerDNS client, for tests.
func WithClient(client *pdns.Client) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

// New creates a new PowerDNS provider instance.
func New(name string, cfg *Config, opts ...ProviderOption) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:   name,
		zone:   ensureTrailingDot(cfg.Zone),
		ttl:    cfg.TTL,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		httpClient := http.DefaultClient
		if cfg.InsecureSkipVerify {
			httpClient = &http.Client{Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}}
		}
		p.client = pdns.New(cfg.Server, cfg.VirtualHost,
			pdns.WithHeaders(map[string]string{"X-API-Key": cfg.APIKey}),
			pdns.WithHTTPClient(httpClient),
		)
	}

	return p, nil
}

// NewFromMap creates a new PowerDNS provider from a configuration map. Used
// by the provider registry Factory pattern.
func NewFromMap(name string, config map[string]string) (provider.Provider, error) {
	cfg := &Config{
		Server:             config["SERVER"],
		APIKey:             config["API_KEY"],
		VirtualHost:        config["VIRTUAL_HOST"],
		Zone:               config["ZONE"],
		TTL:                DefaultTTL,
		InsecureSkipVerify: parseBool(config["INSECURE_SKIP_VERIFY"]),
	}
	if cfg.VirtualHost == "" {
		cfg.VirtualHost = "localhost"
	}
	if ttlStr, ok := config["TTL"]; ok && ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil {
			cfg.TTL = ttl
		}
	}

	return New(name, cfg)
}

// Name returns the provider instance name.
func (p *Provider) Name() string { return p.name }

// Type returns "powerdns".
func (p *Provider) Type() string { return "powerdns" }

// Capabilities returns the provider's feature support. PowerDNS's
// Records.Change call replaces an entire RRset, so native update is
// supported; TXT ownership records are supported like any other RRset.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsOwnershipTXT: true,
		SupportsNativeUpdate: true,
		SupportedRecordTypes: []provider.RecordType{
			provider.RecordTypeA,
			provider.RecordTypeAAAA,
			provider.RecordTypeCNAME,
			provider.RecordTypeMX,
			provider.RecordTypeTXT,
			provider.RecordTypeSRV,
			provider.RecordTypeNS,
		},
	}
}

// Zone returns the configured DNS zone name.
func (p *Provider) Zone() string { return strings.TrimSuffix(p.zone, ".") }

// Ping checks connectivity to the PowerDNS API by fetching the zone.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Zones.Get(ctx, p.zone)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
	}
	return nil
}

// List returns all managed resource record sets in the zone.
func (p *Provider) List(ctx context.Context) ([]provider.Record, error) {
	zone, err := p.client.Zones.Get(ctx, p.zone)
	if err != nil {
		return nil, fmt.Errorf("getting zone %s: %w", p.zone, err)
	}

	var records []provider.Record
	for _, rrset := range zone.RRsets {
		rt, ok := supportedType(pdns.StringValue((*string)(rrset.Type)))
		if !ok {
			continue
		}
		ttl := int(pdns.Uint32Value(rrset.TTL))
		name := strings.TrimSuffix(pdns.StringValue(rrset.Name), ".")

		for _, r := range rrset.Records {
			records = append(records, fromContent(name, rt, ttl, pdns.StringValue(r.Content)))
		}
	}

	p.logger.Debug("listed records",
		slog.String("provider", p.name),
		slog.String("zone", p.zone),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// Create adds a resource record set, or appends to it if one already exists
// for the hostname/type — PowerDNS's Change call replaces the whole RRset,
// so Create merges with what List currently reports.
func (p *Provider) Create(ctx context.Context, record provider.Record) error {
	return p.upsert(ctx, record, true)
}

// Update replaces a resource record set in place.
func (p *Provider) Update(ctx context.Context, existing, desired provider.Record) error {
	return p.upsert(ctx, desired, false)
}

func (p *Provider) upsert(ctx context.Context, record provider.Record, merge bool) error {
	ttl := record.TTL
	if ttl <= 0 {
		ttl = p.ttl
	}

	content := []string{contentFor(record)}
	if merge {
		existing, err := p.List(ctx)
		if err != nil {
			return fmt.Errorf("listing existing records before create: %w", err)
		}
		for _, rec := range existing {
			if rec.Hostname == record.Hostname && rec.Type == record.Type && rec.Target != record.Target {
				content = append(content, contentFor(rec))
			}
		}
	}

	name := ensureTrailingDot(record.Hostname)
	err := p.client.Records.Change(ctx, p.zone, name, pdns.RRType(record.Type), uint32(ttl), content)
	if err != nil {
		return fmt.Errorf("changing %s record for %s: %w", record.Type, record.Hostname, err)
	}

	p.logger.Info("applied record change",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
		slog.String("target", record.Target),
		slog.Int("ttl", ttl),
	)
	return nil
}

// Delete removes a resource record set.
func (p *Provider) Delete(ctx context.Context, record provider.Record) error {
	name := ensureTrailingDot(record.Hostname)
	err := p.client.Records.Delete(ctx, p.zone, name, pdns.RRType(record.Type))
	if err != nil {
		return fmt.Errorf("deleting %s record for %s: %w", record.Type, record.Hostname, err)
	}

	p.logger.Info("deleted record",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
	)
	return nil
}

func contentFor(record provider.Record) string {
	switch record.Type {
	case provider.RecordTypeTXT:
		return strconv.Quote(record.Target)
	case provider.RecordTypeMX:
		return fmt.Sprintf("%d %s", record.Priority, ensureTrailingDot(record.Target))
	case provider.RecordTypeSRV:
		return fmt.Sprintf("%d %d %d %s", record.Priority, record.Weight, record.Port, ensureTrailingDot(record.Target))
	case provider.RecordTypeCNAME:
		return ensureTrailingDot(record.Target)
	default:
		return record.Target
	}
}

func fromContent(name string, rt provider.RecordType, ttl int, raw string) provider.Record {
	rec := provider.Record{Hostname: name, Type: rt, TTL: ttl}

	switch rt {
	case provider.RecordTypeTXT:
		rec.Target = strings.Trim(raw, `"`)
	case provider.RecordTypeMX:
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) == 2 {
			if pr, err := strconv.ParseUint(parts[0], 10, 16); err == nil {
				rec.Priority = uint16(pr)
			}
			rec.Target = strings.TrimSuffix(parts[1], ".")
		}
	case provider.RecordTypeSRV:
		parts := strings.SplitN(raw, " ", 4)
		if len(parts) == 4 {
			if pr, err := strconv.ParseUint(parts[0], 10, 16); err == nil {
				rec.Priority = uint16(pr)
			}
			if w, err := strconv.ParseUint(parts[1], 10, 16); err == nil {
				rec.Weight = uint16(w)
			}
			if port, err := strconv.ParseUint(parts[2], 10, 16); err == nil {
				rec.Port = uint16(port)
			}
			rec.Target = strings.TrimSuffix(parts[3], ".")
		}
	case provider.RecordTypeCNAME:
		rec.Target = strings.TrimSuffix(raw, ".")
	default:
		rec.Target = raw
	}
	return rec
}

func supportedType(raw string) (provider.RecordType, bool) {
	switch provider.RecordType(raw) {
	case provider.RecordTypeA, provider.RecordTypeAAAA, provider.RecordTypeCNAME, provider.RecordTypeTXT,
		provider.RecordTypeMX, provider.RecordTypeSRV, provider.RecordTypeNS:
		return provider.RecordType(raw), true
	default:
		return "", false
	}
}

func ensureTrailingDot(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

// Factory returns a provider.Factory function for use with the provider registry.
func Factory() provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		return NewFromMap(name, config)
	}
}

// Ensure Provider implements provider.Provider and provider.Updater at
// compile time.
var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Updater  = (*Provider)(nil)
)
