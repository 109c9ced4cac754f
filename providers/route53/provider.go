package route53

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"dnsync/pkg/provider"
)

// Provider implements provider.Provider for AWS Route 53.
type Provider struct {
	name      string
	zone      string
	zoneID    string
	ttl       int
	batchSize int
	client    *route53.Client
	logger    *slog.Logger

	zoneIDOnce sync.Once
	zoneIDErr  error
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

// WithClient overrides the Route53 client, for tests.
func WithClient(client *route53.Client) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

// New creates a new Route53 provider instance.
func New(ctx context.Context, name string, cfg *Config, opts ...ProviderOption) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:      name,
		zone:      cfg.Zone,
		zoneID:    cfg.HostedZoneID,
		ttl:       cfg.TTL,
		batchSize: cfg.BatchSize,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}

		loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
		if !cfg.UseCredentialsChain && cfg.AccessKeyID != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)),
			))
		}

		awscfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		p.client = route53.NewFromConfig(awscfg)
	}

	return p, nil
}

// NewFromMap creates a new Route53 provider from a configuration map. Used
// by the provider registry Factory pattern.
func NewFromMap(name string, config map[string]string) (provider.Provider, error) {
	cfg := &Config{
		Region:              config["REGION"],
		AccessKeyID:         config["ACCESS_KEY_ID"],
		SecretAccessKey:     config["SECRET_ACCESS_KEY"],
		SessionToken:        config["SESSION_TOKEN"],
		UseCredentialsChain: parseBool(config["USE_CREDENTIALS_CHAIN"]),
		HostedZoneID:        config["HOSTED_ZONE_ID"],
		Zone:                config["ZONE"],
		TTL:                 DefaultTTL,
		BatchSize:           DefaultBatchSize,
	}
	if ttlStr, ok := config["TTL"]; ok && ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil {
			cfg.TTL = ttl
		}
	}
	if batchStr, ok := config["BATCH_SIZE"]; ok && batchStr != "" {
		if batch, err := strconv.Atoi(batchStr); err == nil {
			cfg.BatchSize = batch
		}
	}

	return New(context.Background(), name, cfg)
}

// Name returns the provider instance name.
func (p *Provider) Name() string { return p.name }

// Type returns "route53".
func (p *Provider) Type() string { return "route53" }

// Capabilities returns the provider's feature support. Route53 supports
// native UPSERT (create+update collapse into the same ChangeResourceRecordSets
// action) and TXT ownership records.
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
			provider.RecordTypeCAA,
			provider.RecordTypeNS,
		},
	}
}

// Zone returns the configured DNS zone name.
func (p *Provider) Zone() string { return p.zone }

// ZoneID returns the resolved hosted zone ID, looking it up by name if
// necessary.
func (p *Provider) ZoneID(ctx context.Context) (string, error) {
	if p.zoneID != "" {
		return p.zoneID, nil
	}

	p.zoneIDOnce.Do(func() {
		p.zoneID, p.zoneIDErr = p.lookupZoneID(ctx)
	})

	if p.zoneIDErr != nil {
		return "", p.zoneIDErr
	}
	return p.zoneID, nil
}

func (p *Provider) lookupZoneID(ctx context.Context) (string, error) {
	target := ensureTrailingDot(p.zone)

	paginator := route53.NewListHostedZonesByNamePaginator(p.client, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(target),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("listing hosted zones: %w", err)
		}
		for _, z := range page.HostedZones {
			if strings.EqualFold(aws.ToString(z.Name), target) {
				return strings.TrimPrefix(aws.ToString(z.Id), "/hostedzone/"), nil
			}
		}
	}
	return "", fmt.Errorf("%w: no hosted zone named %q", provider.ErrZoneNotFound, p.zone)
}

// Ping checks connectivity to the Route53 API by resolving the zone ID.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.ZoneID(ctx)
	return err
}

// List returns all managed resource record sets in the zone.
func (p *Provider) List(ctx context.Context) ([]provider.Record, error) {
	zoneID, err := p.ZoneID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting zone ID: %w", err)
	}

	var records []provider.Record
	paginator := route53.NewListResourceRecordSetsPaginator(p.client, &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing resource record sets: %w", err)
		}
		for _, rrs := range page.ResourceRecordSets {
			rt, ok := supportedType(rrs.Type)
			if !ok {
				continue
			}
			records = append(records, toRecords(rrs, rt)...)
		}
	}

	p.logger.Debug("listed records",
		slog.String("provider", p.name),
		slog.String("zone_id", zoneID),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// Create adds a new resource record set via an UPSERT change.
func (p *Provider) Create(ctx context.Context, record provider.Record) error {
	return p.change(ctx, r53types.ChangeActionUpsert, record)
}

// Update replaces a resource record set in place via an UPSERT change. Route53
// has no distinct update verb: UPSERT both creates and overwrites.
func (p *Provider) Update(ctx context.Context, existing, desired provider.Record) error {
	return p.change(ctx, r53types.ChangeActionUpsert, desired)
}

// Delete removes a resource record set.
func (p *Provider) Delete(ctx context.Context, record provider.Record) error {
	return p.change(ctx, r53types.ChangeActionDelete, record)
}

func (p *Provider) change(ctx context.Context, action r53types.ChangeAction, record provider.Record) error {
	zoneID, err := p.ZoneID(ctx)
	if err != nil {
		return fmt.Errorf("getting zone ID: %w", err)
	}

	ttl := record.TTL
	if ttl <= 0 {
		ttl = p.ttl
	}

	rrs, err := buildResourceRecordSet(record, ttl)
	if err != nil {
		return err
	}

	_, err = p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: []r53types.Change{{Action: action, ResourceRecordSet: rrs}},
		},
	})
	if err != nil {
		if action == r53types.ChangeActionDelete && isNotFoundErr(err) {
			return nil
		}
		return fmt.Errorf("submitting %s change for %s %s: %w", action, record.Type, record.Hostname, err)
	}

	p.logger.Info("applied record change",
		slog.String("provider", p.name),
		slog.String("action", string(action)),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
		slog.String("target", record.Target),
		slog.Int("ttl", ttl),
	)
	return nil
}

// ApplyBatch submits every create and update as ChangeResourceRecordSets
// calls batched BatchSize changes at a time, rather than one request per
// record. Route53 reports batch failures without saying which change in
// the batch failed, so a failing chunk attributes its error to every
// record in that chunk.
func (p *Provider) ApplyBatch(ctx context.Context, creates []provider.Record, updates []provider.RecordUpdate) (provider.BatchResult, error) {
	zoneID, err := p.ZoneID(ctx)
	if err != nil {
		return provider.BatchResult{}, fmt.Errorf("getting zone ID: %w", err)
	}

	type pending struct {
		record provider.Record
		change r53types.Change
	}
	var all []pending

	for _, rec := range creates {
		ttl := rec.TTL
		if ttl <= 0 {
			ttl = p.ttl
		}
		rrs, err := buildResourceRecordSet(rec, ttl)
		if err != nil {
			return provider.BatchResult{}, err
		}
		all = append(all, pending{record: rec, change: r53types.Change{Action: r53types.ChangeActionUpsert, ResourceRecordSet: rrs}})
	}
	for _, upd := range updates {
		ttl := upd.Desired.TTL
		if ttl <= 0 {
			ttl = p.ttl
		}
		rrs, err := buildResourceRecordSet(upd.Desired, ttl)
		if err != nil {
			return provider.BatchResult{}, err
		}
		all = append(all, pending{record: upd.Desired, change: r53types.Change{Action: r53types.ChangeActionUpsert, ResourceRecordSet: rrs}})
	}

	batchSize := p.batchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := provider.BatchResult{Failed: make(map[provider.Record]error)}
	for start := 0; start < len(all); start += batchSize {
		end := min(start+batchSize, len(all))
		chunk := all[start:end]

		changes := make([]r53types.Change, len(chunk))
		for i, c := range chunk {
			changes[i] = c.change
		}

		_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(zoneID),
			ChangeBatch:  &r53types.ChangeBatch{Changes: changes},
		})
		if err != nil {
			chunkErr := fmt.Errorf("batch change (records %d-%d): %w", start, end-1, err)
			for _, c := range chunk {
				result.Failed[c.record] = chunkErr
			}
			continue
		}

		p.logger.Info("applied batched record changes",
			slog.String("provider", p.name),
			slog.Int("count", len(chunk)),
		)
	}

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("%d of %d changes failed", len(result.Failed), len(all))
	}
	return result, nil
}

func buildResourceRecordSet(record provider.Record, ttl int) (*r53types.ResourceRecordSet, error) {
	name := ensureTrailingDot(record.Hostname)
	rrs := &r53types.ResourceRecordSet{
		Name: aws.String(name),
		Type: r53types.RRType(record.Type),
		TTL:  aws.Int64(int64(ttl)),
	}

	value := record.Target
	switch record.Type {
	case provider.RecordTypeTXT:
		value = strconv.Quote(value)
	case provider.RecordTypeMX:
		value = fmt.Sprintf("%d %s", record.Priority, ensureTrailingDot(value))
	case provider.RecordTypeSRV:
		if record.Port == 0 {
			return nil, fmt.Errorf("%w: SRV record %q requires a port", provider.ErrValidation, record.Hostname)
		}
		value = fmt.Sprintf("%d %d %d %s", record.Priority, record.Weight, record.Port, ensureTrailingDot(value))
	case provider.RecordTypeCAA:
		if record.Tag == "" {
			return nil, fmt.Errorf("%w: CAA record %q requires a tag", provider.ErrValidation, record.Hostname)
		}
		value = fmt.Sprintf("%d %s %q", record.Flags, record.Tag, record.Target)
	case provider.RecordTypeCNAME:
		value = ensureTrailingDot(value)
	}

	rrs.ResourceRecords = []r53types.ResourceRecord{{Value: aws.String(value)}}
	return rrs, nil
}

func toRecords(rrs r53types.ResourceRecordSet, rt provider.RecordType) []provider.Record {
	name := strings.TrimSuffix(aws.ToString(rrs.Name), ".")
	ttl := int(aws.ToInt64(rrs.TTL))

	var records []provider.Record
	for _, rr := range rrs.ResourceRecords {
		rec := provider.Record{
			Hostname: name,
			Type:     rt,
			TTL:      ttl,
		}

		raw := aws.ToString(rr.Value)
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
		records = append(records, rec)
	}
	return records
}

func supportedType(rrType r53types.RRType) (provider.RecordType, bool) {
	switch rrType {
	case r53types.RRTypeA, r53types.RRTypeAaaa, r53types.RRTypeCname, r53types.RRTypeTxt,
		r53types.RRTypeMx, r53types.RRTypeSrv, r53types.RRTypeCaa, r53types.RRTypeNs:
		return provider.RecordType(rrType), true
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

func isNotFoundErr(err error) bool {
	var invalidChange *r53types.InvalidChangeBatch
	if errors.As(err, &invalidChange) {
		return strings.Contains(invalidChange.ErrorMessage(), "but it was not found")
	}
	return false
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
	_ provider.Provider     = (*Provider)(nil)
	_ provider.Updater      = (*Provider)(nil)
	_ provider.BatchApplier = (*Provider)(nil)
)
