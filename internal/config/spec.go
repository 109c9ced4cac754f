package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Operational mode for the core reconcile loop. Distinct from
// provider.OperationalMode, which scopes delete behavior per provider
// instance; OperationMode governs whether the dataset-wide orphan reaper
// runs at all.
const (
	OperationModeSync   = "sync"   // create, update, and delete records
	OperationModeNoop   = "noop"   // compute and log intended changes only
	OperationModeCreate = "create" // only ever create/update, never delete
)

// Spec-level defaults, additive to GlobalConfig's teacher-era defaults.
const (
	DefaultOperationMode       = OperationModeSync
	DefaultPollInterval        = 30 * time.Second
	DefaultCleanupGracePeriod  = 15 * time.Minute
	DefaultDNSRecordType       = "A"
	DefaultDNSTTL              = 300
	DefaultIPRefreshInterval   = 5 * time.Minute
	DefaultAPITimeout          = 60 * time.Second
	DefaultDNSLabelPrefix      = "dnsync"
	DefaultTraefikLabelPrefix  = "traefik"
	DefaultStateDebounce       = 2 * time.Second
	DefaultRouterSourcePath    = "/api/http/routers"
	DefaultProviderConcurrency = 1
)

// ManagedHostname is a statically configured hostname that should always be
// reconciled, independent of any discovered container or router.
type ManagedHostname struct {
	Hostname string
	Type     string
	Content  string
	TTL      int
	Proxied  bool
}

// ProviderZone binds a configured provider instance name to the DNS zone
// it is authoritative for, the unit internal/providerrouter routes
// hostnames against. IsDefault marks the provider used when no zone
// matches a given hostname.
type ProviderZone struct {
	Name      string
	Zone      string
	IsDefault bool
}

// SpecConfig holds the settings SPEC_FULL.md §6 adds on top of
// GlobalConfig: operation mode, orphan cleanup grace period, default DNS
// record shape, public IP resolution, label prefixes, and the managed/
// preserved hostname lists.
type SpecConfig struct {
	OperationMode string

	PollInterval       time.Duration
	CleanupOrphaned    bool
	CleanupGracePeriod time.Duration
	PreservedHostnames []string

	ManagedHostnames []ManagedHostname

	DNSDefaultType    string
	DNSDefaultContent string
	DNSDefaultTTL     int
	DNSDefaultProxied bool

	PublicIPv4        string
	PublicIPv6        string
	IPRefreshInterval time.Duration

	APITimeout time.Duration

	DNSLabelPrefix     string
	TraefikLabelPrefix string
	TraefikAPIBaseURL  string

	StateFilePath string
	StateDebounce time.Duration

	ProviderZones []ProviderZone

	// ProviderConcurrency bounds how many independent (type, name) record
	// mutations a single provider's reconcile pass may have in flight at
	// once (§5). Distinct providers always reconcile concurrently with
	// each other regardless of this value.
	ProviderConcurrency int
}

// loadSpecConfig reads the SPEC_FULL.md §6 environment variables.
// Returns a list of validation errors (may be empty), following the same
// accumulate-then-report convention as loadGlobalConfig.
func loadSpecConfig() (*SpecConfig, []string) {
	var errs []string

	cfg := &SpecConfig{
		OperationMode:      strings.ToLower(getEnv("DNSYNC_OPERATION_MODE")),
		DNSLabelPrefix:     getEnv("DNSYNC_DNS_LABEL_PREFIX"),
		TraefikLabelPrefix: getEnv("DNSYNC_TRAEFIK_LABEL_PREFIX"),
		TraefikAPIBaseURL:  getEnv("DNSYNC_TRAEFIK_API_URL"),
		DNSDefaultType:     strings.ToUpper(getEnv("DNSYNC_DNS_DEFAULT_TYPE")),
		DNSDefaultContent:  getEnv("DNSYNC_DNS_DEFAULT_CONTENT"),
		PublicIPv4:         getEnv("DNSYNC_PUBLIC_IP"),
		PublicIPv6:         getEnv("DNSYNC_PUBLIC_IPV6"),
		StateFilePath:      getEnv("DNSYNC_STATE_FILE"),
	}

	if cfg.OperationMode == "" {
		cfg.OperationMode = DefaultOperationMode
	}
	switch cfg.OperationMode {
	case OperationModeSync, OperationModeNoop, OperationModeCreate:
	default:
		errs = append(errs, fmt.Sprintf("DNSYNC_OPERATION_MODE: invalid value %q (must be sync, noop, or create)", cfg.OperationMode))
	}

	if cfg.DNSLabelPrefix == "" {
		cfg.DNSLabelPrefix = DefaultDNSLabelPrefix
	}
	if cfg.TraefikLabelPrefix == "" {
		cfg.TraefikLabelPrefix = DefaultTraefikLabelPrefix
	}
	if cfg.DNSDefaultType == "" {
		cfg.DNSDefaultType = DefaultDNSRecordType
	}
	if cfg.StateFilePath == "" {
		cfg.StateFilePath = "/data/state.json"
	}

	if v := getEnv("DNSYNC_PROVIDER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Sprintf("DNSYNC_PROVIDER_CONCURRENCY: invalid integer %q", v))
		} else {
			cfg.ProviderConcurrency = n
		}
	} else {
		cfg.ProviderConcurrency = DefaultProviderConcurrency
	}

	cfg.PollInterval = parseDurationEnv("DNSYNC_POLL_INTERVAL", DefaultPollInterval, &errs)
	cfg.CleanupGracePeriod = parseDurationEnv("DNSYNC_CLEANUP_GRACE_PERIOD", DefaultCleanupGracePeriod, &errs)
	cfg.IPRefreshInterval = parseDurationEnv("DNSYNC_IP_REFRESH_INTERVAL", DefaultIPRefreshInterval, &errs)
	cfg.APITimeout = parseDurationEnv("DNSYNC_API_TIMEOUT", DefaultAPITimeout, &errs)
	cfg.StateDebounce = parseDurationEnv("DNSYNC_STATE_DEBOUNCE", DefaultStateDebounce, &errs)

	if v := getEnv("DNSYNC_CLEANUP_ORPHANED"); v != "" {
		cfg.CleanupOrphaned = parseBool(v, DefaultCleanupOrphans)
	} else {
		cfg.CleanupOrphaned = DefaultCleanupOrphans
	}

	if v := getEnv("DNSYNC_DNS_DEFAULT_PROXIED"); v != "" {
		cfg.DNSDefaultProxied = parseBool(v, false)
	}

	if v := getEnv("DNSYNC_DNS_DEFAULT_TTL"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil || ttl < 1 {
			errs = append(errs, fmt.Sprintf("DNSYNC_DNS_DEFAULT_TTL: invalid integer %q", v))
		} else {
			cfg.DNSDefaultTTL = ttl
		}
	} else {
		cfg.DNSDefaultTTL = DefaultDNSTTL
	}

	if v := getEnv("DNSYNC_PRESERVED_HOSTNAMES"); v != "" {
		cfg.PreservedHostnames = splitAndTrim(v)
	}

	managed, managedErrs := parseManagedHostnames(getEnv("DNSYNC_MANAGED_HOSTNAMES"))
	cfg.ManagedHostnames = managed
	errs = append(errs, managedErrs...)

	zones, zoneErrs := parseProviderZones(getEnv("DNSYNC_PROVIDER_ZONES"), getEnv("DNSYNC_DEFAULT_PROVIDER"))
	cfg.ProviderZones = zones
	errs = append(errs, zoneErrs...)

	return cfg, errs
}

func parseDurationEnv(key string, def time.Duration, errs *[]string) time.Duration {
	v := getEnv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseManagedHostnames parses DNSYNC_MANAGED_HOSTNAMES, a semicolon-
// separated list of comma-separated field sets:
//
//	hostname=app.example.com,type=A,content=10.0.0.5,ttl=300;hostname=...
func parseManagedHostnames(raw string) ([]ManagedHostname, []string) {
	if raw == "" {
		return nil, nil
	}

	var out []ManagedHostname
	var errs []string

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		mh := ManagedHostname{Type: DefaultDNSRecordType, TTL: DefaultDNSTTL}
		for _, field := range strings.Split(entry, ",") {
			kv := strings.SplitN(strings.TrimSpace(field), "=", 2)
			if len(kv) != 2 {
				errs = append(errs, fmt.Sprintf("DNSYNC_MANAGED_HOSTNAMES: malformed field %q", field))
				continue
			}
			key, val := strings.ToLower(strings.TrimSpace(kv[0])), strings.TrimSpace(kv[1])
			switch key {
			case "hostname":
				mh.Hostname = val
			case "type":
				mh.Type = strings.ToUpper(val)
			case "content":
				mh.Content = val
			case "ttl":
				ttl, err := strconv.Atoi(val)
				if err != nil {
					errs = append(errs, fmt.Sprintf("DNSYNC_MANAGED_HOSTNAMES: invalid ttl %q", val))
					continue
				}
				mh.TTL = ttl
			case "proxied":
				mh.Proxied = parseBool(val, false)
			default:
				errs = append(errs, fmt.Sprintf("DNSYNC_MANAGED_HOSTNAMES: unknown field %q", key))
			}
		}

		if mh.Hostname == "" {
			errs = append(errs, fmt.Sprintf("DNSYNC_MANAGED_HOSTNAMES: entry missing hostname: %q", entry))
			continue
		}
		out = append(out, mh)
	}

	return out, errs
}

// parseProviderZones parses DNSYNC_PROVIDER_ZONES, a comma-separated list
// of name=zone pairs binding a configured provider instance (DNSYNC_INSTANCES
// name) to the DNS zone it owns:
//
//	cloudflare-main=example.com,internal-dns=svc.example.internal
//
// defaultProvider (DNSYNC_DEFAULT_PROVIDER) names the instance used as the
// fallback when a hostname matches no registered zone; it must refer to
// one of the names parsed from DNSYNC_PROVIDER_ZONES.
func parseProviderZones(raw, defaultProvider string) ([]ProviderZone, []string) {
	if raw == "" {
		return nil, nil
	}

	var out []ProviderZone
	var errs []string
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		kv := strings.SplitN(entry, "=", 2)
		if len(kv) != 2 {
			errs = append(errs, fmt.Sprintf("DNSYNC_PROVIDER_ZONES: malformed entry %q (want name=zone)", entry))
			continue
		}

		name, zone := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if name == "" || zone == "" {
			errs = append(errs, fmt.Sprintf("DNSYNC_PROVIDER_ZONES: malformed entry %q (want name=zone)", entry))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("DNSYNC_PROVIDER_ZONES: duplicate provider name %q", name))
			continue
		}
		seen[name] = true

		out = append(out, ProviderZone{Name: name, Zone: zone})
	}

	if defaultProvider == "" {
		return out, errs
	}

	matched := false
	for i := range out {
		if out[i].Name == defaultProvider {
			out[i].IsDefault = true
			matched = true
		}
	}
	if !matched {
		errs = append(errs, fmt.Sprintf("DNSYNC_DEFAULT_PROVIDER: %q does not match any DNSYNC_PROVIDER_ZONES entry", defaultProvider))
	}

	return out, errs
}
