// Package publicip resolves the host's current public IPv4/IPv6
// addresses, used to fill DesiredRecords whose content was not given
// explicitly (NeedsPublicIPv4/NeedsPublicIPv6).
package publicip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dnsync/pkg/httputil"
)

// DefaultRefreshInterval is how often the background refresh loop
// re-resolves the public IPs when none is statically configured.
const DefaultRefreshInterval = 5 * time.Minute

// DefaultIPv4Endpoints/DefaultIPv6Endpoints are queried in order; the
// first that answers within the timeout wins.
var (
	DefaultIPv4Endpoints = []string{"https://api.ipify.org?format=json", "https://4.ident.me/.json"}
	DefaultIPv6Endpoints = []string{"https://api6.ipify.org?format=json", "https://6.ident.me/.json"}
)

type ipResponse struct {
	IP string `json:"ip"`
}

// Resolver tracks the current public IPv4/IPv6 addresses. A static
// override (from config) always wins over network discovery.
type Resolver struct {
	client *http.Client
	logger *slog.Logger

	v4Endpoints []string
	v6Endpoints []string

	mu           sync.RWMutex
	staticV4     string
	staticV6     string
	discoveredV4 string
	discoveredV6 string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client used to query IP echo
// services.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithLogger sets the logger used for discovery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStaticIPs pins the resolver to operator-supplied addresses,
// bypassing network discovery entirely for any non-empty value.
func WithStaticIPs(v4, v6 string) Option {
	return func(r *Resolver) {
		r.staticV4 = v4
		r.staticV6 = v6
	}
}

// New creates a Resolver. Call Refresh (or run Run in a goroutine) to
// populate discovered addresses before IPv4/IPv6 return anything for an
// unset static override.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		client:      httputil.NewClient(&httputil.ClientConfig{Timeout: 10 * time.Second}),
		logger:      slog.Default(),
		v4Endpoints: DefaultIPv4Endpoints,
		v6Endpoints: DefaultIPv6Endpoints,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IPv4 returns the current public IPv4 address, or "" if unknown.
func (r *Resolver) IPv4() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.staticV4 != "" {
		return r.staticV4
	}
	return r.discoveredV4
}

// IPv6 returns the current public IPv6 address, or "" if unknown.
func (r *Resolver) IPv6() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.staticV6 != "" {
		return r.staticV6
	}
	return r.discoveredV6
}

// Refresh re-resolves any address not pinned by a static override. An
// address family with no endpoints configured is not queried.
func (r *Resolver) Refresh(ctx context.Context) error {
	var errs []error

	if r.IPv4() == "" && len(r.v4Endpoints) > 0 {
		if ip, err := queryFirst(ctx, r.client, r.v4Endpoints); err != nil {
			errs = append(errs, fmt.Errorf("ipv4: %w", err))
		} else {
			r.mu.Lock()
			r.discoveredV4 = ip
			r.mu.Unlock()
		}
	}

	if r.IPv6() == "" && len(r.v6Endpoints) > 0 {
		if ip, err := queryFirst(ctx, r.client, r.v6Endpoints); err != nil {
			errs = append(errs, fmt.Errorf("ipv6: %w", err))
		} else {
			r.mu.Lock()
			r.discoveredV6 = ip
			r.mu.Unlock()
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("public ip discovery: %v", errs)
	}
	return nil
}

// Run refreshes addresses on interval until ctx is cancelled. Discovery
// failures are logged and retried on the next tick rather than treated
// as fatal.
func (r *Resolver) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("public ip: initial discovery failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("public ip: refresh failed", "error", err)
			}
		}
	}
}

func queryFirst(ctx context.Context, client *http.Client, endpoints []string) (string, error) {
	var lastErr error
	for _, url := range endpoints {
		ip, err := query(ctx, client, url)
		if err == nil && ip != "" {
			return ip, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no endpoint returned an address")
	}
	return "", lastErr
}

func query(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}

	var parsed ipResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%s: parsing response: %w", url, err)
	}
	return parsed.IP, nil
}
