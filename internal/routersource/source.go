// Package routersource periodically polls an upstream reverse proxy's
// router API and extracts the hostnames its routing rules reference.
package routersource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dnsync/internal/eventbus"
	"dnsync/pkg/httputil"
)

// DefaultPollInterval is how often the router list is re-fetched.
const DefaultPollInterval = 30 * time.Second

// traefikRouter mirrors the subset of Traefik's /api/http/routers response
// this source cares about.
type traefikRouter struct {
	Rule     string `json:"rule"`
	Provider string `json:"provider"`
}

// Source polls a Traefik-compatible router API and maintains the current
// hostname set extracted from non-internal routers' rules.
type Source struct {
	apiURL       string
	username     string
	password     string
	pollInterval time.Duration
	client       *http.Client
	bus          *eventbus.Bus
	logger       *slog.Logger

	mu        sync.RWMutex
	hostnames map[string]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Source.
type Option func(*Source)

// WithBasicAuth sets optional HTTP basic-auth credentials for the API call.
func WithBasicAuth(username, password string) Option {
	return func(s *Source) {
		s.username = username
		s.password = password
	}
}

// WithPollInterval overrides the default 30s poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithHTTPClient overrides the default httputil client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// WithEventBus publishes a RouterSnapshotEvent whenever the hostname set
// changes.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Source) { s.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Source polling apiURL (expected to be a Traefik-compatible
// "/api/http/routers" endpoint).
func New(apiURL string, opts ...Option) *Source {
	s := &Source{
		apiURL:       apiURL,
		pollInterval: DefaultPollInterval,
		client:       httputil.NewClient(&httputil.ClientConfig{Timeout: 10 * time.Second}),
		logger:       slog.Default(),
		hostnames:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs an initial poll, then begins ticking at pollInterval in
// the background. Non-blocking.
func (s *Source) Start(ctx context.Context) error {
	if err := s.Poll(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.pollLoop(ctx)
	return nil
}

// Stop halts polling.
func (s *Source) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Hostnames returns the most recently discovered hostname set.
func (s *Source) Hostnames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.hostnames))
	for h := range s.hostnames {
		out = append(out, h)
	}
	return out
}

func (s *Source) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				s.logger.Warn("routersource: poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Poll fetches the router list now, bypassing the interval timer, and
// updates the hostname set. Emits RouterSnapshotEvent if the set changed.
func (s *Source) Poll(ctx context.Context) error {
	routers, err := s.fetchRouters(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]struct{})
	for _, r := range routers {
		if r.Provider == "internal" {
			continue
		}
		for _, h := range extractHostnames(r.Rule) {
			fresh[h] = struct{}{}
		}
	}

	s.mu.Lock()
	changed := !hostnameSetsEqual(s.hostnames, fresh)
	s.hostnames = fresh
	s.mu.Unlock()

	if changed && s.bus != nil {
		names := make([]string, 0, len(fresh))
		for h := range fresh {
			names = append(names, h)
		}
		eventbus.Publish(s.bus, eventbus.RouterSnapshotEvent{Hostnames: names})
	}
	return nil
}

func (s *Source) fetchRouters(ctx context.Context) ([]traefikRouter, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building router list request: %w", err)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching router list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("router list request returned status %d", resp.StatusCode)
	}

	var routers []traefikRouter
	if err := json.NewDecoder(resp.Body).Decode(&routers); err != nil {
		return nil, fmt.Errorf("decoding router list: %w", err)
	}
	return routers, nil
}

func hostnameSetsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
