// Package containersource maintains a live map of running containers and
// derives DNS hostnames from their labels, driven by the Docker event
// stream plus periodic cold re-lists.
package containersource

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/events"

	"dnsync/internal/docker"
	"dnsync/internal/eventbus"
)

// Container mirrors a Docker workload's identity, state, and labels.
type Container struct {
	ID     string
	Name   string
	State  string // running, paused, stopped
	Labels map[string]string
}

// fqdnPattern is the strict hostname shape HostnameResolver requires:
// lowercase alnum/hyphen/dot, at least implicitly multi-label via the
// caller's additional "contains a dot" check.
var fqdnPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-\.]*[a-z0-9])?$`)

// hostRuleValue matches Host(`...`) occurrences inside a routing-rule label
// value, same grammar as Traefik's router rule syntax.
var hostRuleValue = regexp.MustCompile("Host\\(`([^`]+)`\\)")

// Source maintains map[containerId]Container, seeded from a cold list and
// kept current by subscribing to the container runtime's event stream.
// Transient event-stream errors are retried with exponential backoff.
type Source struct {
	client         *docker.Client
	bus            *eventbus.Bus
	logger         *slog.Logger
	dnsLabel       string // e.g. "dns.hostname"
	minReconnect   time.Duration
	maxReconnect   time.Duration

	mu         sync.RWMutex
	containers map[string]Container

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Source.
type Option func(*Source)

// WithEventBus publishes ContainerStartedEvent/ContainerStoppedEvent as
// containers come and go.
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

// WithDNSLabel overrides the "dns.hostname" label key used for explicit
// hostname declarations.
func WithDNSLabel(label string) Option {
	return func(s *Source) {
		if label != "" {
			s.dnsLabel = label
		}
	}
}

// WithReconnectBackoff overrides the default 5s->60s exponential backoff
// bounds used when the event stream errors.
func WithReconnectBackoff(min, max time.Duration) Option {
	return func(s *Source) {
		if min > 0 {
			s.minReconnect = min
		}
		if max > 0 {
			s.maxReconnect = max
		}
	}
}

// New creates a Source bound to an already-initialized Docker client.
func New(client *docker.Client, opts ...Option) *Source {
	s := &Source{
		client:       client,
		logger:       slog.Default(),
		dnsLabel:     "dns.hostname",
		minReconnect: 5 * time.Second,
		maxReconnect: 60 * time.Second,
		containers:   make(map[string]Container),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start seeds the container map from a cold list, then begins watching the
// Docker event stream in the background. Non-blocking.
func (s *Source) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.watchLoop(ctx)
	return nil
}

// Stop halts event watching.
func (s *Source) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Refresh performs a cold re-list of every container, replacing the map.
func (s *Source) Refresh(ctx context.Context) error {
	workloads, err := s.client.ListWorkloads(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]Container, len(workloads))
	for _, w := range workloads {
		fresh[w.ID] = Container{
			ID:     w.ID,
			Name:   w.Name,
			State:  "running",
			Labels: w.Labels,
		}
	}

	s.mu.Lock()
	s.containers = fresh
	s.mu.Unlock()

	s.logger.Debug("containersource: cold refresh complete", slog.Int("count", len(fresh)))
	return nil
}

// ListRunning returns every container currently tracked as running.
func (s *Source) ListRunning() []Container {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Container, 0, len(s.containers))
	for _, c := range s.containers {
		if c.State == "running" {
			out = append(out, c)
		}
	}
	return out
}

// LabelsByHostname derives a hostname -> labels map from running containers:
// explicit dns.hostname labels (comma-separated permitted) and routing-rule
// label values containing Host(`...`) expressions. Only strict-FQDN matches
// are kept; the owning container's full label set is attached so callers
// (HostnameResolver) can apply per-hostname overrides.
func (s *Source) LabelsByHostname() map[string]map[string]string {
	s.mu.RLock()
	containers := make([]Container, 0, len(s.containers))
	for _, c := range s.containers {
		if c.State == "running" {
			containers = append(containers, c)
		}
	}
	s.mu.RUnlock()

	out := make(map[string]map[string]string)
	for _, c := range containers {
		for _, hostname := range hostnamesFromLabels(c.Labels, s.dnsLabel) {
			if _, exists := out[hostname]; !exists {
				out[hostname] = c.Labels
			}
		}
	}
	return out
}

// hostnamesFromLabels extracts candidate hostnames from a single
// container's labels.
func hostnamesFromLabels(labels map[string]string, dnsLabel string) []string {
	seen := make(map[string]struct{})
	var hostnames []string

	add := func(h string) {
		h = strings.ToLower(strings.TrimSpace(h))
		if !isValidFQDN(h) {
			return
		}
		if _, exists := seen[h]; exists {
			return
		}
		seen[h] = struct{}{}
		hostnames = append(hostnames, h)
	}

	if raw, ok := labels[dnsLabel]; ok {
		for _, h := range strings.Split(raw, ",") {
			add(h)
		}
	}

	for _, value := range labels {
		for _, match := range hostRuleValue.FindAllStringSubmatch(value, -1) {
			if len(match) == 2 {
				add(match[1])
			}
		}
	}

	return hostnames
}

// isValidFQDN reports whether h is a strict, non-templated hostname: lowercase
// alnum/hyphen/dot, at least one dot, no braces or regex metacharacters.
func isValidFQDN(h string) bool {
	if h == "" || !strings.Contains(h, ".") {
		return false
	}
	if strings.ContainsAny(h, "{}*") {
		return false
	}
	return fqdnPattern.MatchString(h)
}

func (s *Source) watchLoop(ctx context.Context) {
	defer s.wg.Done()

	backoff := s.minReconnect
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.watch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("containersource: event stream error, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > s.maxReconnect {
				backoff = s.maxReconnect
			}
			continue
		}
		backoff = s.minReconnect
	}
}

func (s *Source) watch(ctx context.Context) error {
	rawClient := s.client.RawClient()

	eventsChan, errChan := rawClient.Events(ctx, events.ListOptions{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			return err
		case ev := <-eventsChan:
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Source) handleEvent(ctx context.Context, ev events.Message) {
	if ev.Type != events.ContainerEventType {
		return
	}

	id := ev.Actor.ID
	switch ev.Action {
	case "start", "unpause":
		labels, err := s.client.GetWorkloadLabels(ctx, id)
		if err != nil {
			s.logger.Warn("containersource: inspecting container after start event", slog.String("id", id), slog.String("error", err.Error()))
			return
		}
		name := ev.Actor.Attributes["name"]
		s.mu.Lock()
		s.containers[id] = Container{ID: id, Name: name, State: "running", Labels: labels}
		s.mu.Unlock()
		if s.bus != nil {
			eventbus.Publish(s.bus, eventbus.ContainerStartedEvent{ID: id, Name: name})
		}

	case "pause":
		s.mu.Lock()
		if c, ok := s.containers[id]; ok {
			c.State = "paused"
			s.containers[id] = c
		}
		s.mu.Unlock()

	case "stop", "die", "destroy":
		s.mu.Lock()
		c, existed := s.containers[id]
		delete(s.containers, id)
		s.mu.Unlock()
		if existed && s.bus != nil {
			eventbus.Publish(s.bus, eventbus.ContainerStoppedEvent{ID: id, Name: c.Name})
		}
	}
}
