// Package scheduler wires ContainerSource, RouterSource, HostnameResolver,
// ProviderRouter, the per-provider reconcile pass, and OrphanReaper into the
// single periodic pipeline described by spec.md §4.10.
package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dnsync/internal/config"
	"dnsync/internal/containersource"
	"dnsync/internal/eventbus"
	"dnsync/internal/hostnameresolver"
	"dnsync/internal/metrics"
	"dnsync/internal/orphanreaper"
	"dnsync/internal/providerrouter"
	"dnsync/internal/publicip"
	"dnsync/internal/reconciler"
	"dnsync/internal/routersource"
	"dnsync/internal/state"
	"dnsync/pkg/provider"
)

// DefaultDebounce coalesces bursts of source-change events into a single
// reconcile pass.
const DefaultDebounce = 2 * time.Second

// Scheduler owns the long-running pipeline: it polls/watches the
// configured sources, merges their output into a desired-record set, and
// drives one Reconciler + OrphanReaper pass per configured provider.
type Scheduler struct {
	bus *eventbus.Bus

	containerSource *containersource.Source
	routerSource    *routersource.Source // nil when traefik mode is not configured

	resolver *hostnameresolver.Resolver
	router   *providerrouter.Router

	providers map[string]provider.Provider // name -> bare provider

	reaper *orphanreaper.Reaper
	state  *state.Store // nil when no state file is configured

	managedHostnames []config.ManagedHostname
	operationMode    string
	cleanupEnabled   bool

	pollInterval time.Duration
	debounce     time.Duration
	concurrency  int

	publicIPs *publicip.Resolver

	logger *slog.Logger
}

// Config bundles the constructor arguments a Scheduler needs.
type Config struct {
	Bus             *eventbus.Bus
	ContainerSource *containersource.Source
	RouterSource    *routersource.Source
	Resolver        *hostnameresolver.Resolver
	Router          *providerrouter.Router
	Providers       map[string]provider.Provider
	Reaper          *orphanreaper.Reaper
	State           *state.Store
	PublicIPs       *publicip.Resolver

	ManagedHostnames []config.ManagedHostname
	OperationMode    string // sync, noop, create — see config.OperationMode*
	PollInterval     time.Duration
	Debounce         time.Duration
	Concurrency      int

	Logger *slog.Logger
}

// New creates a Scheduler from cfg, applying defaults for any zero-value
// timing field.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = config.DefaultPollInterval
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultProviderConcurrency
	}
	operationMode := cfg.OperationMode
	if operationMode == "" {
		operationMode = config.DefaultOperationMode
	}

	return &Scheduler{
		bus:              cfg.Bus,
		containerSource:  cfg.ContainerSource,
		routerSource:     cfg.RouterSource,
		resolver:         cfg.Resolver,
		router:           cfg.Router,
		providers:        cfg.Providers,
		reaper:           cfg.Reaper,
		state:            cfg.State,
		managedHostnames: cfg.ManagedHostnames,
		operationMode:    operationMode,
		cleanupEnabled:   operationMode == config.OperationModeSync,
		pollInterval:     pollInterval,
		debounce:         debounce,
		concurrency:      concurrency,
		publicIPs:        cfg.PublicIPs,
		logger:           logger,
	}
}

// Run blocks, driving reconcile passes on the poll interval and on
// debounced source-change events, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	requestReconcile := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	stopRouter := eventbus.Subscribe(s.bus, func(eventbus.RouterSnapshotEvent) { requestReconcile() })
	stopStart := eventbus.Subscribe(s.bus, func(eventbus.ContainerStartedEvent) { requestReconcile() })
	stopStop := eventbus.Subscribe(s.bus, func(eventbus.ContainerStoppedEvent) { requestReconcile() })
	defer stopRouter()
	defer stopStart()
	defer stopStop()

	s.reconcileAll(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	debounceTimer := time.NewTimer(s.debounce)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			eventbus.Publish(s.bus, eventbus.SystemShutdownEvent{})
			return ctx.Err()

		case <-ticker.C:
			s.reconcileAll(ctx)

		case <-trigger:
			if !pending {
				pending = true
				debounceTimer.Reset(s.debounce)
			}

		case <-debounceTimer.C:
			if pending {
				pending = false
				s.reconcileAll(ctx)
			}
		}
	}
}

// reconcileAll runs one full pass: gather desired records, route them to
// providers, reconcile each provider concurrently, then sweep orphans.
func (s *Scheduler) reconcileAll(ctx context.Context) {
	start := time.Now()

	var routerHostnames []string
	if s.routerSource != nil {
		routerHostnames = s.routerSource.Hostnames()
	}
	labelsByHostname := s.containerSource.LabelsByHostname()

	desired := s.resolver.Resolve(routerHostnames, labelsByHostname, s.managedHostnames)
	s.fillPendingLookups(desired)

	eventbus.Publish(s.bus, eventbus.DesiredRecordsUpdatedEvent{Count: len(desired)})
	metrics.HostnamesDiscovered.Set(float64(len(desired)))
	metrics.WorkloadsScanned.Set(float64(len(s.containerSource.ListRunning())))

	byProvider := make(map[string][]hostnameresolver.DesiredRecord)
	desiredNames := make(map[string]struct{}, len(desired))
	for _, rec := range desired {
		reg, ok := s.router.Route(rec.Name)
		if !ok {
			s.logger.Warn("scheduler: no provider registered for hostname", "hostname", rec.Name)
			continue
		}
		byProvider[reg.Name] = append(byProvider[reg.Name], rec)
		desiredNames[strings.ToLower(strings.TrimSuffix(rec.Name, "."))] = struct{}{}
	}

	sem := make(chan struct{}, max(1, len(s.providers)))
	var wg sync.WaitGroup
	var mu sync.Mutex
	totals := state.Document{}

	for name, prov := range s.providers {
		name, prov := name, prov
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result := s.reconcileProvider(ctx, name, prov, byProvider[name])
			s.sweepOrphans(ctx, name, prov, desiredNames, result)

			mu.Lock()
			totals.Created += result.CreatedCount()
			totals.Updated += result.UpdatedCount()
			totals.Deleted += result.DeletedCount()
			totals.Errors += result.FailedCount()
			mu.Unlock()
		}()
	}
	wg.Wait()

	if s.state != nil {
		s.state.Update(func(doc *state.Document) {
			doc.Created += totals.Created
			doc.Updated += totals.Updated
			doc.Deleted += totals.Deleted
			doc.Errors += totals.Errors
			doc.LastPoll = time.Now()
			if s.publicIPs != nil {
				doc.PublicIPv4 = s.publicIPs.IPv4()
				doc.PublicIPv6 = s.publicIPs.IPv6()
			}
		})
	}

	metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
	status := "success"
	if totals.Errors > 0 {
		status = "error"
	}
	metrics.ReconciliationsTotal.WithLabelValues(status).Inc()
}

// fillPendingLookups resolves needsPublicIPv4/IPv6 in place. A record whose
// lookup remains unavailable keeps its NeedsPublic* flag set; reconcileProvider
// excludes such records with ErrNoPublicIP rather than submitting empty
// content upstream.
func (s *Scheduler) fillPendingLookups(desired []hostnameresolver.DesiredRecord) {
	if s.publicIPs == nil {
		return
	}
	for i := range desired {
		if desired[i].NeedsPublicIPv4 {
			if ip := s.publicIPs.IPv4(); ip != "" {
				desired[i].Content = ip
				desired[i].NeedsPublicIPv4 = false
			}
		}
		if desired[i].NeedsPublicIPv6 {
			if ip := s.publicIPs.IPv6(); ip != "" {
				desired[i].Content = ip
				desired[i].NeedsPublicIPv6 = false
			}
		}
	}
}
