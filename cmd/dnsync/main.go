// dnsync provides automatic DNS record management for Docker containers.
// It watches Docker/Swarm for container events, extracts hostnames from reverse
// proxy labels (Traefik, etc.), and syncs DNS records to one or more providers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"dnsync/internal/config"
	"dnsync/internal/containersource"
	"dnsync/internal/docker"
	"dnsync/internal/eventbus"
	"dnsync/internal/health"
	"dnsync/internal/hostnameresolver"
	"dnsync/internal/metrics"
	"dnsync/internal/orphanreaper"
	"dnsync/internal/providerrouter"
	"dnsync/internal/publicip"
	"dnsync/internal/routersource"
	"dnsync/internal/scheduler"
	"dnsync/internal/state"
	"dnsync/pkg/provider"
	"dnsync/providers/cloudflare"
	"dnsync/providers/dnsmasq"
	"dnsync/providers/pihole"
	"dnsync/providers/powerdns"
	"dnsync/providers/rfc2136"
	"dnsync/providers/route53"
	"dnsync/providers/technitium"
	"dnsync/providers/webhook"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to YAML configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dnsync %s (built %s)\n", Version, BuildDate)
		os.Exit(0)
	}

	// If --config flag is set, set it as env var so config.Load() picks it up
	// This maintains the priority: env var (DNSYNC_CONFIG) > --config flag
	if *configPath != "" && os.Getenv("DNSYNC_CONFIG") == "" {
		if err := os.Setenv("DNSYNC_CONFIG", *configPath); err != nil {
			slog.Error("failed to set DNSYNC_CONFIG", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration first (fail fast per DECISIONS.md)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Set up structured logging
	logger := setupLogger(cfg.LogLevel(), cfg.LogFormat())
	slog.SetDefault(logger)

	// Set build info metrics
	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("dnsync starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.Bool("dry_run", cfg.DryRun()),
		slog.Bool("adopt_existing", cfg.AdoptExisting()),
	)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Docker client
	dockerClient, err := docker.NewClient(ctx,
		docker.WithHost(cfg.DockerHost()),
		docker.WithMode(parseDockerMode(cfg.DockerMode())),
		docker.WithLogger(logger),
		docker.WithCleanupOnStop(cfg.CleanupOnStop()),
	)
	if err != nil {
		return fmt.Errorf("creating docker client: %w", err)
	}
	defer func() { _ = dockerClient.Close() }()

	logger.Info("docker client connected",
		slog.String("mode", dockerClient.Mode().String()),
	)

	// Initialize event bus: the spine connecting sources, the scheduler,
	// and the state store.
	bus := eventbus.New(eventbus.WithLogger(logger))

	// Initialize provider registry and manager (#125)
	// The manager handles graceful initialization - providers that fail to connect
	// are retried in the background instead of causing a fatal error.
	providerRegistry := provider.NewRegistry(logger)
	registerProviderFactories(providerRegistry)

	providerManager := provider.NewManager(providerRegistry,
		provider.WithManagerLogger(logger),
	)
	if err := initializeProviders(providerManager, cfg); err != nil {
		return fmt.Errorf("initializing providers: %w", err)
	}

	// Start provider manager background retry loop
	if err := providerManager.Start(ctx); err != nil {
		return fmt.Errorf("starting provider manager: %w", err)
	}
	defer providerManager.Stop()

	// Log provider status summary
	if providerManager.PendingCount() > 0 {
		logger.Warn("some providers failed to initialize and will be retried",
			slog.Int("ready", providerManager.ReadyCount()),
			slog.Int("pending", providerManager.PendingCount()),
		)
		for _, status := range providerManager.PendingProviders() {
			logger.Warn("pending provider",
				slog.String("provider", status.Name),
				slog.String("type", status.Type),
				slog.String("error", status.LastError),
			)
		}
	}

	// Initialize the container source: tracks running workloads and their
	// labels, driven by the Docker event stream.
	containerSrc := containersource.New(dockerClient,
		containersource.WithEventBus(bus),
		containersource.WithLogger(logger),
		containersource.WithDNSLabel(cfg.DNSLabelPrefix()+".hostname"),
	)

	// Initialize the router source: polls a Traefik-compatible router API
	// for Host(...) rules, when one is configured.
	var routerSrc *routersource.Source
	if cfg.Spec.TraefikAPIBaseURL != "" {
		routerSrc = routersource.New(strings.TrimSuffix(cfg.Spec.TraefikAPIBaseURL, "/")+config.DefaultRouterSourcePath,
			routersource.WithEventBus(bus),
			routersource.WithLogger(logger),
		)
	}

	// Initialize the public IP resolver: static config always wins over
	// network discovery.
	publicIPs := publicip.New(
		publicip.WithLogger(logger),
		publicip.WithStaticIPs(cfg.Spec.PublicIPv4, cfg.Spec.PublicIPv6),
	)
	if cfg.Spec.PublicIPv4 == "" || cfg.Spec.PublicIPv6 == "" {
		if err := publicIPs.Refresh(ctx); err != nil {
			logger.Warn("initial public IP discovery failed", slog.String("error", err.Error()))
		}
		go publicIPs.Run(ctx, cfg.Spec.IPRefreshInterval)
	}

	// Initialize the hostname resolver: merges router/container/managed
	// hostnames into the desired-record set.
	resolver := hostnameresolver.New(hostnameresolver.Defaults{
		Type:    provider.RecordType(cfg.Spec.DNSDefaultType),
		Content: cfg.Spec.DNSDefaultContent,
		TTL:     cfg.Spec.DNSDefaultTTL,
		Proxied: cfg.Spec.DNSDefaultProxied,
	}, hostnameresolver.WithLabelPrefix(cfg.DNSLabelPrefix()), hostnameresolver.WithLogger(logger))

	// Initialize the provider router: binds each configured provider
	// instance to the zone it is authoritative for.
	registrations := make([]providerrouter.Registration, len(cfg.ProviderZones()))
	for i, z := range cfg.ProviderZones() {
		registrations[i] = providerrouter.Registration{Name: z.Name, Zone: z.Zone, IsDefault: z.IsDefault}
	}
	router := providerrouter.New(registrations)

	// Initialize the orphan reaper: deletes unclaimed records once they
	// exceed the configured grace period.
	reaper := orphanreaper.New(
		orphanreaper.WithGracePeriod(cfg.CleanupGracePeriod()),
		orphanreaper.WithPreservedHostnames(cfg.PreservedHostnames()),
		orphanreaper.WithEventBus(bus),
		orphanreaper.WithLogger(logger),
	)

	// Initialize the state store: persists run counters and discovered
	// public IPs across restarts.
	stateStore := state.New(cfg.Spec.StateFilePath,
		state.WithDebounce(cfg.Spec.StateDebounce),
		state.WithLogger(logger),
	)

	// Start health server with provider manager status (#10, #125)
	healthServer := health.New(cfg.HealthPort(),
		health.WithLogger(logger),
	)

	// Register provider health checkers for /ready endpoint
	// Ready providers get connectivity checks
	for _, inst := range providerRegistry.All() {
		inst := inst // capture for closure
		healthServer.RegisterChecker("provider:"+inst.Name(), func(ctx context.Context) error {
			return inst.Ping(ctx)
		})
	}

	// Register a degraded checker for pending providers (#125)
	// This reports degraded status (not unhealthy) when providers are pending
	healthServer.RegisterDegradedChecker("provider-manager", func(ctx context.Context) (bool, string) {
		if providerManager.PendingCount() > 0 {
			pending := providerManager.PendingProviders()
			names := make([]string, len(pending))
			for i, p := range pending {
				names[i] = p.Name
			}
			return true, fmt.Sprintf("%d providers pending: %v", len(pending), names)
		}
		return false, ""
	})

	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	// Start the container source (cold list + live Docker event stream).
	if err := containerSrc.Start(ctx); err != nil {
		return fmt.Errorf("starting container source: %w", err)
	}
	defer containerSrc.Stop()

	// Start the router source, if a Traefik-compatible API was configured.
	if routerSrc != nil {
		if err := routerSrc.Start(ctx); err != nil {
			return fmt.Errorf("starting router source: %w", err)
		}
		defer routerSrc.Stop()
	}

	// Build the bare provider map the scheduler reconciles against, keyed
	// by configured instance name.
	providers := make(map[string]provider.Provider, len(providerRegistry.All()))
	for _, inst := range providerRegistry.All() {
		providers[inst.Name()] = inst.Provider
	}

	sched := scheduler.New(scheduler.Config{
		Bus:              bus,
		ContainerSource:  containerSrc,
		RouterSource:     routerSrc,
		Resolver:         resolver,
		Router:           router,
		Providers:        providers,
		Reaper:           reaper,
		State:            stateStore,
		PublicIPs:        publicIPs,
		ManagedHostnames: cfg.ManagedHostnames(),
		OperationMode:    cfg.OperationMode(),
		PollInterval:     cfg.PollInterval(),
		Concurrency:      cfg.ProviderConcurrency(),
		Logger:           logger,
	})

	schedulerErr := make(chan error, 1)
	go func() { schedulerErr <- sched.Run(ctx) }()

	logger.Info("dnsync initialized, watching for changes",
		slog.Int("providers", providerRegistry.Count()),
		slog.Bool("router_source", routerSrc != nil),
		slog.Duration("poll_interval", cfg.PollInterval()),
		slog.Int("health_port", cfg.HealthPort()),
	)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		// Graceful shutdown
		logger.Info("shutting down...")
		cancel()
		<-schedulerErr
	case err := <-schedulerErr:
		if err != nil && err != context.Canceled {
			logger.Error("scheduler stopped unexpectedly", slog.String("error", err.Error()))
		}
		cancel()
	}

	if err := stateStore.Flush(context.Background()); err != nil {
		logger.Warn("state flush error", slog.String("error", err.Error()))
	}

	// Shutdown health server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("dnsync shutdown complete")
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDockerMode(mode string) docker.Mode {
	switch mode {
	case "swarm":
		return docker.ModeSwarm
	case "standalone":
		return docker.ModeStandalone
	default:
		return docker.ModeAuto
	}
}

func registerProviderFactories(registry *provider.Registry) {
	// Register Technitium provider factory (private DNS)
	registry.RegisterFactory("technitium", technitium.Factory())

	// Register Cloudflare provider factory (public DNS)
	registry.RegisterFactory("cloudflare", cloudflare.Factory())

	// Register Webhook provider factory (custom integrations)
	registry.RegisterFactory("webhook", webhook.Factory())

	// Register dnsmasq provider factory (local DNS, Pi-hole backend)
	registry.RegisterFactory("dnsmasq", dnsmasq.Factory())

	// Register Pi-hole provider factory (local DNS via Pi-hole API or file mode)
	registry.RegisterFactory("pihole", pihole.Factory())

	// Register RFC 2136 provider factory (BIND, Windows DNS, PowerDNS, etc.)
	registry.RegisterFactory("rfc2136", rfc2136.Factory())

	// Register AWS Route53 provider factory (public DNS)
	registry.RegisterFactory("route53", route53.Factory())

	// Register PowerDNS provider factory (authoritative server HTTP API)
	registry.RegisterFactory("powerdns", powerdns.Factory())
}

// initializeProviders initializes all configured providers using the manager.
// It does not fail if a provider is temporarily unavailable - the manager
// queues it for retry instead; only invalid configuration returns an error.
func initializeProviders(manager *provider.Manager, cfg *config.Config) error {
	for _, inst := range cfg.ProviderInstances {
		providerCfg := inst.ToProviderConfig()
		if err := manager.InitializeProvider(providerCfg); err != nil {
			// Only returns error for invalid configuration (not connection failures)
			return fmt.Errorf("invalid provider config %s: %w", inst.Name, err)
		}
	}
	return nil
}
