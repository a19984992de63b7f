// Package main is the entry point for the swap-box trading core.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/swapbox/business/blockchain"
	blockchainDI "github.com/fd1az/swapbox/business/blockchain/di"
	"github.com/fd1az/swapbox/business/broker"
	brokerDI "github.com/fd1az/swapbox/business/broker/di"
	"github.com/fd1az/swapbox/business/pricing"
	"github.com/fd1az/swapbox/business/settlement"
	"github.com/fd1az/swapbox/internal/apm"
	"github.com/fd1az/swapbox/internal/config"
	"github.com/fd1az/swapbox/internal/health"
	"github.com/fd1az/swapbox/internal/logger"
	"github.com/fd1az/swapbox/internal/metrics"
	"github.com/fd1az/swapbox/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("swapbox %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	// Run application
	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.EffectiveLogLevel()), cfg.App.Name, apm.TraceIDFromContext)
	log.Info(ctx, "starting swapbox",
		"version", version,
		"environment", cfg.App.Environment,
		"transport", cfg.Messaging.Transport,
	)

	// Initialize observability if enabled
	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to start telemetry: %w", err)
		}
		defer stop()
	}

	// Start health check server
	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer healthServer.Stop(context.Background())

	// Create monolith (application container)
	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // node health, gas, machine account
		&pricing.Module{},    // reserves and quotes
		&settlement.Module{}, // depends on blockchain and pricing
		&broker.Module{},     // depends on all of the above
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	chain := blockchainDI.GetBlockchainService(mono.Services())
	channel := brokerDI.GetChannel(mono.Services())
	defer channel.Close()

	healthServer.RegisterCheck("node", func(ctx context.Context) (bool, string) {
		status, err := chain.Status(ctx)
		if err != nil {
			return false, err.Error()
		}
		if !status.Ready() {
			return false, fmt.Sprintf("connected=%t syncing=%t block=%d/%d",
				status.IsConnected, status.IsSyncing, status.CurrentBlock, status.HighestBlock)
		}
		return true, fmt.Sprintf("block %d, %d peers", status.CurrentBlock, status.PeerCount)
	})
	healthServer.RegisterCheck("transport", channel.Healthy)

	return serve(ctx, mono, log)
}

// serve runs the broker and the ticker until ctx ends.
func serve(ctx context.Context, mono monolith.Monolith, log logger.LoggerInterface) error {
	orderBroker := brokerDI.GetBroker(mono.Services())
	ticker := brokerDI.GetTicker(mono.Services())

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- orderBroker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errCh <- ticker.Run(ctx)
	}()

	log.Info(ctx, "all modules started, serving orders")

	// Wait for shutdown
	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// startTelemetry installs tracing and metrics. The returned func flushes them.
func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	provider := apm.ParseProvider(cfg.Telemetry.TraceProvider)

	traceProvider, err := apm.NewTraceProvider(log, provider, apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	})
	if err != nil {
		return nil, err
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if provider == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		opts = append(opts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint,
			apm.ParseHeaders(cfg.Telemetry.OTLPHeaders),
			strings.HasPrefix(cfg.Telemetry.OTLPEndpoint, "http://"),
		)))
	}

	meterProvider, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		traceProvider.Stop()
		return nil, err
	}

	// Prometheus scrape endpoint; port 0 leaves it off
	var promServer *metrics.PrometheusServer
	if port := cfg.Telemetry.PrometheusPort; port > 0 {
		promServer = metrics.NewPrometheusServer(log, metrics.WithPort(strconv.Itoa(port)))
		promServer.Start()
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if promServer != nil {
			if err := promServer.Stop(shutdownCtx); err != nil {
				log.Warn(ctx, "metrics server shutdown", "error", err)
			}
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "meter provider shutdown", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(ctx, "trace provider shutdown", "error", err)
		}
	}, nil
}
