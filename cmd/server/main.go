// Package main runs the buyer analysis HTTP service: an analysis endpoint
// backed by the Helius upstream, optional snapshot persistence, Prometheus
// metrics and a websocket feed of run progress.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HSfac/token-buyer-analyze/internal/analyzer"
	"github.com/HSfac/token-buyer-analyze/internal/config"
	"github.com/HSfac/token-buyer-analyze/internal/helius"
	"github.com/HSfac/token-buyer-analyze/internal/httpapi"
	"github.com/HSfac/token-buyer-analyze/internal/ingestion"
	"github.com/HSfac/token-buyer-analyze/internal/progress"
	"github.com/HSfac/token-buyer-analyze/internal/storage"
	chstore "github.com/HSfac/token-buyer-analyze/internal/storage/clickhouse"
	"github.com/HSfac/token-buyer-analyze/internal/storage/memory"
	"github.com/HSfac/token-buyer-analyze/internal/storage/migrations"
	pgstore "github.com/HSfac/token-buyer-analyze/internal/storage/postgres"
)

// reportStores holds the persistence backends for analysis results.
type reportStores struct {
	snapshots   storage.SnapshotStore
	bucketStats storage.BucketStatsStore
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment.
	listenAddr := flag.String("listen-addr", cfg.ListenAddr, "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	noPersist := flag.Bool("no-persist", false, "Disable snapshot persistence entirely")
	flag.Parse()

	cfg.ListenAddr = *listenAddr
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if !*noPersist && !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal("POSTGRES_DSN and CLICKHOUSE_DSN are required (use --use-memory or --no-persist)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stores *reportStores
	cleanup := func() {}
	if !*noPersist {
		stores, cleanup, err = createStores(ctx, cfg, *useMemory, logger)
		if err != nil {
			logger.Fatalf("Failed to create stores: %v", err)
		}
	}
	defer cleanup()

	table, err := cfg.RangeTable()
	if err != nil {
		logger.Fatalf("Invalid range table: %v", err)
	}

	var clientOpts []helius.ClientOption
	if cfg.RPCEndpoint != "" {
		clientOpts = append(clientOpts, helius.WithRPCEndpoint(cfg.RPCEndpoint))
	}
	if cfg.APIEndpoint != "" {
		clientOpts = append(clientOpts, helius.WithAPIEndpoint(cfg.APIEndpoint))
	}
	client := helius.NewHTTPClient(cfg.HeliusAPIKey, clientOpts...)

	hub := httpapi.NewHub(logger)
	defer hub.Close()

	// The analyzer publishes into a broadcaster; the websocket hub is one
	// subscriber, so more consumers can attach without touching the pipeline.
	events := progress.NewBroadcaster()
	defer events.Close()
	hubCh, unsubscribe := events.Subscribe()
	defer unsubscribe()
	go func() {
		for e := range hubCh {
			hub.Publish(e)
		}
	}()

	a := analyzer.NewAnalyzer(
		ingestion.NewRPCSignatureSource(client, log.New(os.Stdout, "[ingestion] ", log.LstdFlags)),
		ingestion.NewResolver(client, ingestion.ResolverOptions{
			Concurrency: cfg.ResolveConcurrency,
			Logger:      log.New(os.Stdout, "[resolver] ", log.LstdFlags),
		}),
	).
		WithRangeTable(table).
		WithDefaultLimit(cfg.DefaultLimit).
		WithProgressSink(events).
		WithLogger(log.New(os.Stdout, "[analyzer] ", log.LstdFlags))
	if stores != nil {
		a = a.WithPersistence(stores.snapshots, stores.bucketStats)
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewServer(a, hub, logger).Routes(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Graceful shutdown failed: %v", err)
		}

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		default:
		}
	}()

	logger.Printf("Listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores connects persistence backends and applies migrations.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool, logger *log.Logger) (*reportStores, func(), error) {
	if useMemory {
		stores := &reportStores{
			snapshots:   memory.NewSnapshotStore(),
			bucketStats: memory.NewBucketStatsStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	logger.Println("Storage ready")

	stores := &reportStores{
		snapshots:   pgstore.NewSnapshotStore(pool),
		bucketStats: chstore.NewBucketStatsStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
