// Package main runs a single buyer analysis from the command line and
// prints the report to stdout as JSON, CSV or Markdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HSfac/token-buyer-analyze/internal/analyzer"
	"github.com/HSfac/token-buyer-analyze/internal/config"
	"github.com/HSfac/token-buyer-analyze/internal/helius"
	"github.com/HSfac/token-buyer-analyze/internal/ingestion"
	"github.com/HSfac/token-buyer-analyze/internal/progress"
	"github.com/HSfac/token-buyer-analyze/internal/reporting"
)

func main() {
	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	token := flag.String("token", "", "Token mint address to analyze (required)")
	start := flag.String("start", "", "Window start as RFC3339 (optional)")
	end := flag.String("end", "", "Window end as RFC3339 (optional)")
	limit := flag.Int("limit", 0, "Maximum signatures to fetch (0 = default)")
	format := flag.String("format", "json", "Output format: json, csv or markdown")
	verbose := flag.Bool("verbose", false, "Log pipeline progress to stderr")
	flag.Parse()

	if *token == "" {
		logger.Fatal("--token is required")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	req := analyzer.Request{Token: *token, Limit: *limit}
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			logger.Fatalf("Invalid --start: %v", err)
		}
		req.StartTime = t
	}
	if *end != "" {
		t, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			logger.Fatalf("Invalid --end: %v", err)
		}
		req.EndTime = t
	}

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

	a := analyzer.NewAnalyzer(
		ingestion.NewRPCSignatureSource(client, logger),
		ingestion.NewResolver(client, ingestion.ResolverOptions{
			Concurrency: cfg.ResolveConcurrency,
			Logger:      logger,
		}),
	).
		WithRangeTable(table).
		WithDefaultLimit(cfg.DefaultLimit).
		WithLogger(logger)

	if *verbose {
		a = a.WithProgressSink(progress.SinkFunc(func(e progress.Event) {
			if e.Total > 0 {
				logger.Printf("%s: %d/%d", e.Stage, e.Done, e.Total)
			} else {
				logger.Printf("%s", e.Stage)
			}
		}))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := a.Run(ctx, req)
	if err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Fatalf("Encode report: %v", err)
		}
	case "csv":
		fmt.Print(reporting.RenderCSV(report))
	case "markdown":
		fmt.Print(reporting.RenderMarkdown(report))
	default:
		logger.Fatalf("Unknown format %q", *format)
	}
}
