// Package analyzer orchestrates a full analysis run: fetch signatures,
// resolve transactions, filter buys, aggregate per wallet, classify into
// volume ranges and assemble the report.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/HSfac/token-buyer-analyze/internal/analysis"
	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/idhash"
	"github.com/HSfac/token-buyer-analyze/internal/ingestion"
	"github.com/HSfac/token-buyer-analyze/internal/observability"
	"github.com/HSfac/token-buyer-analyze/internal/progress"
	"github.com/HSfac/token-buyer-analyze/internal/reporting"
	"github.com/HSfac/token-buyer-analyze/internal/storage"
)

// ErrInvalidInput is returned when request validation fails. Validation runs
// before any upstream call.
var ErrInvalidInput = errors.New("invalid input")

// DefaultLimit bounds signature fetching when a request does not set a limit.
const DefaultLimit = 200

// Request describes one analysis run.
type Request struct {
	Token     string
	StartTime time.Time // zero means unbounded
	EndTime   time.Time // zero means unbounded
	Limit     int       // 0 means the analyzer default
}

// Analyzer runs the buyer classification pipeline. Construct with
// NewAnalyzer, configure with the With* chain, then call Run per request.
// One Analyzer serves many concurrent runs; per-run state lives in Run.
type Analyzer struct {
	source   ingestion.SignatureSource
	resolver *ingestion.Resolver
	table    domain.RangeTable

	defaultLimit int
	sink         progress.Sink
	logger       *log.Logger
	clock        func() time.Time

	// Optional persistence. Nil stores mean reports are not persisted.
	snapshots   storage.SnapshotStore
	bucketStats storage.BucketStatsStore
}

// NewAnalyzer creates an analyzer over the given source and resolver using
// the default range table.
func NewAnalyzer(source ingestion.SignatureSource, resolver *ingestion.Resolver) *Analyzer {
	return &Analyzer{
		source:       source,
		resolver:     resolver,
		table:        domain.DefaultRangeTable(),
		defaultLimit: DefaultLimit,
		sink:         progress.NopSink{},
		logger:       log.New(log.Writer(), "[analyzer] ", log.LstdFlags),
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// WithRangeTable sets a custom volume range table.
func (a *Analyzer) WithRangeTable(table domain.RangeTable) *Analyzer {
	a.table = table
	return a
}

// WithDefaultLimit sets the limit applied when a request leaves it zero.
func (a *Analyzer) WithDefaultLimit(limit int) *Analyzer {
	a.defaultLimit = limit
	return a
}

// WithProgressSink sets the sink receiving progress events.
func (a *Analyzer) WithProgressSink(sink progress.Sink) *Analyzer {
	a.sink = sink
	return a
}

// WithLogger sets the logger.
func (a *Analyzer) WithLogger(logger *log.Logger) *Analyzer {
	a.logger = logger
	return a
}

// WithClock sets a custom clock function for deterministic output.
func (a *Analyzer) WithClock(clock func() time.Time) *Analyzer {
	a.clock = clock
	return a
}

// WithPersistence enables snapshot persistence. Both stores must be set.
func (a *Analyzer) WithPersistence(snapshots storage.SnapshotStore, bucketStats storage.BucketStatsStore) *Analyzer {
	a.snapshots = snapshots
	a.bucketStats = bucketStats
	return a
}

// validate checks the request and fills in defaults. Returns the effective
// limit and window.
func (a *Analyzer) validate(req Request) (int, domain.TimeWindow, error) {
	if err := domain.ValidateTokenAddress(req.Token); err != nil {
		return 0, domain.TimeWindow{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	limit := req.Limit
	if limit == 0 {
		limit = a.defaultLimit
	}
	if limit < 1 || limit > ingestion.MaxSignatureLimit {
		return 0, domain.TimeWindow{}, fmt.Errorf("%w: limit %d out of range [1, %d]",
			ErrInvalidInput, limit, ingestion.MaxSignatureLimit)
	}

	window := domain.TimeWindow{Start: req.StartTime, End: req.EndTime}
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.EndTime.Before(req.StartTime) {
		return 0, domain.TimeWindow{}, fmt.Errorf("%w: end_time before start_time", ErrInvalidInput)
	}

	return limit, window, nil
}

// Run executes one analysis. Per-signature failures are absorbed into the
// report's run summary; run-level failures (invalid input, source outage,
// authentication) abort and are returned.
func (a *Analyzer) Run(ctx context.Context, req Request) (*reporting.Report, error) {
	started := a.clock()

	limit, window, err := a.validate(req)
	if err != nil {
		observability.RecordAnalysisRun("invalid_input", 0)
		return nil, err
	}

	// Mints are normally keypair-derived. An off-curve mint is a
	// program-derived address; legal, but worth flagging in the run log.
	if !domain.IsOnCurve(req.Token) {
		a.logger.Printf("token %s: off-curve address (program-derived)", req.Token)
	}

	a.sink.Publish(progress.Event{Token: req.Token, Stage: progress.StageFetching})

	records, err := a.source.Fetch(ctx, req.Token, window, limit)
	if err != nil {
		observability.RecordAnalysisRun("failed", a.clock().Sub(started).Seconds())
		return nil, err
	}
	observability.RecordSignaturesFetched(len(records))
	a.logger.Printf("token %s: fetched %d signatures", req.Token, len(records))

	a.sink.Publish(progress.Event{
		Token: req.Token,
		Stage: progress.StageResolving,
		Total: len(records),
	})
	resolutions := a.resolver.ResolveMany(ctx, records, func(done, total int) {
		a.sink.Publish(progress.Event{
			Token: req.Token,
			Stage: progress.StageResolving,
			Done:  done,
			Total: total,
		})
	})
	if err := ctx.Err(); err != nil {
		observability.RecordAnalysisRun("failed", a.clock().Sub(started).Seconds())
		return nil, err
	}

	agg := analysis.NewAggregator()
	run := reporting.RunSummary{SignaturesSeen: len(records)}
	for _, res := range resolutions {
		observability.RecordResolution(res.Outcome.String())
		switch res.Outcome {
		case ingestion.OutcomeSwap:
			if analysis.IsBuy(*res.Event, domain.WSOLMint, req.Token) {
				// Duplicates land in the duplicates counter, not in
				// swaps_matched; each buy is booked exactly once.
				if agg.Add(*res.Event) {
					run.SwapsMatched++
				}
			} else {
				run.NotSwap++
			}
		case ingestion.OutcomeNotSwap:
			run.NotSwap++
		case ingestion.OutcomeUnparseable:
			run.Skipped.Unparseable++
			a.logger.Printf("token %s: signature %s unparseable: %v", req.Token, res.Signature, res.Err)
		case ingestion.OutcomeFailed:
			run.Skipped.Failed++
			a.logger.Printf("token %s: signature %s failed: %v", req.Token, res.Signature, res.Err)
		}
	}
	run.Skipped.Total = run.Skipped.Unparseable + run.Skipped.Failed
	run.Duplicates = agg.Duplicates()

	buckets, err := analysis.Classify(agg.Finalize(), a.table)
	if err != nil {
		observability.RecordAnalysisRun("failed", a.clock().Sub(started).Seconds())
		return nil, fmt.Errorf("classify: %w", err)
	}
	a.sink.Publish(progress.Event{Token: req.Token, Stage: progress.StageClassified})

	report, err := reporting.NewGenerator().WithClock(a.clock).Generate(req.Token, a.table, buckets, run)
	if err != nil {
		observability.RecordAnalysisRun("failed", a.clock().Sub(started).Seconds())
		return nil, fmt.Errorf("generate report: %w", err)
	}

	if a.snapshots != nil && a.bucketStats != nil {
		if err := a.persist(ctx, report, buckets); err != nil {
			observability.RecordAnalysisRun("failed", a.clock().Sub(started).Seconds())
			return nil, err
		}
	}

	duration := a.clock().Sub(started).Seconds()
	observability.RecordAnalysisRun("completed", duration)
	observability.DefaultMetrics.BuyersClassified.Add(float64(report.UniqueBuyers))
	observability.DefaultMetrics.ReportsGenerated.Inc()
	observability.DefaultMetrics.LastSuccessfulRun.Set(float64(a.clock().Unix()))

	if run.Skipped.Total > 0 {
		a.logger.Printf("token %s: completed with %d skipped", req.Token, run.Skipped.Total)
	}
	a.sink.Publish(progress.Event{Token: req.Token, Stage: progress.StageDone})

	return report, nil
}

// persist stores the report snapshot and its bucket stats. A duplicate
// snapshot means an identical report was already stored; that is treated as
// success, not an error.
func (a *Analyzer) persist(ctx context.Context, report *reporting.Report, buckets map[string]*domain.BucketResult) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	snapshotTime, err := time.Parse(time.RFC3339, report.SnapshotTime)
	if err != nil {
		return fmt.Errorf("parse snapshot time: %w", err)
	}
	snapshotMs := snapshotTime.UnixMilli()

	snapshotID := idhash.ComputeSnapshotID(
		report.Token,
		snapshotMs,
		report.UniqueBuyers,
		report.TotalBuyVolume.String(),
	)

	snap := &domain.ReportSnapshot{
		SnapshotID:     snapshotID,
		Token:          report.Token,
		SnapshotTime:   snapshotMs,
		UniqueBuyers:   report.UniqueBuyers,
		TotalBuyVolume: report.TotalBuyVolume,
		Payload:        payload,
		CreatedAt:      a.clock().UnixMilli(),
	}
	if err := a.snapshots.Insert(ctx, snap); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			a.logger.Printf("token %s: snapshot %s already stored", report.Token, snapshotID)
			return nil
		}
		return fmt.Errorf("persist snapshot: %w", err)
	}

	stats := make([]*domain.BucketStat, 0, len(buckets))
	for _, key := range report.RangeKeys() {
		b := buckets[key]
		stats = append(stats, &domain.BucketStat{
			SnapshotID:   snapshotID,
			Token:        report.Token,
			SnapshotTime: snapshotMs,
			RangeKey:     key,
			WalletCount:  b.Count,
			TotalAmount:  b.TotalAmount,
		})
	}
	if err := a.bucketStats.InsertBulk(ctx, stats); err != nil {
		return fmt.Errorf("persist bucket stats: %w", err)
	}

	return nil
}
