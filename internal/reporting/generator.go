package reporting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
)

// Generator assembles reports from classified bucket results. Pure
// composition: no network or storage side effects at this layer.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate stamps the snapshot time, copies the bucket results into the wire
// shape, and recomputes the report totals from the buckets as a cross-check.
// The table orders the buckets and must be the one the classifier used; a
// missing bucket key or a count/wallet mismatch is an internal error.
func (g *Generator) Generate(token string, table domain.RangeTable, buckets map[string]*domain.BucketResult, run RunSummary) (*Report, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid range table: %w", err)
	}

	keys := table.Keys()
	out := make(map[string]Bucket, len(keys))
	uniqueBuyers := 0
	totalVolume := decimal.Zero

	for _, key := range keys {
		b, ok := buckets[key]
		if !ok {
			return nil, fmt.Errorf("bucket %s missing from classification", key)
		}
		if b.Count != len(b.Wallets) {
			return nil, fmt.Errorf("bucket %s: count %d does not match %d wallets", key, b.Count, len(b.Wallets))
		}
		wallets := b.Wallets
		if wallets == nil {
			wallets = []string{}
		}
		out[key] = Bucket{
			Wallets:  wallets,
			Count:    b.Count,
			TotalSol: b.TotalAmount,
		}
		uniqueBuyers += b.Count
		totalVolume = totalVolume.Add(b.TotalAmount)
	}
	if len(buckets) != len(keys) {
		return nil, fmt.Errorf("classification has %d buckets, table defines %d", len(buckets), len(keys))
	}

	return &Report{
		Token:            token,
		SnapshotTime:     g.now().UTC().Format(time.RFC3339),
		UniqueBuyers:     uniqueBuyers,
		TotalBuyVolume:   totalVolume,
		BuyersBySolRange: out,
		Run:              run,
		rangeKeys:        keys,
	}, nil
}
