package analysis

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
)

// Classify partitions wallet accumulations into the configured volume
// ranges. Every range appears in the result, empty ones included, so callers
// never special-case absent keys. Wallet lists are sorted for stable display.
func Classify(accs map[string]*domain.WalletAccumulation, table domain.RangeTable) (map[string]*domain.BucketResult, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid range table: %w", err)
	}

	buckets := make(map[string]*domain.BucketResult, len(table))
	for _, key := range table.Keys() {
		buckets[key] = &domain.BucketResult{
			RangeKey:    key,
			Wallets:     []string{},
			TotalAmount: decimal.Zero,
		}
	}

	for wallet, acc := range accs {
		key, ok := table.Locate(acc.TotalAmount)
		if !ok {
			// Non-negative totals always map; a miss means a negative total
			// slipped past the event invariant.
			return nil, fmt.Errorf("no range for wallet %s total %s", wallet, acc.TotalAmount)
		}
		b := buckets[key]
		b.Wallets = append(b.Wallets, wallet)
		b.TotalAmount = b.TotalAmount.Add(acc.TotalAmount)
	}

	for _, b := range buckets {
		sort.Strings(b.Wallets)
		b.Count = len(b.Wallets)
	}

	return buckets, nil
}
