package analysis

import (
	"github.com/HSfac/token-buyer-analyze/internal/domain"
)

// Aggregator accumulates buy volume per wallet. It is a single-writer
// structure: resolution results are merged sequentially after fan-in, so no
// locking is needed. Each analysis run owns its own aggregator.
type Aggregator struct {
	accs map[string]*domain.WalletAccumulation
	seen map[string]map[string]struct{} // wallet -> contributed signatures

	duplicates int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		accs: make(map[string]*domain.WalletAccumulation),
		seen: make(map[string]map[string]struct{}),
	}
}

// Add records one accepted swap event and reports whether it contributed.
// The same signature contributing twice to a wallet is skipped: pagination
// overlap upstream makes duplicate fetches an expected input, and
// double-counting would break the report invariants.
func (a *Aggregator) Add(event domain.SwapEvent) bool {
	contributed, ok := a.seen[event.Wallet]
	if !ok {
		contributed = make(map[string]struct{})
		a.seen[event.Wallet] = contributed
	}
	if _, dup := contributed[event.Signature]; dup {
		a.duplicates++
		return false
	}
	contributed[event.Signature] = struct{}{}

	acc, ok := a.accs[event.Wallet]
	if !ok {
		acc = &domain.WalletAccumulation{Wallet: event.Wallet}
		a.accs[event.Wallet] = acc
	}
	acc.TotalAmount = acc.TotalAmount.Add(event.AmountIn)
	acc.Signatures = append(acc.Signatures, event.Signature)
	return true
}

// Duplicates returns how many duplicate contributions were skipped.
func (a *Aggregator) Duplicates() int {
	return a.duplicates
}

// Finalize returns the accumulation map. The map and its values must not be
// mutated afterwards; the aggregation pass is complete.
func (a *Aggregator) Finalize() map[string]*domain.WalletAccumulation {
	return a.accs
}
