package domain

import "github.com/shopspring/decimal"

// WalletAccumulation is the running buy total for one wallet together with
// the signatures that contributed to it. Mutated only during the aggregation
// pass; read-only afterwards.
type WalletAccumulation struct {
	Wallet      string
	TotalAmount decimal.Decimal
	Signatures  []string // contribution order, oldest contribution first seen
}

// BucketResult groups the wallets whose accumulated totals fall inside one
// configured volume range.
type BucketResult struct {
	RangeKey    string
	Wallets     []string // sorted for stable display
	Count       int
	TotalAmount decimal.Decimal
}
