package domain

import "github.com/shopspring/decimal"

// SwapEvent is a normalized token-for-token exchange extracted from one
// transaction. At most one event is produced per transaction; transactions
// that are not swaps, or whose payload cannot be parsed, yield no event.
type SwapEvent struct {
	Signature  string
	Timestamp  int64 // Unix timestamp in milliseconds
	Wallet     string
	InputMint  string
	OutputMint string
	AmountIn   decimal.Decimal // input amount in reference-currency units
}

// Valid reports whether the event satisfies the basic shape invariants:
// non-empty identity fields and a non-negative input amount.
func (e SwapEvent) Valid() bool {
	return e.Signature != "" &&
		e.Wallet != "" &&
		e.InputMint != "" &&
		e.OutputMint != "" &&
		!e.AmountIn.IsNegative()
}
