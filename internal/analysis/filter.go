// Package analysis classifies normalized swap events into per-wallet buy
// accumulations and volume buckets.
package analysis

import "github.com/HSfac/token-buyer-analyze/internal/domain"

// IsBuy reports whether the event is a buy of targetMint paid for with
// referenceMint. The reverse mapping is a sell and is rejected; this single
// direction check is the complete buy/sell discriminator.
func IsBuy(event domain.SwapEvent, referenceMint, targetMint string) bool {
	return event.InputMint == referenceMint && event.OutputMint == targetMint
}
