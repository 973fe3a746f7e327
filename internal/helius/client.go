// Package helius provides clients for the two Helius upstreams used by the
// analysis pipeline: the JSON-RPC signature listing and the enhanced
// transaction lookup.
package helius

import "context"

// Client defines the upstream interface consumed by the pipeline.
type Client interface {
	// GetSignaturesForAddress retrieves transaction signatures referencing an
	// address, most recent first, with cursor pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves the enhanced (parsed) transaction record for a
	// signature. Returns (nil, nil) if the transaction is unknown upstream.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
