// Package ingestion collects candidate transaction signatures for a token
// and resolves them into normalized swap events.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/helius"
	"github.com/HSfac/token-buyer-analyze/internal/observability"
)

// MaxSignatureLimit caps how many signatures a single run may fetch,
// bounding downstream resolution work.
const MaxSignatureLimit = 10000

// pageSize is the per-request signature page; upstream caps pages at 1000.
const pageSize = 1000

// SignatureSource produces an ordered, deduplicated sequence of signature
// records for a token.
type SignatureSource interface {
	// Fetch returns up to limit signature records for the token, most recent
	// first. The limit bounds signatures fetched from the source, not
	// signatures that later resolve into events.
	Fetch(ctx context.Context, token string, window domain.TimeWindow, limit int) ([]domain.SignatureRecord, error)
}

// RPCSignatureSource fetches signatures through the Helius JSON-RPC listing.
type RPCSignatureSource struct {
	client helius.Client
	logger *log.Logger
}

// Compile-time interface check.
var _ SignatureSource = (*RPCSignatureSource)(nil)

// NewRPCSignatureSource creates a signature source backed by the given client.
func NewRPCSignatureSource(client helius.Client, logger *log.Logger) *RPCSignatureSource {
	if logger == nil {
		logger = log.Default()
	}
	return &RPCSignatureSource{client: client, logger: logger}
}

// Fetch pages backwards through the listing with a before-cursor until limit
// is reached, the source is exhausted, or block times fall before the window
// start. Signatures already returned in this call are dropped; pagination
// overlap upstream is expected.
func (s *RPCSignatureSource) Fetch(ctx context.Context, token string, window domain.TimeWindow, limit int) ([]domain.SignatureRecord, error) {
	if limit <= 0 || limit > MaxSignatureLimit {
		limit = MaxSignatureLimit
	}

	var (
		records []domain.SignatureRecord
		seen    = make(map[string]struct{}, limit)
		before  string
	)

	for len(records) < limit {
		opts := &helius.SignaturesOpts{Limit: pageSize}
		if remaining := limit - len(records); remaining < pageSize {
			opts.Limit = remaining
		}
		if before != "" {
			opts.Before = before
		}

		sigs, err := s.client.GetSignaturesForAddress(ctx, token, opts)
		if err != nil {
			if errors.Is(err, helius.ErrAuthentication) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: get signatures for %s: %v", helius.ErrSourceUnavailable, token, err)
		}
		observability.DefaultMetrics.SignaturePagesTotal.Inc()
		if len(sigs) == 0 {
			break
		}

		for _, sig := range sigs {
			// Skip failed transactions outright.
			if sig.Err != nil {
				continue
			}
			if _, dup := seen[sig.Signature]; dup {
				continue
			}

			var blockTime int64
			if sig.BlockTime != nil {
				blockTime = *sig.BlockTime
			}

			// Paginating backwards in time: past the window start, the rest
			// of the listing is older still.
			if blockTime > 0 && window.Before(blockTime) {
				return records, nil
			}
			if blockTime > 0 && !window.Contains(blockTime) {
				continue
			}

			seen[sig.Signature] = struct{}{}
			records = append(records, domain.SignatureRecord{
				Signature: sig.Signature,
				Slot:      sig.Slot,
				BlockTime: blockTime,
			})
			if len(records) == limit {
				return records, nil
			}
		}

		before = sigs[len(sigs)-1].Signature
	}

	s.logger.Printf("fetched %d signatures for %s", len(records), token)
	return records, nil
}
