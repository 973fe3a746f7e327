package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/helius"
	"github.com/HSfac/token-buyer-analyze/internal/observability"
)

// ErrMalformedRecord marks a transaction record that could not be parsed
// into a swap event. Always absorbed at the resolver boundary; carried on
// the Resolution for diagnostics.
var ErrMalformedRecord = errors.New("malformed transaction record")

// Outcome tags the result of resolving one signature. Every call site must
// handle all variants.
type Outcome int

const (
	// OutcomeSwap means a normalized swap event was extracted.
	OutcomeSwap Outcome = iota
	// OutcomeNotSwap means the record is legitimate but not a swap.
	OutcomeNotSwap
	// OutcomeUnparseable means the record's shape could not be parsed.
	OutcomeUnparseable
	// OutcomeFailed means the record could not be fetched after retries.
	OutcomeFailed
)

// String returns the outcome label used in logs and skip breakdowns.
func (o Outcome) String() string {
	switch o {
	case OutcomeSwap:
		return "swap"
	case OutcomeNotSwap:
		return "not_swap"
	case OutcomeUnparseable:
		return "unparseable"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolution is the tagged result of resolving one signature.
type Resolution struct {
	Signature string
	Outcome   Outcome
	Event     *domain.SwapEvent // set iff Outcome == OutcomeSwap
	Err       error             // diagnostic for OutcomeUnparseable/OutcomeFailed
}

// Default resolver tuning.
const (
	DefaultConcurrency = 8
	DefaultMaxAttempts = 3
	DefaultCallTimeout = 15 * time.Second
)

// Resolver turns signatures into swap events. Per-signature failures never
// abort a batch.
type Resolver struct {
	client      helius.Client
	concurrency int
	maxAttempts int
	callTimeout time.Duration
	retryBase   time.Duration
	logger      *log.Logger
}

// ResolverOptions contains configuration for creating a Resolver.
type ResolverOptions struct {
	Concurrency int           // bounded fan-out width, default 8
	MaxAttempts int           // attempts per signature on rate limit, default 3
	CallTimeout time.Duration // per upstream call, default 15s
	RetryBase   time.Duration // initial rate-limit retry interval, default 500ms
	Logger      *log.Logger
}

// NewResolver creates a resolver with the given client.
func NewResolver(client helius.Client, opts ResolverOptions) *Resolver {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	retryBase := opts.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		client:      client,
		concurrency: concurrency,
		maxAttempts: maxAttempts,
		callTimeout: callTimeout,
		retryBase:   retryBase,
		logger:      logger,
	}
}

// Resolve fetches and parses one transaction. Fetch failures and malformed
// payloads are reported through the Resolution, never as a returned error.
func (r *Resolver) Resolve(ctx context.Context, record domain.SignatureRecord) Resolution {
	tx, err := r.fetchWithRetry(ctx, record.Signature)
	if err != nil {
		r.logger.Printf("resolve %s: %v", record.Signature, err)
		return Resolution{Signature: record.Signature, Outcome: OutcomeFailed, Err: err}
	}
	return r.parse(record, tx)
}

// ResolveMany resolves a batch with bounded fan-out. Results preserve input
// order. onProgress, when non-nil, is called after each resolution with the
// number completed so far.
func (r *Resolver) ResolveMany(ctx context.Context, records []domain.SignatureRecord, onProgress func(done, total int)) []Resolution {
	results := make([]Resolution, len(records))
	var done atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, record := range records {
		g.Go(func() error {
			results[i] = r.Resolve(ctx, record)
			if onProgress != nil {
				onProgress(int(done.Add(1)), len(records))
			}
			return nil
		})
	}

	// Workers never return errors; failures live in the result slice.
	g.Wait()

	return results
}

// fetchWithRetry fetches a transaction, retrying rate-limited calls with
// exponential backoff up to maxAttempts. All other errors are permanent.
func (r *Resolver) fetchWithRetry(ctx context.Context, signature string) (*helius.Transaction, error) {
	var tx *helius.Transaction

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		defer cancel()

		fetched, err := r.client.GetTransaction(callCtx, signature)
		if err != nil {
			if errors.Is(err, helius.ErrRateLimited) {
				return err
			}
			return backoff.Permanent(err)
		}
		tx = fetched
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retryBase
	policy.MaxInterval = 10 * time.Second
	policy.RandomizationFactor = 0.1

	bounded := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), uint64(r.maxAttempts-1))
	notify := func(err error, _ time.Duration) {
		observability.DefaultMetrics.ResolverRetries.Inc()
	}
	if err := backoff.RetryNotify(operation, bounded, notify); err != nil {
		return nil, err
	}
	return tx, nil
}

// parse extracts a normalized swap event from an enhanced transaction.
func (r *Resolver) parse(record domain.SignatureRecord, tx *helius.Transaction) Resolution {
	res := Resolution{Signature: record.Signature}

	if tx == nil {
		res.Outcome = OutcomeUnparseable
		res.Err = fmt.Errorf("%w: transaction unknown upstream", ErrMalformedRecord)
		return res
	}
	if tx.TransactionError != nil {
		res.Outcome = OutcomeNotSwap
		return res
	}
	if tx.Type != helius.TxTypeSwap {
		res.Outcome = OutcomeNotSwap
		return res
	}

	swap := tx.Events.Swap
	if swap == nil {
		res.Outcome = OutcomeUnparseable
		res.Err = fmt.Errorf("%w: declared SWAP but no swap payload", ErrMalformedRecord)
		return res
	}

	inputMint, amountIn, err := swapInput(swap)
	if err != nil {
		res.Outcome = OutcomeUnparseable
		res.Err = fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		return res
	}
	outputMint, err := swapOutput(swap)
	if err != nil {
		res.Outcome = OutcomeUnparseable
		res.Err = fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		return res
	}

	wallet := tx.FeePayer
	if wallet == "" && swap.NativeInput != nil {
		wallet = swap.NativeInput.Account
	}

	timestamp := tx.Timestamp
	if timestamp == 0 {
		timestamp = record.BlockTime
	}

	event := &domain.SwapEvent{
		Signature:  record.Signature,
		Timestamp:  timestamp * 1000,
		Wallet:     wallet,
		InputMint:  inputMint,
		OutputMint: outputMint,
		AmountIn:   amountIn,
	}
	if !event.Valid() {
		res.Outcome = OutcomeUnparseable
		res.Err = fmt.Errorf("%w: incomplete swap fields", ErrMalformedRecord)
		return res
	}

	res.Outcome = OutcomeSwap
	res.Event = event
	return res
}

// swapInput returns the input asset and its amount in whole-unit terms.
// A native SOL leg takes priority: paying SOL is the buy direction this
// pipeline cares about, and lamports convert exactly at 9 decimals.
func swapInput(swap *helius.SwapPayload) (string, decimal.Decimal, error) {
	if swap.NativeInput != nil {
		lamports, err := decimal.NewFromString(swap.NativeInput.Amount)
		if err != nil {
			return "", decimal.Zero, fmt.Errorf("native input amount %q: %v", swap.NativeInput.Amount, err)
		}
		return domain.WSOLMint, lamports.Shift(-9), nil
	}
	if len(swap.TokenInputs) > 0 {
		in := swap.TokenInputs[0]
		raw, err := decimal.NewFromString(in.RawTokenAmount.TokenAmount)
		if err != nil {
			return "", decimal.Zero, fmt.Errorf("token input amount %q: %v", in.RawTokenAmount.TokenAmount, err)
		}
		return in.Mint, raw.Shift(-in.RawTokenAmount.Decimals), nil
	}
	return "", decimal.Zero, fmt.Errorf("swap has no input leg")
}

// swapOutput returns the output asset mint.
func swapOutput(swap *helius.SwapPayload) (string, error) {
	if len(swap.TokenOutputs) > 0 {
		return swap.TokenOutputs[0].Mint, nil
	}
	if swap.NativeOutput != nil {
		return domain.WSOLMint, nil
	}
	return "", fmt.Errorf("swap has no output leg")
}
