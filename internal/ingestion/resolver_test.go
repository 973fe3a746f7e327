package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/helius"
	"github.com/HSfac/token-buyer-analyze/internal/helius/stub"
)

// buyTx builds an enhanced SWAP transaction where wallet pays lamports of
// native SOL for outMint.
func buyTx(sig, wallet, lamports, outMint string) *helius.Transaction {
	return &helius.Transaction{
		Signature: sig,
		Timestamp: 1700000000,
		Type:      helius.TxTypeSwap,
		Source:    "JUPITER",
		FeePayer:  wallet,
		Events: helius.Events{
			Swap: &helius.SwapPayload{
				NativeInput: &helius.NativeTransfer{Account: wallet, Amount: lamports},
				TokenOutputs: []helius.TokenTransfer{
					{UserAccount: wallet, Mint: outMint, RawTokenAmount: helius.RawTokenAmount{TokenAmount: "1000000", Decimals: 6}},
				},
			},
		},
	}
}

// sellTx builds a SWAP transaction in the reverse direction: wallet sells
// inMint for native SOL.
func sellTx(sig, wallet, inMint string) *helius.Transaction {
	return &helius.Transaction{
		Signature: sig,
		Timestamp: 1700000000,
		Type:      helius.TxTypeSwap,
		FeePayer:  wallet,
		Events: helius.Events{
			Swap: &helius.SwapPayload{
				TokenInputs: []helius.TokenTransfer{
					{UserAccount: wallet, Mint: inMint, RawTokenAmount: helius.RawTokenAmount{TokenAmount: "1000000", Decimals: 6}},
				},
				NativeOutput: &helius.NativeTransfer{Account: wallet, Amount: "500000000"},
			},
		},
	}
}

func record(sig string) domain.SignatureRecord {
	return domain.SignatureRecord{Signature: sig, Slot: 100, BlockTime: 1700000000}
}

func TestResolver_Resolve_Swap(t *testing.T) {
	client := stub.NewClient()
	client.AddTransaction(buyTx("sig1", "walletA", "1500000000", testMint))

	resolver := NewResolver(client, ResolverOptions{})

	res := resolver.Resolve(context.Background(), record("sig1"))
	if res.Outcome != OutcomeSwap {
		t.Fatalf("expected OutcomeSwap, got %s (%v)", res.Outcome, res.Err)
	}
	if res.Event == nil {
		t.Fatal("expected event")
	}
	if res.Event.Wallet != "walletA" {
		t.Errorf("expected wallet walletA, got %s", res.Event.Wallet)
	}
	if res.Event.InputMint != domain.WSOLMint {
		t.Errorf("expected WSOL input, got %s", res.Event.InputMint)
	}
	if res.Event.OutputMint != testMint {
		t.Errorf("expected output %s, got %s", testMint, res.Event.OutputMint)
	}
	// 1500000000 lamports == 1.5 SOL, exact at 9 decimals.
	if res.Event.AmountIn.String() != "1.5" {
		t.Errorf("expected amount 1.5, got %s", res.Event.AmountIn)
	}
	if res.Event.Timestamp != 1700000000000 {
		t.Errorf("expected ms timestamp, got %d", res.Event.Timestamp)
	}
}

func TestResolver_Resolve_SellDirection(t *testing.T) {
	client := stub.NewClient()
	client.AddTransaction(sellTx("sig1", "walletA", testMint))

	resolver := NewResolver(client, ResolverOptions{})

	res := resolver.Resolve(context.Background(), record("sig1"))
	if res.Outcome != OutcomeSwap {
		t.Fatalf("expected OutcomeSwap, got %s", res.Outcome)
	}
	// The resolver normalizes sells too; direction filtering happens later.
	if res.Event.InputMint != testMint {
		t.Errorf("expected input %s, got %s", testMint, res.Event.InputMint)
	}
	if res.Event.OutputMint != domain.WSOLMint {
		t.Errorf("expected WSOL output, got %s", res.Event.OutputMint)
	}
}

func TestResolver_Resolve_NotSwap(t *testing.T) {
	client := stub.NewClient()
	client.AddTransaction(&helius.Transaction{
		Signature: "sig1",
		Timestamp: 1700000000,
		Type:      helius.TxTypeTransfer,
		FeePayer:  "walletA",
	})

	resolver := NewResolver(client, ResolverOptions{})

	res := resolver.Resolve(context.Background(), record("sig1"))
	if res.Outcome != OutcomeNotSwap {
		t.Fatalf("expected OutcomeNotSwap, got %s", res.Outcome)
	}
	if res.Event != nil {
		t.Error("non-swap must not fabricate an event")
	}
}

func TestResolver_Resolve_MalformedPayload(t *testing.T) {
	client := stub.NewClient()
	// Declared SWAP but the swap payload is missing entirely.
	client.AddTransaction(&helius.Transaction{
		Signature: "sig1",
		Timestamp: 1700000000,
		Type:      helius.TxTypeSwap,
		FeePayer:  "walletA",
	})

	resolver := NewResolver(client, ResolverOptions{})

	res := resolver.Resolve(context.Background(), record("sig1"))
	if res.Outcome != OutcomeUnparseable {
		t.Fatalf("expected OutcomeUnparseable, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord diagnostic, got %v", res.Err)
	}
}

func TestResolver_Resolve_RateLimitRetries(t *testing.T) {
	client := stub.NewClient()
	client.AddTransaction(buyTx("sig1", "walletA", "1000000000", testMint))
	client.TxErrsBudget["sig1"] = 2 // two 429s, then success

	resolver := NewResolver(client, ResolverOptions{
		MaxAttempts: 3,
		RetryBase:   time.Millisecond,
	})

	res := resolver.Resolve(context.Background(), record("sig1"))
	if res.Outcome != OutcomeSwap {
		t.Fatalf("expected success after retries, got %s (%v)", res.Outcome, res.Err)
	}
	if calls := client.TxCalls("sig1"); calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestResolver_Resolve_RateLimitExhausted(t *testing.T) {
	client := stub.NewClient()
	client.AddTransaction(buyTx("sig1", "walletA", "1000000000", testMint))
	client.TxErrsBudget["sig1"] = 10

	resolver := NewResolver(client, ResolverOptions{
		MaxAttempts: 3,
		RetryBase:   time.Millisecond,
	})

	res := resolver.Resolve(context.Background(), record("sig1"))
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected OutcomeFailed after exhausted retries, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, helius.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited diagnostic, got %v", res.Err)
	}
	if calls := client.TxCalls("sig1"); calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestResolver_ResolveMany_IndependentFailures(t *testing.T) {
	client := stub.NewClient()
	client.AddTransaction(buyTx("good1", "walletA", "500000000", testMint))
	client.AddTransaction(buyTx("good2", "walletB", "1200000000", testMint))
	client.TxErrs["bad"] = errors.New("boom")

	resolver := NewResolver(client, ResolverOptions{Concurrency: 2})

	records := []domain.SignatureRecord{record("good1"), record("bad"), record("good2")}
	results := resolver.ResolveMany(context.Background(), records, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Input order preserved.
	if results[0].Signature != "good1" || results[1].Signature != "bad" || results[2].Signature != "good2" {
		t.Fatalf("result order broken: %v", results)
	}
	if results[0].Outcome != OutcomeSwap || results[2].Outcome != OutcomeSwap {
		t.Error("good signatures should resolve despite the failed one")
	}
	if results[1].Outcome != OutcomeFailed {
		t.Errorf("expected bad signature to fail, got %s", results[1].Outcome)
	}
}

func TestResolver_ResolveMany_Progress(t *testing.T) {
	client := stub.NewClient()
	for _, sig := range []string{"s1", "s2", "s3", "s4"} {
		client.AddTransaction(buyTx(sig, "walletA", "1000000000", testMint))
	}

	resolver := NewResolver(client, ResolverOptions{Concurrency: 2})

	var mu sync.Mutex
	var calls, last int
	onProgress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if done > last {
			last = done
		}
		if total != 4 {
			t.Errorf("expected total 4, got %d", total)
		}
	}

	records := []domain.SignatureRecord{record("s1"), record("s2"), record("s3"), record("s4")}
	resolver.ResolveMany(context.Background(), records, onProgress)

	if calls != 4 {
		t.Errorf("expected 4 progress calls, got %d", calls)
	}
	if last != 4 {
		t.Errorf("expected final done=4, got %d", last)
	}
}
