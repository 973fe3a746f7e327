package analysis

import (
	"testing"
)

func TestAggregator_Add(t *testing.T) {
	agg := NewAggregator()
	agg.Add(buyEvent("sig1", "walletA", "0.5"))
	agg.Add(buyEvent("sig2", "walletB", "1.2"))
	agg.Add(buyEvent("sig3", "walletB", "4.3"))

	accs := agg.Finalize()

	if len(accs) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(accs))
	}

	a := accs["walletA"]
	if a == nil || a.TotalAmount.String() != "0.5" {
		t.Errorf("walletA: expected total 0.5, got %+v", a)
	}
	if len(a.Signatures) != 1 || a.Signatures[0] != "sig1" {
		t.Errorf("walletA: unexpected signatures %v", a.Signatures)
	}

	b := accs["walletB"]
	if b == nil || b.TotalAmount.String() != "5.5" {
		t.Errorf("walletB: expected total 5.5, got %+v", b)
	}
	if len(b.Signatures) != 2 {
		t.Errorf("walletB: expected 2 signatures, got %v", b.Signatures)
	}
}

func TestAggregator_DuplicateSignatureNotDoubleCounted(t *testing.T) {
	agg := NewAggregator()
	if !agg.Add(buyEvent("sig1", "walletA", "2")) {
		t.Error("first contribution should be recorded")
	}
	if agg.Add(buyEvent("sig1", "walletA", "2")) { // duplicate fetch
		t.Error("duplicate contribution should be skipped")
	}
	agg.Add(buyEvent("sig2", "walletA", "3"))

	accs := agg.Finalize()

	a := accs["walletA"]
	if a.TotalAmount.String() != "5" {
		t.Errorf("expected total 5 with duplicate skipped, got %s", a.TotalAmount)
	}
	if len(a.Signatures) != 2 {
		t.Errorf("expected 2 distinct signatures, got %v", a.Signatures)
	}
	if agg.Duplicates() != 1 {
		t.Errorf("expected 1 duplicate recorded, got %d", agg.Duplicates())
	}
}

func TestAggregator_LamportScalePrecision(t *testing.T) {
	agg := NewAggregator()
	// One lamport at a time; float64 would hold up here, but the sum must be
	// exact at 9 decimal places by contract.
	for i := 0; i < 3; i++ {
		agg.Add(buyEvent("sig"+string(rune('a'+i)), "walletA", "0.000000001"))
	}

	a := agg.Finalize()["walletA"]
	if a.TotalAmount.String() != "0.000000003" {
		t.Errorf("expected exact 0.000000003, got %s", a.TotalAmount)
	}
}
