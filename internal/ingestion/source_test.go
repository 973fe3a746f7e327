package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
	"github.com/HSfac/token-buyer-analyze/internal/helius"
	"github.com/HSfac/token-buyer-analyze/internal/helius/stub"
)

const testMint = "mint123"

func sigInfo(sig string, slot int64, blockTime int64) helius.SignatureInfo {
	return helius.SignatureInfo{Signature: sig, Slot: slot, BlockTime: &blockTime}
}

func TestRPCSignatureSource_Fetch(t *testing.T) {
	client := stub.NewClient()
	client.AddSignatures(testMint, []helius.SignatureInfo{
		sigInfo("sig3", 103, 1700000030),
		sigInfo("sig2", 102, 1700000020),
		sigInfo("sig1", 101, 1700000010),
	})

	source := NewRPCSignatureSource(client, nil)

	records, err := source.Fetch(context.Background(), testMint, domain.TimeWindow{}, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Most recent first.
	if records[0].Signature != "sig3" || records[2].Signature != "sig1" {
		t.Errorf("unexpected order: %v", records)
	}
	if records[0].BlockTime != 1700000030 {
		t.Errorf("expected blockTime 1700000030, got %d", records[0].BlockTime)
	}
}

func TestRPCSignatureSource_Fetch_Limit(t *testing.T) {
	client := stub.NewClient()
	var sigs []helius.SignatureInfo
	for i := 0; i < 10; i++ {
		sigs = append(sigs, sigInfo(string(rune('a'+i)), int64(110-i), int64(1700000100-i*10)))
	}
	client.AddSignatures(testMint, sigs)

	source := NewRPCSignatureSource(client, nil)

	records, err := source.Fetch(context.Background(), testMint, domain.TimeWindow{}, 4)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("expected limit to cap at 4 records, got %d", len(records))
	}
}

func TestRPCSignatureSource_Fetch_SkipsFailedAndDuplicates(t *testing.T) {
	failed := sigInfo("sigFail", 105, 1700000050)
	failed.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	client := stub.NewClient()
	client.AddSignatures(testMint, []helius.SignatureInfo{
		sigInfo("sig2", 102, 1700000020),
		failed,
		sigInfo("sig2", 102, 1700000020), // pagination overlap duplicate
		sigInfo("sig1", 101, 1700000010),
	})

	source := NewRPCSignatureSource(client, nil)

	records, err := source.Fetch(context.Background(), testMint, domain.TimeWindow{}, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records after dedup and failure skip, got %d", len(records))
	}
	if records[0].Signature != "sig2" || records[1].Signature != "sig1" {
		t.Errorf("unexpected records: %v", records)
	}
}

func TestRPCSignatureSource_Fetch_WindowStopsPagination(t *testing.T) {
	client := stub.NewClient()
	client.AddSignatures(testMint, []helius.SignatureInfo{
		sigInfo("sig4", 104, 1700000040),
		sigInfo("sig3", 103, 1700000030),
		sigInfo("sig2", 102, 1700000020),
		sigInfo("sig1", 101, 1700000010),
	})

	source := NewRPCSignatureSource(client, nil)
	window := domain.TimeWindow{
		Start: time.Unix(1700000025, 0),
		End:   time.Unix(1700000035, 0),
	}

	records, err := source.Fetch(context.Background(), testMint, window, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record inside window, got %d", len(records))
	}
	if records[0].Signature != "sig3" {
		t.Errorf("expected sig3, got %s", records[0].Signature)
	}
}

func TestRPCSignatureSource_Fetch_SourceUnavailable(t *testing.T) {
	client := stub.NewClient()
	client.SignaturesErr = errors.New("connection refused")

	source := NewRPCSignatureSource(client, nil)

	_, err := source.Fetch(context.Background(), testMint, domain.TimeWindow{}, 100)
	if !errors.Is(err, helius.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestRPCSignatureSource_Fetch_AuthErrorPropagates(t *testing.T) {
	client := stub.NewClient()
	client.SignaturesErr = helius.ErrAuthentication

	source := NewRPCSignatureSource(client, nil)

	_, err := source.Fetch(context.Background(), testMint, domain.TimeWindow{}, 100)
	if !errors.Is(err, helius.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if errors.Is(err, helius.ErrSourceUnavailable) {
		t.Error("auth failure must not be reported as source unavailability")
	}
}
