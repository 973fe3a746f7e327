package helius

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetSignaturesForAddress(t *testing.T) {
	blockTime := int64(1700000000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "getSignaturesForAddress" {
			t.Errorf("expected method getSignaturesForAddress, got %s", req.Method)
		}
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}
		if addr := req.Params[0].(string); addr != "mint123" {
			t.Errorf("expected address mint123, got %s", addr)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{"signature": "sig1", "slot": 100, "blockTime": blockTime},
				{"signature": "sig2", "slot": 99, "blockTime": blockTime - 10},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient("test-key", WithRPCEndpoint(server.URL))

	sigs, err := client.GetSignaturesForAddress(context.Background(), "mint123", &SignaturesOpts{Limit: 100})
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}

	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}
	if sigs[0].Signature != "sig1" {
		t.Errorf("expected sig1 first, got %s", sigs[0].Signature)
	}
	if sigs[0].BlockTime == nil || *sigs[0].BlockTime != blockTime {
		t.Errorf("unexpected blockTime: %v", sigs[0].BlockTime)
	}
}

func TestHTTPClient_GetTransaction_ParsesSwapPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/transactions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-key") != "test-key" {
			t.Errorf("missing api-key query parameter")
		}

		var req struct {
			Transactions []string `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Transactions) != 1 || req.Transactions[0] != "sig1" {
			t.Errorf("unexpected request signatures: %v", req.Transactions)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"signature": "sig1",
			"slot": 100,
			"timestamp": 1700000000,
			"type": "SWAP",
			"source": "JUPITER",
			"feePayer": "walletA",
			"events": {
				"swap": {
					"nativeInput": {"account": "walletA", "amount": "1500000000"},
					"tokenOutputs": [
						{"userAccount": "walletA", "mint": "mint123", "rawTokenAmount": {"tokenAmount": "42000000", "decimals": 6}}
					]
				}
			}
		}]`))
	}))
	defer server.Close()

	client := NewHTTPClient("test-key", WithAPIEndpoint(server.URL))

	tx, err := client.GetTransaction(context.Background(), "sig1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}
	if tx.Type != TxTypeSwap {
		t.Errorf("expected type SWAP, got %s", tx.Type)
	}
	if tx.Events.Swap == nil {
		t.Fatal("expected swap event payload")
	}
	if tx.Events.Swap.NativeInput == nil || tx.Events.Swap.NativeInput.Amount != "1500000000" {
		t.Errorf("unexpected native input: %+v", tx.Events.Swap.NativeInput)
	}
	if len(tx.Events.Swap.TokenOutputs) != 1 || tx.Events.Swap.TokenOutputs[0].Mint != "mint123" {
		t.Errorf("unexpected token outputs: %+v", tx.Events.Swap.TokenOutputs)
	}
}

func TestHTTPClient_GetTransaction_UnknownSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewHTTPClient("test-key", WithAPIEndpoint(server.URL))

	tx, err := client.GetTransaction(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for unknown signature, got %+v", tx)
	}
}

func TestHTTPClient_RateLimited_NotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient("test-key",
		WithAPIEndpoint(server.URL),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.GetTransaction(context.Background(), "sig1")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt for 429, got %d", calls.Load())
	}
}

func TestHTTPClient_Authentication_NotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient("bad-key",
		WithRPCEndpoint(server.URL),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.GetSignaturesForAddress(context.Background(), "mint123", nil)
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt for 401, got %d", calls.Load())
	}
}

func TestHTTPClient_ServerError_RetriedThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient("test-key",
		WithRPCEndpoint(server.URL),
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(2*time.Millisecond),
	)

	_, err := client.GetSignaturesForAddress(context.Background(), "mint123", nil)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", calls.Load())
	}
}

func TestHTTPClient_ServerError_RecoversWithinRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  []map[string]interface{}{{"signature": "sig1", "slot": 1}},
		})
	}))
	defer server.Close()

	client := NewHTTPClient("test-key",
		WithRPCEndpoint(server.URL),
		WithRetryDelay(time.Millisecond),
	)

	sigs, err := client.GetSignaturesForAddress(context.Background(), "mint123", nil)
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}
	if len(sigs) != 1 {
		t.Errorf("expected 1 signature, got %d", len(sigs))
	}
}
