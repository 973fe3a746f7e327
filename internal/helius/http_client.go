package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/HSfac/token-buyer-analyze/internal/observability"
)

// Default configuration values.
const (
	DefaultRPCEndpoint = "https://mainnet.helius-rpc.com"
	DefaultAPIEndpoint = "https://api.helius.xyz"

	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client against the Helius JSON-RPC and enhanced
// transaction endpoints.
type HTTPClient struct {
	apiKey      string
	rpcEndpoint string
	apiEndpoint string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithRPCEndpoint overrides the JSON-RPC base URL.
func WithRPCEndpoint(url string) ClientOption {
	return func(c *HTTPClient) {
		c.rpcEndpoint = url
	}
}

// WithAPIEndpoint overrides the enhanced API base URL.
func WithAPIEndpoint(url string) ClientOption {
	return func(c *HTTPClient) {
		c.apiEndpoint = url
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Helius client. The API key is required by both
// upstreams; validating its presence is the caller's job (config layer).
func NewHTTPClient(apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		apiKey:      apiKey,
		rpcEndpoint: DefaultRPCEndpoint,
		apiEndpoint: DefaultAPIEndpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "helius",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				observability.DefaultMetrics.CircuitBreakerOpen.Set(1)
			} else {
				observability.DefaultMetrics.CircuitBreakerOpen.Set(0)
			}
		},
	})
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// httpResult carries an attempt's outcome out of the circuit breaker.
type httpResult struct {
	status int
	body   []byte
}

// transientError marks failures that count against the breaker and are
// retried: network errors and 5xx responses.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// doJSON posts a JSON body and returns the response, retrying transient
// failures with exponential backoff. Rate-limit and auth failures are
// classified immediately and never retried here.
func (c *HTTPClient) doJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		res, err := c.attempt(ctx, url, body)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, fmt.Errorf("%w: circuit open", ErrSourceUnavailable)
			}
			var te *transientError
			if errors.As(err, &te) {
				lastErr = te.err
				continue
			}
			return nil, err
		}

		switch {
		case res.status == http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case res.status == http.StatusUnauthorized || res.status == http.StatusForbidden:
			return nil, fmt.Errorf("%w: status %d", ErrAuthentication, res.status)
		case res.status != http.StatusOK:
			// Remaining non-OK statuses are client-side; not retryable.
			return nil, fmt.Errorf("unexpected status %d: %s", res.status, string(res.body))
		}

		return res.body, nil
	}

	return nil, fmt.Errorf("%w: max retries exceeded: %v", ErrSourceUnavailable, lastErr)
}

// attempt performs one HTTP round trip through the circuit breaker.
func (c *HTTPClient) attempt(ctx context.Context, url string, body []byte) (*httpResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, &transientError{err: fmt.Errorf("http request: %w", err)}
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &transientError{err: fmt.Errorf("read response: %w", err)}
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &transientError{err: fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))}
		}

		return &httpResult{status: resp.StatusCode, body: respBody}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*httpResult), nil
}

// call performs a JSON-RPC call against the RPC endpoint.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.doJSON(ctx, c.rpcEndpoint, body)
	if err != nil {
		return err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		// RPC-level errors are not retried.
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// GetSignaturesForAddress retrieves signatures for an address with pagination.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := map[string]interface{}{
		"commitment": "confirmed",
	}
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address, config}

	start := time.Now()
	var result []SignatureInfo
	err := c.call(ctx, "getSignaturesForAddress", params, &result)
	observability.RecordRPCLatency("getSignaturesForAddress", time.Since(start).Seconds())
	if err != nil {
		observability.RecordUpstreamError(errorKind(err))
		return nil, err
	}

	return result, nil
}

// errorKind labels upstream failures for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrSourceUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

// GetTransaction retrieves the enhanced transaction record for a signature
// from the parse endpoint. Returns (nil, nil) when upstream does not know
// the signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"transactions": []string{signature},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v0/transactions?api-key=%s", c.apiEndpoint, c.apiKey)
	start := time.Now()
	respBody, err := c.doJSON(ctx, url, reqBody)
	observability.RecordRPCLatency("getTransaction", time.Since(start).Seconds())
	if err != nil {
		observability.RecordUpstreamError(errorKind(err))
		return nil, err
	}

	var txs []Transaction
	if err := json.Unmarshal(respBody, &txs); err != nil {
		return nil, fmt.Errorf("unmarshal transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, nil
	}

	tx := txs[0]
	if tx.Signature == "" {
		tx.Signature = signature
	}
	return &tx, nil
}
