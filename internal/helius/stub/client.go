// Package stub provides an in-memory helius.Client for tests.
package stub

import (
	"context"
	"sync"

	"github.com/HSfac/token-buyer-analyze/internal/helius"
)

// Client implements helius.Client from configured fixtures. Error injection
// covers both persistent failures and fail-N-times-then-succeed behavior.
type Client struct {
	mu sync.Mutex

	Signatures   map[string][]helius.SignatureInfo
	Transactions map[string]*helius.Transaction

	// SignaturesErr, when set, fails every GetSignaturesForAddress call.
	SignaturesErr error

	// TxErrs fails GetTransaction persistently for a signature.
	TxErrs map[string]error

	// TxErrsBudget fails GetTransaction with the paired error until the
	// budget for that signature is used up, then serves the fixture.
	TxErrsBudget map[string]int
	TxBudgetErr  error

	txCalls map[string]int
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		Signatures:   make(map[string][]helius.SignatureInfo),
		Transactions: make(map[string]*helius.Transaction),
		TxErrs:       make(map[string]error),
		TxErrsBudget: make(map[string]int),
		txCalls:      make(map[string]int),
	}
}

// AddSignatures registers the signature listing for an address.
func (c *Client) AddSignatures(address string, sigs []helius.SignatureInfo) {
	c.Signatures[address] = sigs
}

// AddTransaction registers an enhanced transaction fixture.
func (c *Client) AddTransaction(tx *helius.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// GetSignaturesForAddress serves the configured listing with cursor
// pagination, mirroring upstream most-recent-first ordering.
func (c *Client) GetSignaturesForAddress(_ context.Context, address string, opts *helius.SignaturesOpts) ([]helius.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SignaturesErr != nil {
		return nil, c.SignaturesErr
	}

	sigs := c.Signatures[address]

	start := 0
	if opts != nil && opts.Before != "" {
		for i, s := range sigs {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
		if start == 0 {
			// Unknown cursor: nothing after it.
			return nil, nil
		}
	}

	page := sigs[start:]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(page) {
		page = page[:opts.Limit]
	}
	return page, nil
}

// GetTransaction serves a transaction fixture, applying configured error
// injection first.
func (c *Client) GetTransaction(_ context.Context, signature string) (*helius.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.txCalls[signature]++

	if err, ok := c.TxErrs[signature]; ok {
		return nil, err
	}
	if budget, ok := c.TxErrsBudget[signature]; ok && c.txCalls[signature] <= budget {
		err := c.TxBudgetErr
		if err == nil {
			err = helius.ErrRateLimited
		}
		return nil, err
	}

	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

// TxCalls returns how many times GetTransaction was invoked for a signature.
func (c *Client) TxCalls(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txCalls[signature]
}
