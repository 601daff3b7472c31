// Package ledgermock provides an in-memory ledger.Client for tests.
package ledgermock

import (
	"context"
	"math/big"
	"sync"

	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// Client is a ledger.Client returning canned chain state and call results.
// It records every request and is safe for concurrent use.
type Client struct {
	ChainID   int64
	Contracts map[string]did.Address
	Nonce     uint64
	GasLimit  uint64
	GasPrice  *big.Int

	// CallResult is returned by Call, or CallFunc when set.
	CallResult []byte
	CallFunc   func(tx *ledger.Transaction) ([]byte, error)
	// MetadataErr and CallErr, when set, are returned instead of a result.
	MetadataErr error
	CallErr     error

	mu               sync.Mutex
	metadataRequests []ledger.MetadataRequest
	calls            []*ledger.Transaction
}

var _ ledger.Client = (*Client)(nil)

// New returns a mock serving a single named contract.
func New(chainID int64, contract string, address did.Address) *Client {
	return &Client{
		ChainID:   chainID,
		Contracts: map[string]did.Address{contract: address},
		GasLimit:  ledger.DefaultGasLimit,
		GasPrice:  big.NewInt(0),
	}
}

// ChainMetadata implements ledger.Client.
func (c *Client) ChainMetadata(ctx context.Context, req ledger.MetadataRequest) (*ledger.ChainMetadata, error) {
	c.mu.Lock()
	c.metadataRequests = append(c.metadataRequests, req)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindTransport, "chainMetadata", err)
	}
	if c.MetadataErr != nil {
		return nil, c.MetadataErr
	}

	addr, ok := c.Contracts[req.Contract]
	if !ok {
		return nil, vdrerr.Validation("chainMetadata", "contract %q is not configured", req.Contract)
	}

	meta := &ledger.ChainMetadata{
		ChainID:         big.NewInt(c.ChainID),
		ContractAddress: addr,
	}
	if req.From != nil {
		meta.Nonce = c.Nonce
		meta.GasLimit = c.GasLimit
		if c.GasPrice != nil {
			meta.GasPrice = new(big.Int).Set(c.GasPrice)
		}
	}
	return meta, nil
}

// Call implements ledger.Client.
func (c *Client) Call(ctx context.Context, tx *ledger.Transaction) ([]byte, error) {
	c.mu.Lock()
	c.calls = append(c.calls, tx)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindTransport, "call", err)
	}
	if c.CallErr != nil {
		return nil, c.CallErr
	}
	if c.CallFunc != nil {
		return c.CallFunc(tx)
	}
	return c.CallResult, nil
}

// MetadataRequests returns the metadata requests received so far.
func (c *Client) MetadataRequests() []ledger.MetadataRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ledger.MetadataRequest(nil), c.metadataRequests...)
}

// Calls returns the transactions passed to Call so far.
func (c *Client) Calls() []*ledger.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ledger.Transaction(nil), c.calls...)
}
