// Package ledger defines the ledger client capability the registry builders
// depend on, the unsigned transaction they produce, and a go-ethereum backed
// client implementation.
package ledger

import (
	"context"
	"math/big"

	"github.com/pilacorp/go-did-registry-sdk/did"
)

// Client is the capability a builder or parser needs from the ledger.
//
// Implementations must be safe for concurrent use. The SDK never owns the
// lifecycle of a Client.
type Client interface {
	// ChainMetadata fetches what a pending call to the named contract needs:
	// the chain ID, the contract address and, for writes, the sender nonce
	// and gas parameters.
	ChainMetadata(ctx context.Context, req MetadataRequest) (*ChainMetadata, error)
	// Call executes a read-only transaction and returns the raw return bytes.
	Call(ctx context.Context, tx *Transaction) ([]byte, error)
}

// MetadataRequest describes the pending call metadata is fetched for.
type MetadataRequest struct {
	// Contract is the configured contract name.
	Contract string
	// From is the sender of a write. Nil for read-only calls, in which case no
	// nonce or gas lookups are made.
	From *did.Address
}

// ChainMetadata is the chain state a transaction is built against.
type ChainMetadata struct {
	ChainID         *big.Int
	ContractAddress did.Address
	Nonce           uint64
	GasLimit        uint64
	GasPrice        *big.Int
}
