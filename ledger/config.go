package ledger

import (
	"fmt"
	"maps"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// DefaultGasLimit is the gas limit used for write transactions when none is configured.
// Registry writes carry whole DID documents and need far more than a transfer.
const DefaultGasLimit = 3_000_000

// Config holds configuration for reaching the ledger.
//
// Contracts maps a contract name (e.g. "DidRegistry") to its deployed address.
// A nil GasPrice means the price is suggested by the node for every write.
type Config struct {
	// RPCURL is the node endpoint (http(s):// or ws(s)://).
	RPCURL string
	// ChainID is the network chain ID used for EIP-155 signing.
	ChainID int64
	// Contracts holds the deployed address of every contract the SDK calls.
	Contracts map[string]string
	// GasPrice is a fixed gas price in wei. Set to 0 for gas-free networks.
	GasPrice *big.Int
	// GasLimit is the gas limit of write transactions.
	GasLimit uint64
}

// Option is a functional option for Config.
type Option func(*Config)

// WithRPCURL sets the node endpoint.
func WithRPCURL(url string) Option {
	return func(c *Config) { c.RPCURL = url }
}

// WithChainID sets the chain ID.
func WithChainID(chainID int64) Option {
	return func(c *Config) { c.ChainID = chainID }
}

// WithContract registers the address of a named contract.
func WithContract(name, address string) Option {
	return func(c *Config) {
		if c.Contracts == nil {
			c.Contracts = make(map[string]string)
		}
		c.Contracts[name] = address
	}
}

// WithGasPrice fixes the gas price instead of asking the node.
func WithGasPrice(price *big.Int) Option {
	return func(c *Config) { c.GasPrice = price }
}

// WithGasLimit sets the gas limit of write transactions.
func WithGasLimit(limit uint64) Option {
	return func(c *Config) { c.GasLimit = limit }
}

// NewConfig builds a Config from options and fills defaults.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.Standardize()
	return cfg
}

// Validate checks that required fields are present and well formed.
func (c *Config) Validate() error {
	const op = "validateConfig"

	if c.RPCURL == "" {
		return vdrerr.Validation(op, "RPC URL is required")
	}
	if c.ChainID <= 0 {
		return vdrerr.Validation(op, "chain ID must be greater than 0")
	}
	if len(c.Contracts) == 0 {
		return vdrerr.Validation(op, "at least one contract address is required")
	}
	for name, addr := range c.Contracts {
		if !common.IsHexAddress(addr) {
			return vdrerr.Validation(op, "contract %s has an invalid address %q", name, addr)
		}
	}
	if c.GasPrice != nil && c.GasPrice.Sign() < 0 {
		return vdrerr.Validation(op, "gas price must not be negative")
	}
	return nil
}

// Clone returns a copy of the config that shares no map or big.Int with c.
func (c *Config) Clone() *Config {
	out := *c
	out.Contracts = maps.Clone(c.Contracts)
	if c.GasPrice != nil {
		out.GasPrice = new(big.Int).Set(c.GasPrice)
	}
	return &out
}

// Standardize sets default values for optional fields and normalizes addresses.
func (c *Config) Standardize() {
	if c.GasLimit == 0 {
		c.GasLimit = DefaultGasLimit
	}
	for name, addr := range c.Contracts {
		c.Contracts[name] = strings.ToLower(addr)
	}
}

// String describes the config without secrets embedded in the URL.
func (c *Config) String() string {
	url := c.RPCURL
	if i := strings.Index(url, "@"); i >= 0 {
		if j := strings.Index(url, "://"); j >= 0 && j < i {
			url = url[:j+3] + "***" + url[i:]
		}
	}
	return fmt.Sprintf("ledger{rpc=%s chainId=%d contracts=%d}", url, c.ChainID, len(c.Contracts))
}
