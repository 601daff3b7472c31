package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/log"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// EthClient is a Client backed by a go-ethereum JSON-RPC connection.
//
// Its configuration is fixed at construction, so it is safe to share between
// goroutines. Connection pooling is handled by the underlying rpc.Client.
type EthClient struct {
	cfg       Config
	chainID   *big.Int
	contracts map[string]did.Address
	rpc       *rpc.Client
	eth       *ethclient.Client
}

var _ Client = (*EthClient)(nil)

// Dial validates cfg and connects to the node. HTTP requests are traced
// through an otelhttp transport. The client keeps its own copy of cfg.
func Dial(ctx context.Context, cfg *Config) (*EthClient, error) {
	const op = "dial"

	if cfg == nil {
		return nil, vdrerr.Validation(op, "ledger config is required")
	}
	cfg = cfg.Clone()
	cfg.Standardize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	contracts := make(map[string]did.Address, len(cfg.Contracts))
	for name, addr := range cfg.Contracts {
		contracts[name] = did.AddressFromCommon(common.HexToAddress(addr))
	}

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	rpcClient, err := rpc.DialOptions(ctx, cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindTransport, op, fmt.Errorf("failed to dial %s: %w", cfg, err))
	}

	log.L(ctx).Debugf("Connected ledger client %s", cfg)

	return &EthClient{
		cfg:       *cfg,
		chainID:   big.NewInt(cfg.ChainID),
		contracts: contracts,
		rpc:       rpcClient,
		eth:       ethclient.NewClient(rpcClient),
	}, nil
}

// ContractAddress returns the configured address of a named contract.
func (c *EthClient) ContractAddress(name string) (did.Address, error) {
	addr, ok := c.contracts[name]
	if !ok {
		return did.Address{}, vdrerr.Validation("contractAddress", "contract %q is not configured", name)
	}
	return addr, nil
}

// ChainMetadata implements Client. For writes the sender nonce and the gas
// price are fetched concurrently.
func (c *EthClient) ChainMetadata(ctx context.Context, req MetadataRequest) (*ChainMetadata, error) {
	const op = "chainMetadata"

	addr, err := c.ContractAddress(req.Contract)
	if err != nil {
		return nil, err
	}

	meta := &ChainMetadata{
		ChainID:         new(big.Int).Set(c.chainID),
		ContractAddress: addr,
	}
	if req.From == nil {
		return meta, nil
	}

	start := time.Now()
	from := req.From.Common()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		nonce, err := c.eth.PendingNonceAt(gctx, from)
		if err != nil {
			return fmt.Errorf("failed to get nonce: %w", err)
		}
		meta.Nonce = nonce
		return nil
	})

	if c.cfg.GasPrice != nil {
		meta.GasPrice = new(big.Int).Set(c.cfg.GasPrice)
	} else {
		g.Go(func() error {
			price, err := c.eth.SuggestGasPrice(gctx)
			if err != nil {
				return fmt.Errorf("failed to get gas price: %w", err)
			}
			meta.GasPrice = price
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindTransport, op, err)
	}
	meta.GasLimit = c.cfg.GasLimit

	log.L(ctx).Debugf("Fetched chain metadata for %s from=%s nonce=%d gasPrice=%s in %s",
		req.Contract, req.From, meta.Nonce, meta.GasPrice, time.Since(start))

	return meta, nil
}

// Call implements Client.
func (c *EthClient) Call(ctx context.Context, tx *Transaction) ([]byte, error) {
	const op = "call"

	if tx == nil {
		return nil, vdrerr.Validation(op, "transaction is nil")
	}
	if tx.Type != Read {
		return nil, vdrerr.Validation(op, "only read transactions can be called")
	}

	out, err := c.eth.CallContract(ctx, tx.CallMsg(), nil)
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindTransport, op, err)
	}

	log.L(ctx).Debugf("Call to %s returned %d bytes", tx.To, len(out))
	return out, nil
}

// SubmitTransaction sends a raw signed transaction and returns its hash.
func (c *EthClient) SubmitTransaction(ctx context.Context, txHex string) (common.Hash, error) {
	const op = "submitTransaction"

	tx, err := TxFromHex(txHex)
	if err != nil {
		return common.Hash{}, vdrerr.Validation(op, "%v", err)
	}
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, vdrerr.Wrap(vdrerr.KindTransport, op, err)
	}

	log.L(ctx).Infof("Submitted transaction %s", tx.Hash().Hex())
	return tx.Hash(), nil
}

// TransactionReceipt returns the receipt of a mined transaction.
func (c *EthClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	const op = "transactionReceipt"

	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, vdrerr.NotFound(op, "no receipt for transaction %s", hash.Hex())
	}
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindTransport, op, err)
	}
	return receipt, nil
}

// Ping checks connectivity and that the node serves the configured chain.
func (c *EthClient) Ping(ctx context.Context) error {
	const op = "ping"

	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return vdrerr.Wrap(vdrerr.KindTransport, op, err)
	}
	if chainID.Cmp(c.chainID) != 0 {
		return vdrerr.Validation(op, "node chain ID %s does not match configured chain ID %s", chainID, c.chainID)
	}
	return nil
}

// Close releases the underlying connection.
func (c *EthClient) Close() {
	c.rpc.Close()
}
