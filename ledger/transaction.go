package ledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/signer"
)

// TransactionType tells whether a transaction changes ledger state.
type TransactionType uint8

const (
	// Read is a read-only call executed with Client.Call.
	Read TransactionType = iota
	// Write must be signed and submitted to take effect.
	Write
)

func (t TransactionType) String() string {
	if t == Write {
		return "write"
	}
	return "read"
}

// Transaction is an unsigned call to a ledger contract.
//
// The SDK keeps no reference to a transaction after returning it.
type Transaction struct {
	Type TransactionType
	// From is the sender. Nil for reads.
	From     *did.Address
	To       did.Address
	Nonce    uint64
	ChainID  *big.Int
	GasLimit uint64
	GasPrice *big.Int
	// Data is the ABI-encoded call data.
	Data []byte
}

// SignedTransaction is a signed raw transaction ready for submission.
//
// The SDK creates this transaction but does not submit it. TxHex is the value
// to send via eth_sendRawTransaction.
type SignedTransaction struct {
	TxHex  string `json:"txHex"`
	TxHash string `json:"txHash"`
}

// rlpTransaction is the canonical byte form of a Transaction.
type rlpTransaction struct {
	Type     uint8
	From     []byte
	To       common.Address
	Nonce    uint64
	ChainID  *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Data     []byte
}

// Bytes returns a deterministic RLP encoding of the transaction descriptor.
// Equal transactions always encode to equal bytes.
func (t *Transaction) Bytes() ([]byte, error) {
	enc := rlpTransaction{
		Type:     uint8(t.Type),
		To:       t.To.Common(),
		Nonce:    t.Nonce,
		ChainID:  bigOrZero(t.ChainID),
		GasLimit: t.GasLimit,
		GasPrice: bigOrZero(t.GasPrice),
		Data:     t.Data,
	}
	if t.From != nil {
		enc.From = t.From.Bytes()
	}

	data, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return data, nil
}

type transactionJSON struct {
	Type     string         `json:"type"`
	From     *did.Address   `json:"from,omitempty"`
	To       did.Address    `json:"to"`
	Nonce    hexutil.Uint64 `json:"nonce"`
	ChainID  *hexutil.Big   `json:"chainId"`
	GasLimit hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big   `json:"gasPrice,omitempty"`
	Data     hexutil.Bytes  `json:"data"`
}

// MarshalJSON encodes the transaction with hex quantities, as in JSON-RPC.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		Type:     t.Type.String(),
		From:     t.From,
		To:       t.To,
		Nonce:    hexutil.Uint64(t.Nonce),
		ChainID:  (*hexutil.Big)(bigOrZero(t.ChainID)),
		GasLimit: hexutil.Uint64(t.GasLimit),
		GasPrice: (*hexutil.Big)(t.GasPrice),
		Data:     t.Data,
	})
}

// CallMsg converts the transaction into a message for eth_call.
func (t *Transaction) CallMsg() ethereum.CallMsg {
	to := t.To.Common()
	msg := ethereum.CallMsg{
		To:   &to,
		Data: t.Data,
	}
	if t.From != nil {
		msg.From = t.From.Common()
	}
	return msg
}

// EthTransaction returns the unsigned legacy transaction for a write.
func (t *Transaction) EthTransaction() (*types.Transaction, error) {
	if t.Type != Write {
		return nil, fmt.Errorf("%s transactions cannot be sent to the ledger", t.Type)
	}
	if t.ChainID == nil || t.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain ID is required")
	}

	to := t.To.Common()
	return types.NewTx(&types.LegacyTx{
		Nonce:    t.Nonce,
		GasPrice: bigOrZero(t.GasPrice),
		Gas:      t.GasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     t.Data,
	}), nil
}

// SigningHash returns the EIP-155 hash an external signer must sign.
func (t *Transaction) SigningHash() (common.Hash, error) {
	tx, err := t.EthTransaction()
	if err != nil {
		return common.Hash{}, err
	}
	return types.NewEIP155Signer(t.ChainID).Hash(tx), nil
}

// Sign signs a write transaction with the provider and serializes it.
//
// The provider address must match From.
func (t *Transaction) Sign(provider signer.SignerProvider) (*SignedTransaction, error) {
	if provider == nil {
		return nil, fmt.Errorf("tx signer is required")
	}
	if t.From != nil && !strings.EqualFold(provider.GetAddress(), t.From.String()) {
		return nil, fmt.Errorf("signer address %s does not match transaction sender %s", provider.GetAddress(), t.From)
	}

	tx, err := t.EthTransaction()
	if err != nil {
		return nil, err
	}

	eip155Signer := types.NewEIP155Signer(t.ChainID)
	sig, err := provider.Sign(eip155Signer.Hash(tx).Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	signed, err := tx.WithSignature(eip155Signer, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to apply signature: %w", err)
	}

	return serializeTx(signed)
}

// serializeTx serializes a transaction to RLP-encoded hex format and computes its hash.
func serializeTx(tx *types.Transaction) (*SignedTransaction, error) {
	var buf bytes.Buffer

	if err := rlp.Encode(&buf, tx); err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	return &SignedTransaction{
		TxHex:  hex.EncodeToString(buf.Bytes()),
		TxHash: tx.Hash().Hex(),
	}, nil
}

// TxFromHex decodes a raw RLP transaction produced by Sign.
func TxFromHex(rawTxHex string) (*types.Transaction, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(rawTxHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex string: %w", err)
	}
	var tx types.Transaction
	if err := rlp.DecodeBytes(b, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode RLP: %w", err)
	}
	return &tx, nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
