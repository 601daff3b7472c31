// Package signer provides the key holders that sign registry transactions.
//
// The SDK never submits transactions. A caller signs the unsigned
// transaction returned by a builder with a SignerProvider and submits the raw
// bytes through whatever channel it prefers.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of a recoverable secp256k1 signature (r || s || v).
const SignatureLength = crypto.SignatureLength

// SignerProvider is the interface for the signer provider.
type SignerProvider interface {
	// Sign signs a 32-byte hash and returns a 65-byte recoverable signature
	// with v in {0, 1}.
	Sign(hash []byte) ([]byte, error)
	// GetAddress returns the lowercase 0x-prefixed account address of the key.
	GetAddress() string
}

// DefaultProvider signs with an in-memory private key.
type DefaultProvider struct {
	priv *ecdsa.PrivateKey
}

// NewDefaultProvider creates a new default signer provider.
//
// privHex is the private key in hex format, with or without the 0x prefix.
// Returns the signer provider or an error if the private key is invalid.
func NewDefaultProvider(privHex string) (SignerProvider, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &DefaultProvider{priv: priv}, nil
}

// NewProviderFromKey wraps an existing private key.
func NewProviderFromKey(priv *ecdsa.PrivateKey) SignerProvider {
	return &DefaultProvider{priv: priv}
}

// Sign signs the hash.
func (s *DefaultProvider) Sign(hash []byte) ([]byte, error) {
	signature, err := crypto.Sign(hash, s.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("invalid signature length: expected %d bytes, got %d", SignatureLength, len(signature))
	}

	return signature, nil
}

// GetAddress returns the address of the signer.
func (s *DefaultProvider) GetAddress() string {
	return strings.ToLower(crypto.PubkeyToAddress(s.priv.PublicKey).Hex())
}
