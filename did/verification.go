package did

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// VerificationMethodType names the key suite of a verification method.
type VerificationMethodType string

// Verification method types the registry can store.
const (
	Ed25519VerificationKey2018        VerificationMethodType = "Ed25519VerificationKey2018"
	Ed25519VerificationKey2020        VerificationMethodType = "Ed25519VerificationKey2020"
	X25519KeyAgreementKey2019         VerificationMethodType = "X25519KeyAgreementKey2019"
	X25519KeyAgreementKey2020         VerificationMethodType = "X25519KeyAgreementKey2020"
	JSONWebKey2020                    VerificationMethodType = "JsonWebKey2020"
	EcdsaSecp256k1VerificationKey2019 VerificationMethodType = "EcdsaSecp256k1VerificationKey2019"
)

var supportedTypes = map[VerificationMethodType]struct{}{
	Ed25519VerificationKey2018:        {},
	Ed25519VerificationKey2020:        {},
	X25519KeyAgreementKey2019:         {},
	X25519KeyAgreementKey2020:         {},
	JSONWebKey2020:                    {},
	EcdsaSecp256k1VerificationKey2019: {},
}

// IsSupported reports whether the registry has an on-chain encoding for t.
func (t VerificationMethodType) IsSupported() bool {
	_, ok := supportedTypes[t]
	return ok
}

// Multicodec prefixes of multibase-encoded public keys.
var (
	ed25519PubCodec   = []byte{0xed, 0x01}
	x25519PubCodec    = []byte{0xec, 0x01}
	secp256k1PubCodec = []byte{0xe7, 0x01}
)

const curve25519KeySize = 32

// VerificationMethod is public key material associated with a DID.
//
// Exactly one of the PublicKey* fields is set.
type VerificationMethod struct {
	ID                 string                 `json:"id"`
	Type               VerificationMethodType `json:"type"`
	Controller         string                 `json:"controller"`
	PublicKeyJwk       *JWK                   `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string                 `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58    string                 `json:"publicKeyBase58,omitempty"`
	PublicKeyHex       string                 `json:"publicKeyHex,omitempty"`
}

// JWK is a public JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y,omitempty"`
	Kid string `json:"kid,omitempty"`
}

// keyCount returns how many key encodings are set.
func (vm VerificationMethod) keyCount() int {
	n := 0
	if vm.PublicKeyJwk != nil {
		n++
	}
	for _, s := range []string{vm.PublicKeyMultibase, vm.PublicKeyBase58, vm.PublicKeyHex} {
		if s != "" {
			n++
		}
	}
	return n
}

// validate checks the shape of the method and, for supported types, that the
// key material decodes to a key of the right curve. Unsupported types pass
// here and are rejected when the document is encoded for the ledger.
func (vm VerificationMethod) validate() error {
	const op = "validateVerificationMethod"

	if vm.ID == "" {
		return vdrerr.Validation(op, "verification method id is required")
	}
	if !strings.HasPrefix(vm.ID, "#") {
		if !strings.Contains(vm.ID, "#") {
			return vdrerr.Validation(op, "verification method id %q must be a DID URL with a fragment", vm.ID)
		}
		if _, err := ParseDID(baseDID(vm.ID)); err != nil {
			return vdrerr.Validation(op, "verification method id %q is not a DID URL", vm.ID)
		}
	}
	if vm.Type == "" {
		return vdrerr.Validation(op, "verification method %q has no type", vm.ID)
	}
	if _, err := ParseDID(vm.Controller); err != nil {
		return vdrerr.Validation(op, "verification method %q has an invalid controller %q", vm.ID, vm.Controller)
	}
	if n := vm.keyCount(); n != 1 {
		return vdrerr.Validation(op, "verification method %q must carry exactly one public key, got %d", vm.ID, n)
	}

	if !vm.Type.IsSupported() {
		return nil
	}
	if err := vm.checkKey(); err != nil {
		return vdrerr.Validation(op, "verification method %q: %v", vm.ID, err)
	}
	return nil
}

func (vm VerificationMethod) checkKey() error {
	switch vm.Type {
	case Ed25519VerificationKey2018, X25519KeyAgreementKey2019:
		if vm.PublicKeyBase58 == "" {
			return fmt.Errorf("%s requires publicKeyBase58", vm.Type)
		}
		return checkCurve25519Base58(vm.PublicKeyBase58)

	case Ed25519VerificationKey2020:
		if vm.PublicKeyMultibase == "" {
			return fmt.Errorf("%s requires publicKeyMultibase", vm.Type)
		}
		return checkMultibaseKey(vm.PublicKeyMultibase, ed25519PubCodec, curve25519KeySize)

	case X25519KeyAgreementKey2020:
		if vm.PublicKeyMultibase == "" {
			return fmt.Errorf("%s requires publicKeyMultibase", vm.Type)
		}
		return checkMultibaseKey(vm.PublicKeyMultibase, x25519PubCodec, curve25519KeySize)

	case JSONWebKey2020:
		if vm.PublicKeyJwk == nil {
			return fmt.Errorf("%s requires publicKeyJwk", vm.Type)
		}
		return vm.PublicKeyJwk.check()

	case EcdsaSecp256k1VerificationKey2019:
		switch {
		case vm.PublicKeyHex != "":
			return checkSecp256k1Hex(vm.PublicKeyHex)
		case vm.PublicKeyJwk != nil:
			return vm.PublicKeyJwk.check()
		case vm.PublicKeyMultibase != "":
			return checkMultibaseSecp256k1(vm.PublicKeyMultibase)
		default:
			return fmt.Errorf("%s does not support publicKeyBase58", vm.Type)
		}
	}
	return nil
}

func checkCurve25519Base58(s string) error {
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 key: %w", err)
	}
	if len(raw) != curve25519KeySize {
		return fmt.Errorf("key must be %d bytes, got %d", curve25519KeySize, len(raw))
	}
	return nil
}

// decodeMultibase decodes a base58btc ('z') multibase string.
func decodeMultibase(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "z") {
		return nil, fmt.Errorf("multibase key must use base58btc ('z') encoding")
	}
	raw, err := base58.Decode(s[1:])
	if err != nil {
		return nil, fmt.Errorf("invalid base58btc key: %w", err)
	}
	return raw, nil
}

func checkMultibaseKey(s string, codec []byte, size int) error {
	raw, err := decodeMultibase(s)
	if err != nil {
		return err
	}
	if len(raw) != len(codec)+size || raw[0] != codec[0] || raw[1] != codec[1] {
		return fmt.Errorf("multibase key must be a %x-prefixed %d byte key", codec, size)
	}
	return nil
}

func checkMultibaseSecp256k1(s string) error {
	raw, err := decodeMultibase(s)
	if err != nil {
		return err
	}
	if len(raw) <= len(secp256k1PubCodec) || raw[0] != secp256k1PubCodec[0] || raw[1] != secp256k1PubCodec[1] {
		return fmt.Errorf("multibase key is not a secp256k1-pub key")
	}
	if _, err := secp256k1.ParsePubKey(raw[len(secp256k1PubCodec):]); err != nil {
		return fmt.Errorf("invalid secp256k1 key: %w", err)
	}
	return nil
}

func checkSecp256k1Hex(s string) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex key: %w", err)
	}
	if _, err := secp256k1.ParsePubKey(raw); err != nil {
		return fmt.Errorf("invalid secp256k1 key: %w", err)
	}
	return nil
}

func (k *JWK) check() error {
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return fmt.Errorf("invalid jwk x: %w", err)
	}

	switch {
	case k.Kty == "OKP" && (k.Crv == "Ed25519" || k.Crv == "X25519"):
		if len(x) != curve25519KeySize {
			return fmt.Errorf("jwk x must be %d bytes, got %d", curve25519KeySize, len(x))
		}
		if k.Y != "" {
			return fmt.Errorf("OKP jwk must not have y")
		}
		return nil

	case k.Kty == "EC" && k.Crv == "secp256k1":
		y, err := base64.RawURLEncoding.DecodeString(k.Y)
		if err != nil {
			return fmt.Errorf("invalid jwk y: %w", err)
		}
		if len(x) != 32 || len(y) != 32 {
			return fmt.Errorf("secp256k1 jwk coordinates must be 32 bytes")
		}
		point := make([]byte, 0, 65)
		point = append(point, 0x04)
		point = append(point, x...)
		point = append(point, y...)
		if _, err := btcec.ParsePubKey(point); err != nil {
			return fmt.Errorf("jwk is not a secp256k1 point: %w", err)
		}
		return nil

	case k.Kty == "EC" && k.Crv == "P-256":
		y, err := base64.RawURLEncoding.DecodeString(k.Y)
		if err != nil {
			return fmt.Errorf("invalid jwk y: %w", err)
		}
		if len(x) != 32 || len(y) != 32 {
			return fmt.Errorf("P-256 jwk coordinates must be 32 bytes")
		}
		return nil

	default:
		return fmt.Errorf("unsupported jwk kty %q crv %q", k.Kty, k.Crv)
	}
}
