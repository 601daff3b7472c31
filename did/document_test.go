package did

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

const (
	testDID          = "did:indy:test:123"
	ed25519Base58    = "H3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV"
	ed25519Multibase = "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
	x25519Multibase  = "z6LSbysY2xFMRpGMhb7tFTLMpeuPRaqaWM1yECx2AtzE3KCc"
	secp256k1Hex     = "0x0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	secp256k1MB      = "zQ3shVc2UkAfJCdc1TR8E66J85h48P43r93q8jGPkPpjF9Ef9"
	secp256k1JwkX    = "eb5mfvncu6xVoGKVzocLBwKb_NstzijZWfKBWxb4F5g"
	secp256k1JwkY    = "SDradyajxGVdpPv8DhEIqP0XtEimhVQZnEfQj_sQ1Lg"
	ed25519JwkX      = "7kqc5NnojHJHZ11Ec5cGCLMIKgJVDBKhrAbu9YrfVFg"
)

func newTestDocument() *Document {
	return &Document{
		Context: []string{ContextDIDv1},
		ID:      MustParseDID(testDID),
		VerificationMethod: []VerificationMethod{{
			ID:              testDID + "#KEY-1",
			Type:            Ed25519VerificationKey2018,
			Controller:      testDID,
			PublicKeyBase58: ed25519Base58,
		}},
		Authentication: []VerificationRelationship{RefTo(testDID + "#KEY-1")},
		Service: []Service{{
			ID:              testDID + "#did-communication",
			Type:            "did-communication",
			ServiceEndpoint: "https://agent.example.com/8377464",
		}},
	}
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Document)
		wantErr bool
	}{
		{name: "valid", mutate: func(d *Document) {}},
		{name: "relative reference", mutate: func(d *Document) {
			d.VerificationMethod[0].ID = "#KEY-1"
			d.Authentication = []VerificationRelationship{RefTo("#KEY-1")}
		}},
		{name: "embedded method", mutate: func(d *Document) {
			d.KeyAgreement = []VerificationRelationship{Embed(VerificationMethod{
				ID:                 testDID + "#KEY-2",
				Type:               X25519KeyAgreementKey2020,
				Controller:         testDID,
				PublicKeyMultibase: x25519Multibase,
			})}
		}},
		{name: "missing context", mutate: func(d *Document) { d.Context = nil }, wantErr: true},
		{name: "empty context", mutate: func(d *Document) { d.Context = []string{} }, wantErr: true},
		{name: "missing id", mutate: func(d *Document) { d.ID = DID{} }, wantErr: true},
		{name: "invalid controller", mutate: func(d *Document) { d.Controller = []string{"alice"} }, wantErr: true},
		{name: "duplicate method id", mutate: func(d *Document) {
			d.VerificationMethod = append(d.VerificationMethod, d.VerificationMethod[0])
		}, wantErr: true},
		{name: "duplicate embedded id", mutate: func(d *Document) {
			d.AssertionMethod = []VerificationRelationship{Embed(d.VerificationMethod[0])}
		}, wantErr: true},
		{name: "dangling reference", mutate: func(d *Document) {
			d.Authentication = []VerificationRelationship{RefTo(testDID + "#missing")}
		}, wantErr: true},
		{name: "empty reference", mutate: func(d *Document) {
			d.Authentication = []VerificationRelationship{{}}
		}, wantErr: true},
		{name: "method id without fragment", mutate: func(d *Document) {
			d.VerificationMethod[0].ID = testDID
		}, wantErr: true},
		{name: "two keys", mutate: func(d *Document) {
			d.VerificationMethod[0].PublicKeyHex = secp256k1Hex
		}, wantErr: true},
		{name: "no key", mutate: func(d *Document) {
			d.VerificationMethod[0].PublicKeyBase58 = ""
		}, wantErr: true},
		{name: "short ed25519 key", mutate: func(d *Document) {
			d.VerificationMethod[0].PublicKeyBase58 = "3yZe7d"
		}, wantErr: true},
		{name: "duplicate service", mutate: func(d *Document) {
			d.Service = append(d.Service, d.Service[0])
		}, wantErr: true},
		{name: "service without endpoint", mutate: func(d *Document) {
			d.Service[0].ServiceEndpoint = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newTestDocument()
			tt.mutate(doc)

			err := doc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, vdrerr.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDocumentNormalized(t *testing.T) {
	doc := newTestDocument()
	doc.Controller = []string{}
	doc.AlsoKnownAs = []string{}
	doc.AssertionMethod = []VerificationRelationship{}
	doc.Service[0].Accept = []string{}
	doc.Service[0].RoutingKeys = []string{}

	norm := doc.Normalized()
	assert.Nil(t, norm.Controller)
	assert.Nil(t, norm.AlsoKnownAs)
	assert.Nil(t, norm.AssertionMethod)
	assert.Nil(t, norm.Service[0].Accept)
	assert.Nil(t, norm.Service[0].RoutingKeys)
	assert.Equal(t, doc.Authentication, norm.Authentication)
	assert.Equal(t, norm, norm.Normalized())

	// The receiver is left untouched.
	assert.Equal(t, []string{}, doc.Controller)
	assert.Equal(t, []string{}, doc.Service[0].Accept)

	plain := newTestDocument()
	assert.Equal(t, plain, plain.Normalized())
}

func TestVerificationMethodKeys(t *testing.T) {
	tests := []struct {
		name    string
		vm      VerificationMethod
		wantErr bool
	}{
		{name: "ed25519 2020", vm: VerificationMethod{Type: Ed25519VerificationKey2020, PublicKeyMultibase: ed25519Multibase}},
		{name: "ed25519 2020 wrong codec", vm: VerificationMethod{Type: Ed25519VerificationKey2020, PublicKeyMultibase: x25519Multibase}, wantErr: true},
		{name: "ed25519 2020 not base58btc", vm: VerificationMethod{Type: Ed25519VerificationKey2020, PublicKeyMultibase: "m" + ed25519Multibase[1:]}, wantErr: true},
		{name: "x25519 2019", vm: VerificationMethod{Type: X25519KeyAgreementKey2019, PublicKeyBase58: ed25519Base58}},
		{name: "secp256k1 hex", vm: VerificationMethod{Type: EcdsaSecp256k1VerificationKey2019, PublicKeyHex: secp256k1Hex}},
		{name: "secp256k1 hex truncated", vm: VerificationMethod{Type: EcdsaSecp256k1VerificationKey2019, PublicKeyHex: "0x0279be667e"}, wantErr: true},
		{name: "secp256k1 multibase", vm: VerificationMethod{Type: EcdsaSecp256k1VerificationKey2019, PublicKeyMultibase: secp256k1MB}},
		{name: "secp256k1 jwk", vm: VerificationMethod{Type: EcdsaSecp256k1VerificationKey2019, PublicKeyJwk: &JWK{Kty: "EC", Crv: "secp256k1", X: secp256k1JwkX, Y: secp256k1JwkY}}},
		{name: "secp256k1 jwk bad y", vm: VerificationMethod{Type: JSONWebKey2020, PublicKeyJwk: &JWK{Kty: "EC", Crv: "secp256k1", X: secp256k1JwkX, Y: secp256k1JwkX}}, wantErr: true},
		{name: "secp256k1 base58", vm: VerificationMethod{Type: EcdsaSecp256k1VerificationKey2019, PublicKeyBase58: ed25519Base58}, wantErr: true},
		{name: "okp jwk", vm: VerificationMethod{Type: JSONWebKey2020, PublicKeyJwk: &JWK{Kty: "OKP", Crv: "Ed25519", X: ed25519JwkX}}},
		{name: "unknown jwk curve", vm: VerificationMethod{Type: JSONWebKey2020, PublicKeyJwk: &JWK{Kty: "EC", Crv: "P-521", X: ed25519JwkX}}, wantErr: true},
		{name: "unsupported type passes validation", vm: VerificationMethod{Type: "RsaVerificationKey2018", PublicKeyHex: "0xdeadbeef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := tt.vm
			vm.ID = testDID + "#key"
			vm.Controller = testDID

			err := vm.validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, vdrerr.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerificationRelationshipJSON(t *testing.T) {
	doc := newTestDocument()
	doc.AssertionMethod = []VerificationRelationship{Embed(VerificationMethod{
		ID:           testDID + "#KEY-2",
		Type:         EcdsaSecp256k1VerificationKey2019,
		Controller:   testDID,
		PublicKeyHex: secp256k1Hex,
	})}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{testDID + "#KEY-1"}, raw["authentication"])
	assert.IsType(t, map[string]any{}, raw["assertionMethod"].([]any)[0])

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *doc, decoded)

	vm, ok := decoded.VerificationMethodByID(testDID + "#KEY-2")
	require.True(t, ok)
	assert.Equal(t, EcdsaSecp256k1VerificationKey2019, vm.Type)
	_, ok = decoded.VerificationMethodByID(testDID + "#nope")
	assert.False(t, ok)
}
