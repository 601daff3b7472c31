package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-registry-sdk/config"
	"github.com/pilacorp/go-did-registry-sdk/contracts/didregistry"
	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/ledger/ledgermock"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

const (
	testDID        = "did:indy:test:123"
	testPrivateKey = "0x8f49e4492f97ca6334e15117fc6c4c06f4652cac7fb27ed4ecc5ef9ea6ad5820"
	testSender     = "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e"
	testDocJSON    = `{
		"@context": ["https://www.w3.org/ns/did/v1"],
		"id": "did:indy:test:123",
		"verificationMethod": [{
			"id": "did:indy:test:123#KEY-1",
			"type": "Ed25519VerificationKey2018",
			"controller": "did:indy:test:123",
			"publicKeyBase58": "H3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV"
		}],
		"authentication": ["did:indy:test:123#KEY-1"]
	}`
)

type mockLedger struct {
	*ledgermock.Client
	submitted []string
}

func (m *mockLedger) SubmitTransaction(_ context.Context, txHex string) (common.Hash, error) {
	m.submitted = append(m.submitted, txHex)
	tx, err := ledger.TxFromHex(txHex)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (m *mockLedger) Close() {}

func useMockLedger(t *testing.T) *mockLedger {
	m := &mockLedger{Client: ledgermock.New(config.DefaultChainID, didregistry.ContractName, did.MustParseAddress(config.DefaultDidRegistryAddress))}
	orig := dialLedger
	dialLedger = func(context.Context, *config.Config) (ledgerClient, error) { return m, nil }
	t.Cleanup(func() { dialLedger = orig })
	return m
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(testDocJSON), 0o600))
	return path
}

func TestBuildResolveCommand(t *testing.T) {
	useMockLedger(t)

	out, err := run(t, "build", "resolve", testDID)
	require.NoError(t, err)

	var tx map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tx))
	assert.Equal(t, "read", tx["type"])
	assert.Equal(t, config.DefaultDidRegistryAddress, tx["to"])
	assert.NotContains(t, tx, "from")
}

func TestBuildCreateCommand(t *testing.T) {
	useMockLedger(t)

	out, err := run(t, "build", "create", "--from", testSender, "--doc", writeDoc(t))
	require.NoError(t, err)

	var tx struct {
		Type string        `json:"type"`
		From string        `json:"from"`
		Data hexutil.Bytes `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tx))
	assert.Equal(t, "write", tx.Type)
	assert.Equal(t, testSender, tx.From)

	doc, err := didregistry.ParseCreateDidCallData(tx.Data)
	require.NoError(t, err)
	assert.Equal(t, testDID, doc.ID.String())
}

func TestBuildAndSubmitSigned(t *testing.T) {
	m := useMockLedger(t)

	out, err := run(t, "build", "deactivate", "--from", testSender, "--private-key", testPrivateKey, testDID)
	require.NoError(t, err)

	var signed ledger.SignedTransaction
	require.NoError(t, json.Unmarshal([]byte(out), &signed))
	require.NotEmpty(t, signed.TxHex)

	out, err = run(t, "submit", signed.TxHex)
	require.NoError(t, err)
	assert.Contains(t, out, signed.TxHash)
	assert.Equal(t, []string{signed.TxHex}, m.submitted)
}

func TestBuildSignedRemotely(t *testing.T) {
	useMockLedger(t)

	key, err := crypto.HexToECDSA(testPrivateKey[2:])
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		var req struct {
			PayloadHex string `json:"payload_hex"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		hash, err := hex.DecodeString(req.PayloadHex)
		require.NoError(t, err)
		sig, err := crypto.Sign(hash, key)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]string{"signature_hex": hex.EncodeToString(sig)})
	}))
	defer srv.Close()

	out, err := run(t, "build", "create", "--from", testSender, "--doc", writeDoc(t),
		"--signer-url", srv.URL, "--signer-api-key", "secret")
	require.NoError(t, err)

	var signed ledger.SignedTransaction
	require.NoError(t, json.Unmarshal([]byte(out), &signed))
	tx, err := ledger.TxFromHex(signed.TxHex)
	require.NoError(t, err)
	assert.Equal(t, signed.TxHash, tx.Hash().Hex())

	_, err = run(t, "build", "create", "--from", testSender, "--doc", writeDoc(t),
		"--signer-url", srv.URL, "--private-key", testPrivateKey)
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestResolveAndParseCommands(t *testing.T) {
	m := useMockLedger(t)

	doc, err := did.ParseDocumentJSON([]byte(testDocJSON))
	require.NoError(t, err)
	doc.Metadata = &did.DocumentMetadata{
		Owner:   did.MustParseAddress(testSender),
		Sender:  did.MustParseAddress(testSender),
		Created: 1,
		Updated: 1,
	}
	data, err := didregistry.EncodeResolveDidResult(doc)
	require.NoError(t, err)
	m.CallResult = data

	for _, args := range [][]string{
		{"resolve", testDID},
		{"parse", hexutil.Encode(data)},
	} {
		out, err := run(t, args...)
		require.NoError(t, err)

		resolved, err := did.ParseDocumentJSON([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, doc, resolved)
	}
}

func TestCommandErrors(t *testing.T) {
	useMockLedger(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"invalid sender", []string{"build", "deactivate", "--from", "0xabc", testDID}, vdrerr.ErrValidation},
		{"invalid DID", []string{"build", "resolve", "not-a-did"}, vdrerr.ErrValidation},
		{"short result", []string{"parse", "0x1234"}, vdrerr.ErrDecoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
