package did

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

func TestParseDocumentJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name: "valid document",
			input: `{
				"@context": ["https://www.w3.org/ns/did/v1"],
				"id": "did:indy:test:123",
				"verificationMethod": [{
					"id": "did:indy:test:123#KEY-1",
					"type": "Ed25519VerificationKey2018",
					"controller": "did:indy:test:123",
					"publicKeyBase58": "H3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV"
				}],
				"authentication": ["did:indy:test:123#KEY-1"],
				"service": [{
					"id": "did:indy:test:123#agent",
					"type": "DIDCommMessaging",
					"serviceEndpoint": "https://agent.example.com"
				}]
			}`,
		},
		{name: "not json", input: `{"@context":`, wantErr: true},
		{name: "missing id", input: `{"@context": ["https://www.w3.org/ns/did/v1"]}`, wantErr: true},
		{name: "bad id pattern", input: `{"@context": ["https://www.w3.org/ns/did/v1"], "id": "urn:uuid:1"}`, wantErr: true},
		{
			name: "unknown method field",
			input: `{
				"@context": ["https://www.w3.org/ns/did/v1"],
				"id": "did:indy:test:123",
				"verificationMethod": [{
					"id": "did:indy:test:123#KEY-1",
					"type": "Ed25519VerificationKey2018",
					"controller": "did:indy:test:123",
					"publicKeyPem": "-----BEGIN PUBLIC KEY-----"
				}]
			}`,
			wantErr: true,
		},
		{
			name: "schema valid but dangling reference",
			input: `{
				"@context": ["https://www.w3.org/ns/did/v1"],
				"id": "did:indy:test:123",
				"authentication": ["did:indy:test:123#KEY-9"]
			}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocumentJSON([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, vdrerr.ErrValidation)
				assert.Nil(t, doc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "did:indy:test:123", doc.ID.String())
			require.Len(t, doc.VerificationMethod, 1)
			require.Len(t, doc.Service, 1)
		})
	}
}

func TestParseDocumentJSONEmptyLists(t *testing.T) {
	doc, err := ParseDocumentJSON([]byte(`{
		"@context": ["https://www.w3.org/ns/did/v1"],
		"id": "did:indy:test:123",
		"controller": [],
		"verificationMethod": [],
		"keyAgreement": [],
		"service": [{
			"id": "did:indy:test:123#agent",
			"type": "DIDCommMessaging",
			"serviceEndpoint": "https://agent.example.com",
			"accept": []
		}]
	}`))
	require.NoError(t, err)
	assert.Nil(t, doc.Controller)
	assert.Nil(t, doc.VerificationMethod)
	assert.Nil(t, doc.KeyAgreement)
	assert.Nil(t, doc.Service[0].Accept)

	_, err = ParseDocumentJSON([]byte(`{"@context": [], "id": "did:indy:test:123"}`))
	assert.ErrorIs(t, err, vdrerr.ErrValidation)
}

func TestDocumentMapRoundTrip(t *testing.T) {
	doc := newTestDocument()

	m, err := doc.ToMap()
	require.NoError(t, err)
	assert.Equal(t, testDID, m["id"])

	parsed, err := ParseDocumentMap(m)
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)

	m["verificationMethod"] = "not-a-list"
	_, err = ParseDocumentMap(m)
	assert.ErrorIs(t, err, vdrerr.ErrValidation)
}

func TestDocumentSchemaAcceptsResolvedMetadata(t *testing.T) {
	doc := newTestDocument()
	doc.Metadata = &DocumentMetadata{
		Owner:   MustParseAddress("0xabc0000000000000000000000000000000000001"),
		Sender:  MustParseAddress("0xabc0000000000000000000000000000000000001"),
		Created: 1700000000,
		Updated: 1700000000,
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	parsed, err := ParseDocumentJSON(data)
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)
}
