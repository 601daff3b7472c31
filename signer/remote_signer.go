package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultRemoteTimeout bounds a single remote signing request.
const DefaultRemoteTimeout = 10 * time.Second

// RemoteProvider signs hashes through an HTTP signing service holding the key.
//
// The service receives {"payload_hex": "<32 byte hash>"} and answers with
// {"signature_hex": "<65 byte signature>"}.
type RemoteProvider struct {
	endpoint string
	apiKey   string
	address  string
	client   *http.Client
}

// NewRemoteProvider creates a RemoteProvider for the key of the given account address.
func NewRemoteProvider(endpoint, apiKey, address string) (SignerProvider, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if address == "" {
		return nil, fmt.Errorf("signer address required")
	}

	return &RemoteProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		address:  strings.ToLower(address),
		client: &http.Client{
			Timeout:   DefaultRemoteTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Sign signs a hash using the remote API.
func (s *RemoteProvider) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("payload must be 32 bytes, got %d", len(hash))
	}

	reqBody, err := json.Marshal(map[string]any{
		"payload_hex": hex.EncodeToString(hash),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote signer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer http %d", resp.StatusCode)
	}

	var out struct {
		SignatureHex string `json:"signature_hex"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode remote signer response: %w", err)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(out.SignatureHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}

	// Remote services commonly return v as 27/28.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	return sig, nil
}

// GetAddress returns the configured signer address.
func (s *RemoteProvider) GetAddress() string {
	return s.address
}
