// Package didregistry builds unsigned transactions for the DidRegistry
// contract and decodes what the contract returns.
//
// This package handles:
//   - Building create, update, deactivate and resolve transactions
//   - Decoding resolve results and create/update call data back into documents
//   - Resolving a DID end to end through a ledger.Client
//
// The SDK does not sign or submit write transactions. Callers sign them with
// ledger.Transaction.Sign and submit the raw transaction separately.
package didregistry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ContractName is the configured name of the registry contract.
const ContractName = "DidRegistry"

// Registry contract methods.
const (
	methodCreateDid     = "createDid"
	methodUpdateDid     = "updateDid"
	methodDeactivateDid = "deactivateDid"
	methodResolveDid    = "resolveDid"
)

// Registry contract errors.
const (
	errDidNotFound           = "DidNotFound"
	errDidHasBeenDeactivated = "DidHasBeenDeactivated"
)

//go:embed did_registry_abi.json
var smcABIJSON []byte

var (
	parsedABI    abi.ABI
	parseABIOnce sync.Once
	errParseABI  error
)

// loadABI loads and parses the DidRegistry contract ABI exactly once.
func loadABI() (abi.ABI, error) {
	parseABIOnce.Do(func() {
		type hardhatArtifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		var artifact hardhatArtifact
		if err := json.Unmarshal(smcABIJSON, &artifact); err != nil {
			errParseABI = fmt.Errorf("failed to unmarshal artifact JSON: %w", err)
			return
		}
		parsedABI, errParseABI = abi.JSON(strings.NewReader(string(artifact.ABI)))
	})

	return parsedABI, errParseABI
}
