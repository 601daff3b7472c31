package didregistry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/log"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// ResolveDid builds a resolve transaction, executes it and parses the result.
//
// A DidNotFound or DidHasBeenDeactivated revert from the contract is reported
// as a not found error. Other call failures are transport errors.
func ResolveDid(ctx context.Context, client ledger.Client, id did.DID) (*did.Document, error) {
	const op = "resolveDid"

	ctx = log.WithLogField(ctx, "did", id.String())

	tx, err := BuildResolveDidTransaction(ctx, client, id)
	if err != nil {
		return nil, err
	}

	out, err := client.Call(ctx, tx)
	if err != nil {
		if name, ok := revertReason(err); ok {
			switch name {
			case errDidNotFound:
				return nil, vdrerr.NotFound(op, "DID %s is not registered", id)
			case errDidHasBeenDeactivated:
				return nil, vdrerr.NotFound(op, "DID %s has been deactivated", id)
			}
			return nil, vdrerr.Wrap(vdrerr.KindTransport, op, fmt.Errorf("registry reverted with %s: %w", name, err))
		}
		return nil, vdrerr.Wrap(vdrerr.KindTransport, op, err)
	}

	doc, err := ParseResolveDidResult(client, out)
	if err != nil {
		return nil, err
	}

	log.L(ctx).Debugf("Resolved DID document with %d verification methods", len(doc.VerificationMethod))
	return doc, nil
}

// revertReason extracts the name of the contract error carried by a failed
// call, or the message of a plain Error(string) revert.
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}

	var data []byte
	switch v := dataErr.ErrorData().(type) {
	case string:
		b, err := hexutil.Decode(v)
		if err != nil {
			return "", false
		}
		data = b
	case []byte:
		data = v
	default:
		return "", false
	}
	if len(data) < 4 {
		return "", false
	}

	contractABI, err := loadABI()
	if err != nil {
		return "", false
	}
	for name, abiErr := range contractABI.Errors {
		if _, err := abiErr.Unpack(data); err == nil {
			return name, true
		}
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}
	return "", false
}
