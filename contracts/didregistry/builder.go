package didregistry

import (
	"context"
	"fmt"

	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/log"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// BuildCreateDidTransaction builds an unsigned transaction registering doc.
//
// The sender and the document are validated before any network round trip.
// An unsupported verification method type fails with an encoding error.
func BuildCreateDidTransaction(ctx context.Context, client ledger.Client, from did.Address, doc *did.Document) (*ledger.Transaction, error) {
	return buildDocumentTransaction(ctx, client, from, doc, "buildCreateDidTransaction", methodCreateDid)
}

// BuildUpdateDidTransaction builds an unsigned transaction replacing the
// stored document of doc.ID.
//
// Whether the DID exists is checked by the contract when the transaction is
// executed, not here.
func BuildUpdateDidTransaction(ctx context.Context, client ledger.Client, from did.Address, doc *did.Document) (*ledger.Transaction, error) {
	return buildDocumentTransaction(ctx, client, from, doc, "buildUpdateDidTransaction", methodUpdateDid)
}

// BuildDeactivateDidTransaction builds an unsigned transaction deactivating
// id. The call data carries the identifier only.
func BuildDeactivateDidTransaction(ctx context.Context, client ledger.Client, from did.Address, id did.DID) (*ledger.Transaction, error) {
	const op = "buildDeactivateDidTransaction"

	if err := checkClient(op, client); err != nil {
		return nil, err
	}
	if err := checkSender(op, from); err != nil {
		return nil, err
	}
	if err := checkDID(op, id); err != nil {
		return nil, err
	}

	data, err := pack(op, methodDeactivateDid, id.String())
	if err != nil {
		return nil, err
	}

	return newTransaction(ctx, client, op, &from, data)
}

// BuildResolveDidTransaction builds a read-only call returning the stored
// document of id. It needs no sender, nonce or gas, so equal inputs against
// the same chain always produce equal transactions.
//
// A missing DID is reported when the call is executed.
func BuildResolveDidTransaction(ctx context.Context, client ledger.Client, id did.DID) (*ledger.Transaction, error) {
	const op = "buildResolveDidTransaction"

	if err := checkClient(op, client); err != nil {
		return nil, err
	}
	if err := checkDID(op, id); err != nil {
		return nil, err
	}

	data, err := pack(op, methodResolveDid, id.String())
	if err != nil {
		return nil, err
	}

	return newTransaction(ctx, client, op, nil, data)
}

func buildDocumentTransaction(ctx context.Context, client ledger.Client, from did.Address, doc *did.Document, op, method string) (*ledger.Transaction, error) {
	if err := checkClient(op, client); err != nil {
		return nil, err
	}
	if err := checkSender(op, from); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	onchain, err := toOnchain(doc)
	if err != nil {
		return nil, err
	}

	data, err := pack(op, method, onchain)
	if err != nil {
		return nil, err
	}

	return newTransaction(ctx, client, op, &from, data)
}

// newTransaction fetches chain metadata and assembles the transaction. A nil
// from builds a read.
func newTransaction(ctx context.Context, client ledger.Client, op string, from *did.Address, data []byte) (*ledger.Transaction, error) {
	meta, err := client.ChainMetadata(ctx, ledger.MetadataRequest{Contract: ContractName, From: from})
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindTransport, op, err)
	}

	tx := &ledger.Transaction{
		Type:    ledger.Read,
		To:      meta.ContractAddress,
		ChainID: meta.ChainID,
		Data:    data,
	}
	if from != nil {
		sender := *from
		tx.Type = ledger.Write
		tx.From = &sender
		tx.Nonce = meta.Nonce
		tx.GasLimit = meta.GasLimit
		tx.GasPrice = meta.GasPrice
	}

	log.L(ctx).Debugf("Built %s transaction to %s with %d bytes of call data", tx.Type, tx.To, len(tx.Data))
	return tx, nil
}

func pack(op, method string, args ...any) ([]byte, error) {
	contractABI, err := loadABI()
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindEncoding, op, err)
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindEncoding, op, fmt.Errorf("failed to pack %s: %w", method, err))
	}
	return data, nil
}

func checkClient(op string, client ledger.Client) error {
	if client == nil {
		return vdrerr.Validation(op, "ledger client is required")
	}
	return nil
}

func checkSender(op string, from did.Address) error {
	if from.IsZero() {
		return vdrerr.Validation(op, "sender address is required")
	}
	return nil
}

func checkDID(op string, id did.DID) error {
	if id.IsZero() {
		return vdrerr.Validation(op, "DID is required")
	}
	return nil
}
