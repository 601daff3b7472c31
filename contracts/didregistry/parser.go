package didregistry

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// abiWordSize is the size of the fixed head of any ABI-encoded return value.
const abiWordSize = 32

// ParseResolveDidResult decodes the bytes returned by executing a resolve
// transaction into the stored document, with its ledger metadata attached.
//
// Metadata is nil when the stored record carries none.
//
// Malformed input fails with a decoding error. An empty or deactivated entry
// fails with a not found error. Parsing does no I/O and equal bytes always
// produce equal documents.
func ParseResolveDidResult(client ledger.Client, data []byte) (*did.Document, error) {
	const op = "parseResolveDidResult"

	if err := checkClient(op, client); err != nil {
		return nil, err
	}
	if len(data) < abiWordSize {
		return nil, vdrerr.Decoding(op, "result is %d bytes, expected at least %d", len(data), abiWordSize)
	}

	var storage didDocumentStorage
	if err := unpack(&storage, func(contractABI abi.ABI) ([]any, error) {
		return contractABI.Unpack(methodResolveDid, data)
	}); err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindDecoding, op, err)
	}

	if storage.Document.ID == "" {
		return nil, vdrerr.NotFound(op, "DID is not registered")
	}
	if storage.Metadata.Deactivated {
		return nil, vdrerr.NotFound(op, "DID %s has been deactivated", storage.Document.ID)
	}

	doc, err := fromOnchain(storage.Document)
	if err != nil {
		return nil, err
	}
	if doc.Metadata, err = fromOnchainMetadata(storage.Metadata); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseCreateDidCallData decodes the document carried by createDid call data.
func ParseCreateDidCallData(data []byte) (*did.Document, error) {
	return parseDocumentCallData("parseCreateDidCallData", methodCreateDid, data)
}

// ParseUpdateDidCallData decodes the document carried by updateDid call data.
func ParseUpdateDidCallData(data []byte) (*did.Document, error) {
	return parseDocumentCallData("parseUpdateDidCallData", methodUpdateDid, data)
}

func parseDocumentCallData(op, method string, data []byte) (*did.Document, error) {
	var onchain didDocument
	if err := unpack(&onchain, func(contractABI abi.ABI) ([]any, error) {
		m := contractABI.Methods[method]
		if len(data) < len(m.ID) || !bytes.Equal(data[:len(m.ID)], m.ID) {
			return nil, fmt.Errorf("call data is not a %s call", method)
		}
		return m.Inputs.Unpack(data[len(m.ID):])
	}); err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindDecoding, op, err)
	}
	return fromOnchain(onchain)
}

// EncodeResolveDidResult produces the bytes the registry returns when
// resolving doc. A nil doc.Metadata encodes zero metadata, which parses
// back to nil.
func EncodeResolveDidResult(doc *did.Document) ([]byte, error) {
	const op = "encodeResolveDidResult"

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	onchain, err := toOnchain(doc)
	if err != nil {
		return nil, err
	}

	meta := &did.DocumentMetadata{}
	if doc.Metadata != nil {
		meta = doc.Metadata
	}

	contractABI, err := loadABI()
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindEncoding, op, err)
	}
	data, err := contractABI.Methods[methodResolveDid].Outputs.Pack(didDocumentStorage{
		Document: onchain,
		Metadata: toOnchainMetadata(meta),
	})
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindEncoding, op, fmt.Errorf("failed to pack result: %w", err))
	}
	return data, nil
}

// unpack decodes a single tuple value and copies it into out. Layout
// mismatches are reported as errors, never panics.
func unpack[T any](out *T, decode func(abi.ABI) ([]any, error)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected ABI layout: %v", r)
		}
	}()

	contractABI, err := loadABI()
	if err != nil {
		return err
	}
	values, err := decode(contractABI)
	if err != nil {
		return err
	}
	if len(values) != 1 {
		return fmt.Errorf("expected 1 value, got %d", len(values))
	}

	*out = *abi.ConvertType(values[0], new(T)).(*T)
	return nil
}
