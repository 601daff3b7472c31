package didregistry

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// The types below mirror the contract tuples. Field order must match the ABI
// components because decoded tuples are copied positionally.

type verificationMethod struct {
	ID                     string `abi:"id"`
	VerificationMethodType string `abi:"verificationMethodType"`
	Controller             string `abi:"controller"`
	PublicKeyJwk           string `abi:"publicKeyJwk"`
	PublicKeyMultibase     string `abi:"publicKeyMultibase"`
	PublicKeyBase58        string `abi:"publicKeyBase58"`
	PublicKeyHex           string `abi:"publicKeyHex"`
}

// verificationRelationship embeds a method when VerificationMethod.ID is set
// and references ID otherwise.
type verificationRelationship struct {
	ID                 string             `abi:"id"`
	VerificationMethod verificationMethod `abi:"verificationMethod"`
}

type service struct {
	ID              string   `abi:"id"`
	ServiceType     string   `abi:"serviceType"`
	ServiceEndpoint string   `abi:"serviceEndpoint"`
	Accept          []string `abi:"accept"`
	RoutingKeys     []string `abi:"routingKeys"`
}

type didDocument struct {
	Context              []string                   `abi:"context"`
	ID                   string                     `abi:"id"`
	Controller           []string                   `abi:"controller"`
	VerificationMethod   []verificationMethod       `abi:"verificationMethod"`
	Authentication       []verificationRelationship `abi:"authentication"`
	AssertionMethod      []verificationRelationship `abi:"assertionMethod"`
	CapabilityInvocation []verificationRelationship `abi:"capabilityInvocation"`
	CapabilityDelegation []verificationRelationship `abi:"capabilityDelegation"`
	KeyAgreement         []verificationRelationship `abi:"keyAgreement"`
	Service              []service                  `abi:"service"`
	AlsoKnownAs          []string                   `abi:"alsoKnownAs"`
}

type didMetadata struct {
	Owner       common.Address `abi:"owner"`
	Sender      common.Address `abi:"sender"`
	Created     *big.Int       `abi:"created"`
	Updated     *big.Int       `abi:"updated"`
	Deactivated bool           `abi:"deactivated"`
}

type didDocumentStorage struct {
	Document didDocument `abi:"document"`
	Metadata didMetadata `abi:"metadata"`
}

// toOnchain converts a document into its contract form.
func toOnchain(doc *did.Document) (didDocument, error) {
	const op = "encodeDocument"

	out := didDocument{
		Context:     doc.Context,
		ID:          doc.ID.String(),
		Controller:  doc.Controller,
		AlsoKnownAs: doc.AlsoKnownAs,
	}

	for _, vm := range doc.VerificationMethod {
		enc, err := encodeVerificationMethod(vm)
		if err != nil {
			return didDocument{}, vdrerr.Wrap(vdrerr.KindEncoding, op, err)
		}
		out.VerificationMethod = append(out.VerificationMethod, enc)
	}

	var err error
	rels := []struct {
		src []did.VerificationRelationship
		dst *[]verificationRelationship
	}{
		{doc.Authentication, &out.Authentication},
		{doc.AssertionMethod, &out.AssertionMethod},
		{doc.CapabilityInvocation, &out.CapabilityInvocation},
		{doc.CapabilityDelegation, &out.CapabilityDelegation},
		{doc.KeyAgreement, &out.KeyAgreement},
	}
	for _, r := range rels {
		if *r.dst, err = encodeRelationships(r.src); err != nil {
			return didDocument{}, vdrerr.Wrap(vdrerr.KindEncoding, op, err)
		}
	}

	for _, svc := range doc.Service {
		out.Service = append(out.Service, service{
			ID:              svc.ID,
			ServiceType:     svc.Type,
			ServiceEndpoint: svc.ServiceEndpoint,
			Accept:          svc.Accept,
			RoutingKeys:     svc.RoutingKeys,
		})
	}

	return out, nil
}

func encodeVerificationMethod(vm did.VerificationMethod) (verificationMethod, error) {
	const op = "encodeVerificationMethod"

	if !vm.Type.IsSupported() {
		return verificationMethod{}, vdrerr.Encoding(op, "verification method %q has unsupported type %q", vm.ID, vm.Type)
	}

	out := verificationMethod{
		ID:                     vm.ID,
		VerificationMethodType: string(vm.Type),
		Controller:             vm.Controller,
		PublicKeyMultibase:     vm.PublicKeyMultibase,
		PublicKeyBase58:        vm.PublicKeyBase58,
		PublicKeyHex:           vm.PublicKeyHex,
	}
	if vm.PublicKeyJwk != nil {
		jwk, err := json.Marshal(vm.PublicKeyJwk)
		if err != nil {
			return verificationMethod{}, vdrerr.Encoding(op, "failed to marshal publicKeyJwk of %q: %v", vm.ID, err)
		}
		out.PublicKeyJwk = string(jwk)
	}
	return out, nil
}

func encodeRelationships(rels []did.VerificationRelationship) ([]verificationRelationship, error) {
	var out []verificationRelationship
	for _, rel := range rels {
		if rel.Method == nil {
			out = append(out, verificationRelationship{ID: rel.Reference})
			continue
		}
		vm, err := encodeVerificationMethod(*rel.Method)
		if err != nil {
			return nil, err
		}
		out = append(out, verificationRelationship{ID: rel.Method.ID, VerificationMethod: vm})
	}
	return out, nil
}

// fromOnchain converts a decoded contract document back into a document and
// checks that the result is valid.
func fromOnchain(in didDocument) (*did.Document, error) {
	const op = "decodeDocument"

	id, err := did.ParseDID(in.ID)
	if err != nil {
		return nil, vdrerr.Decoding(op, "stored document has an invalid id %q", in.ID)
	}

	doc := &did.Document{
		Context:     in.Context,
		ID:          id,
		Controller:  in.Controller,
		AlsoKnownAs: in.AlsoKnownAs,
	}

	for _, vm := range in.VerificationMethod {
		dec, err := decodeVerificationMethod(vm)
		if err != nil {
			return nil, err
		}
		doc.VerificationMethod = append(doc.VerificationMethod, dec)
	}

	rels := []struct {
		src []verificationRelationship
		dst *[]did.VerificationRelationship
	}{
		{in.Authentication, &doc.Authentication},
		{in.AssertionMethod, &doc.AssertionMethod},
		{in.CapabilityInvocation, &doc.CapabilityInvocation},
		{in.CapabilityDelegation, &doc.CapabilityDelegation},
		{in.KeyAgreement, &doc.KeyAgreement},
	}
	for _, r := range rels {
		if *r.dst, err = decodeRelationships(r.src); err != nil {
			return nil, err
		}
	}

	for _, svc := range in.Service {
		doc.Service = append(doc.Service, did.Service{
			ID:              svc.ID,
			Type:            svc.ServiceType,
			ServiceEndpoint: svc.ServiceEndpoint,
			Accept:          svc.Accept,
			RoutingKeys:     svc.RoutingKeys,
		})
	}

	doc = doc.Normalized()
	if err := doc.Validate(); err != nil {
		return nil, vdrerr.Decoding(op, "stored document is invalid: %v", err)
	}
	return doc, nil
}

func decodeVerificationMethod(in verificationMethod) (did.VerificationMethod, error) {
	const op = "decodeVerificationMethod"

	vmType := did.VerificationMethodType(in.VerificationMethodType)
	if !vmType.IsSupported() {
		return did.VerificationMethod{}, vdrerr.Decoding(op, "verification method %q has unknown type %q", in.ID, in.VerificationMethodType)
	}

	out := did.VerificationMethod{
		ID:                 in.ID,
		Type:               vmType,
		Controller:         in.Controller,
		PublicKeyMultibase: in.PublicKeyMultibase,
		PublicKeyBase58:    in.PublicKeyBase58,
		PublicKeyHex:       in.PublicKeyHex,
	}
	if in.PublicKeyJwk != "" {
		var jwk did.JWK
		if err := json.Unmarshal([]byte(in.PublicKeyJwk), &jwk); err != nil {
			return did.VerificationMethod{}, vdrerr.Decoding(op, "verification method %q has malformed publicKeyJwk: %v", in.ID, err)
		}
		out.PublicKeyJwk = &jwk
	}
	return out, nil
}

func decodeRelationships(in []verificationRelationship) ([]did.VerificationRelationship, error) {
	var out []did.VerificationRelationship
	for _, rel := range in {
		if rel.VerificationMethod.ID == "" {
			out = append(out, did.RefTo(rel.ID))
			continue
		}
		vm, err := decodeVerificationMethod(rel.VerificationMethod)
		if err != nil {
			return nil, err
		}
		out = append(out, did.Embed(vm))
	}
	return out, nil
}

func toOnchainMetadata(meta *did.DocumentMetadata) didMetadata {
	return didMetadata{
		Owner:       meta.Owner.Common(),
		Sender:      meta.Sender.Common(),
		Created:     new(big.Int).SetUint64(meta.Created),
		Updated:     new(big.Int).SetUint64(meta.Updated),
		Deactivated: meta.Deactivated,
	}
}

func (m didMetadata) isZero() bool {
	return m.Owner == (common.Address{}) && m.Sender == (common.Address{}) &&
		(m.Created == nil || m.Created.Sign() == 0) &&
		(m.Updated == nil || m.Updated.Sign() == 0) &&
		!m.Deactivated
}

// fromOnchainMetadata returns nil metadata for an all-zero record, which is
// what EncodeResolveDidResult writes for a document without metadata.
func fromOnchainMetadata(in didMetadata) (*did.DocumentMetadata, error) {
	const op = "decodeMetadata"

	if in.isZero() {
		return nil, nil
	}
	created, ok := toUint64(in.Created)
	if !ok {
		return nil, vdrerr.Decoding(op, "created timestamp %s does not fit in 64 bits", in.Created)
	}
	updated, ok := toUint64(in.Updated)
	if !ok {
		return nil, vdrerr.Decoding(op, "updated timestamp %s does not fit in 64 bits", in.Updated)
	}

	return &did.DocumentMetadata{
		Owner:       did.AddressFromCommon(in.Owner),
		Sender:      did.AddressFromCommon(in.Sender),
		Created:     created,
		Updated:     updated,
		Deactivated: in.Deactivated,
	}, nil
}

func toUint64(v *big.Int) (uint64, bool) {
	if v == nil {
		return 0, true
	}
	return v.Uint64(), v.IsUint64()
}
