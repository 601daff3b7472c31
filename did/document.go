package did

import (
	"bytes"
	"encoding/json"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// Default JSON-LD contexts of a DID document.
const (
	ContextDIDv1          = "https://www.w3.org/ns/did/v1"
	ContextSecurityV1     = "https://w3id.org/security/v1"
	ContextEd25519Suite20 = "https://w3id.org/security/suites/ed25519-2020/v1"
)

// Document is a DID document as stored in the registry.
//
// Metadata is assigned by the ledger. It is ignored when a document is
// written and populated when a document is resolved.
type Document struct {
	Context              []string                   `json:"@context"`
	ID                   DID                        `json:"id"`
	Controller           []string                   `json:"controller,omitempty"`
	VerificationMethod   []VerificationMethod       `json:"verificationMethod,omitempty"`
	Authentication       []VerificationRelationship `json:"authentication,omitempty"`
	AssertionMethod      []VerificationRelationship `json:"assertionMethod,omitempty"`
	CapabilityInvocation []VerificationRelationship `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []VerificationRelationship `json:"capabilityDelegation,omitempty"`
	KeyAgreement         []VerificationRelationship `json:"keyAgreement,omitempty"`
	Service              []Service                  `json:"service,omitempty"`
	AlsoKnownAs          []string                   `json:"alsoKnownAs,omitempty"`
	Metadata             *DocumentMetadata          `json:"didDocumentMetadata,omitempty"`
}

// DocumentMetadata is the ledger-assigned state of a registered document.
type DocumentMetadata struct {
	Owner       Address `json:"owner"`
	Sender      Address `json:"sender"`
	Created     uint64  `json:"created"`
	Updated     uint64  `json:"updated"`
	Deactivated bool    `json:"deactivated"`
}

// Service is a service endpoint descriptor.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
	Accept          []string `json:"accept,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
}

// VerificationRelationship is an entry of authentication, assertionMethod and
// the other relationship sets. It either references a verification method by
// id or embeds one.
type VerificationRelationship struct {
	Reference string
	Method    *VerificationMethod
}

// RefTo returns a relationship referencing a verification method by id.
func RefTo(id string) VerificationRelationship {
	return VerificationRelationship{Reference: id}
}

// Embed returns a relationship embedding the given verification method.
func Embed(vm VerificationMethod) VerificationRelationship {
	return VerificationRelationship{Method: &vm}
}

// ID returns the id of the referenced or embedded verification method.
func (r VerificationRelationship) ID() string {
	if r.Method != nil {
		return r.Method.ID
	}
	return r.Reference
}

// MarshalJSON encodes a reference as a string and an embedded method as an object.
func (r VerificationRelationship) MarshalJSON() ([]byte, error) {
	if r.Method != nil {
		return json.Marshal(r.Method)
	}
	return json.Marshal(r.Reference)
}

// UnmarshalJSON accepts either a reference string or an embedded method object.
func (r *VerificationRelationship) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var ref string
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		*r = VerificationRelationship{Reference: ref}
		return nil
	}

	var vm VerificationMethod
	if err := json.Unmarshal(data, &vm); err != nil {
		return err
	}
	*r = VerificationRelationship{Method: &vm}
	return nil
}

// Normalized returns a copy of the document with every empty list set to nil.
// Empty and absent lists encode identically on the ledger, so this is the form
// a document takes after a round trip through the registry.
func (d *Document) Normalized() *Document {
	out := *d
	out.Context = nilIfEmpty(d.Context)
	out.Controller = nilIfEmpty(d.Controller)
	out.AlsoKnownAs = nilIfEmpty(d.AlsoKnownAs)
	if len(d.VerificationMethod) == 0 {
		out.VerificationMethod = nil
	}
	for _, rels := range []*[]VerificationRelationship{
		&out.Authentication,
		&out.AssertionMethod,
		&out.CapabilityInvocation,
		&out.CapabilityDelegation,
		&out.KeyAgreement,
	} {
		if len(*rels) == 0 {
			*rels = nil
		}
	}
	out.Service = nil
	for _, svc := range d.Service {
		svc.Accept = nilIfEmpty(svc.Accept)
		svc.RoutingKeys = nilIfEmpty(svc.RoutingKeys)
		out.Service = append(out.Service, svc)
	}
	return &out
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// Relationships returns every relationship set of the document keyed by its JSON name.
func (d *Document) Relationships() map[string][]VerificationRelationship {
	return map[string][]VerificationRelationship{
		"authentication":       d.Authentication,
		"assertionMethod":      d.AssertionMethod,
		"capabilityInvocation": d.CapabilityInvocation,
		"capabilityDelegation": d.CapabilityDelegation,
		"keyAgreement":         d.KeyAgreement,
	}
}

// VerificationMethodByID looks up a verification method declared in the
// document or embedded in one of its relationships.
func (d *Document) VerificationMethodByID(id string) (VerificationMethod, bool) {
	for _, vm := range d.VerificationMethod {
		if vm.ID == id {
			return vm, true
		}
	}
	for _, rels := range d.Relationships() {
		for _, rel := range rels {
			if rel.Method != nil && rel.Method.ID == id {
				return *rel.Method, true
			}
		}
	}
	return VerificationMethod{}, false
}

// Validate checks the document invariants.
//
//   - @context has at least one entry
//   - id is a valid DID
//   - controllers are valid DIDs
//   - verification method ids are unique, including embedded methods
//   - every verification method is well formed and its key material parses
//   - relationship references point at a declared verification method
//   - service ids are unique and endpoints are not empty
//
// Returns a validation error describing the first violation found.
func (d *Document) Validate() error {
	const op = "validateDocument"

	if d == nil {
		return vdrerr.Validation(op, "document is nil")
	}
	if len(d.Context) == 0 {
		return vdrerr.Validation(op, "@context is required")
	}
	if d.ID.IsZero() {
		return vdrerr.Validation(op, "document id is required")
	}
	if _, err := ParseDID(d.ID.String()); err != nil {
		return err
	}

	for _, c := range d.Controller {
		if _, err := ParseDID(c); err != nil {
			return vdrerr.Validation(op, "invalid controller %q", c)
		}
	}

	ids := make(map[string]struct{})
	checkMethod := func(vm VerificationMethod) error {
		key := resolveRef(d.ID, vm.ID)
		if _, dup := ids[key]; dup {
			return vdrerr.Validation(op, "duplicate verification method id %q", vm.ID)
		}
		ids[key] = struct{}{}
		return vm.validate()
	}

	for _, vm := range d.VerificationMethod {
		if err := checkMethod(vm); err != nil {
			return err
		}
	}

	// Embedded methods first so references may point at them regardless of order.
	for _, name := range relationshipOrder {
		for _, rel := range d.Relationships()[name] {
			if rel.Method == nil {
				continue
			}
			if rel.Reference != "" {
				return vdrerr.Validation(op, "%s entry %q cannot both reference and embed a method", name, rel.Reference)
			}
			if err := checkMethod(*rel.Method); err != nil {
				return err
			}
		}
	}
	for _, name := range relationshipOrder {
		for _, rel := range d.Relationships()[name] {
			if rel.Method != nil {
				continue
			}
			if rel.Reference == "" {
				return vdrerr.Validation(op, "%s entry is empty", name)
			}
			if _, ok := ids[resolveRef(d.ID, rel.Reference)]; !ok {
				return vdrerr.Validation(op, "%s references unknown verification method %q", name, rel.Reference)
			}
		}
	}

	services := make(map[string]struct{})
	for _, svc := range d.Service {
		if svc.ID == "" {
			return vdrerr.Validation(op, "service id is required")
		}
		if _, dup := services[svc.ID]; dup {
			return vdrerr.Validation(op, "duplicate service id %q", svc.ID)
		}
		services[svc.ID] = struct{}{}
		if svc.Type == "" {
			return vdrerr.Validation(op, "service %q has no type", svc.ID)
		}
		if svc.ServiceEndpoint == "" {
			return vdrerr.Validation(op, "service %q has no endpoint", svc.ID)
		}
	}

	return nil
}

var relationshipOrder = []string{
	"authentication",
	"assertionMethod",
	"capabilityInvocation",
	"capabilityDelegation",
	"keyAgreement",
}

// resolveRef expands a relative "#fragment" reference against the document DID.
func resolveRef(subject DID, ref string) string {
	if len(ref) > 0 && ref[0] == '#' {
		return subject.DIDURL(ref)
	}
	return ref
}
