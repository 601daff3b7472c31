// Package did provides the value types written to and read from the DID
// registry: DIDs, ledger addresses and DID documents.
//
// All values are validated on construction and are never mutated afterwards.
// An update to a document is expressed by building a new Document value.
package did

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// Scheme is the URI scheme every DID starts with.
const Scheme = "did"

// idchar is a method-specific id character; % only starts a pct-encoded octet.
const idchar = `([A-Za-z0-9._-]|%[0-9A-Fa-f]{2})`

var (
	methodPattern = regexp.MustCompile(`^[a-z0-9]+$`)
	idPattern     = regexp.MustCompile(`^(` + idchar + `*:)*` + idchar + `+$`)
)

// DID is a validated decentralized identifier of the form did:<method>:<id>.
//
// The zero value is not a valid DID; use ParseDID.
type DID struct {
	value  string
	method string
	id     string
}

// ParseDID validates s against the generic DID grammar and returns the DID.
//
// Returns a validation error if s is empty, lacks the "did:" scheme, or has a
// malformed method or method-specific identifier.
func ParseDID(s string) (DID, error) {
	const op = "parseDID"

	if s == "" {
		return DID{}, vdrerr.Validation(op, "DID is empty")
	}

	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != Scheme {
		return DID{}, vdrerr.Validation(op, "DID %q must have the form did:<method>:<id>", s)
	}
	if !methodPattern.MatchString(parts[1]) {
		return DID{}, vdrerr.Validation(op, "DID %q has an invalid method %q", s, parts[1])
	}
	if !idPattern.MatchString(parts[2]) {
		return DID{}, vdrerr.Validation(op, "DID %q has an invalid method-specific id", s)
	}

	return DID{value: s, method: parts[1], id: parts[2]}, nil
}

// MustParseDID is like ParseDID but panics on error. Intended for tests and constants.
func MustParseDID(s string) DID {
	d, err := ParseDID(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the full DID string.
func (d DID) String() string {
	return d.value
}

// Method returns the DID method, e.g. "indy".
func (d DID) Method() string {
	return d.method
}

// Identifier returns the method-specific identifier, e.g. "test:123" for "did:indy:test:123".
func (d DID) Identifier() string {
	return d.id
}

// IsZero reports whether d is the zero value.
func (d DID) IsZero() bool {
	return d.value == ""
}

// DIDURL returns the DID with the given fragment appended (did#fragment).
func (d DID) DIDURL(fragment string) string {
	return d.value + "#" + strings.TrimPrefix(fragment, "#")
}

// MarshalJSON encodes the DID as a JSON string.
func (d DID) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value)
}

// UnmarshalJSON decodes and validates a DID from a JSON string.
func (d *DID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return vdrerr.Validation("parseDID", "DID must be a JSON string: %v", err)
	}
	parsed, err := ParseDID(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// baseDID returns the DID part of a DID URL (everything before '#', '?' or '/').
func baseDID(didURL string) string {
	if i := strings.IndexAny(didURL, "#?/"); i >= 0 {
		return didURL[:i]
	}
	return didURL
}
