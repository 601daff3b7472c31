package did

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

// AddressLength is the byte length of a ledger account address.
const AddressLength = common.AddressLength

// Address is a validated 20-byte ledger account identifier.
type Address struct {
	addr common.Address
}

// ParseAddress validates a 0x-prefixed, 40 hex character account address.
//
// All-lowercase and all-uppercase inputs are accepted as is. Mixed-case input
// must carry a valid EIP-55 checksum.
func ParseAddress(s string) (Address, error) {
	const op = "parseAddress"

	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Address{}, vdrerr.Validation(op, "address %q must be 0x-prefixed", s)
	}
	if !common.IsHexAddress(s) {
		return Address{}, vdrerr.Validation(op, "address %q must be %d hex-encoded bytes", s, AddressLength)
	}

	addr := common.HexToAddress(s)
	hexPart := s[2:]
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) {
		if addr.Hex() != "0x"+hexPart {
			return Address{}, vdrerr.Validation(op, "address %q has an invalid EIP-55 checksum", s)
		}
	}

	return Address{addr: addr}, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromCommon wraps a go-ethereum address.
func AddressFromCommon(addr common.Address) Address {
	return Address{addr: addr}
}

// Common returns the go-ethereum representation of the address.
func (a Address) Common() common.Address {
	return a.addr
}

// Bytes returns a copy of the 20 address bytes.
func (a Address) Bytes() []byte {
	return a.addr.Bytes()
}

// String returns the lowercase 0x-prefixed hex form.
func (a Address) String() string {
	return strings.ToLower(a.addr.Hex())
}

// Checksum returns the EIP-55 checksummed hex form.
func (a Address) Checksum() string {
	return a.addr.Hex()
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a.addr == (common.Address{})
}

// MarshalJSON encodes the address as a lowercase hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes and validates an address from a JSON string.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return vdrerr.Validation("parseAddress", "address must be a JSON string: %v", err)
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
