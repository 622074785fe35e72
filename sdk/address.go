package sdk

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is never a valid caller.
var ZeroAddress = common.Address{}

// ParseAddress accepts 0x prefixed hex and rejects the zero address, handy for cli flags and config.
// Example payload: sdk.ParseAddress("0x00000000000000000000000000000000000000a1")
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroAddress, fmt.Errorf("invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	if addr == ZeroAddress {
		return ZeroAddress, fmt.Errorf("zero address not allowed")
	}
	return addr, nil
}

// MustAddress is ParseAddress for fixtures, panics on bad input.
func MustAddress(s string) common.Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressToString returns the checksummed hex form used in logs and keys.
func AddressToString(a common.Address) string {
	return a.Hex()
}

// SecondsToAddress packs a duration into the last 8 bytes of an address (big endian).
// Duration multisig actions carry their seconds this way since the target slot is an address.
// Example payload: sdk.SecondsToAddress(3600)
func SecondsToAddress(seconds uint64) common.Address {
	var a common.Address
	binary.BigEndian.PutUint64(a[common.AddressLength-8:], seconds)
	return a
}

// SecondsFromAddress undoes SecondsToAddress. The upper bytes must be zero.
func SecondsFromAddress(a common.Address) (uint64, error) {
	for _, b := range a[:common.AddressLength-8] {
		if b != 0 {
			return 0, fmt.Errorf("address %s does not encode a duration", a.Hex())
		}
	}
	return binary.BigEndian.Uint64(a[common.AddressLength-8:]), nil
}
