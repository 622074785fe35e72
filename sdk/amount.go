package sdk

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a raw token quantity in the ledger's smallest unit.
type Amount int64

// String prints the raw integer, that is what every ledger call expects.
func (a Amount) String() string {
	return strconv.FormatInt(int64(a), 10)
}

// ParseAmount reads a non-negative integer amount, underscores allowed for readability.
// Example payload: sdk.ParseAmount("1_000")
func ParseAmount(s string) (Amount, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return Amount(v), nil
}

// AmountFromUint64 clamps oversize values so int64 math never wraps.
func AmountFromUint64(v uint64) Amount {
	if v > uint64(maxAmount) {
		return maxAmount
	}
	return Amount(v)
}

const maxAmount = Amount(1<<63 - 1)

// AddAmounts returns a+b for non-negative operands, false when the sum would wrap.
func AddAmounts(a, b Amount) (Amount, bool) {
	if b > maxAmount-a {
		return 0, false
	}
	return a + b, true
}
