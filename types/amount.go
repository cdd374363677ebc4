package types

import (
	"math/bits"
	"strconv"
	"strings"
)

// DefaultDecimals is the number of fractional digits in one whole unit.
const DefaultDecimals = 9

// CheckedAdd returns a+b and false when the sum overflows uint64.
func CheckedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// CheckedSub returns a-b and false when b is greater than a.
func CheckedSub(a, b uint64) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	return diff, borrow == 0
}

// CheckedMul returns a*b and false when the product overflows uint64.
func CheckedMul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// WholeUnits converts whole units to base units at the given decimals.
// It reports false on overflow.
func WholeUnits(units uint64, decimals uint8) (uint64, bool) {
	scale := uint64(1)
	for range decimals {
		var ok bool
		if scale, ok = CheckedMul(scale, 10); !ok {
			return 0, false
		}
	}
	return CheckedMul(units, scale)
}

// FormatUnits renders a base-unit amount as a decimal string with the given
// number of fractional digits, e.g. FormatUnits(1_500_000_000, 9) == "1.500000000".
func FormatUnits(amount uint64, decimals uint8) string {
	s := strconv.FormatUint(amount, 10)
	if decimals == 0 {
		return s
	}

	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}

	return s[:len(s)-d] + "." + s[len(s)-d:]
}
