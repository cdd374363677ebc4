package types

import "strings"

// Identity names a principal that can hold balances or authorize actions:
// a mint authority, buyer, seller, or the derived escrow authority.
//
// The engine receives identities that the caller has already verified.
type Identity string

// String returns the identity as a plain string.
func (i Identity) String() string { return string(i) }

// IsZero reports whether the identity is empty.
func (i Identity) IsZero() bool { return strings.TrimSpace(string(i)) == "" }

// Short returns an abbreviated form suitable for log lines.
func (i Identity) Short() string {
	s := string(i)
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
