// Package vault derives the escrow authority: a signing identity that no
// external party holds a key for. The authority controls the escrow account,
// and its only capability is releasing funds out of that account.
//
// Derivation is deterministic. The identity is the keyed BLAKE2b-256 digest
// of the seed and a one-byte bump, keyed by the program namespace. Find
// searches bumps from 255 downward and keeps the first candidate that does
// not collide with an identity already in use.
package vault

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/xraph/escrow/ledger"
	"github.com/xraph/escrow/types"
)

// DefaultSeed is the seed escrow authorities are derived from.
const DefaultSeed = "escrow"

// DefaultProgram namespaces derived identities when none is configured.
const DefaultProgram = "xraph.escrow.v1"

const (
	authorityTag = "escrow/authority"
	accountTag   = "escrow/account"
)

var (
	ErrProgramTooLong = errors.New("vault: program namespace longer than 64 bytes")
	ErrEmptyProgram   = errors.New("vault: program namespace is empty")
	ErrNoBump         = errors.New("vault: no free bump for seed")
)

// Authority is a derived escrow signer.
type Authority struct {
	program  string
	seed     []byte
	bump     uint8
	identity types.Identity
	account  types.Identity
}

// Derive computes the authority for one specific bump.
func Derive(program string, seed []byte, bump uint8) (*Authority, error) {
	switch {
	case program == "":
		return nil, ErrEmptyProgram
	case len(program) > blake2b.Size:
		return nil, ErrProgramTooLong
	}

	h, err := blake2b.New256([]byte(program))
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	h.Write(seed)
	h.Write([]byte{bump})
	h.Write([]byte(authorityTag))
	identity := hex.EncodeToString(h.Sum(nil))

	acct := blake2b.Sum256([]byte(identity + accountTag))

	return &Authority{
		program:  program,
		seed:     append([]byte(nil), seed...),
		bump:     bump,
		identity: types.Identity(identity),
		account:  types.Identity(hex.EncodeToString(acct[:])),
	}, nil
}

// Find derives the authority with the highest bump whose identity is not
// reported as taken. A nil taken func accepts the first candidate.
func Find(program string, seed []byte, taken func(types.Identity) bool) (*Authority, error) {
	for bump := 255; bump >= 0; bump-- {
		a, err := Derive(program, seed, uint8(bump))
		if err != nil {
			return nil, err
		}
		if taken == nil || !taken(a.identity) {
			return a, nil
		}
	}
	return nil, ErrNoBump
}

// Identity is the authority's signing identity.
func (a *Authority) Identity() types.Identity { return a.identity }

// Account is the escrow-held account the authority controls.
func (a *Authority) Account() types.Identity { return a.account }

// Bump is the disambiguating counter the authority was derived with.
func (a *Authority) Bump() uint8 { return a.bump }

// Program is the namespace the authority was derived under.
func (a *Authority) Program() string { return a.program }

// Seed returns a copy of the derivation seed.
func (a *Authority) Seed() []byte { return append([]byte(nil), a.seed...) }

// Open registers the escrow account with substrates that track account
// ownership separately from account identity.
func (a *Authority) Open(ctx context.Context, o ledger.AccountOpener) error {
	return o.OpenAccount(ctx, a.account, a.identity)
}

// Release moves amount out of the escrow account to payee, authorized by
// the derived identity.
func (a *Authority) Release(ctx context.Context, t ledger.Transferer, payee types.Identity, amount uint64) error {
	return t.Transfer(ctx, a.account, payee, amount, a.identity)
}
