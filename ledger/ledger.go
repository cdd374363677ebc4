// Package ledger declares the balance substrate the escrow engine drives.
//
// A Ledger holds fungible balances keyed by account identity. Each call is
// atomic: it either applies in full or has no effect. The engine never
// inspects balances itself; it relies on the substrate to reject transfers
// the authorizer does not control or cannot fund.
package ledger

//go:generate mockgen -source=ledger.go -destination=ledgermock/ledger.go -package=ledgermock

import (
	"context"
	"errors"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

var (
	ErrUnauthorized      = errors.New("ledger: authorizer does not control source account")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrOverflow          = errors.New("ledger: balance overflow")
	ErrInvalidAccount    = errors.New("ledger: invalid account")
)

// Minter credits newly created units of a mint to an account.
type Minter interface {
	Mint(ctx context.Context, mintID id.MintID, to types.Identity, amount uint64) error
}

// Transferer moves units between accounts. The authorizer must control from.
type Transferer interface {
	Transfer(ctx context.Context, from, to types.Identity, amount uint64, authorizer types.Identity) error
}

// Ledger is the full substrate contract.
type Ledger interface {
	Minter
	Transferer
}

// AccountOpener is implemented by substrates whose accounts can be
// controlled by an identity other than the account itself. Accounts that
// were never opened are controlled by their own identity.
type AccountOpener interface {
	OpenAccount(ctx context.Context, account, owner types.Identity) error
}

// BalanceReader is implemented by substrates that expose balances.
type BalanceReader interface {
	Balance(ctx context.Context, account types.Identity) (uint64, error)
}
