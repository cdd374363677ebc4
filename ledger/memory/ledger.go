// Package memory provides an in-process ledger substrate for tests and
// single-node deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/ledger"
	"github.com/xraph/escrow/types"
)

// Compile-time interface checks.
var (
	_ ledger.Ledger        = (*Ledger)(nil)
	_ ledger.AccountOpener = (*Ledger)(nil)
	_ ledger.BalanceReader = (*Ledger)(nil)
)

// Ledger keeps balances in maps guarded by a single mutex.
type Ledger struct {
	mu       sync.RWMutex
	balances map[types.Identity]uint64
	owners   map[types.Identity]types.Identity
	supply   map[string]uint64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[types.Identity]uint64),
		owners:   make(map[types.Identity]types.Identity),
		supply:   make(map[string]uint64),
	}
}

// OpenAccount assigns owner as the controller of account.
func (l *Ledger) OpenAccount(_ context.Context, account, owner types.Identity) error {
	if account.IsZero() || owner.IsZero() {
		return ledger.ErrInvalidAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.owners[account]; ok && current != owner {
		return fmt.Errorf("%w: %s already controlled by %s", ledger.ErrUnauthorized, account, current)
	}
	l.owners[account] = owner
	return nil
}

// Mint credits amount to the account and to the mint's supply.
func (l *Ledger) Mint(_ context.Context, mintID id.MintID, to types.Identity, amount uint64) error {
	if to.IsZero() {
		return ledger.ErrInvalidAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := types.CheckedAdd(l.balances[to], amount)
	if !ok {
		return ledger.ErrOverflow
	}
	supply, ok := types.CheckedAdd(l.supply[mintID.String()], amount)
	if !ok {
		return ledger.ErrOverflow
	}

	l.balances[to] = bal
	l.supply[mintID.String()] = supply
	return nil
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(_ context.Context, from, to types.Identity, amount uint64, authorizer types.Identity) error {
	if from.IsZero() || to.IsZero() {
		return ledger.ErrInvalidAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ownerOf(from) != authorizer {
		return ledger.ErrUnauthorized
	}

	src, ok := types.CheckedSub(l.balances[from], amount)
	if !ok {
		return ledger.ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	dst, ok := types.CheckedAdd(l.balances[to], amount)
	if !ok {
		return ledger.ErrOverflow
	}

	l.balances[from] = src
	l.balances[to] = dst
	return nil
}

// Balance returns the account's balance. Unknown accounts hold zero.
func (l *Ledger) Balance(_ context.Context, account types.Identity) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

// Supply returns the total amount minted for mintID.
func (l *Ledger) Supply(mintID id.MintID) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply[mintID.String()]
}

func (l *Ledger) ownerOf(account types.Identity) types.Identity {
	if owner, ok := l.owners[account]; ok {
		return owner
	}
	return account
}
