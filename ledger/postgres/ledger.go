// Package postgres provides a PostgreSQL ledger substrate built on pgx.
//
// Balances are NUMERIC(20,0) so the full uint64 range fits; a CHECK
// constraint rejects anything outside it. Every mint and transfer locks the
// rows it touches, writes the new balances, and appends a journal entry in
// one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

const schema = `
CREATE TABLE IF NOT EXISTS escrow_ledger_accounts (
    account    TEXT PRIMARY KEY,
    owner      TEXT NOT NULL,
    balance    NUMERIC(20,0) NOT NULL DEFAULT 0
               CHECK (balance >= 0 AND balance <= 18446744073709551615),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS escrow_ledger_journal (
    id           TEXT PRIMARY KEY,
    kind         TEXT NOT NULL,
    mint_id      TEXT,
    from_account TEXT,
    to_account   TEXT NOT NULL,
    amount       NUMERIC(20,0) NOT NULL,
    authorizer   TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_escrow_ledger_journal_to ON escrow_ledger_journal (to_account, created_at);
CREATE INDEX IF NOT EXISTS idx_escrow_ledger_journal_from ON escrow_ledger_journal (from_account, created_at);
`

// Ledger implements ledger.Ledger on a pgx connection pool.
type Ledger struct {
	pool *pgxpool.Pool
}

// New returns a ledger backed by pool.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Migrate creates the account and journal tables.
func (l *Ledger) Migrate(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ledger/postgres: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

// Close closes the pool.
func (l *Ledger) Close() {
	l.pool.Close()
}

// OpenAccount assigns owner as the controller of account. An account that
// already has a different owner is left unchanged and ErrUnauthorized is
// returned.
func (l *Ledger) OpenAccount(ctx context.Context, account, owner types.Identity) error {
	if account.IsZero() || owner.IsZero() {
		return ledger.ErrInvalidAccount
	}

	var current string
	err := l.pool.QueryRow(ctx, `
INSERT INTO escrow_ledger_accounts (account, owner) VALUES ($1, $2)
ON CONFLICT (account) DO UPDATE SET updated_at = escrow_ledger_accounts.updated_at
RETURNING owner`, string(account), string(owner)).Scan(&current)
	if err != nil {
		return fmt.Errorf("ledger/postgres: open account: %w", err)
	}
	if current != string(owner) {
		return fmt.Errorf("%w: %s already controlled by %s", ledger.ErrUnauthorized, account, current)
	}
	return nil
}

// Mint credits amount to the destination account.
func (l *Ledger) Mint(ctx context.Context, mintID id.MintID, to types.Identity, amount uint64) error {
	if to.IsZero() {
		return ledger.ErrInvalidAccount
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	accounts, err := lockAccounts(ctx, tx, to)
	if err != nil {
		return err
	}

	next, ok := types.CheckedAdd(accounts[to].balance, amount)
	if !ok {
		return ledger.ErrOverflow
	}
	if err := setBalance(ctx, tx, to, next); err != nil {
		return err
	}
	if err := journal(ctx, tx, "mint", mintID.String(), "", to, amount, ""); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger/postgres: commit: %w", err)
	}
	return nil
}

// Transfer moves amount between accounts if authorizer controls from.
func (l *Ledger) Transfer(ctx context.Context, from, to types.Identity, amount uint64, authorizer types.Identity) error {
	if from.IsZero() || to.IsZero() {
		return ledger.ErrInvalidAccount
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	accounts, err := lockAccounts(ctx, tx, from, to)
	if err != nil {
		return err
	}

	src := accounts[from]
	if src.owner != authorizer {
		return ledger.ErrUnauthorized
	}
	srcBal, ok := types.CheckedSub(src.balance, amount)
	if !ok {
		return ledger.ErrInsufficientFunds
	}

	if from != to {
		dstBal, ok := types.CheckedAdd(accounts[to].balance, amount)
		if !ok {
			return ledger.ErrOverflow
		}
		if err := setBalance(ctx, tx, from, srcBal); err != nil {
			return err
		}
		if err := setBalance(ctx, tx, to, dstBal); err != nil {
			return err
		}
	}
	if err := journal(ctx, tx, "transfer", "", from, to, amount, authorizer); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger/postgres: commit: %w", err)
	}
	return nil
}

// Balance returns the account's balance. Unknown accounts hold zero.
func (l *Ledger) Balance(ctx context.Context, account types.Identity) (uint64, error) {
	var raw string
	err := l.pool.QueryRow(ctx,
		`SELECT balance::text FROM escrow_ledger_accounts WHERE account = $1`, string(account),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger/postgres: balance: %w", err)
	}
	return parseAmount(raw)
}

// Entry is one journal row.
type Entry struct {
	ID         id.TransferID
	Kind       string
	MintID     string
	From       types.Identity
	To         types.Identity
	Amount     uint64
	Authorizer types.Identity
	CreatedAt  time.Time
}

// History returns the most recent journal entries touching account.
func (l *Ledger) History(ctx context.Context, account types.Identity, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.pool.Query(ctx, `
SELECT id, kind, COALESCE(mint_id, ''), COALESCE(from_account, ''), to_account,
       amount::text, COALESCE(authorizer, ''), created_at
FROM escrow_ledger_journal
WHERE from_account = $1 OR to_account = $1
ORDER BY created_at DESC
LIMIT $2`, string(account), limit)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                      Entry
			rawID, from, to, authz string
			rawAmount              string
		)
		if err := rows.Scan(&rawID, &e.Kind, &e.MintID, &from, &to, &rawAmount, &authz, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger/postgres: history scan: %w", err)
		}
		if e.ID, err = id.ParseTransferID(rawID); err != nil {
			return nil, err
		}
		if e.Amount, err = parseAmount(rawAmount); err != nil {
			return nil, err
		}
		e.From, e.To, e.Authorizer = types.Identity(from), types.Identity(to), types.Identity(authz)
		out = append(out, e)
	}
	return out, rows.Err()
}

type account struct {
	owner   types.Identity
	balance uint64
}

// lockAccounts makes sure every account row exists and locks them in key
// order so concurrent transfers over the same pair cannot deadlock.
func lockAccounts(ctx context.Context, tx pgx.Tx, ids ...types.Identity) (map[types.Identity]account, error) {
	keys := make([]string, 0, len(ids))
	for _, a := range ids {
		keys = append(keys, string(a))
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO escrow_ledger_accounts (account, owner)
SELECT k, k FROM unnest($1::text[]) AS k
ON CONFLICT (account) DO NOTHING`, keys); err != nil {
		return nil, fmt.Errorf("ledger/postgres: ensure accounts: %w", err)
	}

	rows, err := tx.Query(ctx, `
SELECT account, owner, balance::text
FROM escrow_ledger_accounts
WHERE account = ANY($1::text[])
ORDER BY account
FOR UPDATE`, keys)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: lock accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[types.Identity]account, len(keys))
	for rows.Next() {
		var name, owner, raw string
		if err := rows.Scan(&name, &owner, &raw); err != nil {
			return nil, fmt.Errorf("ledger/postgres: lock accounts scan: %w", err)
		}
		bal, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		out[types.Identity(name)] = account{owner: types.Identity(owner), balance: bal}
	}
	return out, rows.Err()
}

func setBalance(ctx context.Context, tx pgx.Tx, a types.Identity, balance uint64) error {
	_, err := tx.Exec(ctx,
		`UPDATE escrow_ledger_accounts SET balance = $2::numeric, updated_at = NOW() WHERE account = $1`,
		string(a), strconv.FormatUint(balance, 10))
	if err != nil {
		return fmt.Errorf("ledger/postgres: set balance: %w", err)
	}
	return nil
}

func journal(ctx context.Context, tx pgx.Tx, kind, mintID string, from, to types.Identity, amount uint64, authorizer types.Identity) error {
	_, err := tx.Exec(ctx, `
INSERT INTO escrow_ledger_journal (id, kind, mint_id, from_account, to_account, amount, authorizer)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6::numeric, NULLIF($7, ''))`,
		id.NewTransferID().String(), kind, mintID, string(from), string(to),
		strconv.FormatUint(amount, 10), string(authorizer))
	if err != nil {
		return fmt.Errorf("ledger/postgres: journal: %w", err)
	}
	return nil
}

func parseAmount(raw string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger/postgres: parse amount %q: %w", raw, err)
	}
	return v, nil
}
