package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/ledger"
	"github.com/xraph/escrow/types"
)

// newTestLedger connects to ESCROW_TEST_POSTGRES_DSN or skips.
func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	dsn := os.Getenv("ESCROW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ESCROW_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	l := New(pool)
	if err := l.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return l
}

func uniqueAccount(prefix string) types.Identity {
	return types.Identity(prefix + "-" + uuid.NewString())
}

func TestPostgresMintTransfer(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	alice, bob := uniqueAccount("alice"), uniqueAccount("bob")

	if err := l.Mint(ctx, id.NewMintID(), alice, 1_000); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Transfer(ctx, alice, bob, 400, alice); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := l.Transfer(ctx, alice, bob, 601, alice); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := l.Transfer(ctx, alice, bob, 1, bob); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if got, _ := l.Balance(ctx, alice); got != 600 {
		t.Errorf("alice: got %d, want 600", got)
	}
	if got, _ := l.Balance(ctx, bob); got != 400 {
		t.Errorf("bob: got %d, want 400", got)
	}

	history, err := l.History(ctx, bob, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Amount != 400 || history[0].From != alice {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestPostgresOpenAccount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	vault, owner := uniqueAccount("vault"), uniqueAccount("owner")
	if err := l.OpenAccount(ctx, vault, owner); err != nil {
		t.Fatalf("OpenAccount: %v", err)
	}
	if err := l.OpenAccount(ctx, vault, uniqueAccount("other")); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	_ = l.Mint(ctx, id.NewMintID(), vault, 10)
	if err := l.Transfer(ctx, vault, owner, 10, owner); err != nil {
		t.Fatalf("owner transfer: %v", err)
	}
}
