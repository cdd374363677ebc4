package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/ledger"
	"github.com/xraph/escrow/types"
)

func TestMintAndTransfer(t *testing.T) {
	ctx := context.Background()
	l := New()
	mint := id.NewMintID()

	if err := l.Mint(ctx, mint, "alice", 100); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Transfer(ctx, "alice", "bob", 40, "alice"); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if got, _ := l.Balance(ctx, "alice"); got != 60 {
		t.Errorf("alice: got %d, want 60", got)
	}
	if got, _ := l.Balance(ctx, "bob"); got != 40 {
		t.Errorf("bob: got %d, want 40", got)
	}
	if got := l.Supply(mint); got != 100 {
		t.Errorf("supply: got %d, want 100", got)
	}
}

func TestTransferRejections(t *testing.T) {
	ctx := context.Background()
	l := New()
	_ = l.Mint(ctx, id.NewMintID(), "alice", 10)

	tests := []struct {
		name       string
		from, to   string
		amount     uint64
		authorizer string
		want       error
	}{
		{"wrong authorizer", "alice", "bob", 1, "bob", ledger.ErrUnauthorized},
		{"insufficient", "alice", "bob", 11, "alice", ledger.ErrInsufficientFunds},
		{"empty destination", "alice", "", 1, "alice", ledger.ErrInvalidAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Transfer(ctx, types.Identity(tt.from), types.Identity(tt.to), tt.amount, types.Identity(tt.authorizer))
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if got, _ := l.Balance(ctx, "alice"); got != 10 {
				t.Errorf("failed transfer changed balance: %d", got)
			}
		})
	}
}

func TestOpenAccount(t *testing.T) {
	ctx := context.Background()
	l := New()

	if err := l.OpenAccount(ctx, "vault", "escrow"); err != nil {
		t.Fatalf("OpenAccount: %v", err)
	}
	if err := l.OpenAccount(ctx, "vault", "escrow"); err != nil {
		t.Fatalf("re-open by same owner: %v", err)
	}
	if err := l.OpenAccount(ctx, "vault", "mallory"); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	_ = l.Mint(ctx, id.NewMintID(), "vault", 5)
	if err := l.Transfer(ctx, "vault", "bob", 5, "vault"); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("account identity should no longer control an opened account, got %v", err)
	}
	if err := l.Transfer(ctx, "vault", "bob", 5, "escrow"); err != nil {
		t.Fatalf("owner transfer: %v", err)
	}
}

func TestMintOverflow(t *testing.T) {
	ctx := context.Background()
	l := New()
	mint := id.NewMintID()

	_ = l.Mint(ctx, mint, "alice", math.MaxUint64)
	if err := l.Mint(ctx, mint, "alice", 1); !errors.Is(err, ledger.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if got, _ := l.Balance(ctx, "alice"); got != math.MaxUint64 {
		t.Errorf("balance changed on overflow: %d", got)
	}
}
