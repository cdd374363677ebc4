package escrow_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/escrow"
	ledgermem "github.com/xraph/escrow/ledger/memory"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/types"
)

// TestDocumentationExamples verifies that the package documentation examples run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Memory store and ledger for demo; use PostgreSQL in production.
		balances := ledgermem.New()

		engine, err := escrow.New(memory.New(), balances,
			escrow.WithLogger(slog.Default()),
			escrow.WithHookTimeout(2*time.Second),
		)
		if err != nil {
			t.Fatal(err)
		}

		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		reg, err := engine.InitializeRegistry(ctx, "treasury")
		if err != nil {
			t.Fatal(err)
		}
		if err := engine.Mint(ctx, reg.MintID, "treasury", "buyer", 1_000); err != nil {
			t.Fatal(err)
		}

		sh, err := engine.InitializeShop(ctx, "seller")
		if err != nil {
			t.Fatal(err)
		}

		o, err := engine.CreateOrder(ctx, sh.ID, "buyer", escrow.OrderParams{
			ID: 1, ProductID: 42, Quantity: 2, PricePerItem: 50,
		})
		if err != nil {
			t.Fatal(err)
		}

		if err := engine.ProcessPayment(ctx, o.ID, "buyer"); err != nil {
			t.Fatal(err)
		}
		if err := engine.CompleteOrder(ctx, o.ID); err != nil {
			t.Fatal(err)
		}

		seller, _ := balances.Balance(ctx, "seller")
		log.Printf("seller received %s\n", types.FormatUnits(seller, 2))
		if seller != 100 {
			t.Fatalf("seller balance: got %d, want 100", seller)
		}
	})

	t.Run("ArithmeticExamples", func(t *testing.T) {
		total, ok := escrow.CheckedMul(2, 50) // 100, true
		if !ok || total != 100 {
			t.Fatal("CheckedMul")
		}
		if _, ok := escrow.CheckedAdd(^uint64(0), 1); ok {
			t.Fatal("CheckedAdd should report overflow")
		}
		_ = escrow.FormatUnits(escrow.DefaultSweepAmount, types.DefaultDecimals) // "500.000000000"
	})
}
