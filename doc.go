// Package escrow provides a custodial value-transfer and escrow engine for
// Go applications.
//
// Escrow is a library, not a service. An Engine sits between callers that
// have already verified who they are and a balance ledger that moves units
// atomically. It provides:
//
//   - Mint authority registries: one authority per mint, a monotonic
//     minted total, and one-way deactivation
//   - Authorized pass-through transfers, plus a configured sweep
//   - Per-seller shops and a buyer/seller order workflow where payment is
//     held by a derived escrow authority until the order completes
//   - Pluggable record stores (memory, PostgreSQL, SQLite, MongoDB) and
//     ledger substrates (memory, PostgreSQL)
//   - Plugin hooks for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/escrow"
//	    ledgermem "github.com/xraph/escrow/ledger/memory"
//	    "github.com/xraph/escrow/store/memory"
//	)
//
//	engine, err := escrow.New(memory.New(), ledgermem.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Minting
//
// A registry binds a mint to the only identity allowed to mint it:
//
//	reg, err := engine.InitializeRegistry(ctx, "treasury")
//	err = engine.Mint(ctx, reg.MintID, "treasury", "alice", 1_000)
//
// Minting checks the authority, then that the registry is active, then that
// the new total fits in a uint64, and only then calls the ledger.
//
// # Orders
//
// Orders move through pending, paid and completed:
//
//	sh, _ := engine.InitializeShop(ctx, "seller")
//	o, _ := engine.CreateOrder(ctx, sh.ID, "buyer", escrow.OrderParams{
//	    ID: 1, ProductID: 42, Quantity: 2, PricePerItem: 50,
//	})
//	_ = engine.ProcessPayment(ctx, o.ID, "buyer") // buyer -> escrow
//	_ = engine.CompleteOrder(ctx, o.ID)           // escrow -> seller
//
// Funds in escrow can only leave through CompleteOrder. The escrow account
// is controlled by an identity derived from a fixed seed, and nothing
// outside the engine can sign for it.
//
// # TypeID
//
// Generated records use TypeIDs:
//
//	mint_01h2xcejqtf2nbrexx3vqjhp41  // Mint registry
//	shop_01h2xcejqtf2nbrexx3vqjhp41  // Shop
//
// Order IDs are caller-supplied unsigned integers.
package escrow
