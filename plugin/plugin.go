// Package plugin lets extensions observe escrow operations. Hooks run after
// an operation has committed and cannot change its outcome.
package plugin

import (
	"context"

	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/shop"
	"github.com/xraph/escrow/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *escrow.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Authority hooks
// ──────────────────────────────────────────────────

// OnRegistryInitialized is called after a mint registry is created.
type OnRegistryInitialized interface {
	Plugin
	OnRegistryInitialized(ctx context.Context, reg *authority.Registry) error
}

// OnMinted is called after units are minted. reg carries the new total.
type OnMinted interface {
	Plugin
	OnMinted(ctx context.Context, reg *authority.Registry, to types.Identity, amount uint64) error
}

// OnRegistryDeactivated is called the first time a registry is deactivated.
type OnRegistryDeactivated interface {
	Plugin
	OnRegistryDeactivated(ctx context.Context, reg *authority.Registry) error
}

// OnTransferred is called after a pass-through or sweep transfer.
type OnTransferred interface {
	Plugin
	OnTransferred(ctx context.Context, t Transfer) error
}

// Transfer describes a completed ledger transfer.
type Transfer struct {
	From       types.Identity
	To         types.Identity
	Amount     uint64
	Authorizer types.Identity
	Sweep      bool
}

// ──────────────────────────────────────────────────
// Shop and order hooks
// ──────────────────────────────────────────────────

// OnShopInitialized is called after a shop is created.
type OnShopInitialized interface {
	Plugin
	OnShopInitialized(ctx context.Context, s *shop.Shop) error
}

// OnOrderCreated is called after an order is created.
type OnOrderCreated interface {
	Plugin
	OnOrderCreated(ctx context.Context, o *order.Order) error
}

// OnOrderPaid is called after the buyer's payment is held in escrow.
type OnOrderPaid interface {
	Plugin
	OnOrderPaid(ctx context.Context, o *order.Order) error
}

// OnOrderCompleted is called after escrowed funds are released to the seller.
type OnOrderCompleted interface {
	Plugin
	OnOrderCompleted(ctx context.Context, o *order.Order, seller types.Identity) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationRejected is called when an operation fails. op names the
// engine method, e.g. "mint" or "process_payment".
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, caller types.Identity, err error) error
}
