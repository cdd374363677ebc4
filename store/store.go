// Package store declares the composite persistence interface for escrow
// records. Backends live in subpackages: memory, postgres, sqlite, mongo.
package store

import (
	"context"

	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/shop"
)

// Store is the unified storage interface for registries, shops and orders.
// Method names are prefixed per record type so the sub-interfaces embed
// without conflict.
type Store interface {
	authority.Store
	shop.Store
	order.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
