// Package shop models a seller's store registry: the record that owns a
// seller's orders and counts how many have been opened against it.
package shop

import (
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Shop is the per-seller store registry.
type Shop struct {
	types.Entity
	ID          id.ShopID      `json:"id"`
	Owner       types.Identity `json:"owner"`
	TotalOrders uint64         `json:"total_orders"`
	Active      bool           `json:"active"`
}

// New returns an active shop owned by owner with no orders.
func New(shopID id.ShopID, owner types.Identity, at time.Time) *Shop {
	return &Shop{
		Entity: types.NewEntityAt(at),
		ID:     shopID,
		Owner:  owner,
		Active: true,
	}
}
