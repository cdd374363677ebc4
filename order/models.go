// Package order models escrowed purchase orders and their status machine.
package order

import (
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Order is a buyer's purchase against a shop. TotalAmount is fixed when the
// order is created and is the exact amount moved into and out of escrow.
type Order struct {
	types.Entity
	ID           uint64         `json:"id"`
	ShopID       id.ShopID      `json:"shop_id"`
	Buyer        types.Identity `json:"buyer"`
	ProductID    uint64         `json:"product_id"`
	Quantity     uint64         `json:"quantity"`
	PricePerItem uint64         `json:"price_per_item"`
	TotalAmount  uint64         `json:"total_amount"`
	Status       Status         `json:"status"`
}

// Params are the caller-supplied fields of a new order.
type Params struct {
	ID           uint64 `json:"id"`
	ProductID    uint64 `json:"product_id"`
	Quantity     uint64 `json:"quantity"`
	PricePerItem uint64 `json:"price_per_item"`
}

// New builds a pending order. It reports false if quantity*price overflows.
func New(shopID id.ShopID, buyer types.Identity, p Params, at time.Time) (*Order, bool) {
	total, ok := types.CheckedMul(p.Quantity, p.PricePerItem)
	if !ok {
		return nil, false
	}

	return &Order{
		Entity:       types.NewEntityAt(at),
		ID:           p.ID,
		ShopID:       shopID,
		Buyer:        buyer,
		ProductID:    p.ProductID,
		Quantity:     p.Quantity,
		PricePerItem: p.PricePerItem,
		TotalAmount:  total,
		Status:       StatusPending,
	}, true
}
