package shop

import (
	"context"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Store persists shops. TotalOrders is only ever changed by the order store
// when it inserts an order.
type Store interface {
	CreateShop(ctx context.Context, s *Shop) error
	GetShop(ctx context.Context, shopID id.ShopID) (*Shop, error)
	ListShops(ctx context.Context, opts ListOpts) ([]*Shop, error)
}

type ListOpts struct {
	Owner  types.Identity
	Limit  int
	Offset int
}
