package order

import (
	"context"
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Store persists orders.
type Store interface {
	// CreateOrder inserts o and increments the owning shop's TotalOrders in
	// one atomic step. A duplicate ID returns escrow.ErrDuplicateOrder and
	// leaves both the existing order and the shop untouched.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, orderID uint64) (*Order, error)
	ListOrders(ctx context.Context, opts ListOpts) ([]*Order, error)

	// TransitionOrder moves the order from one status to the next and stamps
	// UpdatedAt with at. If the stored status is not from it returns
	// escrow.ErrInvalidState.
	TransitionOrder(ctx context.Context, orderID uint64, from, to Status, at time.Time) error
}

type ListOpts struct {
	ShopID id.ShopID
	Buyer  types.Identity
	Status Status
	Limit  int
	Offset int
}
