package escrow

import (
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/types"
)

// Re-export common types so callers rarely need the sub-packages.

// Identity is re-exported from the types package.
type Identity = types.Identity

// Entity is re-exported from the types package.
type Entity = types.Entity

// OrderParams is re-exported from the order package.
type OrderParams = order.Params

// OrderStatus is re-exported from the order package.
type OrderStatus = order.Status

// Re-export order statuses.
const (
	StatusPending   = order.StatusPending
	StatusPaid      = order.StatusPaid
	StatusCompleted = order.StatusCompleted
	StatusCancelled = order.StatusCancelled
	StatusRefunded  = order.StatusRefunded
)

// Re-export arithmetic helpers.
var (
	CheckedAdd  = types.CheckedAdd
	CheckedMul  = types.CheckedMul
	FormatUnits = types.FormatUnits
)
