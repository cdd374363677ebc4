package authority

import (
	"context"
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Store persists registries.
type Store interface {
	CreateRegistry(ctx context.Context, r *Registry) error
	GetRegistry(ctx context.Context, mintID id.MintID) (*Registry, error)
	ListRegistries(ctx context.Context, opts ListOpts) ([]*Registry, error)

	// RecordMint sets TotalMinted to newTotal only if it currently equals
	// prevTotal, stamping UpdatedAt with at. A mismatch returns
	// escrow.ErrConflict.
	RecordMint(ctx context.Context, mintID id.MintID, prevTotal, newTotal uint64, at time.Time) error

	// DeactivateRegistry marks the registry deactivated at at. Deactivating
	// an already deactivated registry is not an error.
	DeactivateRegistry(ctx context.Context, mintID id.MintID, at time.Time) error
}

type ListOpts struct {
	Authority types.Identity
	Limit     int
	Offset    int
}
