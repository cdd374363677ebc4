// Package authority models the mint authority registry: the record that
// binds a mint to the single identity allowed to create new units of it.
package authority

import (
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// State is the lifecycle state of a registry. Registries start active and
// can only move to deactivated.
type State string

const (
	StateActive      State = "active"
	StateDeactivated State = "deactivated"
)

// IsActive reports whether minting is permitted in this state.
func (s State) IsActive() bool { return s == StateActive }

// Registry is the per-mint authority record.
type Registry struct {
	types.Entity
	MintID        id.MintID      `json:"mint_id"`
	MintAuthority types.Identity `json:"mint_authority"`
	TotalMinted   uint64         `json:"total_minted"`
	State         State          `json:"state"`
}

// New returns an active registry with nothing minted.
func New(mintID id.MintID, mintAuthority types.Identity, at time.Time) *Registry {
	return &Registry{
		Entity:        types.NewEntityAt(at),
		MintID:        mintID,
		MintAuthority: mintAuthority,
		State:         StateActive,
	}
}

// IsActive reports whether the registry still permits minting.
func (r *Registry) IsActive() bool { return r.State.IsActive() }

// Authorizes reports whether caller is the registry's mint authority.
func (r *Registry) Authorizes(caller types.Identity) bool {
	return !caller.IsZero() && caller == r.MintAuthority
}

// Deactivate moves the registry to the deactivated state. It is idempotent
// and there is no inverse.
func (r *Registry) Deactivate(at time.Time) {
	if r.State == StateDeactivated {
		return
	}
	r.State = StateDeactivated
	r.TouchAt(at)
}
