// Package memory provides an in-process Store for tests and single-node use.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/shop"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/types"
)

var _ store.Store = (*Store)(nil)

// Store keeps records in maps. Returned records are copies.
type Store struct {
	mu sync.RWMutex

	registries map[string]*authority.Registry
	shops      map[string]*shop.Shop
	orders     map[uint64]*order.Order

	closed bool
}

func New() *Store {
	return &Store{
		registries: make(map[string]*authority.Registry),
		shops:      make(map[string]*shop.Shop),
		orders:     make(map[uint64]*order.Order),
	}
}

// ──────────────────────────────────────────────────
// Registry Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateRegistry(_ context.Context, r *authority.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.registries[r.MintID.String()]; exists {
		return escrow.ErrAlreadyExists
	}
	cp := *r
	s.registries[r.MintID.String()] = &cp
	return nil
}

func (s *Store) GetRegistry(_ context.Context, mintID id.MintID) (*authority.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.registries[mintID.String()]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, escrow.ErrRegistryNotFound
}

func (s *Store) ListRegistries(_ context.Context, opts authority.ListOpts) ([]*authority.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*authority.Registry, 0)
	for _, r := range s.registries {
		if opts.Authority != "" && r.MintAuthority != opts.Authority {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *authority.Registry) int {
		return strings.Compare(a.MintID.String(), b.MintID.String())
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) RecordMint(_ context.Context, mintID id.MintID, prevTotal, newTotal uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registries[mintID.String()]
	if !ok {
		return escrow.ErrRegistryNotFound
	}
	if r.TotalMinted != prevTotal {
		return escrow.ErrConflict
	}
	r.TotalMinted = newTotal
	r.TouchAt(at)
	return nil
}

func (s *Store) DeactivateRegistry(_ context.Context, mintID id.MintID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registries[mintID.String()]
	if !ok {
		return escrow.ErrRegistryNotFound
	}
	r.Deactivate(at)
	return nil
}

// ──────────────────────────────────────────────────
// Shop Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateShop(_ context.Context, sh *shop.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shops[sh.ID.String()]; exists {
		return escrow.ErrAlreadyExists
	}
	cp := *sh
	s.shops[sh.ID.String()] = &cp
	return nil
}

func (s *Store) GetShop(_ context.Context, shopID id.ShopID) (*shop.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sh, ok := s.shops[shopID.String()]; ok {
		cp := *sh
		return &cp, nil
	}
	return nil, escrow.ErrShopNotFound
}

func (s *Store) ListShops(_ context.Context, opts shop.ListOpts) ([]*shop.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*shop.Shop, 0)
	for _, sh := range s.shops {
		if opts.Owner != "" && sh.Owner != opts.Owner {
			continue
		}
		cp := *sh
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *shop.Shop) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Order Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return escrow.ErrDuplicateOrder
	}
	sh, ok := s.shops[o.ShopID.String()]
	if !ok {
		return escrow.ErrShopNotFound
	}
	next, ok := types.CheckedAdd(sh.TotalOrders, 1)
	if !ok {
		return escrow.ErrMathOverflow
	}

	cp := *o
	s.orders[o.ID] = &cp
	sh.TotalOrders = next
	sh.TouchAt(o.CreatedAt)
	return nil
}

func (s *Store) GetOrder(_ context.Context, orderID uint64) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.orders[orderID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, escrow.ErrOrderNotFound
}

func (s *Store) ListOrders(_ context.Context, opts order.ListOpts) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*order.Order, 0)
	for _, o := range s.orders {
		if !opts.ShopID.IsNil() && o.ShopID.String() != opts.ShopID.String() {
			continue
		}
		if opts.Buyer != "" && o.Buyer != opts.Buyer {
			continue
		}
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *order.Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) TransitionOrder(_ context.Context, orderID uint64, from, to order.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return escrow.ErrOrderNotFound
	}
	if o.Status != from {
		return escrow.ErrInvalidState
	}
	o.Status = to
	o.TouchAt(at)
	return nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return escrow.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
