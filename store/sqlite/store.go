package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/shop"
	escrowstore "github.com/xraph/escrow/store"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("escrow/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("escrow/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Registry Store ====================

func (s *Store) CreateRegistry(ctx context.Context, r *authority.Registry) error {
	m := toRegistryModel(r)
	res, err := s.sdb.NewInsert(m).
		OnConflict("(mint_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return escrow.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetRegistry(ctx context.Context, mintID id.MintID) (*authority.Registry, error) {
	m := new(registryModel)
	err := s.sdb.NewSelect(m).
		Where("mint_id = ?", mintID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrRegistryNotFound
		}
		return nil, err
	}
	return fromRegistryModel(m)
}

func (s *Store) ListRegistries(ctx context.Context, opts authority.ListOpts) ([]*authority.Registry, error) {
	var models []registryModel
	q := s.sdb.NewSelect(&models)

	if opts.Authority != "" {
		q = q.Where("mint_authority = ?", string(opts.Authority))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("mint_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*authority.Registry, len(models))
	for i := range models {
		r, err := fromRegistryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) RecordMint(ctx context.Context, mintID id.MintID, prevTotal, newTotal uint64, at time.Time) error {
	res, err := s.sdb.NewUpdate((*registryModel)(nil)).
		Set("total_minted = ?", int64(newTotal)). //nolint:gosec // bit pattern
		Set("updated_at = ?", at.UTC()).
		Where("mint_id = ?", mintID.String()).
		Where("total_minted = ?", int64(prevTotal)). //nolint:gosec // bit pattern
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetRegistry(ctx, mintID); err != nil {
			return err
		}
		return escrow.ErrConflict
	}
	return nil
}

func (s *Store) DeactivateRegistry(ctx context.Context, mintID id.MintID, at time.Time) error {
	res, err := s.sdb.NewUpdate((*registryModel)(nil)).
		Set("state = ?", string(authority.StateDeactivated)).
		Set("updated_at = ?", at.UTC()).
		Where("mint_id = ?", mintID.String()).
		Where("state <> ?", string(authority.StateDeactivated)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either missing or already deactivated.
		_, err := s.GetRegistry(ctx, mintID)
		return err
	}
	return nil
}

// ==================== Shop Store ====================

func (s *Store) CreateShop(ctx context.Context, sh *shop.Shop) error {
	m := toShopModel(sh)
	res, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return escrow.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetShop(ctx context.Context, shopID id.ShopID) (*shop.Shop, error) {
	m := new(shopModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", shopID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrShopNotFound
		}
		return nil, err
	}
	return fromShopModel(m)
}

func (s *Store) ListShops(ctx context.Context, opts shop.ListOpts) ([]*shop.Shop, error) {
	var models []shopModel
	q := s.sdb.NewSelect(&models)

	if opts.Owner != "" {
		q = q.Where("owner = ?", string(opts.Owner))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*shop.Shop, len(models))
	for i := range models {
		sh, err := fromShopModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sh
	}
	return result, nil
}

// ==================== Order Store ====================

// CreateOrder relies on the trg_escrow_orders_count trigger to bump the
// shop counter inside the insert statement.
func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)
	res, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "escrow_shop_missing"):
			return escrow.ErrShopNotFound
		case strings.Contains(err.Error(), "escrow_order_counter_overflow"):
			return escrow.ErrMathOverflow
		}
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return escrow.ErrDuplicateOrder
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID uint64) (*order.Order, error) {
	m := new(orderModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", int64(orderID)). //nolint:gosec // bit pattern
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrOrderNotFound
		}
		return nil, err
	}
	return fromOrderModel(m)
}

func (s *Store) ListOrders(ctx context.Context, opts order.ListOpts) ([]*order.Order, error) {
	var models []orderModel
	q := s.sdb.NewSelect(&models)

	if !opts.ShopID.IsNil() {
		q = q.Where("shop_id = ?", opts.ShopID.String())
	}
	if opts.Buyer != "" {
		q = q.Where("buyer = ?", string(opts.Buyer))
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*order.Order, len(models))
	for i := range models {
		o, err := fromOrderModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = o
	}
	return result, nil
}

func (s *Store) TransitionOrder(ctx context.Context, orderID uint64, from, to order.Status, at time.Time) error {
	res, err := s.sdb.NewUpdate((*orderModel)(nil)).
		Set("status = ?", string(to)).
		Set("updated_at = ?", at.UTC()).
		Where("id = ?", int64(orderID)). //nolint:gosec // bit pattern
		Where("status = ?", string(from)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetOrder(ctx, orderID); err != nil {
			return err
		}
		return escrow.ErrInvalidState
	}
	return nil
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
