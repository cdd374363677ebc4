package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("escrow/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("escrow/postgres: migration failed: %w", err)
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
	res, err := s.pg.NewInsert(m).
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
	err := s.pg.NewSelect(m).
		Where("mint_id = $1", mintID.String()).
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
	q := s.pg.NewSelect(&models)

	if opts.Authority != "" {
		q = q.Where("mint_authority = $1", string(opts.Authority))
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
	res, err := s.pg.NewUpdate((*registryModel)(nil)).
		Set("total_minted = $1", int64(newTotal)). //nolint:gosec // bit pattern
		Set("updated_at = $2", at.UTC()).
		Where("mint_id = $3", mintID.String()).
		Where("total_minted = $4", int64(prevTotal)). //nolint:gosec // bit pattern
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
	res, err := s.pg.NewUpdate((*registryModel)(nil)).
		Set("state = $1", string(authority.StateDeactivated)).
		Set("updated_at = $2", at.UTC()).
		Where("mint_id = $3", mintID.String()).
		Where("state <> $4", string(authority.StateDeactivated)).
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
	res, err := s.pg.NewInsert(m).
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
	err := s.pg.NewSelect(m).
		Where("id = $1", shopID.String()).
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
	q := s.pg.NewSelect(&models)

	if opts.Owner != "" {
		q = q.Where("owner = $1", string(opts.Owner))
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

// createOrderSQL inserts the order and bumps the shop counter in a single
// statement. It returns no row when the id is taken, the shop is missing or
// the counter is saturated.
const createOrderSQL = `
WITH target AS (
    SELECT id FROM escrow_shops
    WHERE id = $2 AND total_orders < $11
    FOR UPDATE
), ins AS (
    INSERT INTO escrow_orders
        (id, shop_id, buyer, product_id, quantity, price_per_item, total_amount, status, created_at, updated_at)
    SELECT $1, target.id, $3, $4, $5, $6, $7, $8, $9, $10 FROM target
    ON CONFLICT (id) DO NOTHING
    RETURNING shop_id
)
UPDATE escrow_shops
SET total_orders = escrow_shops.total_orders + 1, updated_at = $10
FROM ins
WHERE escrow_shops.id = ins.shop_id
RETURNING escrow_shops.total_orders`

func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)

	var total int64
	err := s.pg.NewRaw(createOrderSQL,
		m.ID, m.ShopID, m.Buyer, m.ProductID, m.Quantity, m.PricePerItem,
		m.TotalAmount, m.Status, m.CreatedAt, m.UpdatedAt, int64(math.MaxInt64),
	).Scan(ctx, &total)
	if err == nil {
		return nil
	}
	if !isNoRows(err) {
		return err
	}

	if _, err := s.GetOrder(ctx, o.ID); err == nil {
		return escrow.ErrDuplicateOrder
	} else if !errors.Is(err, escrow.ErrOrderNotFound) {
		return err
	}
	if _, err := s.GetShop(ctx, o.ShopID); err != nil {
		return err
	}
	return escrow.ErrMathOverflow
}

func (s *Store) GetOrder(ctx context.Context, orderID uint64) (*order.Order, error) {
	m := new(orderModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", int64(orderID)). //nolint:gosec // bit pattern
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.ShopID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("shop_id = $%d", argIdx), opts.ShopID.String())
	}
	if opts.Buyer != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("buyer = $%d", argIdx), string(opts.Buyer))
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
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
	res, err := s.pg.NewUpdate((*orderModel)(nil)).
		Set("status = $1", string(to)).
		Set("updated_at = $2", at.UTC()).
		Where("id = $3", int64(orderID)). //nolint:gosec // bit pattern
		Where("status = $4", string(from)).
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
