package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/shop"
	escrowstore "github.com/xraph/escrow/store"
)

// Collection name constants.
const (
	colRegistries = "escrow_registries"
	colShops      = "escrow_shops"
	colOrders     = "escrow_orders"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all escrow collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("escrow/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrAlreadyExists
		}
		return fmt.Errorf("escrow/mongo: create registry: %w", err)
	}
	return nil
}

func (s *Store) GetRegistry(ctx context.Context, mintID id.MintID) (*authority.Registry, error) {
	var m registryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": mintID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrRegistryNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get registry: %w", err)
	}
	return fromRegistryModel(&m)
}

func (s *Store) ListRegistries(ctx context.Context, opts authority.ListOpts) ([]*authority.Registry, error) {
	var models []registryModel

	filter := bson.M{}
	if opts.Authority != "" {
		filter["mint_authority"] = string(opts.Authority)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list registries: %w", err)
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

//nolint:gosec // bit pattern round-trip
func (s *Store) RecordMint(ctx context.Context, mintID id.MintID, prevTotal, newTotal uint64, at time.Time) error {
	res, err := s.mdb.NewUpdate((*registryModel)(nil)).
		Filter(bson.M{"_id": mintID.String(), "total_minted": int64(prevTotal)}).
		Set("total_minted", int64(newTotal)).
		Set("updated_at", at.UTC()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: record mint: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetRegistry(ctx, mintID); err != nil {
			return err
		}
		return escrow.ErrConflict
	}
	return nil
}

func (s *Store) DeactivateRegistry(ctx context.Context, mintID id.MintID, at time.Time) error {
	res, err := s.mdb.NewUpdate((*registryModel)(nil)).
		Filter(bson.M{"_id": mintID.String()}).
		Set("state", string(authority.StateDeactivated)).
		Set("updated_at", at.UTC()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: deactivate registry: %w", err)
	}
	if res.MatchedCount() == 0 {
		return escrow.ErrRegistryNotFound
	}
	return nil
}

// ==================== Shop Store ====================

func (s *Store) CreateShop(ctx context.Context, sh *shop.Shop) error {
	m := toShopModel(sh)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrAlreadyExists
		}
		return fmt.Errorf("escrow/mongo: create shop: %w", err)
	}
	return nil
}

func (s *Store) GetShop(ctx context.Context, shopID id.ShopID) (*shop.Shop, error) {
	var m shopModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": shopID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrShopNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get shop: %w", err)
	}
	return fromShopModel(&m)
}

func (s *Store) ListShops(ctx context.Context, opts shop.ListOpts) ([]*shop.Shop, error) {
	var models []shopModel

	filter := bson.M{}
	if opts.Owner != "" {
		filter["owner"] = string(opts.Owner)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list shops: %w", err)
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

// CreateOrder inserts the order and bumps the shop counter in one
// transaction. Transactions need a replica set or sharded cluster.
func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	session, err := s.mdb.Client().StartSession()
	if err != nil {
		return fmt.Errorf("escrow/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, s.insertAndCount(sc, o)
	})
	return err
}

func (s *Store) insertAndCount(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrDuplicateOrder
		}
		return fmt.Errorf("escrow/mongo: create order: %w", err)
	}

	res, err := s.mdb.NewUpdate((*shopModel)(nil)).
		Filter(bson.M{
			"_id":          m.ShopID,
			"total_orders": bson.M{"$lt": int64(math.MaxInt64)},
		}).
		SetUpdate(bson.M{
			"$inc": bson.M{"total_orders": int64(1)},
			"$set": bson.M{"updated_at": m.CreatedAt},
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: count order: %w", err)
	}
	if res.MatchedCount() == 1 {
		return nil
	}

	if _, err := s.GetShop(ctx, o.ShopID); err != nil {
		return err
	}
	return escrow.ErrMathOverflow
}

func (s *Store) GetOrder(ctx context.Context, orderID uint64) (*order.Order, error) {
	var m orderModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(orderID)}). //nolint:gosec // bit pattern
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrOrderNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get order: %w", err)
	}
	return fromOrderModel(&m)
}

func (s *Store) ListOrders(ctx context.Context, opts order.ListOpts) ([]*order.Order, error) {
	var models []orderModel

	filter := bson.M{}
	if !opts.ShopID.IsNil() {
		filter["shop_id"] = opts.ShopID.String()
	}
	if opts.Buyer != "" {
		filter["buyer"] = string(opts.Buyer)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list orders: %w", err)
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
	res, err := s.mdb.NewUpdate((*orderModel)(nil)).
		Filter(bson.M{"_id": int64(orderID), "status": string(from)}). //nolint:gosec // bit pattern
		Set("status", string(to)).
		Set("updated_at", at.UTC()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: transition order: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetOrder(ctx, orderID); err != nil {
			return err
		}
		return escrow.ErrInvalidState
	}
	return nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all escrow collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colRegistries: {
			{Keys: bson.D{{Key: "mint_authority", Value: 1}}},
		},
		colShops: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
		colOrders: {
			{Keys: bson.D{{Key: "shop_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "buyer", Value: 1}}},
			{Keys: bson.D{{Key: "shop_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
