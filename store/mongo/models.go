package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/shop"
	"github.com/xraph/escrow/types"
)

// Unsigned amounts are stored as the int64 with the same bit pattern.
// Equality is preserved, ordering above math.MaxInt64 is not.

// ==================== Registry models ====================

type registryModel struct {
	grove.BaseModel `grove:"table:escrow_registries"`

	MintID        string    `grove:"mint_id,pk"       bson:"_id"`
	MintAuthority string    `grove:"mint_authority"   bson:"mint_authority"`
	TotalMinted   int64     `grove:"total_minted"     bson:"total_minted"`
	State         string    `grove:"state"            bson:"state"`
	CreatedAt     time.Time `grove:"created_at"       bson:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"       bson:"updated_at"`
}

func toRegistryModel(r *authority.Registry) *registryModel {
	return &registryModel{
		MintID:        r.MintID.String(),
		MintAuthority: string(r.MintAuthority),
		TotalMinted:   int64(r.TotalMinted), //nolint:gosec // bit pattern round-trip
		State:         string(r.State),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func fromRegistryModel(m *registryModel) (*authority.Registry, error) {
	mintID, err := id.ParseMintID(m.MintID)
	if err != nil {
		return nil, err
	}
	return &authority.Registry{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		MintID:        mintID,
		MintAuthority: types.Identity(m.MintAuthority),
		TotalMinted:   uint64(m.TotalMinted), //nolint:gosec // bit pattern round-trip
		State:         authority.State(m.State),
	}, nil
}

// ==================== Shop models ====================

type shopModel struct {
	grove.BaseModel `grove:"table:escrow_shops"`

	ID          string    `grove:"id,pk"            bson:"_id"`
	Owner       string    `grove:"owner"            bson:"owner"`
	TotalOrders int64     `grove:"total_orders"     bson:"total_orders"`
	Active      bool      `grove:"active"           bson:"active"`
	CreatedAt   time.Time `grove:"created_at"       bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"       bson:"updated_at"`
}

func toShopModel(s *shop.Shop) *shopModel {
	return &shopModel{
		ID:          s.ID.String(),
		Owner:       string(s.Owner),
		TotalOrders: int64(s.TotalOrders), //nolint:gosec // bounded by CreateOrder
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromShopModel(m *shopModel) (*shop.Shop, error) {
	shopID, err := id.ParseShopID(m.ID)
	if err != nil {
		return nil, err
	}
	return &shop.Shop{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          shopID,
		Owner:       types.Identity(m.Owner),
		TotalOrders: uint64(m.TotalOrders), //nolint:gosec // never negative
		Active:      m.Active,
	}, nil
}

// ==================== Order models ====================

type orderModel struct {
	grove.BaseModel `grove:"table:escrow_orders"`

	ID           int64     `grove:"id,pk"            bson:"_id"`
	ShopID       string    `grove:"shop_id"          bson:"shop_id"`
	Buyer        string    `grove:"buyer"            bson:"buyer"`
	ProductID    int64     `grove:"product_id"       bson:"product_id"`
	Quantity     int64     `grove:"quantity"         bson:"quantity"`
	PricePerItem int64     `grove:"price_per_item"   bson:"price_per_item"`
	TotalAmount  int64     `grove:"total_amount"     bson:"total_amount"`
	Status       string    `grove:"status"           bson:"status"`
	CreatedAt    time.Time `grove:"created_at"       bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"       bson:"updated_at"`
}

//nolint:gosec // bit pattern round-trip
func toOrderModel(o *order.Order) *orderModel {
	return &orderModel{
		ID:           int64(o.ID),
		ShopID:       o.ShopID.String(),
		Buyer:        string(o.Buyer),
		ProductID:    int64(o.ProductID),
		Quantity:     int64(o.Quantity),
		PricePerItem: int64(o.PricePerItem),
		TotalAmount:  int64(o.TotalAmount),
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

//nolint:gosec // bit pattern round-trip
func fromOrderModel(m *orderModel) (*order.Order, error) {
	shopID, err := id.ParseShopID(m.ShopID)
	if err != nil {
		return nil, err
	}
	status, err := order.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	return &order.Order{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           uint64(m.ID),
		ShopID:       shopID,
		Buyer:        types.Identity(m.Buyer),
		ProductID:    uint64(m.ProductID),
		Quantity:     uint64(m.Quantity),
		PricePerItem: uint64(m.PricePerItem),
		TotalAmount:  uint64(m.TotalAmount),
		Status:       status,
	}, nil
}
