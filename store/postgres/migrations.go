package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the escrow record store.
var Migrations = migrate.NewGroup("escrow")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_escrow_registries",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_registries (
    mint_id        TEXT PRIMARY KEY,
    mint_authority TEXT NOT NULL,
    total_minted   BIGINT NOT NULL DEFAULT 0,
    state          TEXT NOT NULL DEFAULT 'active',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_escrow_registries_authority ON escrow_registries (mint_authority);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_registries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_shops",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_shops (
    id           TEXT PRIMARY KEY,
    owner        TEXT NOT NULL,
    total_orders BIGINT NOT NULL DEFAULT 0 CHECK (total_orders >= 0),
    active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_escrow_shops_owner ON escrow_shops (owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_shops`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_orders",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_orders (
    id             BIGINT PRIMARY KEY,
    shop_id        TEXT NOT NULL REFERENCES escrow_shops (id),
    buyer          TEXT NOT NULL,
    product_id     BIGINT NOT NULL DEFAULT 0,
    quantity       BIGINT NOT NULL DEFAULT 0,
    price_per_item BIGINT NOT NULL DEFAULT 0,
    total_amount   BIGINT NOT NULL DEFAULT 0,
    status         TEXT NOT NULL DEFAULT 'pending',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_escrow_orders_shop ON escrow_orders (shop_id);
CREATE INDEX IF NOT EXISTS idx_escrow_orders_buyer ON escrow_orders (buyer);
CREATE INDEX IF NOT EXISTS idx_escrow_orders_status ON escrow_orders (shop_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_orders`)
				return err
			},
		},
	)
}
