package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the escrow record store (SQLite).
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
    total_minted   INTEGER NOT NULL DEFAULT 0,
    state          TEXT NOT NULL DEFAULT 'active',
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
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
    total_orders INTEGER NOT NULL DEFAULT 0,
    active       INTEGER NOT NULL DEFAULT 1,
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
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
    id             INTEGER PRIMARY KEY,
    shop_id        TEXT NOT NULL,
    buyer          TEXT NOT NULL,
    product_id     INTEGER NOT NULL DEFAULT 0,
    quantity       INTEGER NOT NULL DEFAULT 0,
    price_per_item INTEGER NOT NULL DEFAULT 0,
    total_amount   INTEGER NOT NULL DEFAULT 0,
    status         TEXT NOT NULL DEFAULT 'pending',
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
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
		&migrate.Migration{
			Name:    "create_escrow_order_counter_trigger",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TRIGGER IF NOT EXISTS trg_escrow_orders_count
AFTER INSERT ON escrow_orders
BEGIN
    SELECT RAISE(ABORT, 'escrow_shop_missing')
    WHERE NOT EXISTS (SELECT 1 FROM escrow_shops WHERE id = NEW.shop_id);
    SELECT RAISE(ABORT, 'escrow_order_counter_overflow')
    WHERE (SELECT total_orders FROM escrow_shops WHERE id = NEW.shop_id) >= 9223372036854775807;
    UPDATE escrow_shops
    SET total_orders = total_orders + 1, updated_at = NEW.created_at
    WHERE id = NEW.shop_id;
END;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TRIGGER IF EXISTS trg_escrow_orders_count`)
				return err
			},
		},
	)
}
