package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Vault store.
var Migrations = migrate.NewGroup("vault")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_vault_users",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_users (
    id                       TEXT PRIMARY KEY,
    chat_id                  TEXT NOT NULL DEFAULT '',
    username                 TEXT NOT NULL DEFAULT '',
    display_name             TEXT NOT NULL DEFAULT '',
    tier                     TEXT NOT NULL DEFAULT 'none',
    points_balance           BIGINT NOT NULL DEFAULT 0,
    spend_amount             BIGINT NOT NULL DEFAULT 0,
    spend_currency           TEXT NOT NULL DEFAULT '',
    free_unlocks             INT NOT NULL DEFAULT 0,
    pending_discount_percent INT NOT NULL DEFAULT 0,
    referral_code            TEXT NOT NULL DEFAULT '',
    referral_count           BIGINT NOT NULL DEFAULT 0,
    referred_by              TEXT NOT NULL DEFAULT '',
    referral_paid            BOOLEAN NOT NULL DEFAULT FALSE,
    banned                   BOOLEAN NOT NULL DEFAULT FALSE,
    last_active_at           TIMESTAMPTZ,
    metadata                 JSONB NOT NULL DEFAULT '{}',
    created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vault_users_chat_id ON vault_users (chat_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_vault_users_referral_code ON vault_users (referral_code) WHERE referral_code <> '';
CREATE INDEX IF NOT EXISTS idx_vault_users_tier ON vault_users (tier);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_categories",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_categories (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    slug        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    sort_order  INT NOT NULL DEFAULT 0,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_categories_slug ON vault_categories (slug);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_categories`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_images",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_images (
    id             TEXT PRIMARY KEY,
    category_id    TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    price_amount   BIGINT NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    content_type   TEXT NOT NULL DEFAULT 'private',
    tier_required  TEXT NOT NULL DEFAULT 'none',
    explicit       BOOLEAN NOT NULL DEFAULT FALSE,
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    storage_key    TEXT NOT NULL DEFAULT '',
    mime_type      TEXT NOT NULL DEFAULT '',
    total_sales    BIGINT NOT NULL DEFAULT 0,
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_images_category ON vault_images (category_id);
CREATE INDEX IF NOT EXISTS idx_vault_images_active ON vault_images (active, content_type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_images`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_orders",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_orders (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL DEFAULT '',
    kind            TEXT NOT NULL DEFAULT '',
    image_id        TEXT NOT NULL DEFAULT '',
    subscription_id TEXT NOT NULL DEFAULT '',
    request_id      TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'created',
    price_amount    BIGINT NOT NULL DEFAULT 0,
    price_currency  TEXT NOT NULL DEFAULT '',
    flash_sale_id   TEXT NOT NULL DEFAULT '',
    provider_ref    TEXT NOT NULL DEFAULT '',
    capture_ref     TEXT NOT NULL DEFAULT '',
    idempotency_key TEXT NOT NULL DEFAULT '',
    paid_at         TIMESTAMPTZ,
    fulfilled_at    TIMESTAMPTZ,
    fail_reason     TEXT NOT NULL DEFAULT '',
    metadata        JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_orders_user ON vault_orders (user_id);
CREATE INDEX IF NOT EXISTS idx_vault_orders_status ON vault_orders (status, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_vault_orders_provider_ref ON vault_orders (provider_ref) WHERE provider_ref != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_orders`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_unlocks",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_unlocks (
    user_id    TEXT NOT NULL,
    image_id   TEXT NOT NULL,
    order_id   TEXT NOT NULL DEFAULT '',
    source     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, image_id)
);

CREATE INDEX IF NOT EXISTS idx_vault_unlocks_image ON vault_unlocks (image_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_unlocks`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_subscriptions",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_subscriptions (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL DEFAULT '',
    tier           TEXT NOT NULL DEFAULT 'none',
    status         TEXT NOT NULL DEFAULT 'active',
    price_amount   BIGINT NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    period_start   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    period_end     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    auto_renew     BOOLEAN NOT NULL DEFAULT FALSE,
    order_id       TEXT NOT NULL DEFAULT '',
    provider_ref   TEXT NOT NULL DEFAULT '',
    canceled_at    TIMESTAMPTZ,
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_subs_user ON vault_subscriptions (user_id, status);
CREATE INDEX IF NOT EXISTS idx_vault_subs_period_end ON vault_subscriptions (status, period_end);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_flash_sales",
			Version: "20250101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_flash_sales (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL DEFAULT '',
    category_id      TEXT NOT NULL DEFAULT '',
    discount_percent INT NOT NULL DEFAULT 0,
    starts_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ends_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status           TEXT NOT NULL DEFAULT 'scheduled',
    announced        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_sales_window ON vault_flash_sales (starts_at, ends_at);
CREATE INDEX IF NOT EXISTS idx_vault_sales_status ON vault_flash_sales (status, ends_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_flash_sales`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_drips",
			Version: "20250101000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_drips (
    id            TEXT PRIMARY KEY,
    image_id      TEXT NOT NULL DEFAULT '',
    audience_tier TEXT NOT NULL DEFAULT 'none',
    release_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    teaser        TEXT NOT NULL DEFAULT '',
    delivered     BOOLEAN NOT NULL DEFAULT FALSE,
    delivered_at  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_drips_due ON vault_drips (delivered, release_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_drips`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_loyalty_entries",
			Version: "20250101000009",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_loyalty_entries (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL DEFAULT '',
    delta      BIGINT NOT NULL DEFAULT 0,
    balance    BIGINT NOT NULL DEFAULT 0,
    reason     TEXT NOT NULL DEFAULT '',
    order_id   TEXT NOT NULL DEFAULT '',
    note       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_loyalty_user ON vault_loyalty_entries (user_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_loyalty_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_requests",
			Version: "20250101000010",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_requests (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'submitted',
    price_amount   BIGINT NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    admin_note     TEXT NOT NULL DEFAULT '',
    order_id       TEXT NOT NULL DEFAULT '',
    result_image   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_requests_user ON vault_requests (user_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_requests`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_posts",
			Version: "20250101000011",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_posts (
    id          TEXT PRIMARY KEY,
    image_id    TEXT NOT NULL DEFAULT '',
    caption     TEXT NOT NULL DEFAULT '',
    post_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status      TEXT NOT NULL DEFAULT 'pending',
    posted_at   TIMESTAMPTZ,
    fail_reason TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_posts_due ON vault_posts (status, post_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_posts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_processed_events",
			Version: "20250101000012",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_processed_events (
    id         TEXT PRIMARY KEY,
    key        TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vault_processed_key ON vault_processed_events (key);
CREATE INDEX IF NOT EXISTS idx_vault_processed_created ON vault_processed_events (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_processed_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_pending_events",
			Version: "20250101000013",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_pending_events (
    id             TEXT PRIMARY KEY,
    key            TEXT NOT NULL DEFAULT '',
    type           TEXT NOT NULL DEFAULT '',
    provider_ref   TEXT NOT NULL DEFAULT '',
    capture_ref    TEXT NOT NULL DEFAULT '',
    raw            JSONB,
    attempts       INT NOT NULL DEFAULT 0,
    last_error     TEXT NOT NULL DEFAULT '',
    reconciliation BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_pending_created ON vault_pending_events (reconciliation, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_pending_events`)
				return err
			},
		},
	)
}
