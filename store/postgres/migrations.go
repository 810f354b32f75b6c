package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Factor store.
var Migrations = migrate.NewGroup("factor")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_factor_invoices",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS factor_invoices (
    id                   TEXT PRIMARY KEY,
    seller_id            TEXT NOT NULL DEFAULT '',
    anchor_id            TEXT NOT NULL DEFAULT '',
    face_amount_cents    BIGINT NOT NULL DEFAULT 0,
    face_amount_currency TEXT NOT NULL DEFAULT '',
    issue_date           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    due_date             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    reference            TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL DEFAULT 'draft',
    terms                JSONB,
    funded_by            JSONB,
    listed_at            TIMESTAMPTZ,
    repaid_at            TIMESTAMPTZ,
    settled_at           TIMESTAMPTZ,
    anchor_notes         TEXT NOT NULL DEFAULT '',
    admin_notes          TEXT NOT NULL DEFAULT '',
    reject_reason        TEXT NOT NULL DEFAULT '',
    rejected_by          TEXT NOT NULL DEFAULT '',
    metadata             JSONB NOT NULL DEFAULT '{}',
    version              BIGINT NOT NULL DEFAULT 1,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_factor_invoices_seller ON factor_invoices (seller_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_factor_invoices_status ON factor_invoices (status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_factor_invoices_status_anchor ON factor_invoices (status, anchor_id);
CREATE INDEX IF NOT EXISTS idx_factor_invoices_status_due ON factor_invoices (status, due_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS factor_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_factor_offers",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS factor_offers (
    id              TEXT PRIMARY KEY,
    invoice_id      TEXT NOT NULL DEFAULT '',
    lender_id       TEXT NOT NULL DEFAULT '',
    amount_cents    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    rate            BIGINT NOT NULL DEFAULT 0,
    funding_pct     BIGINT NOT NULL DEFAULT 0,
    tenure_days     INT NOT NULL DEFAULT 0,
    terms_text      TEXT NOT NULL DEFAULT '',
    notes           TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'pending',
    expires_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    accepted_at     TIMESTAMPTZ,
    resolved_reason TEXT NOT NULL DEFAULT '',
    version         BIGINT NOT NULL DEFAULT 1,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_factor_offers_invoice ON factor_offers (invoice_id, status);
CREATE INDEX IF NOT EXISTS idx_factor_offers_lender ON factor_offers (lender_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_factor_offers_expiry ON factor_offers (status, expires_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_factor_offers_one_accepted ON factor_offers (invoice_id) WHERE status = 'accepted';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS factor_offers`)
				return err
			},
		},
	)
}
