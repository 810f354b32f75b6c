package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Factor store (SQLite).
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
    face_amount_cents    INTEGER NOT NULL DEFAULT 0,
    face_amount_currency TEXT NOT NULL DEFAULT '',
    issue_date           TEXT NOT NULL DEFAULT (datetime('now')),
    due_date             TEXT NOT NULL DEFAULT (datetime('now')),
    reference            TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL DEFAULT 'draft',
    terms                TEXT,
    funded_by            TEXT,
    listed_at            TEXT,
    repaid_at            TEXT,
    settled_at           TEXT,
    anchor_notes         TEXT NOT NULL DEFAULT '',
    admin_notes          TEXT NOT NULL DEFAULT '',
    reject_reason        TEXT NOT NULL DEFAULT '',
    rejected_by          TEXT NOT NULL DEFAULT '',
    metadata             TEXT NOT NULL DEFAULT '{}',
    version              INTEGER NOT NULL DEFAULT 1,
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
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
    amount_cents    INTEGER NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    rate            INTEGER NOT NULL DEFAULT 0,
    funding_pct     INTEGER NOT NULL DEFAULT 0,
    tenure_days     INTEGER NOT NULL DEFAULT 0,
    terms_text      TEXT NOT NULL DEFAULT '',
    notes           TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'pending',
    expires_at      TEXT NOT NULL DEFAULT (datetime('now')),
    accepted_at     TEXT,
    resolved_reason TEXT NOT NULL DEFAULT '',
    version         INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
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
