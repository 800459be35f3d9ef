// Package migrations holds the schema statements applied at startup.
// Statements are idempotent so Apply can run on every boot.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		is_approved BOOLEAN NOT NULL DEFAULT FALSE,
		has_paid BOOLEAN NOT NULL DEFAULT FALSE,
		payment_method TEXT NOT NULL DEFAULT '',
		payment_email TEXT NOT NULL DEFAULT '',
		wallet_address TEXT NOT NULL DEFAULT '',
		transaction_ref TEXT NOT NULL DEFAULT '',
		favorites JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_idx ON accounts (email)`,
	`CREATE INDEX IF NOT EXISTS accounts_pending_idx ON accounts (role, is_approved)`,
	// account_id is a plain identifier, not a foreign key: transaction rows
	// are an immutable payment trail and must outlive account deletion. The
	// submitter's email is snapshotted onto the row for the same reason.
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		account_email TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_status_idx ON transactions (status)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_id)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		city TEXT NOT NULL,
		title TEXT NOT NULL,
		area TEXT NOT NULL,
		price INTEGER NOT NULL,
		beds INTEGER NOT NULL,
		baths INTEGER NOT NULL,
		sqft INTEGER NOT NULL,
		type TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		amenities JSONB NOT NULL DEFAULT '[]',
		contact TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS listings_search_idx ON listings (city, price)`,
	`CREATE TABLE IF NOT EXISTS admin_config (
		id TEXT PRIMARY KEY,
		paypal_email TEXT NOT NULL,
		btc_address TEXT NOT NULL,
		usdt_address TEXT NOT NULL,
		price_usd DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Apply runs every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
