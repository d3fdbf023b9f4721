package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema bootstraps the reconciler tables. The advisory lock
// serializes DDL across concurrent api/worker startups.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL,
	buyer_name TEXT NOT NULL,
	total NUMERIC(18,2) NOT NULL,
	currency TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	due_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	exceptions JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invoices_number ON invoices(number);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);

CREATE TABLE IF NOT EXISTS portal_records (
	id TEXT PRIMARY KEY,
	external_id TEXT NOT NULL,
	portal TEXT NOT NULL,
	buyer_name TEXT NOT NULL,
	total NUMERIC(18,2) NOT NULL,
	currency TEXT NOT NULL,
	last_synced_at TIMESTAMPTZ,
	portal_status TEXT NOT NULL,
	invoice_id TEXT,
	match_state TEXT NOT NULL,
	connection TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_portal_records_match_state ON portal_records(match_state);

CREATE TABLE IF NOT EXISTS activity_log (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	record_id TEXT,
	invoice_id TEXT NOT NULL,
	score INT NOT NULL DEFAULT 0,
	reasons JSONB NOT NULL DEFAULT '[]'::jsonb,
	detail TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_log_created_at ON activity_log(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
