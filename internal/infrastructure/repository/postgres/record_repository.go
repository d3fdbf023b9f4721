package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `id, external_id, portal, buyer_name, total, currency, last_synced_at, portal_status, invoice_id, match_state, connection`

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.PortalRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM portal_records
WHERE id = $1
`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "get record", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return &rec, nil
}

func (r *RecordRepository) ListByState(ctx context.Context, state domain.MatchState) ([]domain.PortalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+recordColumns+`
FROM portal_records
WHERE match_state = $1
ORDER BY last_synced_at DESC NULLS LAST, id
`, string(state))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PortalRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (r *RecordRepository) BindInvoice(ctx context.Context, id, invoiceID string, state domain.MatchState) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE portal_records
SET invoice_id = $2, match_state = $3, updated_at = $4
WHERE id = $1
`, id, nullableString(invoiceID), string(state), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bind invoice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind invoice rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRecordNotFound, "bind invoice", fmt.Errorf("id=%s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (domain.PortalRecord, error) {
	var rec domain.PortalRecord
	var total string
	var lastSynced sql.NullTime
	var invoiceID sql.NullString
	var matchState, connection string

	err := row.Scan(
		&rec.ID,
		&rec.ExternalID,
		&rec.Portal,
		&rec.BuyerName,
		&total,
		&rec.Currency,
		&lastSynced,
		&rec.PortalStatus,
		&invoiceID,
		&matchState,
		&connection,
	)
	if err != nil {
		return domain.PortalRecord{}, err
	}

	rec.Total, err = decimal.NewFromString(total)
	if err != nil {
		return domain.PortalRecord{}, fmt.Errorf("parse record total: %w", err)
	}
	if lastSynced.Valid {
		rec.LastSyncedAt = lastSynced.Time
	}
	if invoiceID.Valid {
		rec.InvoiceID = invoiceID.String
	}
	rec.MatchState = domain.MatchState(matchState)
	rec.Connection = domain.ConnectionState(connection)
	return rec, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
