package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Append(ctx context.Context, entry domain.ActivityEntry) error {
	reasonsJSON, err := json.Marshal(entry.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO activity_log (id, action, record_id, invoice_id, score, reasons, detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, entry.ID, string(entry.Action), nullableString(entry.RecordID), entry.InvoiceID, entry.Score, reasonsJSON, nullableString(entry.Detail), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append activity entry: %w", err)
	}
	return nil
}
