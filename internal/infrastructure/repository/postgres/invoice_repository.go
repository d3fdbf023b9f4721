package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

// candidateWindow bounds the invoice pool handed to the matcher: the most
// recently created open invoices.
const candidateWindow = 500

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, number, buyer_name, total, currency, created_at, due_at, status, exceptions`

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE id = $1
`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) ListCandidates(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE status <> $1
ORDER BY created_at DESC, id
LIMIT $2
`, string(domain.InvoiceStatusExcluded), candidateWindow)
	if err != nil {
		return nil, fmt.Errorf("list candidate invoices: %w", err)
	}
	return collectInvoices(rows)
}

func (r *InvoiceRepository) ListByNumber(ctx context.Context, number string) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE number = $1 AND status <> $2
ORDER BY created_at, id
`, number, string(domain.InvoiceStatusExcluded))
	if err != nil {
		return nil, fmt.Errorf("list invoices by number: %w", err)
	}
	return collectInvoices(rows)
}

func (r *InvoiceRepository) MarkExcluded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, string(domain.InvoiceStatusExcluded), time.Now().UTC())
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+3))
		args = append(args, id)
	}

	query := fmt.Sprintf(`
UPDATE invoices
SET status = $1, updated_at = $2
WHERE id IN (%s)
`, strings.Join(placeholders, ","))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark excluded: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark excluded rows affected: %w", err)
	}
	if int(rows) != len(ids) {
		return domain.WrapError(
			domain.ErrInvoiceNotFound, "mark excluded",
			fmt.Errorf("expected %d rows, updated %d", len(ids), rows),
		)
	}
	return nil
}

func collectInvoices(rows *sql.Rows) ([]domain.Invoice, error) {
	defer rows.Close()

	out := make([]domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var inv domain.Invoice
	var total string
	var dueAt sql.NullTime
	var status string
	var exceptionsRaw []byte

	err := row.Scan(
		&inv.ID,
		&inv.Number,
		&inv.BuyerName,
		&total,
		&inv.Currency,
		&inv.CreatedAt,
		&dueAt,
		&status,
		&exceptionsRaw,
	)
	if err != nil {
		return domain.Invoice{}, err
	}

	inv.Total, err = decimal.NewFromString(total)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("parse invoice total: %w", err)
	}
	if dueAt.Valid {
		inv.DueAt = dueAt.Time
	}
	if len(exceptionsRaw) > 0 {
		if err := json.Unmarshal(exceptionsRaw, &inv.Exceptions); err != nil {
			return domain.Invoice{}, fmt.Errorf("unmarshal exceptions: %w", err)
		}
	}
	inv.Status = domain.InvoiceStatus(status)
	return inv, nil
}
