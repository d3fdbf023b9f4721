package ports

import (
	"context"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

// MatchSuggester is the inbound contract for ranked invoice suggestions.
type MatchSuggester interface {
	Suggest(ctx context.Context, recordID string, limit int) ([]domain.Match, error)
}

// MatchBinder binds a record to one of its suggested invoices.
type MatchBinder interface {
	Bind(ctx context.Context, recordID, invoiceID string) (*domain.PortalRecord, error)
}

// DuplicateResolver drives the duplicate-group workflow: read the group,
// preview a confirmation, commit a resolution.
type DuplicateResolver interface {
	Group(ctx context.Context, number string) (*domain.DuplicateGroup, error)
	Confirm(ctx context.Context, number, invoiceID string) (*domain.ConfirmReceipt, error)
	Resolve(ctx context.Context, number, invoiceID string) (*domain.Resolution, error)
}

// RecordScanner runs the matcher across unmatched records.
type RecordScanner interface {
	ScanRecord(ctx context.Context, recordID string) ([]domain.Match, error)
	ScanAll(ctx context.Context) ([]domain.RecordSuggestions, error)
}
