package ports

import (
	"context"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

// RecordRepository persists and reads portal record state.
type RecordRepository interface {
	GetByID(ctx context.Context, id string) (*domain.PortalRecord, error)
	ListByState(ctx context.Context, state domain.MatchState) ([]domain.PortalRecord, error)
	BindInvoice(ctx context.Context, id, invoiceID string, state domain.MatchState) error
}

// InvoiceRepository reads the invoice collection and applies exclusions.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	ListCandidates(ctx context.Context) ([]domain.Invoice, error)
	ListByNumber(ctx context.Context, number string) ([]domain.Invoice, error)
	MarkExcluded(ctx context.Context, ids []string) error
}

// ActivityLog appends human-readable audit entries.
type ActivityLog interface {
	Append(ctx context.Context, entry domain.ActivityEntry) error
}

// Notifier informs the user-facing collaborators about outcomes.
type Notifier interface {
	MatchBound(ctx context.Context, record domain.PortalRecord, match domain.Match) error
	GroupResolved(ctx context.Context, resolution domain.Resolution) error
}

// RecordEventQueue publishes and consumes record-sync events.
type RecordEventQueue interface {
	PublishRecordSynced(ctx context.Context, recordID string) error
	SubscribeRecordSynced(ctx context.Context, handler func(context.Context, string) error) error
	PublishSuggestions(ctx context.Context, suggestions domain.RecordSuggestions) error
}
