package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
	"github.com/dmitrovk/portal-reconciler/internal/core/matching"
	"github.com/dmitrovk/portal-reconciler/internal/core/ports"
	"github.com/dmitrovk/portal-reconciler/internal/core/reconcile"
)

type BindUseCase struct {
	records  ports.RecordRepository
	invoices ports.InvoiceRepository
	matcher  *matching.Matcher
	activity ports.ActivityLog
	notifier ports.Notifier
	now      func() time.Time
}

func NewBindUseCase(
	records ports.RecordRepository,
	invoices ports.InvoiceRepository,
	matcher *matching.Matcher,
	activity ports.ActivityLog,
	notifier ports.Notifier,
) *BindUseCase {
	return &BindUseCase{
		records:  records,
		invoices: invoices,
		matcher:  matcher,
		activity: activity,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Bind commits a human-chosen suggestion. The matcher is deterministic, so
// re-running it here and requiring the chosen invoice among its output
// enforces the "match was previously returned for this record" contract
// without a server-side suggestion cache.
func (uc *BindUseCase) Bind(ctx context.Context, recordID, invoiceID string) (*domain.PortalRecord, error) {
	rec, err := uc.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("fetch record: %w", err)
	}

	pool, err := uc.invoices.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate invoices: %w", err)
	}

	// Unbounded on purpose: suggestion queries truncate for display, but a
	// choice the service ever returned must stay bindable regardless of the
	// limit it was served under.
	produced := uc.matcher.FindCandidates(*rec, pool, len(pool))
	chosen, ok := pickMatch(produced, invoiceID)
	if !ok {
		return nil, domain.WrapError(
			domain.ErrPreconditionViolated, "bind match",
			fmt.Errorf("invoice %s is not a suggestion for record %s", invoiceID, recordID),
		)
	}

	updated, entry, err := reconcile.Bind(*rec, chosen, produced, uc.now())
	if err != nil {
		return nil, err
	}

	if err := uc.records.BindInvoice(ctx, updated.ID, updated.InvoiceID, updated.MatchState); err != nil {
		return nil, fmt.Errorf("persist bound invoice: %w", err)
	}

	entry.ID = uuid.NewString()
	if err := uc.activity.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append activity entry: %w", err)
	}

	if err := uc.notifier.MatchBound(ctx, updated, chosen); err != nil {
		// Notification is best-effort; the bind itself already committed.
		slog.Warn("match_bound_notify_failed", "record_id", updated.ID, "error", err)
	}

	return &updated, nil
}

func pickMatch(matches []domain.Match, invoiceID string) (domain.Match, bool) {
	for _, m := range matches {
		if m.InvoiceID == invoiceID {
			return m, true
		}
	}
	return domain.Match{}, false
}
