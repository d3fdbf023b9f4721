package usecase

import (
	"context"
	"fmt"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
	"github.com/dmitrovk/portal-reconciler/internal/core/matching"
	"github.com/dmitrovk/portal-reconciler/internal/core/ports"
)

type SuggestUseCase struct {
	records      ports.RecordRepository
	invoices     ports.InvoiceRepository
	matcher      *matching.Matcher
	defaultLimit int
}

func NewSuggestUseCase(
	records ports.RecordRepository,
	invoices ports.InvoiceRepository,
	matcher *matching.Matcher,
	defaultLimit int,
) *SuggestUseCase {
	if defaultLimit <= 0 {
		defaultLimit = matching.DefaultLimit
	}
	return &SuggestUseCase{
		records:      records,
		invoices:     invoices,
		matcher:      matcher,
		defaultLimit: defaultLimit,
	}
}

// Suggest returns ranked candidate invoices for one record. An empty slice
// is a valid answer, not an error; the caller renders a "no suggestions"
// affordance.
func (uc *SuggestUseCase) Suggest(ctx context.Context, recordID string, limit int) ([]domain.Match, error) {
	if limit <= 0 {
		limit = uc.defaultLimit
	}

	rec, err := uc.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("fetch record: %w", err)
	}
	if !rec.Matchable() {
		return nil, domain.WrapError(
			domain.ErrPreconditionViolated, "suggest matches",
			fmt.Errorf("record %s is %s", rec.ID, rec.MatchState),
		)
	}

	pool, err := uc.invoices.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate invoices: %w", err)
	}

	return uc.matcher.FindCandidates(*rec, pool, limit), nil
}
