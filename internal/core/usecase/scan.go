package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
	"github.com/dmitrovk/portal-reconciler/internal/core/matching"
	"github.com/dmitrovk/portal-reconciler/internal/core/ports"
)

type ScanUseCase struct {
	records  ports.RecordRepository
	invoices ports.InvoiceRepository
	matcher  *matching.Matcher
	limit    int
	workers  int
}

func NewScanUseCase(
	records ports.RecordRepository,
	invoices ports.InvoiceRepository,
	matcher *matching.Matcher,
	limit, workers int,
) *ScanUseCase {
	if limit <= 0 {
		limit = matching.DefaultLimit
	}
	if workers <= 0 {
		workers = 4
	}
	return &ScanUseCase{
		records:  records,
		invoices: invoices,
		matcher:  matcher,
		limit:    limit,
		workers:  workers,
	}
}

// ScanRecord runs the matcher for one synced record. A record that has
// meanwhile been bound yields no suggestions and no error: sync events race
// with human decisions and losing that race is not a failure.
func (uc *ScanUseCase) ScanRecord(ctx context.Context, recordID string) ([]domain.Match, error) {
	rec, err := uc.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("fetch record: %w", err)
	}
	if !rec.Matchable() {
		return nil, nil
	}

	pool, err := uc.invoices.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate invoices: %w", err)
	}
	return uc.matcher.FindCandidates(*rec, pool, uc.limit), nil
}

// ScanAll fans the matcher out across all unmatched records. Invocations
// are independent (the pool is shared and never mutated, each goroutine
// writes only its own result slot), so the only coordination is collecting
// the results. Output order follows the record listing for determinism.
func (uc *ScanUseCase) ScanAll(ctx context.Context) ([]domain.RecordSuggestions, error) {
	records, err := uc.records.ListByState(ctx, domain.MatchStateUnmatched)
	if err != nil {
		return nil, fmt.Errorf("list unmatched records: %w", err)
	}
	if len(records) == 0 {
		return []domain.RecordSuggestions{}, nil
	}

	pool, err := uc.invoices.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate invoices: %w", err)
	}

	out := make([]domain.RecordSuggestions, len(records))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := uc.workers
	if workers > len(records) {
		workers = len(records)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = domain.RecordSuggestions{
					Record:  records[i],
					Matches: uc.matcher.FindCandidates(records[i], pool, uc.limit),
				}
			}
		}()
	}

	for i := range records {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return out, nil
}
