package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

type bindCall struct {
	recordID  string
	invoiceID string
	state     domain.MatchState
}

type recordRepoFake struct {
	mu      sync.Mutex
	records map[string]domain.PortalRecord
	binds   []bindCall
	bindErr error
	listErr error
}

func (f *recordRepoFake) GetByID(_ context.Context, id string) (*domain.PortalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrRecordNotFound, "get record", fmt.Errorf("id=%s", id))
	}
	out := rec
	return &out, nil
}

func (f *recordRepoFake) ListByState(_ context.Context, state domain.MatchState) ([]domain.PortalRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.PortalRecord, 0)
	for _, rec := range f.records {
		if rec.MatchState == state {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *recordRepoFake) BindInvoice(_ context.Context, id, invoiceID string, state domain.MatchState) error {
	if f.bindErr != nil {
		return f.bindErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds = append(f.binds, bindCall{recordID: id, invoiceID: invoiceID, state: state})
	rec := f.records[id]
	rec.InvoiceID = invoiceID
	rec.MatchState = state
	f.records[id] = rec
	return nil
}

type invoiceRepoFake struct {
	pool       []domain.Invoice
	byNumber   map[string][]domain.Invoice
	excludeErr error

	mu       sync.Mutex
	excluded [][]string
	inFlight int
	overlap  bool
}

func (f *invoiceRepoFake) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	for _, inv := range f.pool {
		if inv.ID == id {
			out := inv
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id=%s", id))
}

func (f *invoiceRepoFake) ListCandidates(context.Context) ([]domain.Invoice, error) {
	return f.pool, nil
}

func (f *invoiceRepoFake) ListByNumber(_ context.Context, number string) ([]domain.Invoice, error) {
	return f.byNumber[number], nil
}

func (f *invoiceRepoFake) MarkExcluded(_ context.Context, ids []string) error {
	if f.excludeErr != nil {
		return f.excludeErr
	}
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.excluded = append(f.excluded, ids)
	f.mu.Unlock()
	return nil
}

type activityFake struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	err     error
}

func (f *activityFake) Append(_ context.Context, entry domain.ActivityEntry) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type notifierFake struct {
	mu       sync.Mutex
	bound    int
	resolved int
	err      error
}

func (f *notifierFake) MatchBound(context.Context, domain.PortalRecord, domain.Match) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound++
	return nil
}

func (f *notifierFake) GroupResolved(context.Context, domain.Resolution) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved++
	return nil
}
