package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

func duplicateFixtures() (*invoiceRepoFake, *activityFake, *notifierFake) {
	invoices := &invoiceRepoFake{byNumber: map[string][]domain.Invoice{
		"INV-2001": {
			{ID: "inv-clean", Number: "INV-2001", Status: domain.InvoiceStatusApprovedByBuyer},
			{ID: "inv-dirty", Number: "INV-2001", Status: domain.InvoiceStatusApprovedByBuyer, Exceptions: []string{"missing PO"}},
		},
	}}
	return invoices, &activityFake{}, &notifierFake{}
}

func TestResolveCommitsExclusions(t *testing.T) {
	invoices, activity, notifier := duplicateFixtures()
	uc := NewResolveDuplicateUseCase(invoices, activity, notifier)

	res, err := uc.Resolve(context.Background(), "INV-2001", "inv-clean")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Kept.ID != "inv-clean" || len(res.Excluded) != 1 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if len(invoices.excluded) != 1 || invoices.excluded[0][0] != "inv-dirty" {
		t.Fatalf("exclusions not persisted: %+v", invoices.excluded)
	}
	if len(activity.entries) != 1 || activity.entries[0].Action != domain.ActivityGroupResolved {
		t.Fatalf("missing audit entry: %+v", activity.entries)
	}
	if notifier.resolved != 1 {
		t.Fatalf("expected notification, got %d", notifier.resolved)
	}
}

func TestResolveUnknownInvoicePersistsNothing(t *testing.T) {
	invoices, activity, notifier := duplicateFixtures()
	uc := NewResolveDuplicateUseCase(invoices, activity, notifier)

	_, err := uc.Resolve(context.Background(), "INV-2001", "inv-missing")
	if !domain.IsKind(err, domain.ErrPreconditionViolated) {
		t.Fatalf("expected precondition violation, got %v", err)
	}
	if len(invoices.excluded) != 0 || len(activity.entries) != 0 {
		t.Fatalf("failed resolve must not persist anything")
	}
}

func TestResolveUnknownGroup(t *testing.T) {
	invoices, activity, notifier := duplicateFixtures()
	uc := NewResolveDuplicateUseCase(invoices, activity, notifier)

	_, err := uc.Resolve(context.Background(), "INV-0000", "inv-clean")
	if !domain.IsKind(err, domain.ErrInvoiceNotFound) {
		t.Fatalf("expected invoice not found, got %v", err)
	}
}

func TestResolveSingletonGroupRejected(t *testing.T) {
	invoices, activity, notifier := duplicateFixtures()
	invoices.byNumber["INV-3003"] = []domain.Invoice{
		{ID: "inv-only", Number: "INV-3003", Status: domain.InvoiceStatusPaid},
	}
	uc := NewResolveDuplicateUseCase(invoices, activity, notifier)

	_, err := uc.Resolve(context.Background(), "INV-3003", "inv-only")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestConfirmPreviewsWithoutPersisting(t *testing.T) {
	invoices, activity, notifier := duplicateFixtures()
	uc := NewResolveDuplicateUseCase(invoices, activity, notifier)

	receipt, err := uc.Confirm(context.Background(), "INV-2001", "inv-dirty")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if receipt.Kept.ID != "inv-dirty" || receipt.ExcludedCount != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if len(invoices.excluded) != 0 || len(activity.entries) != 0 || notifier.resolved != 0 {
		t.Fatalf("Confirm must have no side effects")
	}
}

func TestResolveSerializesPerGroup(t *testing.T) {
	invoices, activity, notifier := duplicateFixtures()
	uc := NewResolveDuplicateUseCase(invoices, activity, notifier)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = uc.Resolve(context.Background(), "INV-2001", "inv-clean")
		}()
	}
	wg.Wait()

	if invoices.overlap {
		t.Fatalf("two resolutions of the same group ran concurrently")
	}
}

func TestGroupLockTableIsBounded(t *testing.T) {
	uc := NewResolveDuplicateUseCase(&invoiceRepoFake{}, &activityFake{}, &notifierFake{})

	distinct := make(map[*sync.Mutex]struct{})
	for i := 0; i < 10*groupLockShards; i++ {
		lock := uc.lockFor(fmt.Sprintf("INV-%06d", i))
		distinct[lock] = struct{}{}
	}
	if len(distinct) > groupLockShards {
		t.Fatalf("lock table grew past %d shards: %d", groupLockShards, len(distinct))
	}

	if uc.lockFor("INV-2001") != uc.lockFor("INV-2001") {
		t.Fatalf("same group must always map to the same lock")
	}
}
