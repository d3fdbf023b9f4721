package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
	"github.com/dmitrovk/portal-reconciler/internal/core/ports"
	"github.com/dmitrovk/portal-reconciler/internal/core/reconcile"
)

// groupLockShards fixes the size of the per-group lock table; the number
// space is unbounded, the memory for serializing it must not be.
const groupLockShards = 64

type ResolveDuplicateUseCase struct {
	invoices ports.InvoiceRepository
	activity ports.ActivityLog
	notifier ports.Notifier
	now      func() time.Time

	groupLocks [groupLockShards]sync.Mutex
}

func NewResolveDuplicateUseCase(
	invoices ports.InvoiceRepository,
	activity ports.ActivityLog,
	notifier ports.Notifier,
) *ResolveDuplicateUseCase {
	return &ResolveDuplicateUseCase{
		invoices: invoices,
		activity: activity,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Group loads the duplicate group sharing one display number.
func (uc *ResolveDuplicateUseCase) Group(ctx context.Context, number string) (*domain.DuplicateGroup, error) {
	invoices, err := uc.invoices.ListByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("list invoices by number: %w", err)
	}
	if len(invoices) == 0 {
		return nil, domain.WrapError(
			domain.ErrInvoiceNotFound, "load duplicate group",
			fmt.Errorf("no invoices with number %s", number),
		)
	}
	return &domain.DuplicateGroup{Number: number, Invoices: invoices}, nil
}

// Confirm previews a resolution without touching any invoice. Selecting a
// candidate never commits by itself; only Resolve does.
func (uc *ResolveDuplicateUseCase) Confirm(ctx context.Context, number, invoiceID string) (*domain.ConfirmReceipt, error) {
	group, err := uc.Group(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := reconcile.ValidateGroup(*group); err != nil {
		return nil, err
	}
	receipt, err := reconcile.Confirm(*group, invoiceID)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Resolve commits a duplicate resolution. Calls against the same group are
// serialized so two concurrent resolutions cannot both win; distinct groups
// proceed independently.
func (uc *ResolveDuplicateUseCase) Resolve(ctx context.Context, number, invoiceID string) (*domain.Resolution, error) {
	lock := uc.lockFor(number)
	lock.Lock()
	defer lock.Unlock()

	group, err := uc.Group(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := reconcile.ValidateGroup(*group); err != nil {
		return nil, err
	}

	resolution, err := reconcile.Resolve(*group, invoiceID)
	if err != nil {
		return nil, err
	}

	excludedIDs := make([]string, 0, len(resolution.Excluded))
	for _, inv := range resolution.Excluded {
		excludedIDs = append(excludedIDs, inv.ID)
	}
	if err := uc.invoices.MarkExcluded(ctx, excludedIDs); err != nil {
		return nil, fmt.Errorf("persist exclusions: %w", err)
	}

	entry := domain.ActivityEntry{
		ID:        uuid.NewString(),
		Action:    domain.ActivityGroupResolved,
		InvoiceID: resolution.Kept.ID,
		Detail:    fmt.Sprintf("kept %s, excluded %d duplicates of %s", resolution.Kept.ID, len(excludedIDs), number),
		CreatedAt: uc.now(),
	}
	if err := uc.activity.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append activity entry: %w", err)
	}

	if err := uc.notifier.GroupResolved(ctx, resolution); err != nil {
		slog.Warn("group_resolved_notify_failed", "number", number, "error", err)
	}

	return &resolution, nil
}

// lockFor maps a group number onto its shard. The same number always lands
// on the same mutex, so per-group serialization holds; distinct groups
// sharing a shard only contend, they cannot corrupt each other.
func (uc *ResolveDuplicateUseCase) lockFor(number string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(number))
	return &uc.groupLocks[h.Sum32()%groupLockShards]
}
