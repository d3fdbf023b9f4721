package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

// Notifier publishes reconciliation outcomes onto a NATS subject so
// dashboard consumers can refresh without polling.
type Notifier struct {
	queue *Queue
}

func NewNotifier(queue *Queue) *Notifier {
	return &Notifier{queue: queue}
}

type notifyEvent struct {
	Kind       string             `json:"kind"`
	RecordID   string             `json:"record_id,omitempty"`
	Match      *domain.Match      `json:"match,omitempty"`
	Resolution *domain.Resolution `json:"resolution,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func (n *Notifier) MatchBound(ctx context.Context, record domain.PortalRecord, match domain.Match) error {
	return n.publish(ctx, notifyEvent{
		Kind:       "match_bound",
		RecordID:   record.ID,
		Match:      &match,
		OccurredAt: time.Now().UTC(),
	})
}

func (n *Notifier) GroupResolved(ctx context.Context, resolution domain.Resolution) error {
	return n.publish(ctx, notifyEvent{
		Kind:       "group_resolved",
		Resolution: &resolution,
		OccurredAt: time.Now().UTC(),
	})
}

func (n *Notifier) publish(ctx context.Context, event notifyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notify event: %w", err)
	}
	return n.queue.publish(ctx, "nats.publish_notify", n.queue.subjects.Notify, payload)
}
