package domain

import "time"

type ActivityAction string

const (
	ActivityMatchBound    ActivityAction = "match_bound"
	ActivityGroupResolved ActivityAction = "group_resolved"
)

// ActivityEntry is the audit trail line appended after every reconciler
// mutation. Consumed by the activity-log collaborator, never read back here.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Action    ActivityAction `json:"action"`
	RecordID  string         `json:"record_id,omitempty"`
	InvoiceID string         `json:"invoice_id"`
	Score     int            `json:"score,omitempty"`
	Reasons   []MatchReason  `json:"reasons,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
