package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MatchState string

const (
	MatchStateUnmatched MatchState = "unmatched"
	MatchStateMatched   MatchState = "matched"
	MatchStateConflict  MatchState = "conflict"
	MatchStatePrimary   MatchState = "primary"
	MatchStateAlternate MatchState = "alternate"
)

type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionSyncing      ConnectionState = "syncing"
)

// PortalRecord is one row ingested from an external buyer portal. The
// matching core only ever mutates InvoiceID and MatchState; everything else
// is owned by the sync pipeline.
type PortalRecord struct {
	ID           string          `json:"id"`
	ExternalID   string          `json:"external_id"`
	Portal       string          `json:"portal"`
	BuyerName    string          `json:"buyer_name"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	LastSyncedAt time.Time       `json:"last_synced_at"`
	PortalStatus string          `json:"portal_status"`
	InvoiceID    string          `json:"invoice_id,omitempty"`
	MatchState   MatchState      `json:"match_state"`
	Connection   ConnectionState `json:"connection"`
}

// Bound reports whether the record holds a bound invoice. A record is in
// MatchStateMatched if and only if this returns true.
func (r PortalRecord) Bound() bool {
	return r.InvoiceID != ""
}

// Matchable reports whether the matcher should be consulted for this record.
func (r PortalRecord) Matchable() bool {
	return r.MatchState == MatchStateUnmatched || r.MatchState == MatchStateConflict
}
