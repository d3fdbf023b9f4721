package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPendingAction   InvoiceStatus = "pending_action"
	InvoiceStatusApprovedByBuyer InvoiceStatus = "approved_by_buyer"
	InvoiceStatusPaid            InvoiceStatus = "paid"
	InvoiceStatusRejected        InvoiceStatus = "rejected"
	InvoiceStatusExcluded        InvoiceStatus = "excluded"
)

type Invoice struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	BuyerName  string          `json:"buyer_name"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
	DueAt      time.Time       `json:"due_at"`
	Status     InvoiceStatus   `json:"status"`
	Exceptions []string        `json:"exceptions,omitempty"`
}

// Recommended reports whether an invoice is worth keeping when resolving a
// duplicate group: no open exceptions and already approved by the buyer.
// Both conditions are required; the flag is advisory and never auto-applied.
func (inv Invoice) Recommended() bool {
	return len(inv.Exceptions) == 0 && inv.Status == InvoiceStatusApprovedByBuyer
}
