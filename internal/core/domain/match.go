package domain

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type ReasonKind string

const (
	ReasonExactID       ReasonKind = "exact-id"
	ReasonPartialID     ReasonKind = "partial-id"
	ReasonAmountMatch   ReasonKind = "amount-match"
	ReasonCurrencyMatch ReasonKind = "currency-match"
	ReasonDateProximity ReasonKind = "date-proximity"
	ReasonTaxMatch      ReasonKind = "tax-match"
)

// MatchReason explains why one scoring rule fired for a candidate. The
// confidence tier comes from the rule itself, never from the aggregate score.
type MatchReason struct {
	Kind       ReasonKind `json:"kind"`
	Label      string     `json:"label"`
	Confidence Confidence `json:"confidence"`
}

// Match pairs a portal record with one candidate invoice. The score is the
// sum of the weights of the fired rules; reasons keep rule-table order.
// Matches are transient: only the chosen invoice ID is ever persisted.
type Match struct {
	InvoiceID     string        `json:"invoice_id"`
	InvoiceNumber string        `json:"invoice_number"`
	Score         int           `json:"score"`
	Reasons       []MatchReason `json:"reasons"`
}

// RecordSuggestions groups one record with its ranked suggestions, as
// produced by a scan across unmatched records.
type RecordSuggestions struct {
	Record  PortalRecord `json:"record"`
	Matches []Match      `json:"matches"`
}

// ContainsInvoice reports whether matches holds a match for the given invoice.
func ContainsInvoice(matches []Match, invoiceID string) bool {
	for _, m := range matches {
		if m.InvoiceID == invoiceID {
			return true
		}
	}
	return false
}
