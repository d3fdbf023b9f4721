// Package matching scores candidate invoices against unmatched portal
// records. The matcher is a pure function over its inputs: no I/O, no
// shared state, identical inputs always produce identical output.
package matching

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

// DefaultLimit is the suggestion count applied when the caller leaves the
// limit unset.
const DefaultLimit = 5

// amountTolerance guards against floating-point noise in portal feeds; it is
// an absolute tolerance, not a relative one.
var amountTolerance = decimal.RequireFromString("0.01")

// Weights configures the score contribution of each rule. Zero or negative
// values fall back to the defaults, so a partial override file only needs
// the weights it changes.
type Weights struct {
	ExactID     int `yaml:"exact_id"`
	PartialID   int `yaml:"partial_id"`
	ExactAmount int `yaml:"exact_amount"`
	Currency    int `yaml:"currency"`
	RecentDate  int `yaml:"recent_date"`
	SimilarDate int `yaml:"similar_date"`
}

func DefaultWeights() Weights {
	return Weights{
		ExactID:     30,
		PartialID:   20,
		ExactAmount: 25,
		Currency:    10,
		RecentDate:  15,
		SimilarDate: 10,
	}
}

func (w Weights) normalize() Weights {
	def := DefaultWeights()
	out := w
	if out.ExactID <= 0 {
		out.ExactID = def.ExactID
	}
	if out.PartialID <= 0 {
		out.PartialID = def.PartialID
	}
	if out.ExactAmount <= 0 {
		out.ExactAmount = def.ExactAmount
	}
	if out.Currency <= 0 {
		out.Currency = def.Currency
	}
	if out.RecentDate <= 0 {
		out.RecentDate = def.RecentDate
	}
	if out.SimilarDate <= 0 {
		out.SimilarDate = def.SimilarDate
	}
	return out
}

type rule struct {
	kind       domain.ReasonKind
	label      string
	confidence domain.Confidence
	weight     int
	fires      func(rec domain.PortalRecord, inv domain.Invoice) bool
}

// Matcher evaluates an ordered rule table per candidate. Rule order is fixed
// so the emitted reason list is deterministic for display.
type Matcher struct {
	rules []rule
}

func New(w Weights) *Matcher {
	w = w.normalize()
	return &Matcher{rules: []rule{
		{
			kind:       domain.ReasonExactID,
			label:      "Exact ID Match",
			confidence: domain.ConfidenceHigh,
			weight:     w.ExactID,
			fires:      exactIDMatch,
		},
		{
			kind:       domain.ReasonPartialID,
			label:      "Partial ID Match",
			confidence: domain.ConfidenceMedium,
			weight:     w.PartialID,
			fires:      partialIDMatch,
		},
		{
			kind:       domain.ReasonAmountMatch,
			label:      "Exact Amount",
			confidence: domain.ConfidenceHigh,
			weight:     w.ExactAmount,
			fires:      exactAmountMatch,
		},
		{
			kind:       domain.ReasonCurrencyMatch,
			label:      "Amount Match (currency)",
			confidence: domain.ConfidenceMedium,
			weight:     w.Currency,
			fires:      currencyMatch,
		},
		{
			kind:       domain.ReasonDateProximity,
			label:      "Recent Date",
			confidence: domain.ConfidenceHigh,
			weight:     w.RecentDate,
			fires:      recentDate,
		},
		{
			kind:       domain.ReasonDateProximity,
			label:      "Similar Date",
			confidence: domain.ConfidenceMedium,
			weight:     w.SimilarDate,
			fires:      similarDate,
		},
		{
			// Reserved: portal records do not carry tax data yet, so this
			// rule never fires. Kept in the table as the extension point.
			kind:       domain.ReasonTaxMatch,
			label:      "Tax Match",
			confidence: domain.ConfidenceLow,
			weight:     0,
			fires:      func(domain.PortalRecord, domain.Invoice) bool { return false },
		},
	}}
}

// FindCandidates ranks pool invoices against the record, best score first,
// truncated to limit. Candidates that fire zero rules are dropped, never
// returned as zero-score matches. Ties keep the order the pool was supplied
// in. Neither record nor pool is mutated.
func (m *Matcher) FindCandidates(rec domain.PortalRecord, pool []domain.Invoice, limit int) []domain.Match {
	if limit <= 0 {
		// limit <= 0 is a caller bug; clamp instead of failing.
		limit = 1
	}

	out := make([]domain.Match, 0, len(pool))
	for _, inv := range pool {
		score := 0
		var reasons []domain.MatchReason
		for _, r := range m.rules {
			if !r.fires(rec, inv) {
				continue
			}
			score += r.weight
			reasons = append(reasons, domain.MatchReason{
				Kind:       r.kind,
				Label:      r.label,
				Confidence: r.confidence,
			})
		}
		if len(reasons) == 0 {
			continue
		}
		out = append(out, domain.Match{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			Score:         score,
			Reasons:       reasons,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func exactIDMatch(rec domain.PortalRecord, inv domain.Invoice) bool {
	recDigits, invDigits := digitsOnly(rec.ExternalID), digitsOnly(inv.Number)
	if recDigits == "" || invDigits == "" {
		return false
	}
	return recDigits == invDigits
}

func partialIDMatch(rec domain.PortalRecord, inv domain.Invoice) bool {
	recDigits, invDigits := digitsOnly(rec.ExternalID), digitsOnly(inv.Number)
	if recDigits == "" || invDigits == "" || recDigits == invDigits {
		return false
	}
	// The contained side must carry at least 3 digits.
	if len(recDigits) >= 3 && strings.Contains(invDigits, recDigits) {
		return true
	}
	return len(invDigits) >= 3 && strings.Contains(recDigits, invDigits)
}

func exactAmountMatch(rec domain.PortalRecord, inv domain.Invoice) bool {
	return rec.Total.Sub(inv.Total).Abs().LessThan(amountTolerance)
}

func currencyMatch(rec domain.PortalRecord, inv domain.Invoice) bool {
	return rec.Currency != "" && rec.Currency == inv.Currency
}

func recentDate(rec domain.PortalRecord, inv domain.Invoice) bool {
	d, ok := dateGap(rec.LastSyncedAt, inv.CreatedAt)
	return ok && d <= 7*24*time.Hour
}

// similarDate fires only when recentDate does not: the two date rules are
// mutually exclusive by range.
func similarDate(rec domain.PortalRecord, inv domain.Invoice) bool {
	d, ok := dateGap(rec.LastSyncedAt, inv.CreatedAt)
	return ok && d > 7*24*time.Hour && d <= 30*24*time.Hour
}

func dateGap(a, b time.Time) (time.Duration, bool) {
	if a.IsZero() || b.IsZero() {
		return 0, false
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
