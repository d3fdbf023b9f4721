// Package reconcile holds the pure state transitions behind match binding
// and duplicate resolution. Functions here operate on already-fetched
// values and return the mutated copies plus audit material; persistence and
// notification belong to the use-case layer.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

// ConfirmInstructions is the literal instruction set the surrounding
// workflow must carry out after a confirmed resolution.
var ConfirmInstructions = []string{
	"run validations",
	"exclude alternates",
	"submit after exceptions clear",
}

// Bind transitions a record to the matched state against one of the matches
// the matcher produced for it. The chosen match must appear in produced;
// fabricated matches are rejected. Returns the updated record copy and the
// audit entry to append.
func Bind(rec domain.PortalRecord, chosen domain.Match, produced []domain.Match, now time.Time) (domain.PortalRecord, domain.ActivityEntry, error) {
	if !rec.Matchable() {
		return rec, domain.ActivityEntry{}, domain.WrapError(
			domain.ErrPreconditionViolated, "bind match",
			fmt.Errorf("record %s is %s", rec.ID, rec.MatchState),
		)
	}
	if !matchProduced(chosen, produced) {
		return rec, domain.ActivityEntry{}, domain.WrapError(
			domain.ErrPreconditionViolated, "bind match",
			fmt.Errorf("match for invoice %s was not produced for record %s", chosen.InvoiceID, rec.ID),
		)
	}

	out := rec
	out.InvoiceID = chosen.InvoiceID
	out.MatchState = domain.MatchStateMatched

	entry := domain.ActivityEntry{
		Action:    domain.ActivityMatchBound,
		RecordID:  rec.ID,
		InvoiceID: chosen.InvoiceID,
		Score:     chosen.Score,
		Reasons:   chosen.Reasons,
		CreatedAt: now,
	}
	return out, entry, nil
}

// Resolve picks the canonical invoice of a duplicate group. The chosen
// invoice keeps its status untouched; every other member transitions to
// excluded. Atomic-or-nothing: an unknown chosen ID fails before any member
// is touched.
func Resolve(group domain.DuplicateGroup, chosenInvoiceID string) (domain.Resolution, error) {
	kept, ok := group.Member(chosenInvoiceID)
	if !ok {
		return domain.Resolution{}, domain.WrapError(
			domain.ErrPreconditionViolated, "resolve duplicates",
			fmt.Errorf("invoice %s is not a member of group %s", chosenInvoiceID, group.Number),
		)
	}

	excluded := make([]domain.Invoice, 0, len(group.Invoices)-1)
	for _, inv := range group.Invoices {
		if inv.ID == chosenInvoiceID {
			continue
		}
		loser := inv
		loser.Status = domain.InvoiceStatusExcluded
		excluded = append(excluded, loser)
	}
	return domain.Resolution{Kept: kept, Excluded: excluded}, nil
}

// Confirm is the explicit human gate in front of Resolve: it validates the
// same precondition and describes the outcome without mutating anything.
// Selecting a candidate never commits by itself.
func Confirm(group domain.DuplicateGroup, chosenInvoiceID string) (domain.ConfirmReceipt, error) {
	kept, ok := group.Member(chosenInvoiceID)
	if !ok {
		return domain.ConfirmReceipt{}, domain.WrapError(
			domain.ErrPreconditionViolated, "confirm resolution",
			fmt.Errorf("invoice %s is not a member of group %s", chosenInvoiceID, group.Number),
		)
	}
	instructions := make([]string, len(ConfirmInstructions))
	copy(instructions, ConfirmInstructions)
	return domain.ConfirmReceipt{
		Kept:          kept,
		ExcludedCount: len(group.Invoices) - 1,
		Instructions:  instructions,
	}, nil
}

// ValidateGroup rejects groups the reconciler cannot act on.
func ValidateGroup(group domain.DuplicateGroup) error {
	if len(group.Invoices) < 2 {
		return domain.WrapError(
			domain.ErrInvalidInput, "validate group",
			errors.New("a duplicate group needs at least two invoices"),
		)
	}
	return nil
}

func matchProduced(chosen domain.Match, produced []domain.Match) bool {
	for _, m := range produced {
		if m.InvoiceID == chosen.InvoiceID && m.Score == chosen.Score && equalReasons(m.Reasons, chosen.Reasons) {
			return true
		}
	}
	return false
}

func equalReasons(a, b []domain.MatchReason) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
