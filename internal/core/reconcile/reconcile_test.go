package reconcile

import (
	"reflect"
	"testing"
	"time"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

func approvedInvoice(id string, exceptions ...string) domain.Invoice {
	return domain.Invoice{
		ID:         id,
		Number:     "INV-2001",
		Status:     domain.InvoiceStatusApprovedByBuyer,
		Exceptions: exceptions,
	}
}

func twoInvoiceGroup() domain.DuplicateGroup {
	return domain.DuplicateGroup{
		Number: "INV-2001",
		Invoices: []domain.Invoice{
			approvedInvoice("inv-clean"),
			approvedInvoice("inv-dirty", "missing PO", "amount mismatch"),
		},
	}
}

func TestBindSetsInvoiceAndState(t *testing.T) {
	rec := domain.PortalRecord{ID: "rec-1", MatchState: domain.MatchStateUnmatched}
	match := domain.Match{
		InvoiceID: "inv-1",
		Score:     55,
		Reasons: []domain.MatchReason{
			{Kind: domain.ReasonExactID, Label: "Exact ID Match", Confidence: domain.ConfidenceHigh},
			{Kind: domain.ReasonAmountMatch, Label: "Exact Amount", Confidence: domain.ConfidenceHigh},
		},
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	out, entry, err := Bind(rec, match, []domain.Match{match}, now)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if out.InvoiceID != "inv-1" || out.MatchState != domain.MatchStateMatched {
		t.Fatalf("unexpected record after bind: %+v", out)
	}
	if !out.Bound() {
		t.Fatalf("matched record must report Bound()")
	}
	if entry.Action != domain.ActivityMatchBound || entry.Score != 55 || entry.RecordID != "rec-1" {
		t.Fatalf("unexpected activity entry: %+v", entry)
	}
	if rec.InvoiceID != "" {
		t.Fatalf("input record mutated")
	}
}

func TestBindRejectsFabricatedMatch(t *testing.T) {
	rec := domain.PortalRecord{ID: "rec-1", MatchState: domain.MatchStateUnmatched}
	produced := []domain.Match{{InvoiceID: "inv-1", Score: 30}}
	fabricated := domain.Match{InvoiceID: "inv-1", Score: 95}

	_, _, err := Bind(rec, fabricated, produced, time.Now())
	if !domain.IsKind(err, domain.ErrPreconditionViolated) {
		t.Fatalf("expected precondition violation, got %v", err)
	}
}

func TestBindRejectsTerminalStates(t *testing.T) {
	for _, state := range []domain.MatchState{domain.MatchStateMatched, domain.MatchStatePrimary, domain.MatchStateAlternate} {
		rec := domain.PortalRecord{ID: "rec-1", InvoiceID: "inv-0", MatchState: state}
		m := domain.Match{InvoiceID: "inv-1", Score: 30}
		_, _, err := Bind(rec, m, []domain.Match{m}, time.Now())
		if !domain.IsKind(err, domain.ErrPreconditionViolated) {
			t.Fatalf("state %s: expected precondition violation, got %v", state, err)
		}
	}
}

func TestBindAllowedFromConflict(t *testing.T) {
	rec := domain.PortalRecord{ID: "rec-1", InvoiceID: "inv-old", MatchState: domain.MatchStateConflict}
	m := domain.Match{InvoiceID: "inv-new", Score: 30}

	out, _, err := Bind(rec, m, []domain.Match{m}, time.Now())
	if err != nil {
		t.Fatalf("Bind() from conflict error = %v", err)
	}
	if out.InvoiceID != "inv-new" || out.MatchState != domain.MatchStateMatched {
		t.Fatalf("conflict rebind failed: %+v", out)
	}
}

func TestResolveExcludesAllOthers(t *testing.T) {
	group := twoInvoiceGroup()

	res, err := Resolve(group, "inv-clean")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Kept.ID != "inv-clean" || res.Kept.Status != domain.InvoiceStatusApprovedByBuyer {
		t.Fatalf("kept invoice altered: %+v", res.Kept)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].ID != "inv-dirty" {
		t.Fatalf("unexpected excluded set: %+v", res.Excluded)
	}
	if res.Excluded[0].Status != domain.InvoiceStatusExcluded {
		t.Fatalf("loser not excluded: %+v", res.Excluded[0])
	}
}

func TestResolveRecommendationIsAdvisory(t *testing.T) {
	group := twoInvoiceGroup()
	if !group.Invoices[0].Recommended() {
		t.Fatalf("clean approved invoice must be recommended")
	}
	if group.Invoices[1].Recommended() {
		t.Fatalf("invoice with exceptions must not be recommended")
	}

	// Choosing the non-recommended member still succeeds.
	res, err := Resolve(group, "inv-dirty")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Kept.ID != "inv-dirty" {
		t.Fatalf("expected inv-dirty kept, got %s", res.Kept.ID)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].ID != "inv-clean" {
		t.Fatalf("expected inv-clean excluded, got %+v", res.Excluded)
	}
}

func TestResolveUnknownInvoiceIsAtomic(t *testing.T) {
	group := twoInvoiceGroup()
	snapshot := make([]domain.Invoice, len(group.Invoices))
	copy(snapshot, group.Invoices)

	_, err := Resolve(group, "inv-missing")
	if !domain.IsKind(err, domain.ErrPreconditionViolated) {
		t.Fatalf("expected precondition violation, got %v", err)
	}
	if !reflect.DeepEqual(group.Invoices, snapshot) {
		t.Fatalf("group mutated on failed resolve")
	}
}

func TestResolveExclusivity(t *testing.T) {
	group := domain.DuplicateGroup{
		Number: "INV-9",
		Invoices: []domain.Invoice{
			approvedInvoice("a"), approvedInvoice("b"), approvedInvoice("c"), approvedInvoice("d"),
		},
	}

	res, err := Resolve(group, "c")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	notExcluded := 1 // kept
	for _, inv := range res.Excluded {
		if inv.Status != domain.InvoiceStatusExcluded {
			notExcluded++
		}
	}
	if notExcluded != 1 || len(res.Excluded) != 3 {
		t.Fatalf("exactly one member may survive, kept=%s excluded=%d", res.Kept.ID, len(res.Excluded))
	}
}

func TestConfirmDescribesWithoutMutating(t *testing.T) {
	group := twoInvoiceGroup()

	receipt, err := Confirm(group, "inv-clean")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if receipt.Kept.ID != "inv-clean" || receipt.ExcludedCount != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	want := []string{"run validations", "exclude alternates", "submit after exceptions clear"}
	if !reflect.DeepEqual(receipt.Instructions, want) {
		t.Fatalf("unexpected instructions: %v", receipt.Instructions)
	}
	for _, inv := range group.Invoices {
		if inv.Status == domain.InvoiceStatusExcluded {
			t.Fatalf("Confirm must not mutate group members")
		}
	}
}

func TestConfirmRejectsNonMember(t *testing.T) {
	_, err := Confirm(twoInvoiceGroup(), "inv-missing")
	if !domain.IsKind(err, domain.ErrPreconditionViolated) {
		t.Fatalf("expected precondition violation, got %v", err)
	}
}

func TestValidateGroupNeedsTwoMembers(t *testing.T) {
	err := ValidateGroup(domain.DuplicateGroup{Number: "X", Invoices: []domain.Invoice{approvedInvoice("a")}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := ValidateGroup(twoInvoiceGroup()); err != nil {
		t.Fatalf("valid group rejected: %v", err)
	}
}

func TestRecommendedRequiresBothConditions(t *testing.T) {
	cases := []struct {
		name string
		inv  domain.Invoice
		want bool
	}{
		{"approved no exceptions", approvedInvoice("a"), true},
		{"approved with exceptions", approvedInvoice("b", "late"), false},
		{"pending no exceptions", domain.Invoice{ID: "c", Status: domain.InvoiceStatusPendingAction}, false},
		{"paid no exceptions", domain.Invoice{ID: "d", Status: domain.InvoiceStatusPaid}, false},
	}
	for _, tc := range cases {
		if got := tc.inv.Recommended(); got != tc.want {
			t.Fatalf("%s: Recommended() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
