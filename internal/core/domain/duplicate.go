package domain

// DuplicateGroup is a transient set of invoices sharing one display number.
// Resolution keeps exactly one member and excludes the rest.
type DuplicateGroup struct {
	Number   string    `json:"number"`
	Invoices []Invoice `json:"invoices"`
}

// Member returns the invoice with the given ID, if present.
func (g DuplicateGroup) Member(invoiceID string) (Invoice, bool) {
	for _, inv := range g.Invoices {
		if inv.ID == invoiceID {
			return inv, true
		}
	}
	return Invoice{}, false
}

// Resolution is the outcome of resolving a duplicate group: the kept invoice
// is untouched, every other member carries InvoiceStatusExcluded.
type Resolution struct {
	Kept     Invoice   `json:"kept"`
	Excluded []Invoice `json:"excluded"`
}

// ConfirmReceipt describes what the surrounding workflow must carry out
// after an explicit confirmation. The reconciler performs none of it.
type ConfirmReceipt struct {
	Kept          Invoice  `json:"kept"`
	ExcludedCount int      `json:"excluded_count"`
	Instructions  []string `json:"instructions"`
}
