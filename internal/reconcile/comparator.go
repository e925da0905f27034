// Package reconcile decides how a newly extracted invoice relates to the
// versions already on record, and tears down the artifacts of versions that
// a corrected re-issue replaces.
package reconcile

import (
	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// Identical reports whether a new extraction and a stored record describe the
// same invoice version. Identity is defined over the business fields only:
// invoice number, both dates, payer, issuer, the two amounts (numeric, within
// domain.AmountTolerance, tolerant of ',' vs '.' separators) and the fuel
// flag. Artifact references, attachment names and timestamps never
// participate. An amount that fails to parse makes the records non-identical.
func Identical(extracted *domain.ExtractedInvoice, stored *domain.InvoiceRecord) bool {
	if extracted == nil || stored == nil {
		return false
	}

	if extracted.InvoiceNumber != stored.InvoiceNumber {
		return false
	}
	if !datesEqual(extracted.InvoiceDate, stored.InvoiceDate) {
		return false
	}
	if !datesEqual(extracted.DueDate, stored.DueDate) {
		return false
	}
	if !stringsEqual(extracted.Payer, stored.Payer) {
		return false
	}
	if !stringsEqual(extracted.Issuer, stored.Issuer) {
		return false
	}
	if !domain.AmountsEqual(extracted.GrossAmount, stored.GrossAmount) {
		return false
	}
	if !domain.AmountsEqual(extracted.VatAmount, stored.VatAmount) {
		return false
	}
	if extracted.IsFuelRelated != stored.IsFuelRelated {
		return false
	}

	return true
}

// datesEqual compares two optional dates. A nil or zero date only equals
// another nil or zero date.
func datesEqual(a, b *domain.DateOnly) bool {
	aEmpty := a == nil || a.IsZero()
	bEmpty := b == nil || b.IsZero()
	if aEmpty || bEmpty {
		return aEmpty == bEmpty
	}
	return a.Equal(b.Time)
}

// stringsEqual compares two optional strings case-sensitively. Nil only
// equals nil.
func stringsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return (a == nil) == (b == nil)
	}
	return *a == *b
}
