package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// VerdictKind classifies a new extraction against the record store
type VerdictKind int

const (
	// VerdictNew means no stored version shares the invoice number
	VerdictNew VerdictKind = iota
	// VerdictDuplicate means a stored version is identical to the extraction
	VerdictDuplicate
	// VerdictSupersedes means stored versions exist but none is identical;
	// every one of them is stale and must be retired
	VerdictSupersedes
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictNew:
		return "new"
	case VerdictDuplicate:
		return "duplicate"
	case VerdictSupersedes:
		return "supersedes"
	default:
		return "unknown"
	}
}

// Verdict is the resolver's decision for one extraction.
type Verdict struct {
	Kind VerdictKind

	// DuplicateOf is set for VerdictDuplicate: the stored record the
	// extraction matched. The most recent identical version wins ties.
	DuplicateOf *domain.InvoiceRecord

	// Priors is set for VerdictSupersedes: every stored version under the
	// invoice number, most-recent-first. All of them must be retired.
	Priors []*domain.InvoiceRecord
}

// RecordFinder is the slice of the record store the resolver needs
type RecordFinder interface {
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) ([]*domain.InvoiceRecord, error)
}

// Resolver decides whether an extraction is new, a duplicate delivery, or a
// corrected re-issue of an invoice already on record.
type Resolver struct {
	records RecordFinder
	logger  *zap.Logger
}

// NewResolver creates a resolver over the given record store
func NewResolver(records RecordFinder, logger *zap.Logger) *Resolver {
	return &Resolver{records: records, logger: logger}
}

// Resolve fetches all stored versions sharing the extraction's invoice number
// and scans them most-recent-first. The first identical version short-circuits
// to a duplicate verdict. A non-empty set with no identical version means the
// extraction is a corrected re-issue: a business invoice number identifies one
// true invoice, so every older version is stale and is returned for
// retirement, not just the latest.
func (r *Resolver) Resolve(ctx context.Context, extracted *domain.ExtractedInvoice) (Verdict, error) {
	if extracted.InvoiceNumber == "" {
		return Verdict{}, fmt.Errorf("extraction has no invoice number")
	}

	priors, err := r.records.FindByInvoiceNumber(ctx, extracted.InvoiceNumber)
	if err != nil {
		return Verdict{}, fmt.Errorf("find stored versions of %s: %w", extracted.InvoiceNumber, err)
	}

	if len(priors) == 0 {
		return Verdict{Kind: VerdictNew}, nil
	}

	for _, prior := range priors {
		if Identical(extracted, prior) {
			r.logger.Info("extraction is an exact duplicate of a stored version",
				zap.String("invoice_number", extracted.InvoiceNumber),
				zap.String("record_id", prior.ID))
			return Verdict{Kind: VerdictDuplicate, DuplicateOf: prior}, nil
		}
	}

	r.logger.Info("extraction supersedes stored versions",
		zap.String("invoice_number", extracted.InvoiceNumber),
		zap.Int("stale_versions", len(priors)))
	return Verdict{Kind: VerdictSupersedes, Priors: priors}, nil
}
