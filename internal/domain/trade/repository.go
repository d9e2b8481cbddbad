package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentRepository persists documents on behalf of the posting core. Document
// CRUD belongs to collaborators; the core only loads, locks and flips status.
type DocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	// FindPartnerBalanceDocuments returns posted, non-cash documents of the partner
	FindPartnerBalanceDocuments(ctx context.Context, partnerID uuid.UUID) ([]Document, error)
	SumTotals(ctx context.Context, docType DocumentType, from, to time.Time) (decimal.Decimal, error)
	SumPostedTotals(ctx context.Context, docType DocumentType) (decimal.Decimal, error)
	// SumCostOfSales returns Σ base quantity × cost_at_time for posted sales
	// invoices dated in [from, to), net of posted sales returns in the range
	SumCostOfSales(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

// InvoicePaymentRepository persists invoice payments
type InvoicePaymentRepository interface {
	Create(ctx context.Context, payment *InvoicePayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*InvoicePayment, error)
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]InvoicePayment, error)
	FindByPartner(ctx context.Context, partnerID uuid.UUID) ([]InvoicePayment, error)
	// SumDiscounts sums discounts of payments dated in [from, to) against documents of the given types
	SumDiscounts(ctx context.Context, docTypes []DocumentType, from, to time.Time) (decimal.Decimal, error)
}
