package trade

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferenceInvoicePayment tags treasury rows produced by invoice payments
const ReferenceInvoicePayment = "invoice_payment"

// InvoicePayment is a single settlement event against a posted document. When
// cash moves, it links 1:1 to a treasury transaction.
type InvoicePayment struct {
	ID                    uuid.UUID
	DocumentID            uuid.UUID
	PartnerID             *uuid.UUID
	TreasuryID            *uuid.UUID
	TreasuryTransactionID *uuid.UUID
	Amount                decimal.Decimal
	Discount              decimal.Decimal
	PaymentDate           time.Time
	Notes                 string
	PaidBy                *uuid.UUID
	CreatedAt             time.Time
}

// NewInvoicePayment creates a payment for doc
func NewInvoicePayment(doc *Document, amount, discount decimal.Decimal, date time.Time) *InvoicePayment {
	return &InvoicePayment{
		ID:          uuid.New(),
		DocumentID:  doc.ID,
		PartnerID:   doc.PartnerID,
		Amount:      shared.RoundMoney(amount),
		Discount:    shared.RoundMoney(discount),
		PaymentDate: date,
		CreatedAt:   time.Now(),
	}
}

// SettledAmount is amount + discount, the reduction of the document's remaining amount
func (p *InvoicePayment) SettledAmount() decimal.Decimal {
	return p.Amount.Add(p.Discount)
}

// Reference returns the ledger reference for this payment
func (p *InvoicePayment) Reference() shared.Reference {
	return shared.NewReference(ReferenceInvoicePayment, p.ID)
}

// CashDirection returns the sign a payment against a document of type t has in
// the treasury: money in for customer invoices and supplier returns, money out
// otherwise
func CashDirection(t DocumentType) decimal.Decimal {
	switch t {
	case DocumentSalesInvoice, DocumentPurchaseReturn:
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}
