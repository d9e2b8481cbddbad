package trade

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType identifies the kind of postable document
type DocumentType string

const (
	DocumentSalesInvoice      DocumentType = "sales_invoice"
	DocumentPurchaseInvoice   DocumentType = "purchase_invoice"
	DocumentSalesReturn       DocumentType = "sales_return"
	DocumentPurchaseReturn    DocumentType = "purchase_return"
	DocumentStockAdjustment   DocumentType = "stock_adjustment"
	DocumentWarehouseTransfer DocumentType = "warehouse_transfer"
	DocumentFixedAsset        DocumentType = "fixed_asset"
)

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// IsValid returns true if the document type is known
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentSalesInvoice,
		DocumentPurchaseInvoice,
		DocumentSalesReturn,
		DocumentPurchaseReturn,
		DocumentStockAdjustment,
		DocumentWarehouseTransfer,
		DocumentFixedAsset:
		return true
	}
	return false
}

// IsSalesSide returns true for documents raised against customers
func (t DocumentType) IsSalesSide() bool {
	return t == DocumentSalesInvoice || t == DocumentSalesReturn
}

// IsTrade returns true for invoices and returns, the documents that carry money
// and a partner
func (t DocumentType) IsTrade() bool {
	switch t {
	case DocumentSalesInvoice, DocumentPurchaseInvoice, DocumentSalesReturn, DocumentPurchaseReturn:
		return true
	}
	return false
}

// DocumentStatus is the posting state of a document
type DocumentStatus string

const (
	StatusDraft  DocumentStatus = "draft"
	StatusPosted DocumentStatus = "posted"
)

// PaymentMethod decides whether a document settles through the treasury or
// through the partner ledger
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
)

// FundingMethod says how a fixed asset was paid for
type FundingMethod string

const (
	FundingCash    FundingMethod = "cash"
	FundingPayable FundingMethod = "payable"
	FundingEquity  FundingMethod = "equity"
)

// IsValid returns true if the funding method is known
func (f FundingMethod) IsValid() bool {
	return f == FundingCash || f == FundingPayable || f == FundingEquity
}

// DocumentItem is one line of a document. Quantity is expressed in UnitType
// and UnitPrice is per that unit. For stock adjustments Quantity is signed.
// BaseQuantity and CostAtTime (per base unit) are snapshots written when the
// document is posted.
type DocumentItem struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	Quantity     int64
	UnitType     inventory.UnitType
	UnitPrice    decimal.Decimal
	BaseQuantity int64
	CostAtTime   decimal.Decimal
}

// LineTotal returns quantity × unit price
func (i DocumentItem) LineTotal() decimal.Decimal {
	return shared.RoundMoney(decimal.NewFromInt(i.Quantity).Mul(i.UnitPrice))
}

// Document is the collaborator-owned business document whose posting drives
// the ledgers. Ledger rows for a document exist if and only if it is posted.
type Document struct {
	shared.BaseEntity
	Number            string
	Type              DocumentType
	Status            DocumentStatus
	PaymentMethod     PaymentMethod
	FundingMethod     FundingMethod
	WarehouseID       *uuid.UUID
	TargetWarehouseID *uuid.UUID
	PartnerID         *uuid.UUID
	TreasuryID        *uuid.UUID
	Total             decimal.Decimal
	PaidAmount        decimal.Decimal
	RemainingAmount   decimal.Decimal
	DocumentDate      time.Time
	PostedAt          *time.Time
	Items             []DocumentItem
}

// NewDocument creates a draft document. remaining is derived as total − paid.
func NewDocument(number string, docType DocumentType, method PaymentMethod, total, paid decimal.Decimal, date time.Time) (*Document, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Document number cannot be empty")
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("unknown document type %q", docType))
	}
	total = shared.RoundMoney(total)
	paid = shared.RoundMoney(paid)
	if total.IsNegative() || paid.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Document amounts cannot be negative")
	}
	if paid.GreaterThan(total) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Paid amount cannot exceed total")
	}
	return &Document{
		BaseEntity:      shared.NewBaseEntity(),
		Number:          number,
		Type:            docType,
		Status:          StatusDraft,
		PaymentMethod:   method,
		Total:           total,
		PaidAmount:      paid,
		RemainingAmount: total.Sub(paid),
		DocumentDate:    date,
	}, nil
}

// Reference returns the ledger reference for this document
func (d *Document) Reference() shared.Reference {
	return shared.NewReference(string(d.Type), d.ID)
}

// IsPosted returns true once the document has been posted
func (d *Document) IsPosted() bool {
	return d.Status == StatusPosted
}

// AssertDraft returns a StateError naming the document unless it is a draft
func (d *Document) AssertDraft() error {
	if d.Status != StatusDraft {
		return shared.NewStateError(shared.ErrInvalidState, string(d.Type), d.Number, fmt.Sprintf("%s, not in draft state", d.Status))
	}
	return nil
}

// AssertPosted returns a StateError unless the document is posted
func (d *Document) AssertPosted() error {
	if d.Status != StatusPosted {
		return shared.NewStateError(shared.ErrInvalidState, string(d.Type), d.Number, fmt.Sprintf("%s, not posted", d.Status))
	}
	return nil
}

// AssertType fails when the document is not of the expected type
func (d *Document) AssertType(expected DocumentType) error {
	if d.Type != expected {
		return shared.NewDomainError("DOCUMENT_TYPE_MISMATCH",
			fmt.Sprintf("document %s is a %s, expected %s", d.Number, d.Type, expected))
	}
	return nil
}

// MarkPosted flips the document to posted
func (d *Document) MarkPosted(at time.Time) error {
	if err := d.AssertDraft(); err != nil {
		return err
	}
	d.Status = StatusPosted
	d.PostedAt = &at
	d.Touch()
	return nil
}

// ResetToDraft restores draft status after a failed posting attempt
func (d *Document) ResetToDraft() {
	d.Status = StatusDraft
	d.PostedAt = nil
}

// IsCashSettled returns true for documents settled immediately in cash. They
// never create partner exposure.
func (d *Document) IsCashSettled() bool {
	if d.Type == DocumentFixedAsset {
		return d.FundingMethod == FundingCash
	}
	return d.PaymentMethod == PaymentCash
}

// CashAmount is the amount that moves through the treasury when the document
// is posted: paid_amount for trade documents, the full total for a
// cash-funded fixed asset, zero otherwise.
func (d *Document) CashAmount() decimal.Decimal {
	switch {
	case d.Type.IsTrade():
		return d.PaidAmount
	case d.Type == DocumentFixedAsset && d.FundingMethod == FundingCash:
		return d.Total
	}
	return decimal.Zero
}

// SettleableAmount is the part of the total still subject to settlement
func (d *Document) SettleableAmount() decimal.Decimal {
	return d.RemainingAmount
}

// AffectsPartnerBalance returns true if the document feeds its partner's
// balance: posted, partner attached and not cash-settled
func (d *Document) AffectsPartnerBalance() bool {
	if d.PartnerID == nil || !d.IsPosted() || d.IsCashSettled() {
		return false
	}
	return d.Type.IsTrade() || d.Type == DocumentFixedAsset
}

// PartnerSign is +1 when documents of this type make the partner owe the
// business, −1 when they make the business owe the partner, 0 otherwise
func (t DocumentType) PartnerSign() decimal.Decimal {
	switch t {
	case DocumentSalesInvoice, DocumentPurchaseReturn:
		return decimal.NewFromInt(1)
	case DocumentSalesReturn, DocumentPurchaseInvoice, DocumentFixedAsset:
		return decimal.NewFromInt(-1)
	}
	return decimal.Zero
}

// RawPartnerDelta is the business-side contribution of the document to its
// partner's balance (positive when the partner owes the business). Sales
// documents and purchase documents carry opposite signs.
func (d *Document) RawPartnerDelta() decimal.Decimal {
	return d.SettleableAmount().Mul(d.Type.PartnerSign())
}

// ApplyPayment records amount + discount against the remaining amount. It
// rejects settlement beyond the remaining amount.
func (d *Document) ApplyPayment(amount, discount decimal.Decimal) error {
	if err := d.AssertPosted(); err != nil {
		return err
	}
	amount = shared.RoundMoney(amount)
	discount = shared.RoundMoney(discount)
	if amount.IsNegative() || discount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount and discount cannot be negative")
	}
	settled := amount.Add(discount)
	if settled.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment must settle a positive amount")
	}
	if settled.GreaterThan(d.RemainingAmount) {
		return shared.NewInsufficientResourceError(shared.ErrPaymentExceeds, string(d.Type), d.Number, d.RemainingAmount, settled)
	}
	d.PaidAmount = d.PaidAmount.Add(amount)
	d.RemainingAmount = d.RemainingAmount.Sub(settled)
	d.Touch()
	return nil
}

// Validate checks the structural rules a document must meet before posting.
// A cash trade document must be paid in full: its unpaid part would reach
// neither the treasury nor the partner ledger.
func (d *Document) Validate() error {
	if d.RemainingAmount.IsNegative() {
		return shared.NewInvariantViolation("remaining_amount", "cannot be negative")
	}
	if d.Type.IsTrade() && d.PaymentMethod == PaymentCash && !d.RemainingAmount.IsZero() {
		return shared.NewInvariantViolation("remaining_amount",
			fmt.Sprintf("must be zero on cash document %s, %s is unpaid", d.Number, d.RemainingAmount.StringFixed(4)))
	}
	switch d.Type {
	case DocumentSalesInvoice, DocumentPurchaseInvoice, DocumentSalesReturn, DocumentPurchaseReturn, DocumentStockAdjustment:
		if d.WarehouseID == nil {
			return shared.NewDomainError("INVALID_WAREHOUSE", fmt.Sprintf("document %s has no warehouse", d.Number))
		}
	case DocumentWarehouseTransfer:
		if d.WarehouseID == nil || d.TargetWarehouseID == nil {
			return shared.NewDomainError("INVALID_WAREHOUSE", fmt.Sprintf("transfer %s needs source and target warehouses", d.Number))
		}
		if *d.WarehouseID == *d.TargetWarehouseID {
			return shared.NewDomainError("INVALID_WAREHOUSE", fmt.Sprintf("transfer %s has identical source and target", d.Number))
		}
	case DocumentFixedAsset:
		if !d.FundingMethod.IsValid() {
			return shared.NewDomainError("INVALID_FUNDING_METHOD", fmt.Sprintf("fixed asset %s has funding method %q", d.Number, d.FundingMethod))
		}
	}
	for _, item := range d.Items {
		if item.Quantity == 0 {
			return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("document %s has a zero-quantity line", d.Number))
		}
		if item.Quantity < 0 && d.Type != DocumentStockAdjustment {
			return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("document %s has a negative quantity line", d.Number))
		}
		if !item.UnitType.Normalize().IsValid() {
			return shared.NewDomainError("INVALID_UNIT_TYPE", fmt.Sprintf("document %s has unit type %q", d.Number, item.UnitType))
		}
	}
	return nil
}

// AddItem appends a line
func (d *Document) AddItem(productID uuid.UUID, qty int64, unit inventory.UnitType, unitPrice decimal.Decimal) *DocumentItem {
	d.Items = append(d.Items, DocumentItem{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  qty,
		UnitType:  unit.Normalize(),
		UnitPrice: shared.RoundMoney(unitPrice),
	})
	return &d.Items[len(d.Items)-1]
}
