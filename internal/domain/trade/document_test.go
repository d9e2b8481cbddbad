package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newDoc(t *testing.T, docType DocumentType, method PaymentMethod, total, paid string) *Document {
	t.Helper()
	doc, err := NewDocument("DOC-1", docType, method, dec(total), dec(paid), time.Now())
	require.NoError(t, err)
	return doc
}

func TestNewDocument(t *testing.T) {
	doc := newDoc(t, DocumentSalesInvoice, PaymentCredit, "1000", "250")
	assert.Equal(t, StatusDraft, doc.Status)
	assert.True(t, doc.RemainingAmount.Equal(dec("750")))

	tests := []struct {
		name  string
		num   string
		typ   DocumentType
		total string
		paid  string
		code  string
	}{
		{"empty number", "", DocumentSalesInvoice, "1", "0", "INVALID_NUMBER"},
		{"unknown type", "X", DocumentType("quote"), "1", "0", "INVALID_DOCUMENT_TYPE"},
		{"negative total", "X", DocumentSalesInvoice, "-1", "0", "INVALID_AMOUNT"},
		{"overpaid", "X", DocumentSalesInvoice, "10", "11", "INVALID_AMOUNT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocument(tt.num, tt.typ, PaymentCash, dec(tt.total), dec(tt.paid), time.Now())
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestDocument_PostingState(t *testing.T) {
	doc := newDoc(t, DocumentPurchaseInvoice, PaymentCash, "100", "100")
	assert.ErrorIs(t, doc.AssertPosted(), shared.ErrInvalidState)

	require.NoError(t, doc.MarkPosted(time.Now()))
	assert.True(t, doc.IsPosted())
	require.NotNil(t, doc.PostedAt)

	err := doc.MarkPosted(time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "DOC-1")

	doc.ResetToDraft()
	assert.Equal(t, StatusDraft, doc.Status)
	assert.Nil(t, doc.PostedAt)

	var domainErr *shared.DomainError
	require.ErrorAs(t, doc.AssertType(DocumentSalesInvoice), &domainErr)
	assert.Equal(t, "DOCUMENT_TYPE_MISMATCH", domainErr.Code)
	assert.NoError(t, doc.AssertType(DocumentPurchaseInvoice))
}

func TestDocument_ApplyPayment(t *testing.T) {
	doc := newDoc(t, DocumentSalesInvoice, PaymentCredit, "1000", "0")

	assert.ErrorIs(t, doc.ApplyPayment(dec("10"), decimal.Zero), shared.ErrInvalidState, "draft documents cannot be paid")
	require.NoError(t, doc.MarkPosted(time.Now()))

	require.NoError(t, doc.ApplyPayment(dec("400"), dec("100")))
	assert.True(t, doc.PaidAmount.Equal(dec("400")))
	assert.True(t, doc.RemainingAmount.Equal(dec("500")))

	err := doc.ApplyPayment(dec("500"), dec("0.0001"))
	assert.ErrorIs(t, err, shared.ErrPaymentExceeds)
	var resErr *shared.InsufficientResourceError
	require.ErrorAs(t, err, &resErr)
	assert.True(t, resErr.Available.Equal(dec("500")))
	assert.True(t, doc.RemainingAmount.Equal(dec("500")), "a rejected payment leaves the document unchanged")

	assert.Error(t, doc.ApplyPayment(decimal.Zero, decimal.Zero))
	assert.Error(t, doc.ApplyPayment(dec("-1"), decimal.Zero))

	require.NoError(t, doc.ApplyPayment(dec("500"), decimal.Zero))
	assert.True(t, doc.RemainingAmount.IsZero())
	assert.True(t, doc.PaidAmount.Add(dec("100")).Equal(doc.Total))
}

func TestDocument_Validate(t *testing.T) {
	wh, other := uuid.New(), uuid.New()

	t.Run("trade document needs a warehouse", func(t *testing.T) {
		doc := newDoc(t, DocumentSalesInvoice, PaymentCash, "10", "10")
		assert.Error(t, doc.Validate())
		doc.WarehouseID = &wh
		doc.AddItem(uuid.New(), 1, "", dec("10"))
		assert.NoError(t, doc.Validate())
		assert.Equal(t, inventory.UnitTypeSmall, doc.Items[0].UnitType)
	})

	t.Run("transfer needs distinct warehouses", func(t *testing.T) {
		doc := newDoc(t, DocumentWarehouseTransfer, PaymentCash, "0", "0")
		doc.WarehouseID = &wh
		assert.Error(t, doc.Validate())
		doc.TargetWarehouseID = &wh
		assert.Error(t, doc.Validate())
		doc.TargetWarehouseID = &other
		assert.NoError(t, doc.Validate())
	})

	t.Run("negative lines only on adjustments", func(t *testing.T) {
		sale := newDoc(t, DocumentSalesInvoice, PaymentCash, "10", "10")
		sale.WarehouseID = &wh
		sale.AddItem(uuid.New(), -1, inventory.UnitTypeSmall, dec("10"))
		assert.Error(t, sale.Validate())

		adj := newDoc(t, DocumentStockAdjustment, PaymentCash, "0", "0")
		adj.WarehouseID = &wh
		adj.AddItem(uuid.New(), -1, inventory.UnitTypeSmall, dec("10"))
		assert.NoError(t, adj.Validate())
		adj.AddItem(uuid.New(), 0, inventory.UnitTypeSmall, dec("10"))
		assert.Error(t, adj.Validate())
	})

	t.Run("cash trade document is paid in full", func(t *testing.T) {
		doc := newDoc(t, DocumentSalesInvoice, PaymentCash, "500", "100")
		doc.WarehouseID = &wh
		err := doc.Validate()
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
		assert.Contains(t, err.Error(), "400.0000 is unpaid")

		credit := newDoc(t, DocumentSalesInvoice, PaymentCredit, "500", "100")
		credit.WarehouseID = &wh
		assert.NoError(t, credit.Validate())
	})

	t.Run("fixed asset needs a funding method", func(t *testing.T) {
		doc := newDoc(t, DocumentFixedAsset, PaymentCash, "100", "0")
		assert.Error(t, doc.Validate())
		doc.FundingMethod = FundingEquity
		assert.NoError(t, doc.Validate())
	})
}

func TestDocument_PartnerEffects(t *testing.T) {
	partnerID := uuid.New()
	posted := func(docType DocumentType, method PaymentMethod, total, paid string) *Document {
		doc := newDoc(t, docType, method, total, paid)
		doc.PartnerID = &partnerID
		require.NoError(t, doc.MarkPosted(time.Now()))
		return doc
	}

	tests := []struct {
		name    string
		doc     *Document
		affects bool
		delta   string
	}{
		{"credit sale", posted(DocumentSalesInvoice, PaymentCredit, "1000", "200"), true, "800"},
		{"credit purchase", posted(DocumentPurchaseInvoice, PaymentCredit, "1000", "0"), true, "-1000"},
		{"sales return", posted(DocumentSalesReturn, PaymentCredit, "300", "0"), true, "-300"},
		{"purchase return", posted(DocumentPurchaseReturn, PaymentCredit, "300", "0"), true, "300"},
		{"cash sale", posted(DocumentSalesInvoice, PaymentCash, "1000", "1000"), false, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.affects, tt.doc.AffectsPartnerBalance())
			assert.True(t, tt.doc.RawPartnerDelta().Equal(dec(tt.delta)), "delta %s", tt.doc.RawPartnerDelta())
		})
	}

	draft := newDoc(t, DocumentSalesInvoice, PaymentCredit, "10", "0")
	draft.PartnerID = &partnerID
	assert.False(t, draft.AffectsPartnerBalance())

	equity := newDoc(t, DocumentFixedAsset, PaymentCash, "5000", "0")
	equity.FundingMethod = FundingEquity
	equity.PartnerID = &partnerID
	require.NoError(t, equity.MarkPosted(time.Now()))
	assert.True(t, equity.AffectsPartnerBalance())
	assert.True(t, equity.CashAmount().IsZero())

	cashAsset := newDoc(t, DocumentFixedAsset, PaymentCash, "5000", "0")
	cashAsset.FundingMethod = FundingCash
	assert.True(t, cashAsset.CashAmount().Equal(dec("5000")))
}

func TestInvoicePayment(t *testing.T) {
	doc := newDoc(t, DocumentPurchaseInvoice, PaymentCredit, "100", "0")
	p := NewInvoicePayment(doc, dec("40.00005"), dec("10"), time.Now())
	assert.True(t, p.Amount.Equal(dec("40.0001")))
	assert.True(t, p.SettledAmount().Equal(dec("50.0001")))
	assert.Equal(t, ReferenceInvoicePayment, p.Reference().Kind)

	assert.True(t, CashDirection(DocumentSalesInvoice).Equal(decimal.NewFromInt(1)))
	assert.True(t, CashDirection(DocumentPurchaseReturn).Equal(decimal.NewFromInt(1)))
	assert.True(t, CashDirection(DocumentPurchaseInvoice).Equal(decimal.NewFromInt(-1)))
	assert.True(t, CashDirection(DocumentSalesReturn).Equal(decimal.NewFromInt(-1)))
}
