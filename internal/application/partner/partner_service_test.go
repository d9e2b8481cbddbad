package partner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/testdb"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type partnerFixture struct {
	ctx   context.Context
	scope appshared.TransactionScope
	seq   int
}

func newPartnerFixture(t *testing.T) *partnerFixture {
	t.Helper()
	return &partnerFixture{ctx: context.Background(), scope: persistence.NewGormTransactionScope(testdb.New(t))}
}

func (f *partnerFixture) partner(t *testing.T, typ partner.PartnerType, opening string) *partner.Partner {
	t.Helper()
	p, err := partner.NewPartner(string(typ)+" partner", typ, dec(opening))
	require.NoError(t, err)
	require.NoError(t, f.scope.Repositories().Partners().Save(f.ctx, p))
	return p
}

func (f *partnerFixture) document(t *testing.T, p *partner.Partner, docType trade.DocumentType, method trade.PaymentMethod, total, paid string, post bool) *trade.Document {
	t.Helper()
	f.seq++
	doc, err := trade.NewDocument("DOC-"+string(rune('A'+f.seq)), docType, method, dec(total), dec(paid), time.Now())
	require.NoError(t, err)
	doc.PartnerID = &p.ID
	if post {
		require.NoError(t, doc.MarkPosted(time.Now()))
	}
	require.NoError(t, f.scope.Repositories().Documents().Save(f.ctx, doc))
	return doc
}

func TestService_UpdatePartnerBalance(t *testing.T) {
	f := newPartnerFixture(t)
	supplier := f.partner(t, partner.PartnerTypeSupplier, "100")
	f.document(t, supplier, trade.DocumentPurchaseInvoice, trade.PaymentCredit, "1000", "200", true)
	f.document(t, supplier, trade.DocumentPurchaseReturn, trade.PaymentCredit, "50", "0", true)
	f.document(t, supplier, trade.DocumentPurchaseInvoice, trade.PaymentCash, "700", "700", true)
	f.document(t, supplier, trade.DocumentPurchaseInvoice, trade.PaymentCredit, "999", "0", false)

	resp, err := NewService(f.scope, nil).UpdatePartnerBalance(f.ctx, supplier.ID)
	require.NoError(t, err)
	assert.True(t, resp.Balance.Equal(dec("850")), "balance %s", resp.Balance)
	assert.True(t, resp.Receivable.IsZero())
	assert.True(t, resp.Payable.Equal(dec("850")))
	assert.Equal(t, "supplier", resp.Type)

	stored, err := f.scope.Repositories().Partners().FindByID(f.ctx, supplier.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentBalance.Equal(dec("850")))

	again, err := NewService(f.scope, nil).UpdatePartnerBalance(f.ctx, supplier.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(resp.Balance), "recomputing is idempotent")

	_, err = NewService(f.scope, nil).UpdatePartnerBalance(f.ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_CustomerBalanceFollowsPayments(t *testing.T) {
	f := newPartnerFixture(t)
	customer := f.partner(t, partner.PartnerTypeCustomer, "0")
	doc := f.document(t, customer, trade.DocumentSalesInvoice, trade.PaymentCredit, "1000", "0", true)
	f.document(t, customer, trade.DocumentSalesReturn, trade.PaymentCredit, "100", "0", true)

	var balance decimal.Decimal
	err := f.scope.Execute(f.ctx, func(repos appshared.TransactionalRepositories) error {
		d, err := repos.Documents().FindByIDForUpdate(f.ctx, doc.ID)
		if err != nil {
			return err
		}
		if err := d.ApplyPayment(dec("300"), dec("50")); err != nil {
			return err
		}
		if err := repos.Documents().Save(f.ctx, d); err != nil {
			return err
		}
		balance, err = NewBalanceEngine(repos).Recalculate(f.ctx, customer.ID)
		return err
	})
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("550")), "balance %s", balance)
}

func TestService_RecalculateAll(t *testing.T) {
	f := newPartnerFixture(t)
	customer := f.partner(t, partner.PartnerTypeCustomer, "10")
	f.document(t, customer, trade.DocumentSalesInvoice, trade.PaymentCredit, "90", "0", true)
	shareholder := f.partner(t, partner.PartnerTypeShareholder, "5000")
	require.NoError(t, f.scope.Repositories().Partners().UpdateCurrentBalance(f.ctx, shareholder.ID, dec("1")))

	core, logs := observer.New(zap.InfoLevel)
	result, err := NewService(f.scope, zap.New(core)).RecalculateAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Changed)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 2, logs.FilterMessage("partner balance corrected").Len())

	second, err := NewService(f.scope, nil).RecalculateAll(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Changed)

	stored, err := f.scope.Repositories().Partners().FindByID(f.ctx, shareholder.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentBalance.Equal(dec("5000")))
}

func TestService_RecalculateAllStopsOnCancel(t *testing.T) {
	f := newPartnerFixture(t)
	f.partner(t, partner.PartnerTypeCustomer, "0")
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	result, err := NewService(f.scope, nil).RecalculateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	if result != nil {
		assert.Zero(t, result.Processed)
	}
}
