package finance

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/testdb"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type paymentFixture struct {
	ctx      context.Context
	scope    appshared.TransactionScope
	till     *treasury.Treasury
	customer *partner.Partner
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{ctx: context.Background(), scope: persistence.NewGormTransactionScope(testdb.New(t))}
	var err error
	f.till, err = treasury.NewTreasury("Main till")
	require.NoError(t, err)
	require.NoError(t, f.scope.Repositories().Treasuries().Save(f.ctx, f.till))
	f.customer, err = partner.NewPartner("Walk-in customer", partner.PartnerTypeCustomer, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.scope.Repositories().Partners().Save(f.ctx, f.customer))
	return f
}

// creditSale stores a posted credit sales invoice; withTill attaches the main till
func (f *paymentFixture) creditSale(t *testing.T, number, total string, withTill bool) *trade.Document {
	t.Helper()
	doc, err := trade.NewDocument(number, trade.DocumentSalesInvoice, trade.PaymentCredit, dec(total), decimal.Zero, time.Now())
	require.NoError(t, err)
	doc.PartnerID = &f.customer.ID
	if withTill {
		doc.TreasuryID = &f.till.ID
	}
	require.NoError(t, doc.MarkPosted(time.Now()))
	require.NoError(t, f.scope.Repositories().Documents().Save(f.ctx, doc))
	return doc
}

func (f *paymentFixture) tillBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	balance, err := f.scope.Repositories().TreasuryTransactions().SumByTreasury(f.ctx, f.till.ID)
	require.NoError(t, err)
	return balance
}

func TestPaymentService_RecordInvoicePayment(t *testing.T) {
	f := newPaymentFixture(t)
	doc := f.creditSale(t, "INV-1", "1000", true)
	core, logs := observer.New(zap.InfoLevel)
	svc := NewPaymentService(f.scope, zap.New(core))

	resp, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("300"), Discount: dec("20")})
	require.NoError(t, err)
	assert.True(t, resp.RemainingAmount.Equal(dec("680")))
	assert.Empty(t, resp.Allocations, "no schedule, nothing to allocate")
	require.NotNil(t, resp.PartnerBalance)
	assert.True(t, resp.PartnerBalance.Equal(dec("680")))
	require.NotNil(t, resp.Payment.TreasuryTransactionID)
	assert.Equal(t, f.till.ID, *resp.Payment.TreasuryID)
	assert.True(t, f.tillBalance(t).Equal(dec("300")))
	assert.Equal(t, 1, logs.FilterMessage("invoice payment recorded").Len())

	tx, err := f.scope.Repositories().TreasuryTransactions().FindByReference(f.ctx, trade.ReferenceInvoicePayment, resp.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, treasury.KindCollection, tx.Kind)

	_, err = svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("680.0001")})
	assert.ErrorIs(t, err, shared.ErrPaymentExceeds)
	assert.True(t, f.tillBalance(t).Equal(dec("300")), "a rejected payment moves no cash")

	_, err = svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: uuid.New(), Amount: dec("1")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentService_TreasuryRequired(t *testing.T) {
	f := newPaymentFixture(t)
	doc := f.creditSale(t, "INV-2", "500", false)
	svc := NewPaymentService(f.scope, nil)

	_, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("100")})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TREASURY_REQUIRED", domainErr.Code)

	discountOnly, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Discount: dec("50")})
	require.NoError(t, err, "a discount moves no cash")
	assert.Nil(t, discountOnly.Payment.TreasuryTransactionID)
	assert.True(t, discountOnly.RemainingAmount.Equal(dec("450")))

	withTill, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, TreasuryID: &f.till.ID, Amount: dec("50")})
	require.NoError(t, err)
	assert.True(t, withTill.RemainingAmount.Equal(dec("400")))
}

func TestPaymentService_DraftDocumentCannotBePaid(t *testing.T) {
	f := newPaymentFixture(t)
	doc, err := trade.NewDocument("INV-D", trade.DocumentSalesInvoice, trade.PaymentCredit, dec("100"), decimal.Zero, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.scope.Repositories().Documents().Save(f.ctx, doc))

	_, err = NewPaymentService(f.scope, nil).RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, TreasuryID: &f.till.ID, Amount: dec("10")})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = NewPaymentService(f.scope, nil).GenerateSchedule(f.ctx, GenerateScheduleInput{DocumentID: doc.ID, Months: 2, StartDate: time.Now()})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPaymentService_ScheduleAndAllocation(t *testing.T) {
	f := newPaymentFixture(t)
	doc := f.creditSale(t, "INV-3", "1000", true)
	svc := NewPaymentService(f.scope, nil)

	early, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("100")})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	start := time.Date(2024, 1, 31, 15, 0, 0, 0, time.Local)
	schedule, err := svc.GenerateSchedule(f.ctx, GenerateScheduleInput{DocumentID: doc.ID, Months: 3, StartDate: start})
	require.NoError(t, err)
	require.Len(t, schedule.Installments, 3)
	assert.True(t, schedule.Total.Equal(dec("900")))
	for _, inst := range schedule.Installments {
		assert.True(t, inst.Amount.Equal(dec("300")))
		assert.Equal(t, "pending", inst.Status)
	}
	assert.Equal(t, time.February, schedule.Installments[1].DueDate.Month())
	assert.Equal(t, 29, schedule.Installments[1].DueDate.Day())

	_, err = svc.GenerateSchedule(f.ctx, GenerateScheduleInput{DocumentID: doc.ID, Months: 2, StartDate: start})
	assert.ErrorIs(t, err, shared.ErrScheduleExists)

	_, err = svc.ApplyPaymentToInstallments(f.ctx, doc.ID, early.Payment.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "the schedule was cut from the amount left after this payment")

	later, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("350")})
	require.NoError(t, err)
	require.Len(t, later.Allocations, 2)
	assert.Equal(t, 1, later.Allocations[0].Number)
	assert.True(t, later.Allocations[0].Applied.Equal(dec("300")))
	assert.True(t, later.Allocations[0].Settled)
	assert.Equal(t, 2, later.Allocations[1].Number)
	assert.True(t, later.Allocations[1].Applied.Equal(dec("50")))

	_, err = svc.ApplyPaymentToInstallments(f.ctx, doc.ID, later.Payment.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "payments after the schedule were allocated when recorded")

	other := f.creditSale(t, "INV-4", "10", true)
	_, err = svc.ApplyPaymentToInstallments(f.ctx, other.ID, early.Payment.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PAYMENT_DOCUMENT_MISMATCH", domainErr.Code)

	current, err := svc.GetSchedule(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", current.Installments[0].Status)
	require.NotNil(t, current.Installments[0].InvoicePaymentID)
	assert.Equal(t, later.Payment.ID, *current.Installments[0].InvoicePaymentID)
	assert.True(t, current.Outstanding.Equal(dec("550")), "outstanding %s", current.Outstanding)
	stored, err := f.scope.Repositories().Documents().FindByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingAmount.Equal(current.Outstanding), "schedule and document agree on what is owed")

	swept, err := svc.SweepOverdue(f.ctx, start.AddDate(0, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(2), swept)
	again, err := svc.SweepOverdue(f.ctx, start.AddDate(0, 6, 0))
	require.NoError(t, err)
	assert.Zero(t, again)

	overdue, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("250")})
	require.NoError(t, err)
	require.Len(t, overdue.Allocations, 1)
	assert.Equal(t, 2, overdue.Allocations[0].Number)
	assert.True(t, overdue.Allocations[0].Settled, "overdue installments still take payments")

	_, err = svc.GetSchedule(f.ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentService_PaymentIsAllocatedOnce(t *testing.T) {
	f := newPaymentFixture(t)
	doc := f.creditSale(t, "INV-7", "1000", true)
	svc := NewPaymentService(f.scope, nil)

	early, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("100")})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.GenerateSchedule(f.ctx, GenerateScheduleInput{DocumentID: doc.ID, Months: 3, StartDate: time.Now()})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.ApplyPaymentToInstallments(f.ctx, doc.ID, early.Payment.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState, "attempt %d", i+1)
	}

	paid, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("100")})
	require.NoError(t, err)
	require.Len(t, paid.Allocations, 1)
	for i := 0; i < 3; i++ {
		_, err = svc.ApplyPaymentToInstallments(f.ctx, doc.ID, paid.Payment.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState, "attempt %d", i+1)
	}

	schedule, err := svc.GetSchedule(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", schedule.Installments[0].Status)
	assert.True(t, schedule.Installments[0].PaidAmount.Equal(dec("100")), "paid %s", schedule.Installments[0].PaidAmount)
	assert.True(t, schedule.Outstanding.Equal(dec("800")), "outstanding %s", schedule.Outstanding)

	stored, err := f.scope.Repositories().Installments().FindAllocationsByPayment(f.ctx, paid.Payment.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].Number)
	assert.True(t, stored[0].Applied.Equal(dec("100")))
}

func TestPaymentService_GenerateScheduleRejectsBadInput(t *testing.T) {
	f := newPaymentFixture(t)
	doc := f.creditSale(t, "INV-5", "100", true)
	svc := NewPaymentService(f.scope, nil)

	_, err := svc.GenerateSchedule(f.ctx, GenerateScheduleInput{DocumentID: doc.ID, Months: 0, StartDate: time.Now()})
	assert.ErrorIs(t, err, shared.ErrInvariantViolation)
	_, err = svc.GenerateSchedule(f.ctx, GenerateScheduleInput{DocumentID: doc.ID, Months: 2, StartDate: time.Now(), InterestPercentage: dec("-1")})
	assert.ErrorIs(t, err, shared.ErrInvariantViolation)

	_, err = svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("100")})
	require.NoError(t, err)
	_, err = svc.GenerateSchedule(f.ctx, GenerateScheduleInput{DocumentID: doc.ID, Months: 2, StartDate: time.Now()})
	assert.ErrorIs(t, err, shared.ErrInvariantViolation, "a settled document has nothing to schedule")
}

func TestPaymentService_IdempotencyKey(t *testing.T) {
	f := newPaymentFixture(t)
	doc := f.creditSale(t, "INV-6", "1000", true)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisIdempotencyStore(client, "test:")

	svc := NewPaymentService(f.scope, nil)
	svc.SetIdempotencyStore(store, time.Hour)

	first, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("250"), IdempotencyKey: "k-1"})
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	replay, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("250"), IdempotencyKey: "k-1"})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Payment.ID, replay.Payment.ID)
	assert.True(t, f.tillBalance(t).Equal(dec("250")), "a replay moves no cash")
	assert.Equal(t, time.Hour, mr.TTL("test:payment:"+doc.ID.String()+":k-1"))

	_, err = svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("5000"), IdempotencyKey: "k-2"})
	assert.ErrorIs(t, err, shared.ErrPaymentExceeds)
	assert.False(t, mr.Exists("test:payment:"+doc.ID.String()+":k-2"), "a failed request releases its key")
	retried, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("50"), IdempotencyKey: "k-2"})
	require.NoError(t, err)
	assert.False(t, retried.Replayed)

	claimed, err := store.Claim(f.ctx, "payment:"+doc.ID.String()+":k-3", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	_, err = svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("10"), IdempotencyKey: "k-3"})
	assert.True(t, IsRequestInFlight(err))

	withoutStore, err := NewPaymentService(f.scope, nil).RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("10"), IdempotencyKey: "k-1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Payment.ID, withoutStore.Payment.ID, "keys are ignored without a store")
}

func TestPaymentService_PurchasePaymentNeedsCash(t *testing.T) {
	f := newPaymentFixture(t)
	supplier, err := partner.NewPartner("Water Co", partner.PartnerTypeSupplier, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.scope.Repositories().Partners().Save(f.ctx, supplier))
	doc, err := trade.NewDocument("PUR-1", trade.DocumentPurchaseInvoice, trade.PaymentCredit, dec("800"), decimal.Zero, time.Now())
	require.NoError(t, err)
	doc.PartnerID = &supplier.ID
	doc.TreasuryID = &f.till.ID
	require.NoError(t, doc.MarkPosted(time.Now()))
	require.NoError(t, f.scope.Repositories().Documents().Save(f.ctx, doc))
	svc := NewPaymentService(f.scope, nil)

	_, err = svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("100")})
	assert.ErrorIs(t, err, shared.ErrInsufficientBalance)
	stored, err := f.scope.Repositories().Documents().FindByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingAmount.Equal(dec("800")), "the unit of work rolled back")

	sale := f.creditSale(t, "INV-7", "500", true)
	_, err = svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: sale.ID, Amount: dec("500")})
	require.NoError(t, err)

	resp, err := svc.RecordInvoicePayment(f.ctx, RecordPaymentInput{DocumentID: doc.ID, Amount: dec("100")})
	require.NoError(t, err)
	require.NotNil(t, resp.PartnerBalance)
	assert.True(t, resp.PartnerBalance.Equal(dec("700")))
	assert.True(t, f.tillBalance(t).Equal(dec("400")))
}
