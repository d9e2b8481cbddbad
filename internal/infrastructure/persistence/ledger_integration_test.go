//go:build integration

package persistence_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	appinventory "github.com/erp/ledger/internal/application/inventory"
	"github.com/erp/ledger/internal/application/posting"
	apptreasury "github.com/erp/ledger/internal/application/treasury"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/pgtest"
)

type pgLedger struct {
	ctx       context.Context
	scope     *persistence.GormTransactionScope
	orch      *posting.Orchestrator
	warehouse uuid.UUID
	product   *inventory.Product
	till      *treasury.Treasury
}

func newPGLedger(t *testing.T) *pgLedger {
	t.Helper()
	scope := persistence.NewGormTransactionScope(pgtest.New(t))
	l := &pgLedger{
		ctx:       context.Background(),
		scope:     scope,
		orch:      posting.NewOrchestrator(scope, appinventory.StockLedgerOptions{}, nil, nil),
		warehouse: uuid.New(),
	}
	repos := scope.Repositories()

	var err error
	l.product, err = inventory.NewProduct("WATER-500", "Mineral water 500ml", 12)
	require.NoError(t, err)
	require.NoError(t, repos.Products().Save(l.ctx, l.product))
	l.till, err = treasury.NewTreasury("Main till")
	require.NoError(t, err)
	require.NoError(t, repos.Treasuries().Save(l.ctx, l.till))
	return l
}

func (l *pgLedger) deposit(t *testing.T, amount string) {
	t.Helper()
	_, err := apptreasury.NewService(l.scope, nil).RecordTransaction(l.ctx, apptreasury.RecordTransactionRequest{
		TreasuryID: l.till.ID,
		Kind:       string(treasury.KindCapitalDeposit),
		Amount:     decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
}

func (l *pgLedger) draft(t *testing.T, number string, docType trade.DocumentType, qty int64, unit inventory.UnitType, price string) *trade.Document {
	t.Helper()
	p := decimal.RequireFromString(price)
	total := p.Mul(decimal.NewFromInt(qty))
	doc, err := trade.NewDocument(number, docType, trade.PaymentCash, total, total, time.Now())
	require.NoError(t, err)
	doc.WarehouseID = &l.warehouse
	doc.TreasuryID = &l.till.ID
	doc.AddItem(l.product.ID, qty, unit, p)
	require.NoError(t, l.scope.Repositories().Documents().Save(l.ctx, doc))
	return doc
}

func (l *pgLedger) stock(t *testing.T) int64 {
	t.Helper()
	qty, err := l.scope.Repositories().StockMovements().SumQuantity(l.ctx, inventory.StockKey{WarehouseID: l.warehouse, ProductID: l.product.ID})
	require.NoError(t, err)
	return qty
}

func TestPostgres_ConcurrentSalesNeverOversell(t *testing.T) {
	l := newPGLedger(t)
	l.deposit(t, "1000")
	_, err := l.orch.Post(l.ctx, posting.PostCommand{DocumentID: l.draft(t, "PI-1", trade.DocumentPurchaseInvoice, 1, inventory.UnitTypeLarge, "600").ID})
	require.NoError(t, err)

	const sellers = 6
	docs := make([]*trade.Document, sellers)
	for i := range docs {
		docs[i] = l.draft(t, fmt.Sprintf("SI-%d", i), trade.DocumentSalesInvoice, 5, inventory.UnitTypeSmall, "100")
	}

	var (
		mu        sync.Mutex
		succeeded int
		short     int
	)
	var g errgroup.Group
	for _, doc := range docs {
		g.Go(func() error {
			_, err := l.orch.Post(l.ctx, posting.PostCommand{DocumentID: doc.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				short++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, sellers-2, short)
	assert.Equal(t, int64(2), l.stock(t))
}

func TestPostgres_ConcurrentWithdrawalsKeepTreasuryNonNegative(t *testing.T) {
	l := newPGLedger(t)
	l.deposit(t, "100")
	svc := apptreasury.NewService(l.scope, nil)

	var (
		mu       sync.Mutex
		accepted int
	)
	var g errgroup.Group
	for range 5 {
		g.Go(func() error {
			_, err := svc.RecordTransaction(l.ctx, apptreasury.RecordTransactionRequest{
				TreasuryID: l.till.ID,
				Kind:       string(treasury.KindExpense),
				Amount:     decimal.NewFromInt(-30),
			})
			if errors.Is(err, shared.ErrInsufficientBalance) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			accepted++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 3, accepted)
	balance, err := svc.GetBalance(l.ctx, l.till.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(10)), "balance %s", balance.Balance)
}

func TestPostgres_DocumentPostsOnce(t *testing.T) {
	l := newPGLedger(t)
	l.deposit(t, "10000")
	doc := l.draft(t, "PI-2", trade.DocumentPurchaseInvoice, 2, inventory.UnitTypeLarge, "600")

	var (
		mu     sync.Mutex
		posted int
	)
	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			_, err := l.orch.Post(l.ctx, posting.PostCommand{DocumentID: doc.ID})
			if errors.Is(err, shared.ErrInvalidState) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			posted++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, posted)
	assert.Equal(t, int64(24), l.stock(t))
	balance, err := apptreasury.NewService(l.scope, nil).GetBalance(l.ctx, l.till.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(8800)), "balance %s", balance.Balance)
}

func TestPostgres_ReferencedCashEntryIsUnique(t *testing.T) {
	l := newPGLedger(t)
	repo := l.scope.Repositories().TreasuryTransactions()
	ref := shared.NewReference("document", uuid.New())

	first, err := treasury.NewTransaction(l.till.ID, treasury.KindIncome, decimal.NewFromInt(10), decimal.Zero, "first")
	require.NoError(t, err)
	require.NoError(t, repo.Create(l.ctx, first.WithReference(ref)))

	second, err := treasury.NewTransaction(l.till.ID, treasury.KindIncome, decimal.NewFromInt(10), decimal.NewFromInt(10), "second")
	require.NoError(t, err)
	assert.Error(t, repo.Create(l.ctx, second.WithReference(ref)))
}
