package report

import (
	"context"
	"time"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errInvalidRange = shared.NewDomainError("INVALID_DATE_RANGE", "The end date must not precede the start date")

// endOfTime bounds the all-time sums behind balance sheet positions
var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Service aggregates the ledgers into reports. It never writes.
type Service struct {
	scope   appshared.TransactionScope
	reports report.Repository
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new report Service
func NewService(scope appshared.TransactionScope, reports report.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scope: scope, reports: reports, logger: logger, now: time.Now}
}

// dayRange turns calendar dates [from, to] into the half-open interval
// [from 00:00, to+1 00:00)
func dayRange(from, to time.Time) (time.Time, time.Time, error) {
	from = shared.StartOfDay(from)
	to = shared.StartOfDay(to)
	if to.Before(from) {
		return time.Time{}, time.Time{}, errInvalidRange
	}
	return from, to.AddDate(0, 0, 1), nil
}

// GenerateReport builds the income statement for [from, to] and the balance
// sheet as of now. The independent sums run concurrently.
func (s *Service) GenerateReport(ctx context.Context, from, to time.Time) (*report.FinancialReport, error) {
	start, end, err := dayRange(from, to)
	if err != nil {
		return nil, err
	}
	repos := s.scope.Repositories()
	docs := repos.Documents()
	txs := repos.TreasuryTransactions()
	payments := repos.InvoicePayments()

	r := &report.FinancialReport{From: start, To: end.AddDate(0, 0, -1), GeneratedAt: s.now()}
	var (
		capitalDeposits decimal.Decimal
		positions       report.PartnerPositions
	)

	g, gctx := errgroup.WithContext(ctx)
	run := func(dst *decimal.Decimal, fn func(context.Context) (decimal.Decimal, error)) {
		g.Go(func() error {
			v, err := fn(gctx)
			if err != nil {
				return err
			}
			*dst = shared.RoundMoney(v)
			return nil
		})
	}
	abs := func(fn func(context.Context) (decimal.Decimal, error)) func(context.Context) (decimal.Decimal, error) {
		return func(ctx context.Context) (decimal.Decimal, error) {
			v, err := fn(ctx)
			return v.Abs(), err
		}
	}
	kinds := func(from, to time.Time, k ...treasury.TransactionKind) func(context.Context) (decimal.Decimal, error) {
		return func(ctx context.Context) (decimal.Decimal, error) {
			return txs.SumByKinds(ctx, k, from, to)
		}
	}
	totals := func(t trade.DocumentType) func(context.Context) (decimal.Decimal, error) {
		return func(ctx context.Context) (decimal.Decimal, error) {
			return docs.SumTotals(ctx, t, start, end)
		}
	}
	discounts := func(types ...trade.DocumentType) func(context.Context) (decimal.Decimal, error) {
		return func(ctx context.Context) (decimal.Decimal, error) {
			return payments.SumDiscounts(ctx, types, start, end)
		}
	}

	run(&r.BeginningInventory, func(ctx context.Context) (decimal.Decimal, error) {
		return s.reports.InventoryValue(ctx, &start)
	})
	run(&r.EndingInventory, func(ctx context.Context) (decimal.Decimal, error) {
		return s.reports.InventoryValue(ctx, nil)
	})
	run(&r.TotalPurchases, totals(trade.DocumentPurchaseInvoice))
	run(&r.TotalSales, totals(trade.DocumentSalesInvoice))
	run(&r.SalesReturns, totals(trade.DocumentSalesReturn))
	run(&r.PurchaseReturns, totals(trade.DocumentPurchaseReturn))
	run(&r.CostOfGoodsSold, func(ctx context.Context) (decimal.Decimal, error) {
		return docs.SumCostOfSales(ctx, start, end)
	})
	run(&r.Expenses, abs(kinds(start, end, treasury.KindExpense)))
	run(&r.Revenues, kinds(start, end, treasury.KindIncome))
	run(&r.Commissions, abs(kinds(start, end, treasury.KindCommissionPayout)))
	run(&r.DiscountAllowed, discounts(trade.DocumentSalesInvoice))
	run(&r.DiscountReceived, discounts(trade.DocumentPurchaseInvoice, trade.DocumentFixedAsset))
	run(&r.FixedAssets, func(ctx context.Context) (decimal.Decimal, error) {
		return docs.SumPostedTotals(ctx, trade.DocumentFixedAsset)
	})
	run(&capitalDeposits, kinds(time.Time{}, endOfTime, treasury.KindCapitalDeposit))
	run(&r.Drawings, abs(kinds(time.Time{}, endOfTime, treasury.KindDrawing)))
	run(&r.TotalCash, txs.SumAll)
	g.Go(func() error {
		partners, err := repos.Partners().FindAll(gctx)
		if err != nil {
			return err
		}
		positions = report.SummarizePartners(partners)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.Debtors = positions.Debtors
	r.Creditors = positions.Creditors
	r.Capital = shared.RoundMoney(positions.Capital.Add(capitalDeposits))
	r.Derive()

	if !r.IsBalanced() {
		s.logger.Info("financial report does not balance",
			zap.Time("from", r.From),
			zap.Time("to", r.To),
			zap.String("discrepancy", r.BalanceDiscrepancy.String()),
		)
	}
	return r, nil
}

// GetPartnerStatement lists the partner's documents and payments in [from, to]
// with a running balance
func (s *Service) GetPartnerStatement(ctx context.Context, partnerID uuid.UUID, from, to time.Time) (*report.PartnerStatement, error) {
	start, end, err := dayRange(from, to)
	if err != nil {
		return nil, err
	}
	repos := s.scope.Repositories()
	p, err := repos.Partners().FindByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	docs, err := repos.Documents().FindPartnerBalanceDocuments(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	payments, err := repos.InvoicePayments().FindByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return report.BuildPartnerStatement(p, docs, payments, start, end), nil
}

// GetStockCard lists a product's movements in [from, to] with a running
// stock. A nil warehouseID covers every warehouse.
func (s *Service) GetStockCard(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID, from, to time.Time) (*report.StockCard, error) {
	start, end, err := dayRange(from, to)
	if err != nil {
		return nil, err
	}
	repos := s.scope.Repositories()
	product, err := repos.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	opening, err := repos.StockMovements().SumQuantityBefore(ctx, productID, warehouseID, start)
	if err != nil {
		return nil, err
	}
	movements, err := repos.StockMovements().FindByProductBetween(ctx, productID, warehouseID, start, end)
	if err != nil {
		return nil, err
	}
	return report.BuildStockCard(product, warehouseID, opening, movements, start, end), nil
}
