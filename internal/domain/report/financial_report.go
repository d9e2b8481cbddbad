package report

import (
	"time"

	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FinancialReport is the read model combining the income statement and the
// balance sheet. Flow figures are scoped to [From, To]; position figures
// (ending inventory, fixed assets, debtors, creditors, capital, cash) reflect
// the ledgers as of generation time.
type FinancialReport struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	GeneratedAt time.Time `json:"generated_at"`

	BeginningInventory decimal.Decimal `json:"beginning_inventory"`
	EndingInventory    decimal.Decimal `json:"ending_inventory"`
	TotalPurchases     decimal.Decimal `json:"total_purchases"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	SalesReturns       decimal.Decimal `json:"sales_returns"`
	PurchaseReturns    decimal.Decimal `json:"purchase_returns"`
	CostOfGoodsSold    decimal.Decimal `json:"cost_of_goods_sold"`
	Expenses           decimal.Decimal `json:"expenses"`
	Revenues           decimal.Decimal `json:"revenues"`
	Commissions        decimal.Decimal `json:"commissions"`
	DiscountAllowed    decimal.Decimal `json:"discount_allowed"`
	DiscountReceived   decimal.Decimal `json:"discount_received"`
	FixedAssets        decimal.Decimal `json:"fixed_assets"`
	Debtors            decimal.Decimal `json:"debtors"`
	Creditors          decimal.Decimal `json:"creditors"`
	Capital            decimal.Decimal `json:"capital"`
	Drawings           decimal.Decimal `json:"drawings"`
	TotalCash          decimal.Decimal `json:"total_cash"`

	NetSales          decimal.Decimal `json:"net_sales"`          // TotalSales - SalesReturns
	GrossProfit       decimal.Decimal `json:"gross_profit"`       // NetSales - COGS
	OperatingExpenses decimal.Decimal `json:"operating_expenses"` // Expenses + Commissions + DiscountAllowed
	NetProfit         decimal.Decimal `json:"net_profit"`
	TotalAssets       decimal.Decimal `json:"total_assets"`
	Liabilities       decimal.Decimal `json:"liabilities"`
	Equity            decimal.Decimal `json:"equity"`

	// BalanceDiscrepancy is TotalAssets - (Liabilities + Equity). It is
	// reported, never forced to zero.
	BalanceDiscrepancy decimal.Decimal `json:"balance_discrepancy"`
}

// Derive fills the computed lines from the aggregated ones
func (r *FinancialReport) Derive() {
	r.NetSales = shared.RoundMoney(r.TotalSales.Sub(r.SalesReturns))
	r.GrossProfit = shared.RoundMoney(r.NetSales.Sub(r.CostOfGoodsSold))
	r.OperatingExpenses = shared.RoundMoney(r.Expenses.Add(r.Commissions).Add(r.DiscountAllowed))
	r.NetProfit = shared.RoundMoney(r.GrossProfit.Sub(r.OperatingExpenses).Add(r.Revenues).Add(r.DiscountReceived))
	r.TotalAssets = shared.RoundMoney(r.FixedAssets.Add(r.EndingInventory).Add(r.Debtors).Add(r.TotalCash))
	r.Liabilities = r.Creditors
	r.Equity = shared.RoundMoney(r.Capital.Add(r.NetProfit).Sub(r.Drawings))
	r.BalanceDiscrepancy = shared.RoundMoney(r.TotalAssets.Sub(r.Liabilities.Add(r.Equity)))
}

// IsBalanced reports whether assets equal liabilities plus equity
func (r *FinancialReport) IsBalanced() bool {
	return r.BalanceDiscrepancy.IsZero()
}

// PartnerPositions splits partner balances into balance sheet lines
type PartnerPositions struct {
	Debtors   decimal.Decimal
	Creditors decimal.Decimal
	// Capital is the capital owed to shareholders through equity-funded postings
	Capital decimal.Decimal
}

// SummarizePartners classifies every partner's cached balance. Customers and
// suppliers land in debtors or creditors by the sign of what they owe;
// shareholder balances are capital.
func SummarizePartners(partners []partner.Partner) PartnerPositions {
	pos := PartnerPositions{
		Debtors:   decimal.Zero,
		Creditors: decimal.Zero,
		Capital:   decimal.Zero,
	}
	for i := range partners {
		p := &partners[i]
		if p.Type == partner.PartnerTypeShareholder {
			pos.Capital = pos.Capital.Add(p.CurrentBalance)
			continue
		}
		pos.Debtors = pos.Debtors.Add(p.Receivable())
		pos.Creditors = pos.Creditors.Add(p.Payable())
	}
	pos.Debtors = shared.RoundMoney(pos.Debtors)
	pos.Creditors = shared.RoundMoney(pos.Creditors)
	pos.Capital = shared.RoundMoney(pos.Capital)
	return pos
}
