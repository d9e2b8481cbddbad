package inventory

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WeightedAverageCost computes Σ(qty × cost) / Σ(qty) over the purchase-type
// movements in movements. Tombstoned rows, zero quantities and every other
// kind are skipped. ok is false when no purchase quantity remains, in which
// case the caller keeps its cached value.
func WeightedAverageCost(movements []StockMovement) (avg decimal.Decimal, ok bool) {
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, m := range movements {
		if m.Tombstoned || m.Quantity == 0 || !m.Kind.IsPurchaseType() {
			continue
		}
		qty := decimal.NewFromInt(m.Quantity)
		totalQty = totalQty.Add(qty)
		totalValue = totalValue.Add(qty.Mul(m.UnitCost))
	}
	if totalQty.IsZero() {
		return decimal.Zero, false
	}
	return shared.RoundMoney(totalValue.Div(totalQty)), true
}
