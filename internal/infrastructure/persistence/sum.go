package persistence

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// sumDecimal evaluates a single SUM expression and rounds it to money scale.
// An empty set sums to zero. args bind placeholders in expr.
func sumDecimal(query *gorm.DB, expr string, args ...any) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := query.Select(expr, args...).Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return shared.RoundMoney(total.Decimal), nil
}
