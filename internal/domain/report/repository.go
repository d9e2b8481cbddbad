package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository holds the read-side queries that span several ledgers
type Repository interface {
	// InventoryValue returns Σ stock × avg_cost over all products, counting
	// only movements dated before asOf. A nil asOf values current stock.
	InventoryValue(ctx context.Context, asOf *time.Time) (decimal.Decimal, error)
}
