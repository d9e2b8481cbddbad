package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRepository reads products and maintains their cached average cost
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	FindAll(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, product *Product) error
	UpdateAverageCost(ctx context.Context, id uuid.UUID, avgCost decimal.Decimal) error
}

// StockMovementRepository is the persistence port of the stock ledger.
// Rows are insert-only; Tombstone is the single permitted update.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)
	// LockKey blocks other writers of the key until the enclosing transaction ends
	LockKey(ctx context.Context, key StockKey) error
	SumQuantity(ctx context.Context, key StockKey) (int64, error)
	// SumQuantityBefore sums non-tombstoned movements dated before t.
	// A nil warehouseID sums across all warehouses.
	SumQuantityBefore(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID, t time.Time) (int64, error)
	FindCostingMovements(ctx context.Context, productID uuid.UUID) ([]StockMovement, error)
	FindByProductBetween(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID, from, to time.Time) ([]StockMovement, error)
	FindByReference(ctx context.Context, kind string, id uuid.UUID) ([]StockMovement, error)
	Tombstone(ctx context.Context, movement *StockMovement) error
}
