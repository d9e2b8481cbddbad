package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLedgerOptions tunes availability checks
type StockLedgerOptions struct {
	// AllowNegativeStock lets consuming movements drive a key below zero
	AllowNegativeStock bool
}

// PostMovementInput describes one movement in the unit the caller works in.
// Quantity is signed; UnitCost is per UnitType.
type PostMovementInput struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    int64
	UnitType    inventory.UnitType
	UnitCost    decimal.Decimal
	Kind        inventory.MovementKind
	Reference   shared.Reference
	// Date is the business date of the movement. Zero means now.
	Date time.Time
}

// StockLedger owns the stock movement log. It is bound to one set of
// repositories, normally those of an open unit of work, and never opens
// transactions on its own.
type StockLedger struct {
	products  inventory.ProductRepository
	movements inventory.StockMovementRepository
	opts      StockLedgerOptions
}

// NewStockLedger creates a StockLedger over repos
func NewStockLedger(repos appshared.TransactionalRepositories, opts StockLedgerOptions) *StockLedger {
	return &StockLedger{
		products:  repos.Products(),
		movements: repos.StockMovements(),
		opts:      opts,
	}
}

// CurrentStock sums the non-tombstoned movements of the key. With lock set,
// the key's lock row is taken first so the figure stays valid until the
// enclosing transaction ends.
func (l *StockLedger) CurrentStock(ctx context.Context, warehouseID, productID uuid.UUID, lock bool) (int64, error) {
	key := inventory.StockKey{WarehouseID: warehouseID, ProductID: productID}
	if lock {
		if err := l.movements.LockKey(ctx, key); err != nil {
			return 0, fmt.Errorf("lock stock key: %w", err)
		}
	}
	qty, err := l.movements.SumQuantity(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("sum stock: %w", err)
	}
	return qty, nil
}

// LockKeys locks every distinct key in a fixed order
func (l *StockLedger) LockKeys(ctx context.Context, keys []inventory.StockKey) error {
	seen := make(map[inventory.StockKey]struct{}, len(keys))
	distinct := make([]inventory.StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		distinct = append(distinct, k)
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Less(distinct[j]) })
	for _, k := range distinct {
		if err := l.movements.LockKey(ctx, k); err != nil {
			return fmt.Errorf("lock stock key %s/%s: %w", k.WarehouseID, k.ProductID, err)
		}
	}
	return nil
}

// PostMovement converts the input to base units and appends exactly one row
func (l *StockLedger) PostMovement(ctx context.Context, in PostMovementInput) (*inventory.StockMovement, error) {
	product, err := l.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	baseQty := product.ToBaseQuantity(in.Quantity, in.UnitType)
	baseCost := product.ToBaseUnitCost(in.UnitCost, in.UnitType)

	movement, err := inventory.NewStockMovement(in.WarehouseID, in.ProductID, baseQty, baseCost, in.Kind, in.Reference)
	if err != nil {
		return nil, err
	}
	if !in.Date.IsZero() {
		movement.MovementDate = in.Date
	}
	if err := l.movements.Create(ctx, movement); err != nil {
		return nil, fmt.Errorf("create stock movement: %w", err)
	}
	return movement, nil
}

// ValidateAvailability checks requiredBase base units against the locked
// current stock of the key
func (l *StockLedger) ValidateAvailability(ctx context.Context, warehouseID, productID uuid.UUID, requiredBase int64, unit inventory.UnitType) (inventory.Availability, error) {
	product, err := l.products.FindByID(ctx, productID)
	if err != nil {
		return inventory.Availability{}, err
	}
	current, err := l.CurrentStock(ctx, warehouseID, productID, true)
	if err != nil {
		return inventory.Availability{}, err
	}
	return inventory.EvaluateAvailability(product, warehouseID, current, requiredBase, unit, l.opts.AllowNegativeStock), nil
}

// RequireAvailability is ValidateAvailability turned into an error
func (l *StockLedger) RequireAvailability(ctx context.Context, warehouseID, productID uuid.UUID, requiredBase int64) error {
	availability, err := l.ValidateAvailability(ctx, warehouseID, productID, requiredBase, inventory.UnitTypeSmall)
	if err != nil {
		return err
	}
	return availability.Err()
}

// RecomputeAverageCost rebuilds the product's cached weighted-average cost
// from its purchase-type movements. When no purchase quantity is left the
// cached value is kept and returned.
func (l *StockLedger) RecomputeAverageCost(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	product, err := l.products.FindByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	movements, err := l.movements.FindCostingMovements(ctx, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load costing movements: %w", err)
	}
	avg, ok := inventory.WeightedAverageCost(movements)
	if !ok {
		return product.AvgCost, nil
	}
	if err := l.products.UpdateAverageCost(ctx, productID, avg); err != nil {
		return decimal.Zero, fmt.Errorf("update average cost: %w", err)
	}
	return avg, nil
}
