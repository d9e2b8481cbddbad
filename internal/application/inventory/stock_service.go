package inventory

import (
	"context"
	"fmt"
	"time"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// StockService exposes the stock ledger to callers that do not hold a unit
// of work. Every method opens its own.
type StockService struct {
	scope   appshared.TransactionScope
	opts    StockLedgerOptions
	logger  *zap.Logger
	printer *message.Printer
}

// NewStockService creates a new StockService
func NewStockService(scope appshared.TransactionScope, opts StockLedgerOptions, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{
		scope:   scope,
		opts:    opts,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

// SetLanguage switches the language validation messages are formatted in
func (s *StockService) SetLanguage(tag language.Tag) {
	s.printer = message.NewPrinter(tag)
}

// GetCurrentStock returns the stock of a key. lock only matters to callers
// that compose it into a longer unit of work; here the lock is released on
// return.
func (s *StockService) GetCurrentStock(ctx context.Context, warehouseID, productID uuid.UUID, lock bool) (*StockLevelResponse, error) {
	var resp *StockLevelResponse
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		product, err := repos.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		qty, err := NewStockLedger(repos, s.opts).CurrentStock(ctx, warehouseID, productID, lock)
		if err != nil {
			return err
		}
		resp = &StockLevelResponse{
			WarehouseID: warehouseID,
			ProductID:   productID,
			Quantity:    qty,
			LargeUnits:  product.DisplayQuantity(qty, inventory.UnitTypeLarge),
			Factor:      product.Factor,
			AverageCost: product.AvgCost,
			TotalValue:  shared.RoundMoney(decimal.NewFromInt(qty).Mul(product.AvgCost)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetStockValidationMessage checks quantity (in unit) against the key and
// describes the outcome in words
func (s *StockService) GetStockValidationMessage(ctx context.Context, warehouseID, productID uuid.UUID, quantity int64, unit inventory.UnitType) (*StockValidationResponse, error) {
	unit = unit.Normalize()
	if !unit.IsValid() {
		return nil, errInvalidUnit
	}
	var resp *StockValidationResponse
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		product, err := repos.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		required := product.ToBaseQuantity(quantity, unit)
		availability, err := NewStockLedger(repos, s.opts).ValidateAvailability(ctx, warehouseID, productID, required, unit)
		if err != nil {
			return err
		}
		resp = &StockValidationResponse{
			Available:    availability.Available,
			CurrentStock: availability.CurrentStock,
			Required:     availability.Required,
			DisplayStock: availability.DisplayStock,
			UnitType:     string(unit),
			Message:      s.describe(product, availability, quantity),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *StockService) describe(product *inventory.Product, a inventory.Availability, requested int64) string {
	display := number.Decimal(a.DisplayStock.InexactFloat64(), number.MaxFractionDigits(4))
	if a.Available {
		return s.printer.Sprintf("%s: %v %s units available (%d base units)",
			product.Name, display, a.UnitType, a.CurrentStock)
	}
	return s.printer.Sprintf("%s: insufficient stock, requested %d %s units (%d base units) but only %v are available (%d base units)",
		product.Name, requested, a.UnitType, a.Required, display, a.CurrentStock)
}

// UpdateProductAvgCost recomputes and stores the product's average cost
func (s *StockService) UpdateProductAvgCost(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		avg, err = NewStockLedger(repos, s.opts).RecomputeAverageCost(ctx, productID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	s.logger.Info("average cost recomputed",
		zap.String("product_id", productID.String()),
		zap.String("avg_cost", avg.String()),
	)
	return avg, nil
}

// TombstoneMovement removes a movement from every aggregate and recomputes
// the average cost of its product. It is a repair operation; postings never
// call it.
func (s *StockService) TombstoneMovement(ctx context.Context, movementID uuid.UUID) (*TombstoneResponse, error) {
	var resp *TombstoneResponse
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		movements := repos.StockMovements()
		movement, err := movements.FindByID(ctx, movementID)
		if err != nil {
			return err
		}
		ledger := NewStockLedger(repos, s.opts)
		if err := ledger.LockKeys(ctx, []inventory.StockKey{{WarehouseID: movement.WarehouseID, ProductID: movement.ProductID}}); err != nil {
			return err
		}
		if err := movement.Tombstone(time.Now()); err != nil {
			return err
		}
		if err := movements.Tombstone(ctx, movement); err != nil {
			return fmt.Errorf("tombstone movement: %w", err)
		}
		avg, err := ledger.RecomputeAverageCost(ctx, movement.ProductID)
		if err != nil {
			return err
		}
		stock, err := ledger.CurrentStock(ctx, movement.WarehouseID, movement.ProductID, false)
		if err != nil {
			return err
		}
		resp = &TombstoneResponse{
			MovementID:   movement.ID,
			ProductID:    movement.ProductID,
			WarehouseID:  movement.WarehouseID,
			AverageCost:  avg,
			CurrentStock: stock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn("stock movement tombstoned",
		zap.String("movement_id", movementID.String()),
		zap.String("product_id", resp.ProductID.String()),
		zap.Int64("current_stock", resp.CurrentStock),
	)
	return resp, nil
}
