package inventory

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Availability is the outcome of checking a stock key against a requirement
type Availability struct {
	WarehouseID  uuid.UUID
	ProductID    uuid.UUID
	Available    bool
	CurrentStock int64
	Required     int64
	DisplayStock decimal.Decimal
	UnitType     UnitType
}

// EvaluateAvailability decides whether required base units can be drawn from
// current. It fails closed unless allowNegative is set.
func EvaluateAvailability(product *Product, warehouseID uuid.UUID, current, required int64, unit UnitType, allowNegative bool) Availability {
	unit = unit.Normalize()
	return Availability{
		WarehouseID:  warehouseID,
		ProductID:    product.ID,
		Available:    allowNegative || required <= current,
		CurrentStock: current,
		Required:     required,
		DisplayStock: product.DisplayQuantity(current, unit),
		UnitType:     unit,
	}
}

// Err converts an unavailable result into an InsufficientResourceError
func (a Availability) Err() error {
	if a.Available {
		return nil
	}
	return shared.NewInsufficientResourceError(
		shared.ErrInsufficientStock,
		"stock",
		a.WarehouseID.String()+"/"+a.ProductID.String(),
		decimal.NewFromInt(a.CurrentStock),
		decimal.NewFromInt(a.Required),
	)
}
