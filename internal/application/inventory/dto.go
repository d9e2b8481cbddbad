package inventory

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errInvalidUnit = shared.NewDomainError("INVALID_UNIT_TYPE", "Unit type must be small or large")

// StockLevelResponse is the current stock of one warehouse/product key
type StockLevelResponse struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	LargeUnits  decimal.Decimal `json:"large_units"`
	Factor      int64           `json:"factor"`
	AverageCost decimal.Decimal `json:"average_cost"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// StockValidationResponse is the outcome of an availability check
type StockValidationResponse struct {
	Available    bool            `json:"available"`
	CurrentStock int64           `json:"current_stock"`
	Required     int64           `json:"required"`
	DisplayStock decimal.Decimal `json:"display_stock"`
	UnitType     string          `json:"unit_type"`
	Message      string          `json:"message"`
}

// TombstoneResponse reports the state of a key after a movement was tombstoned
type TombstoneResponse struct {
	MovementID   uuid.UUID       `json:"movement_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CurrentStock int64           `json:"current_stock"`
}
