package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinventory "github.com/erp/ledger/internal/application/inventory"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/interfaces/http/dto"
)

// StockService is the stock ledger surface used over HTTP
type StockService interface {
	GetCurrentStock(ctx context.Context, warehouseID, productID uuid.UUID, lock bool) (*appinventory.StockLevelResponse, error)
	GetStockValidationMessage(ctx context.Context, warehouseID, productID uuid.UUID, quantity int64, unit inventory.UnitType) (*appinventory.StockValidationResponse, error)
	UpdateProductAvgCost(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	TombstoneMovement(ctx context.Context, movementID uuid.UUID) (*appinventory.TombstoneResponse, error)
}

// StockHandler exposes stock levels and the costing repairs
type StockHandler struct {
	BaseHandler
	service StockService
}

// NewStockHandler creates a StockHandler
func NewStockHandler(service StockService) *StockHandler {
	return &StockHandler{service: service}
}

// AverageCostResponse is a recomputed product average cost
type AverageCostResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

func (h *StockHandler) stockKey(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	warehouseID, ok := h.UUIDParam(c, "warehouse_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	productID, ok := h.UUIDParam(c, "product_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return warehouseID, productID, true
}

// GetCurrentStock returns the live quantity of a warehouse/product key.
//
//	GET /stock/:warehouse_id/:product_id
func (h *StockHandler) GetCurrentStock(c *gin.Context) {
	warehouseID, productID, ok := h.stockKey(c)
	if !ok {
		return
	}
	level, err := h.service.GetCurrentStock(c.Request.Context(), warehouseID, productID, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// ValidateStock checks whether a quantity can leave the warehouse.
//
//	GET /stock/:warehouse_id/:product_id/validation?quantity=&unit_type=
func (h *StockHandler) ValidateStock(c *gin.Context) {
	warehouseID, productID, ok := h.stockKey(c)
	if !ok {
		return
	}
	var q dto.StockValidationQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.GetStockValidationMessage(c.Request.Context(), warehouseID, productID, q.Quantity, inventory.UnitType(q.UnitType))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RecomputeAverageCost rebuilds a product's weighted average cost from its
// live movements.
//
//	POST /products/:id/avg-cost/recompute
func (h *StockHandler) RecomputeAverageCost(c *gin.Context) {
	productID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	avg, err := h.service.UpdateProductAvgCost(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AverageCostResponse{ProductID: productID, AverageCost: avg})
}

// TombstoneMovement voids a movement and recomputes its product's cost.
//
//	POST /stock-movements/:id/tombstone
func (h *StockHandler) TombstoneMovement(c *gin.Context) {
	movementID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.service.TombstoneMovement(c.Request.Context(), movementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
