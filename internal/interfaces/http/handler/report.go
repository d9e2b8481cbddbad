package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/interfaces/http/dto"
)

// ReportService builds the read-only ledger reports
type ReportService interface {
	GenerateReport(ctx context.Context, from, to time.Time) (*report.FinancialReport, error)
	GetPartnerStatement(ctx context.Context, partnerID uuid.UUID, from, to time.Time) (*report.PartnerStatement, error)
	GetStockCard(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID, from, to time.Time) (*report.StockCard, error)
}

// ReportHandler exposes the financial report, partner statements and
// stock cards. Dates are calendar days and both ends are inclusive.
type ReportHandler struct {
	BaseHandler
	service ReportService
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(service ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// GetFinancialReport returns the income statement and balance sheet.
//
//	GET /reports/financial?from=&to=
func (h *ReportHandler) GetFinancialReport(c *gin.Context) {
	var q dto.PeriodQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.GenerateReport(c.Request.Context(), q.From, q.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetPartnerStatement returns a partner's documents and payments with a
// running balance.
//
//	GET /reports/partners/:id/statement?from=&to=
func (h *ReportHandler) GetPartnerStatement(c *gin.Context) {
	partnerID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var q dto.PeriodQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.GetPartnerStatement(c.Request.Context(), partnerID, q.From, q.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetStockCard returns a product's movements with a running quantity,
// optionally for a single warehouse.
//
//	GET /reports/stock-card/:product_id?warehouse_id=&from=&to=
func (h *ReportHandler) GetStockCard(c *gin.Context) {
	productID, ok := h.UUIDParam(c, "product_id")
	if !ok {
		return
	}
	var q dto.StockCardQuery
	if !h.BindQuery(c, &q) {
		return
	}
	var warehouseID *uuid.UUID
	if q.WarehouseID != "" {
		id := uuid.MustParse(q.WarehouseID)
		warehouseID = &id
	}
	result, err := h.service.GetStockCard(c.Request.Context(), productID, warehouseID, q.From, q.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
