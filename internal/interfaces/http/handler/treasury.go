package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apptreasury "github.com/erp/ledger/internal/application/treasury"
	"github.com/erp/ledger/internal/interfaces/http/dto"
)

// TreasuryService is the treasury ledger surface used over HTTP
type TreasuryService interface {
	RecordTransaction(ctx context.Context, req apptreasury.RecordTransactionRequest) (*apptreasury.TransactionResponse, error)
	GetBalance(ctx context.Context, treasuryID uuid.UUID) (*apptreasury.BalanceResponse, error)
	ListTransactions(ctx context.Context, treasuryID uuid.UUID, limit int) ([]apptreasury.TransactionResponse, error)
}

// TreasuryHandler exposes treasury balances and manual cash entries
type TreasuryHandler struct {
	BaseHandler
	service TreasuryService
}

// NewTreasuryHandler creates a TreasuryHandler
func NewTreasuryHandler(service TreasuryService) *TreasuryHandler {
	return &TreasuryHandler{service: service}
}

// RecordTransaction appends a manual entry such as an expense or a capital
// deposit.
//
//	POST /treasuries/:id/transactions
func (h *TreasuryHandler) RecordTransaction(c *gin.Context) {
	treasuryID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RecordTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tx, err := h.service.RecordTransaction(c.Request.Context(), apptreasury.RecordTransactionRequest{
		TreasuryID:    treasuryID,
		Kind:          req.Kind,
		Amount:        req.Amount,
		Description:   req.Description,
		PartnerID:     req.PartnerID,
		ReferenceKind: req.ReferenceKind,
		ReferenceID:   req.ReferenceID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tx)
}

// GetBalance returns the derived balance of a treasury.
//
//	GET /treasuries/:id/balance
func (h *TreasuryHandler) GetBalance(c *gin.Context) {
	treasuryID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	balance, err := h.service.GetBalance(c.Request.Context(), treasuryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// ListTransactions returns the newest entries of a treasury.
//
//	GET /treasuries/:id/transactions?limit=
func (h *TreasuryHandler) ListTransactions(c *gin.Context) {
	treasuryID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			h.BadRequest(c, dto.ErrCodeValidation, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	txs, err := h.service.ListTransactions(c.Request.Context(), treasuryID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txs)
}
