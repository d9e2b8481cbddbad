package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apppartner "github.com/erp/ledger/internal/application/partner"
)

// PartnerBalanceService recomputes partner balances
type PartnerBalanceService interface {
	UpdatePartnerBalance(ctx context.Context, partnerID uuid.UUID) (*apppartner.BalanceResponse, error)
	RecalculateAll(ctx context.Context) (*apppartner.RecalculateAllResult, error)
}

// PartnerHandler exposes the partner balance repairs
type PartnerHandler struct {
	BaseHandler
	service PartnerBalanceService
}

// NewPartnerHandler creates a PartnerHandler
func NewPartnerHandler(service PartnerBalanceService) *PartnerHandler {
	return &PartnerHandler{service: service}
}

// RecomputeBalance rebuilds one partner's balance from its documents.
//
//	POST /partners/:id/balance/recompute
func (h *PartnerHandler) RecomputeBalance(c *gin.Context) {
	partnerID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	balance, err := h.service.UpdatePartnerBalance(c.Request.Context(), partnerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// RecomputeAll rebuilds every partner's balance.
//
//	POST /partners/balance/recompute
func (h *PartnerHandler) RecomputeAll(c *gin.Context) {
	result, err := h.service.RecalculateAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
