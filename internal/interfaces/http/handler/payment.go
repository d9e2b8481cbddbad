package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
)

// PaymentService records invoice payments and manages installment schedules
type PaymentService interface {
	RecordInvoicePayment(ctx context.Context, in appfinance.RecordPaymentInput) (*appfinance.PaymentResponse, error)
	GenerateSchedule(ctx context.Context, in appfinance.GenerateScheduleInput) (*appfinance.ScheduleResponse, error)
	GetSchedule(ctx context.Context, documentID uuid.UUID) (*appfinance.ScheduleResponse, error)
	ApplyPaymentToInstallments(ctx context.Context, documentID, paymentID uuid.UUID) ([]appfinance.AllocationDTO, error)
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
}

// PaymentHandler exposes invoice payments and installments
type PaymentHandler struct {
	BaseHandler
	service PaymentService
	now     func() time.Time
}

// NewPaymentHandler creates a PaymentHandler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service, now: time.Now}
}

// SweepResponse reports an overdue sweep
type SweepResponse struct {
	Marked int64     `json:"marked"`
	AsOf   time.Time `json:"as_of"`
}

// RecordPayment settles part of a posted document. A repeated
// Idempotency-Key replays the first payment instead of paying twice.
//
//	POST /documents/:id/payments
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	documentID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in := appfinance.RecordPaymentInput{
		DocumentID:     documentID,
		TreasuryID:     req.TreasuryID,
		Amount:         req.Amount,
		Discount:       req.Discount,
		Notes:          req.Notes,
		PaidBy:         middleware.ActorID(c),
		IdempotencyKey: middleware.GetIdempotencyKey(c),
	}
	if req.PaymentDate != nil {
		in.PaymentDate = *req.PaymentDate
	}

	resp, err := h.service.RecordInvoicePayment(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if resp.Replayed {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// GenerateSchedule splits the remaining amount of a posted credit document
// into monthly installments.
//
//	POST /documents/:id/installments
func (h *PaymentHandler) GenerateSchedule(c *gin.Context) {
	documentID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.GenerateScheduleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	schedule, err := h.service.GenerateSchedule(c.Request.Context(), appfinance.GenerateScheduleInput{
		DocumentID:         documentID,
		Months:             req.Months,
		StartDate:          req.StartDate,
		InterestPercentage: req.InterestPercentage,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, schedule)
}

// GetSchedule returns a document's installments.
//
//	GET /documents/:id/installments
func (h *PaymentHandler) GetSchedule(c *gin.Context) {
	documentID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	schedule, err := h.service.GetSchedule(c.Request.Context(), documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, schedule)
}

// ApplyPayment allocates a payment recorded before the schedule existed.
//
//	POST /documents/:id/installments/apply
func (h *PaymentHandler) ApplyPayment(c *gin.Context) {
	documentID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ApplyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	allocations, err := h.service.ApplyPaymentToInstallments(c.Request.Context(), documentID, req.PaymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, allocations)
}

// SweepOverdue marks pending installments past due as overdue.
//
//	POST /installments/overdue-sweep
func (h *PaymentHandler) SweepOverdue(c *gin.Context) {
	now := h.now()
	marked, err := h.service.SweepOverdue(c.Request.Context(), now)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SweepResponse{Marked: marked, AsOf: now})
}
