package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput is the input of PaymentService.RecordInvoicePayment
type RecordPaymentInput struct {
	DocumentID     uuid.UUID
	TreasuryID     *uuid.UUID
	Amount         decimal.Decimal
	Discount       decimal.Decimal
	PaymentDate    time.Time
	Notes          string
	PaidBy         *uuid.UUID
	IdempotencyKey string
}

// GenerateScheduleInput is the input of PaymentService.GenerateSchedule
type GenerateScheduleInput struct {
	DocumentID         uuid.UUID
	Months             int
	StartDate          time.Time
	InterestPercentage decimal.Decimal
}

// PaymentDTO represents an invoice payment in API responses
type PaymentDTO struct {
	ID                    uuid.UUID       `json:"id"`
	DocumentID            uuid.UUID       `json:"document_id"`
	PartnerID             *uuid.UUID      `json:"partner_id,omitempty"`
	TreasuryID            *uuid.UUID      `json:"treasury_id,omitempty"`
	TreasuryTransactionID *uuid.UUID      `json:"treasury_transaction_id,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Discount              decimal.Decimal `json:"discount"`
	PaymentDate           time.Time       `json:"payment_date"`
	Notes                 string          `json:"notes,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// AllocationDTO is the share of a payment applied to one installment
type AllocationDTO struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	Number        int             `json:"number"`
	Applied       decimal.Decimal `json:"applied"`
	Settled       bool            `json:"settled"`
}

// PaymentResponse is the outcome of recording a payment
type PaymentResponse struct {
	Payment         PaymentDTO       `json:"payment"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Allocations     []AllocationDTO  `json:"allocations"`
	PartnerBalance  *decimal.Decimal `json:"partner_balance,omitempty"`
	Replayed        bool             `json:"replayed"`
}

// InstallmentDTO represents an installment in API responses
type InstallmentDTO struct {
	ID               uuid.UUID       `json:"id"`
	Number           int             `json:"number"`
	Amount           decimal.Decimal `json:"amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	DueDate          time.Time       `json:"due_date"`
	Status           string          `json:"status"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	InvoicePaymentID *uuid.UUID      `json:"invoice_payment_id,omitempty"`
}

// ScheduleResponse is a document's installment schedule
type ScheduleResponse struct {
	DocumentID   uuid.UUID        `json:"document_id"`
	Total        decimal.Decimal  `json:"total"`
	Outstanding  decimal.Decimal  `json:"outstanding"`
	Installments []InstallmentDTO `json:"installments"`
}

// ToPaymentDTO converts a domain payment
func ToPaymentDTO(p *trade.InvoicePayment) PaymentDTO {
	return PaymentDTO{
		ID:                    p.ID,
		DocumentID:            p.DocumentID,
		PartnerID:             p.PartnerID,
		TreasuryID:            p.TreasuryID,
		TreasuryTransactionID: p.TreasuryTransactionID,
		Amount:                p.Amount,
		Discount:              p.Discount,
		PaymentDate:           p.PaymentDate,
		Notes:                 p.Notes,
		CreatedAt:             p.CreatedAt,
	}
}

// ToAllocationDTOs converts allocations
func ToAllocationDTOs(allocations []finance.Allocation) []AllocationDTO {
	out := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		out[i] = AllocationDTO{
			InstallmentID: a.InstallmentID,
			Number:        a.Number,
			Applied:       a.Applied,
			Settled:       a.Settled,
		}
	}
	return out
}

// ToScheduleResponse converts installments
func ToScheduleResponse(documentID uuid.UUID, installments []*finance.Installment) *ScheduleResponse {
	resp := &ScheduleResponse{
		DocumentID:   documentID,
		Total:        decimal.Zero,
		Outstanding:  decimal.Zero,
		Installments: make([]InstallmentDTO, len(installments)),
	}
	for i, inst := range installments {
		resp.Total = resp.Total.Add(inst.Amount)
		resp.Outstanding = resp.Outstanding.Add(inst.Room())
		resp.Installments[i] = InstallmentDTO{
			ID:               inst.ID,
			Number:           inst.Number,
			Amount:           inst.Amount,
			PaidAmount:       inst.PaidAmount,
			DueDate:          inst.DueDate,
			Status:           string(inst.Status),
			PaidAt:           inst.PaidAt,
			InvoicePaymentID: inst.InvoicePaymentID,
		}
	}
	return resp
}
