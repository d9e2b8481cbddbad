package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentModel is one row of a document's payment schedule
type InstallmentModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_installments_document_number,priority:1"`
	Number           int             `gorm:"not null;uniqueIndex:ux_installments_document_number,priority:2"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DueDate          time.Time       `gorm:"not null;index"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAt           *time.Time
	PaidBy           *uuid.UUID `gorm:"type:uuid"`
	InvoicePaymentID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *finance.Installment {
	return &finance.Installment{
		ID:               m.ID,
		DocumentID:       m.DocumentID,
		Number:           m.Number,
		Amount:           m.Amount,
		DueDate:          m.DueDate,
		Status:           finance.InstallmentStatus(m.Status),
		PaidAmount:       m.PaidAmount,
		PaidAt:           m.PaidAt,
		PaidBy:           m.PaidBy,
		InvoicePaymentID: m.InvoicePaymentID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// InstallmentModelFromDomain creates a persistence model from a domain Installment
func InstallmentModelFromDomain(i *finance.Installment) *InstallmentModel {
	return &InstallmentModel{
		ID:               i.ID,
		DocumentID:       i.DocumentID,
		Number:           i.Number,
		Amount:           i.Amount,
		DueDate:          i.DueDate,
		Status:           string(i.Status),
		PaidAmount:       i.PaidAmount,
		PaidAt:           i.PaidAt,
		PaidBy:           i.PaidBy,
		InvoicePaymentID: i.InvoicePaymentID,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

// InstallmentAllocationModel is the share of one invoice payment applied to
// one installment
type InstallmentAllocationModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoicePaymentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_installment_allocations_payment,priority:1"`
	InstallmentID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_installment_allocations_payment,priority:2;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InstallmentAllocationModel) TableName() string {
	return "installment_allocations"
}
