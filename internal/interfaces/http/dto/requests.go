package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IDParam binds the :id path parameter
type IDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// PostDocumentRequest is the body of POST /documents/:id/post
type PostDocumentRequest struct {
	TreasuryID *uuid.UUID `json:"treasury_id"`
}

// RecordTransactionRequest is the body of POST /treasuries/:id/transactions.
// Amount is signed: money in is positive, money out negative.
type RecordTransactionRequest struct {
	Kind          string          `json:"kind" binding:"required,oneof=income expense collection payment refund commission_payout capital_deposit drawing asset_purchase"`
	Amount        decimal.Decimal `json:"amount" binding:"decimal_ne0"`
	Description   string          `json:"description" binding:"max=500"`
	PartnerID     *uuid.UUID      `json:"partner_id"`
	ReferenceKind string          `json:"reference_kind" binding:"max=30"`
	ReferenceID   *uuid.UUID      `json:"reference_id"`
}

// RecordPaymentRequest is the body of POST /documents/:id/payments
type RecordPaymentRequest struct {
	TreasuryID  *uuid.UUID      `json:"treasury_id"`
	Amount      decimal.Decimal `json:"amount" binding:"decimal_gte0"`
	Discount    decimal.Decimal `json:"discount" binding:"decimal_gte0"`
	PaymentDate *time.Time      `json:"payment_date"`
	Notes       string          `json:"notes" binding:"max=500"`
}

// GenerateScheduleRequest is the body of POST /documents/:id/installments
type GenerateScheduleRequest struct {
	Months             int             `json:"months" binding:"required,min=1,max=120"`
	StartDate          time.Time       `json:"start_date" binding:"required"`
	InterestPercentage decimal.Decimal `json:"interest_percentage" binding:"decimal_gte0"`
}

// ApplyPaymentRequest is the body of POST /documents/:id/installments/apply
type ApplyPaymentRequest struct {
	PaymentID uuid.UUID `json:"payment_id" binding:"required"`
}

// StockKeyParams binds /stock/:warehouse_id/:product_id
type StockKeyParams struct {
	WarehouseID string `uri:"warehouse_id" binding:"required,uuid"`
	ProductID   string `uri:"product_id" binding:"required,uuid"`
}

// StockValidationQuery binds the stock validation query string
type StockValidationQuery struct {
	Quantity int64  `form:"quantity" binding:"required,min=1"`
	UnitType string `form:"unit_type" binding:"omitempty,oneof=small large"`
}

// PeriodQuery binds an inclusive from/to day range
type PeriodQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
}

// StockCardQuery binds the stock card filters
type StockCardQuery struct {
	PeriodQuery
	WarehouseID string `form:"warehouse_id" binding:"omitempty,uuid"`
}
