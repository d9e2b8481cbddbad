package treasury

import (
	"time"

	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordTransactionRequest is the input of Service.RecordTransaction
type RecordTransactionRequest struct {
	TreasuryID    uuid.UUID
	Kind          string
	Amount        decimal.Decimal
	Description   string
	PartnerID     *uuid.UUID
	ReferenceKind string
	ReferenceID   *uuid.UUID
}

// TransactionResponse represents a treasury transaction in API responses
type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	TreasuryID    uuid.UUID       `json:"treasury_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description,omitempty"`
	PartnerID     *uuid.UUID      `json:"partner_id,omitempty"`
	ReferenceKind string          `json:"reference_kind,omitempty"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BalanceResponse is the current balance of a treasury
type BalanceResponse struct {
	TreasuryID uuid.UUID       `json:"treasury_id"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
}

// ToTransactionResponse converts a domain transaction
func ToTransactionResponse(tx *treasury.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:           tx.ID,
		TreasuryID:   tx.TreasuryID,
		Kind:         string(tx.Kind),
		Amount:       tx.Amount,
		BalanceAfter: tx.BalanceAfter,
		Description:  tx.Description,
		PartnerID:    tx.PartnerID,
		CreatedAt:    tx.CreatedAt,
	}
	if !tx.Reference.IsZero() {
		id := tx.Reference.ID
		resp.ReferenceKind = tx.Reference.Kind
		resp.ReferenceID = &id
	}
	return resp
}
