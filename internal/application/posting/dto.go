package posting

import (
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostCommand asks the orchestrator to post a document of any type
type PostCommand struct {
	DocumentID uuid.UUID
	// TreasuryID overrides the document's treasury for the cash effect
	TreasuryID *uuid.UUID
}

// MovementDTO is a stock movement written by a posting
type MovementDTO struct {
	ID          uuid.UUID       `json:"id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Kind        string          `json:"kind"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// CashDTO is the treasury transaction written by a posting
type CashDTO struct {
	ID           uuid.UUID       `json:"id"`
	TreasuryID   uuid.UUID       `json:"treasury_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// Result describes everything a posting changed
type Result struct {
	DocumentID     uuid.UUID        `json:"document_id"`
	Number         string           `json:"number"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	PostedAt       time.Time        `json:"posted_at"`
	Movements      []MovementDTO    `json:"movements"`
	Cash           *CashDTO         `json:"cash,omitempty"`
	PartnerBalance *decimal.Decimal `json:"partner_balance,omitempty"`
}

func toMovementDTO(m *inventory.StockMovement) MovementDTO {
	return MovementDTO{
		ID:          m.ID,
		WarehouseID: m.WarehouseID,
		ProductID:   m.ProductID,
		Kind:        string(m.Kind),
		Quantity:    m.Quantity,
		UnitCost:    m.UnitCost,
	}
}

func toCashDTO(tx *treasury.Transaction) *CashDTO {
	if tx == nil {
		return nil
	}
	return &CashDTO{
		ID:           tx.ID,
		TreasuryID:   tx.TreasuryID,
		Kind:         string(tx.Kind),
		Amount:       tx.Amount,
		BalanceAfter: tx.BalanceAfter,
	}
}
