package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TreasuryModel is the persistence model for a cash account
type TreasuryModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(100);not null"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TreasuryModel) TableName() string {
	return "treasuries"
}

// ToDomain converts the persistence model to a domain Treasury
func (m *TreasuryModel) ToDomain() *treasury.Treasury {
	return &treasury.Treasury{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		IsActive:   m.IsActive,
	}
}

// TreasuryModelFromDomain creates a persistence model from a domain Treasury
func TreasuryModelFromDomain(t *treasury.Treasury) *TreasuryModel {
	m := &TreasuryModel{Name: t.Name, IsActive: t.IsActive}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// TreasuryTransactionModel is one row of the treasury ledger. A document or
// payment reference is unique, which makes cash effects idempotent.
type TreasuryTransactionModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TreasuryID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind          string          `gorm:"type:varchar(30);not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description   string          `gorm:"type:varchar(500)"`
	PartnerID     *uuid.UUID      `gorm:"type:uuid;index"`
	ReferenceKind *string         `gorm:"type:varchar(30)"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TreasuryTransactionModel) TableName() string {
	return "treasury_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TreasuryTransactionModel) ToDomain() *treasury.Transaction {
	return &treasury.Transaction{
		ID:           m.ID,
		TreasuryID:   m.TreasuryID,
		Kind:         treasury.TransactionKind(m.Kind),
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		Description:  m.Description,
		PartnerID:    m.PartnerID,
		Reference:    referenceFromColumns(m.ReferenceKind, m.ReferenceID),
		CreatedAt:    m.CreatedAt,
	}
}

// TreasuryTransactionModelFromDomain creates a persistence model from a domain Transaction
func TreasuryTransactionModelFromDomain(t *treasury.Transaction) *TreasuryTransactionModel {
	kind, id := referenceColumns(t.Reference)
	return &TreasuryTransactionModel{
		ID:            t.ID,
		TreasuryID:    t.TreasuryID,
		Kind:          string(t.Kind),
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Description:   t.Description,
		PartnerID:     t.PartnerID,
		ReferenceKind: kind,
		ReferenceID:   id,
		CreatedAt:     t.CreatedAt,
	}
}
