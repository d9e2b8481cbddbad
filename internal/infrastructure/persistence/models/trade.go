package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for a postable document
type DocumentModel struct {
	BaseModel
	Number            string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type              string          `gorm:"type:varchar(30);not null;index:idx_documents_type_status,priority:1"`
	Status            string          `gorm:"type:varchar(20);not null;default:'draft';index:idx_documents_type_status,priority:2"`
	PaymentMethod     string          `gorm:"type:varchar(20);not null;default:'cash'"`
	FundingMethod     string          `gorm:"type:varchar(20)"`
	WarehouseID       *uuid.UUID      `gorm:"type:uuid"`
	TargetWarehouseID *uuid.UUID      `gorm:"type:uuid"`
	PartnerID         *uuid.UUID      `gorm:"type:uuid;index"`
	TreasuryID        *uuid.UUID      `gorm:"type:uuid"`
	Total             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RemainingAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DocumentDate      time.Time       `gorm:"not null;index"`
	PostedAt          *time.Time
	Items             []DocumentItemModel `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() *trade.Document {
	doc := &trade.Document{
		BaseEntity:        m.BaseModel.ToDomain(),
		Number:            m.Number,
		Type:              trade.DocumentType(m.Type),
		Status:            trade.DocumentStatus(m.Status),
		PaymentMethod:     trade.PaymentMethod(m.PaymentMethod),
		FundingMethod:     trade.FundingMethod(m.FundingMethod),
		WarehouseID:       m.WarehouseID,
		TargetWarehouseID: m.TargetWarehouseID,
		PartnerID:         m.PartnerID,
		TreasuryID:        m.TreasuryID,
		Total:             m.Total,
		PaidAmount:        m.PaidAmount,
		RemainingAmount:   m.RemainingAmount,
		DocumentDate:      m.DocumentDate,
		PostedAt:          m.PostedAt,
		Items:             make([]trade.DocumentItem, len(m.Items)),
	}
	for i := range m.Items {
		doc.Items[i] = m.Items[i].ToDomain()
	}
	return doc
}

// FromDomain populates the persistence model from a domain Document
func (m *DocumentModel) FromDomain(d *trade.Document) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.Number = d.Number
	m.Type = string(d.Type)
	m.Status = string(d.Status)
	m.PaymentMethod = string(d.PaymentMethod)
	m.FundingMethod = string(d.FundingMethod)
	m.WarehouseID = d.WarehouseID
	m.TargetWarehouseID = d.TargetWarehouseID
	m.PartnerID = d.PartnerID
	m.TreasuryID = d.TreasuryID
	m.Total = d.Total
	m.PaidAmount = d.PaidAmount
	m.RemainingAmount = d.RemainingAmount
	m.DocumentDate = d.DocumentDate
	m.PostedAt = d.PostedAt
	m.Items = make([]DocumentItemModel, len(d.Items))
	for i := range d.Items {
		m.Items[i] = *DocumentItemModelFromDomain(d.ID, &d.Items[i])
	}
}

// DocumentModelFromDomain creates a persistence model from a domain Document
func DocumentModelFromDomain(d *trade.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// DocumentItemModel is one document line with its posting snapshots
type DocumentItemModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity     int64           `gorm:"not null"`
	UnitType     string          `gorm:"type:varchar(10);not null;default:'small'"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BaseQuantity int64           `gorm:"not null;default:0"`
	CostAtTime   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentItemModel) TableName() string {
	return "document_items"
}

// ToDomain converts the persistence model to a domain DocumentItem
func (m *DocumentItemModel) ToDomain() trade.DocumentItem {
	return trade.DocumentItem{
		ID:           m.ID,
		ProductID:    m.ProductID,
		Quantity:     m.Quantity,
		UnitType:     inventory.UnitType(m.UnitType),
		UnitPrice:    m.UnitPrice,
		BaseQuantity: m.BaseQuantity,
		CostAtTime:   m.CostAtTime,
	}
}

// DocumentItemModelFromDomain creates a persistence model from a domain DocumentItem
func DocumentItemModelFromDomain(documentID uuid.UUID, item *trade.DocumentItem) *DocumentItemModel {
	return &DocumentItemModel{
		ID:           item.ID,
		DocumentID:   documentID,
		ProductID:    item.ProductID,
		Quantity:     item.Quantity,
		UnitType:     string(item.UnitType.Normalize()),
		UnitPrice:    item.UnitPrice,
		BaseQuantity: item.BaseQuantity,
		CostAtTime:   item.CostAtTime,
	}
}

// InvoicePaymentModel is one settlement against a posted document
type InvoicePaymentModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartnerID             *uuid.UUID      `gorm:"type:uuid;index"`
	TreasuryID            *uuid.UUID      `gorm:"type:uuid"`
	TreasuryTransactionID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	Amount                decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Discount              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentDate           time.Time       `gorm:"not null;index"`
	Notes                 string          `gorm:"type:varchar(500)"`
	PaidBy                *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt             time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoicePaymentModel) TableName() string {
	return "invoice_payments"
}

// ToDomain converts the persistence model to a domain InvoicePayment
func (m *InvoicePaymentModel) ToDomain() *trade.InvoicePayment {
	return &trade.InvoicePayment{
		ID:                    m.ID,
		DocumentID:            m.DocumentID,
		PartnerID:             m.PartnerID,
		TreasuryID:            m.TreasuryID,
		TreasuryTransactionID: m.TreasuryTransactionID,
		Amount:                m.Amount,
		Discount:              m.Discount,
		PaymentDate:           m.PaymentDate,
		Notes:                 m.Notes,
		PaidBy:                m.PaidBy,
		CreatedAt:             m.CreatedAt,
	}
}

// InvoicePaymentModelFromDomain creates a persistence model from a domain InvoicePayment
func InvoicePaymentModelFromDomain(p *trade.InvoicePayment) *InvoicePaymentModel {
	return &InvoicePaymentModel{
		ID:                    p.ID,
		DocumentID:            p.DocumentID,
		PartnerID:             p.PartnerID,
		TreasuryID:            p.TreasuryID,
		TreasuryTransactionID: p.TreasuryTransactionID,
		Amount:                p.Amount,
		Discount:              p.Discount,
		PaymentDate:           p.PaymentDate,
		Notes:                 p.Notes,
		PaidBy:                p.PaidBy,
		CreatedAt:             p.CreatedAt,
	}
}
