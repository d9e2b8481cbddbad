package models

import (
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// PartnerModel is the persistence model for customers, suppliers and shareholders
type PartnerModel struct {
	BaseModel
	Name           string          `gorm:"type:varchar(200);not null"`
	Type           string          `gorm:"type:varchar(20);not null;index"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}

// ToDomain converts the persistence model to a domain Partner
func (m *PartnerModel) ToDomain() *partner.Partner {
	return &partner.Partner{
		BaseEntity:     m.BaseModel.ToDomain(),
		Name:           m.Name,
		Type:           partner.PartnerType(m.Type),
		OpeningBalance: m.OpeningBalance,
		CurrentBalance: m.CurrentBalance,
	}
}

// PartnerModelFromDomain creates a persistence model from a domain Partner
func PartnerModelFromDomain(p *partner.Partner) *PartnerModel {
	m := &PartnerModel{
		Name:           p.Name,
		Type:           string(p.Type),
		OpeningBalance: p.OpeningBalance,
		CurrentBalance: p.CurrentBalance,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
