package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel contains the columns shared by every mutable ledger table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// referenceColumns maps a ledger reference onto nullable columns
func referenceColumns(ref shared.Reference) (*string, *uuid.UUID) {
	if ref.IsZero() {
		return nil, nil
	}
	kind := ref.Kind
	id := ref.ID
	return &kind, &id
}

func referenceFromColumns(kind *string, id *uuid.UUID) shared.Reference {
	var ref shared.Reference
	if kind != nil {
		ref.Kind = *kind
	}
	if id != nil {
		ref.ID = *id
	}
	return ref
}
