package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the costing view of a product
type ProductModel struct {
	BaseModel
	Code    string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name    string          `gorm:"type:varchar(200);not null"`
	Factor  int64           `gorm:"not null;default:1"`
	AvgCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *inventory.Product {
	return &inventory.Product{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Factor:     m.Factor,
		AvgCost:    m.AvgCost,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *inventory.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Name = p.Name
	m.Factor = p.Factor
	m.AvgCost = p.AvgCost
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *inventory.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// StockMovementModel is one row of the stock ledger
type StockMovementModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	WarehouseID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_key,priority:1"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_key,priority:2;index:idx_stock_movements_product"`
	Quantity      int64           `gorm:"not null"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Kind          string          `gorm:"type:varchar(30);not null"`
	ReferenceKind *string         `gorm:"type:varchar(30);index:idx_stock_movements_reference,priority:1"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index:idx_stock_movements_reference,priority:2"`
	Tombstoned    bool            `gorm:"not null;default:false"`
	TombstonedAt  *time.Time
	MovementDate  time.Time `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		ID:           m.ID,
		WarehouseID:  m.WarehouseID,
		ProductID:    m.ProductID,
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		Kind:         inventory.MovementKind(m.Kind),
		Reference:    referenceFromColumns(m.ReferenceKind, m.ReferenceID),
		MovementDate: m.MovementDate,
		CreatedAt:    m.CreatedAt,
		Tombstoned:   m.Tombstoned,
		TombstonedAt: m.TombstonedAt,
	}
}

// StockMovementModelFromDomain creates a persistence model from a domain StockMovement
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	kind, id := referenceColumns(s.Reference)
	return &StockMovementModel{
		ID:            s.ID,
		WarehouseID:   s.WarehouseID,
		ProductID:     s.ProductID,
		Quantity:      s.Quantity,
		UnitCost:      s.UnitCost,
		Kind:          string(s.Kind),
		ReferenceKind: kind,
		ReferenceID:   id,
		Tombstoned:    s.Tombstoned,
		TombstonedAt:  s.TombstonedAt,
		MovementDate:  s.MovementDate,
		CreatedAt:     s.CreatedAt,
	}
}

// StockKeyModel is the lock row of one (warehouse, product) balance. It holds
// no data; writers serialize on it with SELECT ... FOR UPDATE.
type StockKeyModel struct {
	WarehouseID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// TableName returns the table name for GORM
func (StockKeyModel) TableName() string {
	return "stock_keys"
}
