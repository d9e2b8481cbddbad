package inventory

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// UnitType selects which unit a quantity or cost is expressed in
type UnitType string

const (
	// UnitTypeSmall is the base (smallest stock-keeping) unit
	UnitTypeSmall UnitType = "small"
	// UnitTypeLarge is the packaged unit, worth Factor base units
	UnitTypeLarge UnitType = "large"
)

// IsValid returns true if the unit type is known
func (u UnitType) IsValid() bool {
	return u == UnitTypeSmall || u == UnitTypeLarge
}

// Normalize maps the empty value to UnitTypeSmall
func (u UnitType) Normalize() UnitType {
	if u == "" {
		return UnitTypeSmall
	}
	return u
}

// Product is the slice of catalog data the stock ledger depends on: the
// large-unit conversion factor and the cached weighted-average unit cost.
// AvgCost is a recomputation target, never a source of truth.
type Product struct {
	shared.BaseEntity
	Code    string
	Name    string
	Factor  int64
	AvgCost decimal.Decimal
}

// NewProduct creates a product with a conversion factor of at least 1
func NewProduct(code, name string, factor int64) (*Product, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if factor < 1 {
		return nil, shared.NewDomainError("INVALID_FACTOR", "Unit factor must be at least 1")
	}
	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		Factor:     factor,
		AvgCost:    decimal.Zero,
	}, nil
}

func (p *Product) factor() int64 {
	if p.Factor < 1 {
		return 1
	}
	return p.Factor
}

// ToBaseQuantity converts qty expressed in unit into base units
func (p *Product) ToBaseQuantity(qty int64, unit UnitType) int64 {
	if unit.Normalize() == UnitTypeLarge {
		return qty * p.factor()
	}
	return qty
}

// ToBaseUnitCost converts a per-unit cost into a per-base-unit cost.
// A large-unit cost must be divided by the factor before it reaches the
// ledger, otherwise the weighted average is inflated by the factor.
func (p *Product) ToBaseUnitCost(cost decimal.Decimal, unit UnitType) decimal.Decimal {
	if unit.Normalize() == UnitTypeLarge {
		return shared.RoundMoney(cost.Div(decimal.NewFromInt(p.factor())))
	}
	return shared.RoundMoney(cost)
}

// DisplayQuantity converts a base quantity for display in unit
func (p *Product) DisplayQuantity(base int64, unit UnitType) decimal.Decimal {
	if unit.Normalize() == UnitTypeLarge {
		return shared.RoundMoney(decimal.NewFromInt(base).Div(decimal.NewFromInt(p.factor())))
	}
	return decimal.NewFromInt(base)
}

// SetAverageCost replaces the cached weighted-average cost
func (p *Product) SetAverageCost(cost decimal.Decimal) {
	p.AvgCost = shared.RoundMoney(cost)
	p.Touch()
}
