package partner

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PartnerType represents the role a partner plays towards the business
type PartnerType string

const (
	PartnerTypeCustomer    PartnerType = "customer"
	PartnerTypeSupplier    PartnerType = "supplier"
	PartnerTypeShareholder PartnerType = "shareholder"
)

// String returns the string representation of PartnerType
func (t PartnerType) String() string {
	return string(t)
}

// IsValid returns true if the partner type is valid
func (t PartnerType) IsValid() bool {
	switch t {
	case PartnerTypeCustomer, PartnerTypeSupplier, PartnerTypeShareholder:
		return true
	}
	return false
}

// Orientation is the factor that turns a business-side delta (positive when
// the partner owes the business) into the partner's natural balance: a
// receivable for customers, a payable for suppliers, owed capital for
// shareholders.
func (t PartnerType) Orientation() decimal.Decimal {
	if t == PartnerTypeCustomer {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// Partner is a customer, supplier or shareholder. CurrentBalance is a cache
// over the partner's posted credit documents and is always fully recomputed.
type Partner struct {
	shared.BaseEntity
	Name           string
	Type           PartnerType
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
}

// NewPartner creates a partner whose current balance starts at the opening balance
func NewPartner(name string, partnerType PartnerType, opening decimal.Decimal) (*Partner, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Partner name cannot be empty")
	}
	if !partnerType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PARTNER_TYPE", fmt.Sprintf("unknown partner type %q", partnerType))
	}
	opening = shared.RoundMoney(opening)
	return &Partner{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           name,
		Type:           partnerType,
		OpeningBalance: opening,
		CurrentBalance: opening,
	}, nil
}

// CalculateBalance returns opening + orientation × Σ rawDeltas. rawDeltas are
// business-side amounts; the caller must already have dropped cash-settled
// documents.
func (p *Partner) CalculateBalance(rawDeltas []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range rawDeltas {
		sum = sum.Add(d)
	}
	return shared.RoundMoney(p.OpeningBalance.Add(sum.Mul(p.Type.Orientation())))
}

// Recalculate replaces CurrentBalance and returns the new value
func (p *Partner) Recalculate(rawDeltas []decimal.Decimal) decimal.Decimal {
	p.CurrentBalance = p.CalculateBalance(rawDeltas)
	p.Touch()
	return p.CurrentBalance
}

// Receivable returns what the partner owes the business (never negative)
func (p *Partner) Receivable() decimal.Decimal {
	business := p.CurrentBalance.Mul(p.Type.Orientation())
	if business.IsPositive() {
		return business
	}
	return decimal.Zero
}

// Payable returns what the business owes the partner (never negative)
func (p *Partner) Payable() decimal.Decimal {
	business := p.CurrentBalance.Mul(p.Type.Orientation())
	if business.IsNegative() {
		return business.Neg()
	}
	return decimal.Zero
}
