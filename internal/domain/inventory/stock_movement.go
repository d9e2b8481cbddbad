package inventory

import (
	"bytes"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind classifies a stock movement
type MovementKind string

const (
	MovementPurchase       MovementKind = "purchase"
	MovementSale           MovementKind = "sale"
	MovementSaleReturn     MovementKind = "sale_return"
	MovementPurchaseReturn MovementKind = "purchase_return"
	MovementAdjustmentIn   MovementKind = "adjustment_in"
	MovementAdjustmentOut  MovementKind = "adjustment_out"
	MovementTransfer       MovementKind = "transfer"
)

// String returns the string representation of MovementKind
func (k MovementKind) String() string {
	return string(k)
}

// IsValid returns true if the movement kind is known
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementPurchase,
		MovementSale,
		MovementSaleReturn,
		MovementPurchaseReturn,
		MovementAdjustmentIn,
		MovementAdjustmentOut,
		MovementTransfer:
		return true
	}
	return false
}

// IsPurchaseType reports whether movements of this kind feed the weighted-average cost
func (k MovementKind) IsPurchaseType() bool {
	return k == MovementPurchase || k == MovementAdjustmentIn
}

// PurchaseTypeKinds lists the kinds that participate in average costing
func PurchaseTypeKinds() []MovementKind {
	return []MovementKind{MovementPurchase, MovementAdjustmentIn}
}

// ValidateSign checks that qty carries the sign the kind requires.
// Transfers are signed by direction (negative at source, positive at target).
func (k MovementKind) ValidateSign(qty int64) error {
	if qty == 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	switch k {
	case MovementPurchase, MovementSaleReturn, MovementAdjustmentIn:
		if qty < 0 {
			return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("%s movement must be positive", k))
		}
	case MovementSale, MovementPurchaseReturn, MovementAdjustmentOut:
		if qty > 0 {
			return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("%s movement must be negative", k))
		}
	case MovementTransfer:
	default:
		return shared.NewDomainError("INVALID_MOVEMENT_KIND", fmt.Sprintf("unknown movement kind %q", k))
	}
	return nil
}

// StockMovement is one immutable row of the stock ledger. Quantity is signed and
// in base units; UnitCost is per base unit. The only permitted mutation is
// tombstoning, which removes the row from every aggregate. MovementDate is the
// business date of the source document and is what period cuts use;
// CreatedAt is when the row was written.
type StockMovement struct {
	ID           uuid.UUID
	WarehouseID  uuid.UUID
	ProductID    uuid.UUID
	Quantity     int64
	UnitCost     decimal.Decimal
	Kind         MovementKind
	Reference    shared.Reference
	MovementDate time.Time
	CreatedAt    time.Time
	Tombstoned   bool
	TombstonedAt *time.Time
}

// NewStockMovement validates and creates a movement
func NewStockMovement(warehouseID, productID uuid.UUID, qty int64, unitCost decimal.Decimal, kind MovementKind, ref shared.Reference) (*StockMovement, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if err := kind.ValidateSign(qty); err != nil {
		return nil, err
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	now := time.Now()
	return &StockMovement{
		ID:           uuid.New(),
		WarehouseID:  warehouseID,
		ProductID:    productID,
		Quantity:     qty,
		UnitCost:     shared.RoundMoney(unitCost),
		Kind:         kind,
		Reference:    ref,
		MovementDate: now,
		CreatedAt:    now,
	}, nil
}

// Value returns quantity × unit cost
func (m *StockMovement) Value() decimal.Decimal {
	return shared.RoundMoney(decimal.NewFromInt(m.Quantity).Mul(m.UnitCost))
}

// Tombstone soft-deletes the movement. Tombstoning twice is an error.
func (m *StockMovement) Tombstone(at time.Time) error {
	if m.Tombstoned {
		return shared.NewStateError(shared.ErrInvalidState, "stock movement", m.ID.String(), "tombstoned")
	}
	m.Tombstoned = true
	m.TombstonedAt = &at
	return nil
}

// StockKey identifies one (warehouse, product) balance
type StockKey struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
}

// Less orders keys so that locks are always taken in the same sequence
func (k StockKey) Less(other StockKey) bool {
	if c := compareUUID(k.WarehouseID, other.WarehouseID); c != 0 {
		return c < 0
	}
	return compareUUID(k.ProductID, other.ProductID) < 0
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
