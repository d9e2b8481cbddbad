package report

import (
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockCardLine is one movement with the running stock after it
type StockCardLine struct {
	Date          time.Time              `json:"date"`
	MovementID    uuid.UUID              `json:"movement_id"`
	WarehouseID   uuid.UUID              `json:"warehouse_id"`
	Kind          inventory.MovementKind `json:"kind"`
	ReferenceKind string                 `json:"reference_kind"`
	ReferenceID   uuid.UUID              `json:"reference_id"`
	QuantityIn    int64                  `json:"quantity_in"`
	QuantityOut   int64                  `json:"quantity_out"`
	UnitCost      decimal.Decimal        `json:"unit_cost"`
	Balance       int64                  `json:"balance"`
}

// StockCard is the running stock of a product in one warehouse, or across
// all warehouses when WarehouseID is nil
type StockCard struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	WarehouseID  *uuid.UUID      `json:"warehouse_id,omitempty"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	OpeningStock int64           `json:"opening_stock"`
	ClosingStock int64           `json:"closing_stock"`
	TotalIn      int64           `json:"total_in"`
	TotalOut     int64           `json:"total_out"`
	Lines        []StockCardLine `json:"lines"`
}

// BuildStockCard lays out in-range movements oldest first on top of the
// opening stock. Tombstoned movements are skipped.
func BuildStockCard(product *inventory.Product, warehouseID *uuid.UUID, opening int64, movements []inventory.StockMovement, from, toExclusive time.Time) *StockCard {
	sorted := make([]inventory.StockMovement, 0, len(movements))
	for _, m := range movements {
		if m.Tombstoned {
			continue
		}
		sorted = append(sorted, m)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].MovementDate.Equal(sorted[j].MovementDate) {
			return sorted[i].MovementDate.Before(sorted[j].MovementDate)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	card := &StockCard{
		ProductID:    product.ID,
		ProductCode:  product.Code,
		ProductName:  product.Name,
		WarehouseID:  warehouseID,
		From:         from,
		To:           toExclusive.AddDate(0, 0, -1),
		OpeningStock: opening,
		Lines:        make([]StockCardLine, 0, len(sorted)),
	}
	balance := opening
	for _, m := range sorted {
		balance += m.Quantity
		line := StockCardLine{
			Date:          m.MovementDate,
			MovementID:    m.ID,
			WarehouseID:   m.WarehouseID,
			Kind:          m.Kind,
			ReferenceKind: m.Reference.Kind,
			ReferenceID:   m.Reference.ID,
			UnitCost:      m.UnitCost,
			Balance:       balance,
		}
		if m.Quantity > 0 {
			line.QuantityIn = m.Quantity
			card.TotalIn += m.Quantity
		} else {
			line.QuantityOut = -m.Quantity
			card.TotalOut -= m.Quantity
		}
		card.Lines = append(card.Lines, line)
	}
	card.ClosingStock = balance
	return card
}
