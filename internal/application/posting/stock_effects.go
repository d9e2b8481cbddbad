package posting

import (
	"context"
	"fmt"

	appinventory "github.com/erp/ledger/internal/application/inventory"
	apppartner "github.com/erp/ledger/internal/application/partner"
	appshared "github.com/erp/ledger/internal/application/shared"
	apptreasury "github.com/erp/ledger/internal/application/treasury"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// posting carries the ledgers of one unit of work through the steps of a
// single document's posting
type posting struct {
	repos    appshared.TransactionalRepositories
	stock    *appinventory.StockLedger
	treasury *apptreasury.Ledger
	partners *apppartner.BalanceEngine
	doc      *trade.Document
	result   *Result
}

// stockLine is one planned movement in base units
type stockLine struct {
	item      *trade.DocumentItem
	warehouse uuid.UUID
	product   *inventory.Product
	kind      inventory.MovementKind
	quantity  int64 // signed, base units
	unitCost  decimal.Decimal
}

func (l stockLine) key() inventory.StockKey {
	return inventory.StockKey{WarehouseID: l.warehouse, ProductID: l.product.ID}
}

// applyStock plans the document's movements, locks every key they touch in a
// fixed order, checks availability for consuming keys against the summed
// requirement and only then writes
func (p *posting) applyStock(ctx context.Context) error {
	if len(p.doc.Items) == 0 || p.doc.Type == trade.DocumentFixedAsset {
		return nil
	}
	productIDs := make([]uuid.UUID, 0, len(p.doc.Items))
	for _, item := range p.doc.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := p.repos.Products().FindByIDs(ctx, productIDs)
	if err != nil {
		return err
	}

	lines, err := p.plan(products)
	if err != nil {
		return err
	}

	keys := make([]inventory.StockKey, 0, len(lines))
	required := make(map[inventory.StockKey]int64)
	var order []inventory.StockKey
	for _, l := range lines {
		keys = append(keys, l.key())
		if l.quantity < 0 {
			if _, seen := required[l.key()]; !seen {
				order = append(order, l.key())
			}
			required[l.key()] += -l.quantity
		}
	}
	if err := p.stock.LockKeys(ctx, keys); err != nil {
		return err
	}
	for _, k := range order {
		if err := p.stock.RequireAvailability(ctx, k.WarehouseID, k.ProductID, required[k]); err != nil {
			return err
		}
	}

	recompute := make(map[uuid.UUID]struct{})
	for _, l := range lines {
		m, err := p.stock.PostMovement(ctx, appinventory.PostMovementInput{
			WarehouseID: l.warehouse,
			ProductID:   l.product.ID,
			Quantity:    l.quantity,
			UnitType:    inventory.UnitTypeSmall,
			UnitCost:    l.unitCost,
			Kind:        l.kind,
			Reference:   p.doc.Reference(),
			Date:        p.doc.DocumentDate,
		})
		if err != nil {
			return err
		}
		p.result.Movements = append(p.result.Movements, toMovementDTO(m))
		if l.kind.IsPurchaseType() {
			recompute[l.product.ID] = struct{}{}
		}
	}
	for _, id := range productIDs {
		if _, ok := recompute[id]; !ok {
			continue
		}
		delete(recompute, id)
		if _, err := p.stock.RecomputeAverageCost(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// plan converts the document lines to base-unit movements and snapshots the
// base quantity and per-base-unit cost on each item
func (p *posting) plan(products map[uuid.UUID]*inventory.Product) ([]stockLine, error) {
	doc := p.doc
	lines := make([]stockLine, 0, len(doc.Items)*2)
	for i := range doc.Items {
		item := &doc.Items[i]
		product, ok := products[item.ProductID]
		if !ok {
			return nil, notFoundProduct(item.ProductID)
		}
		base := product.ToBaseQuantity(item.Quantity, item.UnitType)
		item.BaseQuantity = base
		priceCost := product.ToBaseUnitCost(item.UnitPrice, item.UnitType)
		line := stockLine{item: item, product: product, warehouse: *doc.WarehouseID}

		switch doc.Type {
		case trade.DocumentPurchaseInvoice:
			line.kind, line.quantity, line.unitCost = inventory.MovementPurchase, base, priceCost
		case trade.DocumentSalesInvoice:
			line.kind, line.quantity, line.unitCost = inventory.MovementSale, -base, product.AvgCost
		case trade.DocumentSalesReturn:
			line.kind, line.quantity, line.unitCost = inventory.MovementSaleReturn, base, product.AvgCost
		case trade.DocumentPurchaseReturn:
			line.kind, line.quantity, line.unitCost = inventory.MovementPurchaseReturn, -base, priceCost
		case trade.DocumentStockAdjustment:
			if base > 0 {
				cost := priceCost
				if !cost.IsPositive() {
					cost = product.AvgCost
				}
				line.kind, line.quantity, line.unitCost = inventory.MovementAdjustmentIn, base, cost
			} else {
				line.kind, line.quantity, line.unitCost = inventory.MovementAdjustmentOut, base, product.AvgCost
			}
		case trade.DocumentWarehouseTransfer:
			line.kind, line.quantity, line.unitCost = inventory.MovementTransfer, -base, product.AvgCost
			in := line
			in.warehouse = *doc.TargetWarehouseID
			in.quantity = base
			item.CostAtTime = product.AvgCost
			lines = append(lines, line, in)
			continue
		default:
			continue
		}
		item.CostAtTime = line.unitCost
		lines = append(lines, line)
	}
	return lines, nil
}

func notFoundProduct(id uuid.UUID) error {
	return fmt.Errorf("product %s: %w", id, shared.ErrNotFound)
}
