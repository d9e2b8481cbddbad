package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/report"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReportRepository implements report.Repository using GORM
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// InventoryValue values stock at each product's current average cost. With
// asOf set, only movements dated before it count.
func (r *GormReportRepository) InventoryValue(ctx context.Context, asOf *time.Time) (decimal.Decimal, error) {
	stock := r.db.WithContext(ctx).
		Table("stock_movements").
		Select("product_id, SUM(quantity) AS qty").
		Where("tombstoned = ?", false).
		Group("product_id")
	if asOf != nil {
		stock = stock.Where("movement_date < ?", *asOf)
	}
	query := r.db.WithContext(ctx).
		Table("products AS p").
		Joins("JOIN (?) AS s ON s.product_id = p.id", stock)
	return sumDecimal(query, "SUM(s.qty * p.avg_cost)")
}

var _ report.Repository = (*GormReportRepository)(nil)
