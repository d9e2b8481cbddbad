package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a movement to the ledger
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	return r.db.WithContext(ctx).Create(models.StockMovementModelFromDomain(movement)).Error
}

// FindByID finds a movement by its ID, tombstoned or not
func (r *GormStockMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockMovement, error) {
	var model models.StockMovementModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// LockKey makes sure the key's lock row exists and takes a row lock on it.
// On SQLite the locking clause is dropped and the single writer serializes.
func (r *GormStockMovementRepository) LockKey(ctx context.Context, key inventory.StockKey) error {
	db := r.db.WithContext(ctx)
	row := models.StockKeyModel{WarehouseID: key.WarehouseID, ProductID: key.ProductID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("ensure stock key: %w", err)
	}
	var locked models.StockKeyModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("warehouse_id = ? AND product_id = ?", key.WarehouseID, key.ProductID).
		Take(&locked).Error; err != nil {
		return fmt.Errorf("lock stock key: %w", err)
	}
	return nil
}

// SumQuantity returns the live stock of a key in base units
func (r *GormStockMovementRepository) SumQuantity(ctx context.Context, key inventory.StockKey) (int64, error) {
	var total int64
	err := r.live(ctx).
		Where("warehouse_id = ? AND product_id = ?", key.WarehouseID, key.ProductID).
		Select("COALESCE(SUM(quantity), 0)").
		Row().Scan(&total)
	return total, err
}

// SumQuantityBefore sums live movements of a product dated before t
func (r *GormStockMovementRepository) SumQuantityBefore(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID, t time.Time) (int64, error) {
	query := r.live(ctx).Where("product_id = ? AND movement_date < ?", productID, t)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	var total int64
	err := query.Select("COALESCE(SUM(quantity), 0)").Row().Scan(&total)
	return total, err
}

// FindCostingMovements returns the live purchase-type movements of a product
func (r *GormStockMovementRepository) FindCostingMovements(ctx context.Context, productID uuid.UUID) ([]inventory.StockMovement, error) {
	kinds := make([]string, 0, 2)
	for _, k := range inventory.PurchaseTypeKinds() {
		kinds = append(kinds, string(k))
	}
	var rows []models.StockMovementModel
	if err := r.live(ctx).
		Where("product_id = ? AND kind IN ?", productID, kinds).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// FindByProductBetween returns the live movements of a product dated in [from, to)
func (r *GormStockMovementRepository) FindByProductBetween(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID, from, to time.Time) ([]inventory.StockMovement, error) {
	query := r.live(ctx).Where("product_id = ? AND movement_date >= ? AND movement_date < ?", productID, from, to)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	var rows []models.StockMovementModel
	if err := query.Order("movement_date ASC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// FindByReference returns every movement written for a document
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, kind string, id uuid.UUID) ([]inventory.StockMovement, error) {
	var rows []models.StockMovementModel
	if err := r.db.WithContext(ctx).
		Where("reference_kind = ? AND reference_id = ?", kind, id).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// Tombstone flags a movement as deleted. It is the only update the ledger allows.
func (r *GormStockMovementRepository) Tombstone(ctx context.Context, movement *inventory.StockMovement) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockMovementModel{}).
		Where("id = ? AND tombstoned = ?", movement.ID, false).
		Updates(map[string]any{
			"tombstoned":    true,
			"tombstoned_at": movement.TombstonedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewStateError(shared.ErrInvalidState, "stock movement", movement.ID.String(), "tombstoned")
	}
	return nil
}

func (r *GormStockMovementRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.StockMovementModel{}).Where("tombstoned = ?", false)
}

func toMovements(rows []models.StockMovementModel) []inventory.StockMovement {
	movements := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		movements[i] = *rows[i].ToDomain()
	}
	return movements
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
