package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTreasuryRepository implements treasury.Repository using GORM
type GormTreasuryRepository struct {
	db *gorm.DB
}

// NewGormTreasuryRepository creates a new GormTreasuryRepository
func NewGormTreasuryRepository(db *gorm.DB) *GormTreasuryRepository {
	return &GormTreasuryRepository{db: db}
}

// FindByID finds a treasury by its ID
func (r *GormTreasuryRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Treasury, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a treasury and row-locks it
func (r *GormTreasuryRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*treasury.Treasury, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormTreasuryRepository) find(db *gorm.DB, id uuid.UUID) (*treasury.Treasury, error) {
	var model models.TreasuryModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every treasury ordered by name
func (r *GormTreasuryRepository) FindAll(ctx context.Context) ([]treasury.Treasury, error) {
	var rows []models.TreasuryModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]treasury.Treasury, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

// Save creates or updates a treasury
func (r *GormTreasuryRepository) Save(ctx context.Context, t *treasury.Treasury) error {
	return r.db.WithContext(ctx).Save(models.TreasuryModelFromDomain(t)).Error
}

// GormTreasuryTransactionRepository implements treasury.TransactionRepository using GORM
type GormTreasuryTransactionRepository struct {
	db *gorm.DB
}

// NewGormTreasuryTransactionRepository creates a new GormTreasuryTransactionRepository
func NewGormTreasuryTransactionRepository(db *gorm.DB) *GormTreasuryTransactionRepository {
	return &GormTreasuryTransactionRepository{db: db}
}

// Create appends a transaction. A second row for the same reference violates
// ux_treasury_tx_reference.
func (r *GormTreasuryTransactionRepository) Create(ctx context.Context, tx *treasury.Transaction) error {
	return r.db.WithContext(ctx).Create(models.TreasuryTransactionModelFromDomain(tx)).Error
}

// SumByTreasury returns the derived balance of one treasury
func (r *GormTreasuryTransactionRepository) SumByTreasury(ctx context.Context, treasuryID uuid.UUID) (decimal.Decimal, error) {
	return sumDecimal(r.model(ctx).Where("treasury_id = ?", treasuryID), "SUM(amount)")
}

// SumAll returns the cash held across every treasury
func (r *GormTreasuryTransactionRepository) SumAll(ctx context.Context) (decimal.Decimal, error) {
	return sumDecimal(r.model(ctx), "SUM(amount)")
}

// SumByKinds sums signed amounts of the given kinds created in [from, to)
func (r *GormTreasuryTransactionRepository) SumByKinds(ctx context.Context, kinds []treasury.TransactionKind, from, to time.Time) (decimal.Decimal, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return sumDecimal(
		r.model(ctx).Where("kind IN ? AND created_at >= ? AND created_at < ?", names, from, to),
		"SUM(amount)",
	)
}

// FindByReference returns the transaction written for a document or payment,
// or nil when there is none
func (r *GormTreasuryTransactionRepository) FindByReference(ctx context.Context, kind string, id uuid.UUID) (*treasury.Transaction, error) {
	var rows []models.TreasuryTransactionModel
	if err := r.db.WithContext(ctx).
		Where("reference_kind = ? AND reference_id = ?", kind, id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// FindByTreasury returns the newest transactions of a treasury first
func (r *GormTreasuryTransactionRepository) FindByTreasury(ctx context.Context, treasuryID uuid.UUID, limit int) ([]treasury.Transaction, error) {
	var rows []models.TreasuryTransactionModel
	if err := r.db.WithContext(ctx).
		Where("treasury_id = ?", treasuryID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]treasury.Transaction, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

func (r *GormTreasuryTransactionRepository) model(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.TreasuryTransactionModel{})
}

var (
	_ treasury.Repository            = (*GormTreasuryRepository)(nil)
	_ treasury.TransactionRepository = (*GormTreasuryTransactionRepository)(nil)
)
