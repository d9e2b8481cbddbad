package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInstallmentRepository implements finance.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// CreateBatch inserts a whole schedule
func (r *GormInstallmentRepository) CreateBatch(ctx context.Context, installments []*finance.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]*models.InstallmentModel, len(installments))
	for i, inst := range installments {
		rows[i] = models.InstallmentModelFromDomain(inst)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ExistsForDocument reports whether a schedule was already generated
func (r *GormInstallmentRepository) ExistsForDocument(ctx context.Context, documentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("document_id = ?", documentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindOpenForUpdate returns pending and overdue installments by number, row-locked
func (r *GormInstallmentRepository) FindOpenForUpdate(ctx context.Context, documentID uuid.UUID) ([]*finance.Installment, error) {
	var rows []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("document_id = ? AND status IN ?", documentID,
			[]string{string(finance.InstallmentPending), string(finance.InstallmentOverdue)}).
		Order("number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*finance.Installment, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

// FindByDocument returns the full schedule by number
func (r *GormInstallmentRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]finance.Installment, error) {
	var rows []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]finance.Installment, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

// Save updates an installment
func (r *GormInstallmentRepository) Save(ctx context.Context, installment *finance.Installment) error {
	return r.db.WithContext(ctx).Save(models.InstallmentModelFromDomain(installment)).Error
}

// MarkOverdue flips every pending installment due before cutoff in one statement
func (r *GormInstallmentRepository) MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("status = ? AND due_date < ?", string(finance.InstallmentPending), cutoff).
		Updates(map[string]any{
			"status":     string(finance.InstallmentOverdue),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// RecordAllocations inserts one row per installment the payment touched
func (r *GormInstallmentRepository) RecordAllocations(ctx context.Context, paymentID uuid.UUID, allocations []finance.Allocation, at time.Time) error {
	if len(allocations) == 0 {
		return nil
	}
	rows := make([]*models.InstallmentAllocationModel, len(allocations))
	for i, alloc := range allocations {
		rows[i] = &models.InstallmentAllocationModel{
			ID:               uuid.New(),
			InvoicePaymentID: paymentID,
			InstallmentID:    alloc.InstallmentID,
			Amount:           alloc.Applied,
			CreatedAt:        at,
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindAllocationsByPayment returns what a payment contributed, by installment number
func (r *GormInstallmentRepository) FindAllocationsByPayment(ctx context.Context, paymentID uuid.UUID) ([]finance.Allocation, error) {
	var rows []struct {
		InstallmentID uuid.UUID
		Number        int
		Amount        decimal.Decimal
		Status        string
	}
	if err := r.db.WithContext(ctx).
		Table("installment_allocations AS a").
		Select("a.installment_id, i.number, a.amount, i.status").
		Joins("JOIN installments AS i ON i.id = a.installment_id").
		Where("a.invoice_payment_id = ?", paymentID).
		Order("i.number ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]finance.Allocation, len(rows))
	for i, row := range rows {
		result[i] = finance.Allocation{
			InstallmentID: row.InstallmentID,
			Number:        row.Number,
			Applied:       row.Amount,
			Settled:       row.Status == string(finance.InstallmentPaid),
		}
	}
	return result, nil
}

var _ finance.InstallmentRepository = (*GormInstallmentRepository)(nil)
