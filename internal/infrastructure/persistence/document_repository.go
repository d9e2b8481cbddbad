package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	tradeTypes = []string{
		string(trade.DocumentSalesInvoice),
		string(trade.DocumentPurchaseInvoice),
		string(trade.DocumentSalesReturn),
		string(trade.DocumentPurchaseReturn),
	}
	creditFunding = []string{string(trade.FundingPayable), string(trade.FundingEquity)}
)

// GormDocumentRepository implements trade.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document with its items
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Document, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a document with its items and row-locks the header
func (r *GormDocumentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Document, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormDocumentRepository) find(db *gorm.DB, id uuid.UUID) (*trade.Document, error) {
	var model models.DocumentModel
	if err := db.Preload("Items").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save writes the header and upserts the items, which carry the posting snapshots
func (r *GormDocumentRepository) Save(ctx context.Context, doc *trade.Document) error {
	model := models.DocumentModelFromDomain(doc)
	db := r.db.WithContext(ctx)
	if err := db.Omit("Items").Save(model).Error; err != nil {
		return err
	}
	if len(model.Items) == 0 {
		return nil
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model.Items).Error; err != nil {
		return fmt.Errorf("save document items: %w", err)
	}
	return nil
}

// FindPartnerBalanceDocuments returns the partner's posted documents settled
// on credit: trade documents paid on credit and fixed assets funded by
// payable or equity
func (r *GormDocumentRepository) FindPartnerBalanceDocuments(ctx context.Context, partnerID uuid.UUID) ([]trade.Document, error) {
	var rows []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("partner_id = ? AND status = ?", partnerID, string(trade.StatusPosted)).
		Where(
			r.db.Where("type IN ? AND payment_method = ?", tradeTypes, string(trade.PaymentCredit)).
				Or("type = ? AND funding_method IN ?", string(trade.DocumentFixedAsset), creditFunding),
		).
		Order("document_date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]trade.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, nil
}

// SumTotals sums the totals of posted documents of a type dated in [from, to)
func (r *GormDocumentRepository) SumTotals(ctx context.Context, docType trade.DocumentType, from, to time.Time) (decimal.Decimal, error) {
	return sumDecimal(
		r.posted(ctx, docType).Where("document_date >= ? AND document_date < ?", from, to),
		"SUM(total)",
	)
}

// SumPostedTotals sums the totals of every posted document of a type
func (r *GormDocumentRepository) SumPostedTotals(ctx context.Context, docType trade.DocumentType) (decimal.Decimal, error) {
	return sumDecimal(r.posted(ctx, docType), "SUM(total)")
}

// SumCostOfSales returns Σ base quantity × cost at time over posted sales
// invoices in [from, to), less the same over posted sales returns
func (r *GormDocumentRepository) SumCostOfSales(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Table("document_items AS di").
		Joins("JOIN documents AS d ON d.id = di.document_id").
		Where("d.type IN ? AND d.status = ?",
			[]string{string(trade.DocumentSalesInvoice), string(trade.DocumentSalesReturn)}, string(trade.StatusPosted)).
		Where("d.document_date >= ? AND d.document_date < ?", from, to)
	return sumDecimal(query,
		"SUM(CASE WHEN d.type = ? THEN -1 ELSE 1 END * di.base_quantity * di.cost_at_time)",
		string(trade.DocumentSalesReturn))
}

func (r *GormDocumentRepository) posted(ctx context.Context, docType trade.DocumentType) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("type = ? AND status = ?", string(docType), string(trade.StatusPosted))
}

// GormInvoicePaymentRepository implements trade.InvoicePaymentRepository using GORM
type GormInvoicePaymentRepository struct {
	db *gorm.DB
}

// NewGormInvoicePaymentRepository creates a new GormInvoicePaymentRepository
func NewGormInvoicePaymentRepository(db *gorm.DB) *GormInvoicePaymentRepository {
	return &GormInvoicePaymentRepository{db: db}
}

// Create records a payment
func (r *GormInvoicePaymentRepository) Create(ctx context.Context, payment *trade.InvoicePayment) error {
	return r.db.WithContext(ctx).Create(models.InvoicePaymentModelFromDomain(payment)).Error
}

// FindByID finds a payment by its ID
func (r *GormInvoicePaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.InvoicePayment, error) {
	var model models.InvoicePaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDocument returns a document's payments oldest first
func (r *GormInvoicePaymentRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]trade.InvoicePayment, error) {
	return r.findWhere(ctx, "document_id = ?", documentID)
}

// FindByPartner returns a partner's payments oldest first
func (r *GormInvoicePaymentRepository) FindByPartner(ctx context.Context, partnerID uuid.UUID) ([]trade.InvoicePayment, error) {
	return r.findWhere(ctx, "partner_id = ?", partnerID)
}

func (r *GormInvoicePaymentRepository) findWhere(ctx context.Context, cond string, arg any) ([]trade.InvoicePayment, error) {
	var rows []models.InvoicePaymentModel
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("payment_date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	payments := make([]trade.InvoicePayment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// SumDiscounts sums discounts of payments dated in [from, to) against documents of the given types
func (r *GormInvoicePaymentRepository) SumDiscounts(ctx context.Context, docTypes []trade.DocumentType, from, to time.Time) (decimal.Decimal, error) {
	types := make([]string, len(docTypes))
	for i, t := range docTypes {
		types[i] = string(t)
	}
	query := r.db.WithContext(ctx).
		Table("invoice_payments AS p").
		Joins("JOIN documents AS d ON d.id = p.document_id").
		Where("d.type IN ?", types).
		Where("p.payment_date >= ? AND p.payment_date < ?", from, to)
	return sumDecimal(query, "SUM(p.discount)")
}

var (
	_ trade.DocumentRepository       = (*GormDocumentRepository)(nil)
	_ trade.InvoicePaymentRepository = (*GormInvoicePaymentRepository)(nil)
)
