package posting

import (
	"context"
	"fmt"
	"time"

	appinventory "github.com/erp/ledger/internal/application/inventory"
	apppartner "github.com/erp/ledger/internal/application/partner"
	appshared "github.com/erp/ledger/internal/application/shared"
	apptreasury "github.com/erp/ledger/internal/application/treasury"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errTreasuryRequired = shared.NewDomainError("TREASURY_REQUIRED", "A treasury is required to post a cash effect")
	errPartnerRequired  = shared.NewDomainError("PARTNER_REQUIRED", "A partner is required for a document settled on credit")
	errPartnerType      = shared.NewDomainError("PARTNER_TYPE_MISMATCH", "Partner type does not match the funding method")
)

// Orchestrator posts documents. A posting writes its stock movements, its
// cash effect, the partner balance and the status flip in one unit of work;
// any failure leaves the document in draft with no ledger rows.
type Orchestrator struct {
	scope   appshared.TransactionScope
	opts    appinventory.StockLedgerOptions
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
	now     func() time.Time
}

// NewOrchestrator creates a new Orchestrator. metrics may be nil.
func NewOrchestrator(scope appshared.TransactionScope, opts appinventory.StockLedgerOptions, logger *zap.Logger, metrics *telemetry.LedgerMetrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		scope:   scope,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// PostSalesInvoice posts a sales invoice
func (o *Orchestrator) PostSalesInvoice(ctx context.Context, documentID uuid.UUID, treasuryID *uuid.UUID) (*Result, error) {
	return o.post(ctx, documentID, treasuryID, trade.DocumentSalesInvoice)
}

// PostPurchaseInvoice posts a purchase invoice
func (o *Orchestrator) PostPurchaseInvoice(ctx context.Context, documentID uuid.UUID, treasuryID *uuid.UUID) (*Result, error) {
	return o.post(ctx, documentID, treasuryID, trade.DocumentPurchaseInvoice)
}

// PostSalesReturn posts a sales return
func (o *Orchestrator) PostSalesReturn(ctx context.Context, documentID uuid.UUID, treasuryID *uuid.UUID) (*Result, error) {
	return o.post(ctx, documentID, treasuryID, trade.DocumentSalesReturn)
}

// PostPurchaseReturn posts a purchase return
func (o *Orchestrator) PostPurchaseReturn(ctx context.Context, documentID uuid.UUID, treasuryID *uuid.UUID) (*Result, error) {
	return o.post(ctx, documentID, treasuryID, trade.DocumentPurchaseReturn)
}

// PostStockAdjustment posts a stock adjustment
func (o *Orchestrator) PostStockAdjustment(ctx context.Context, documentID uuid.UUID) (*Result, error) {
	return o.post(ctx, documentID, nil, trade.DocumentStockAdjustment)
}

// PostWarehouseTransfer posts a warehouse transfer
func (o *Orchestrator) PostWarehouseTransfer(ctx context.Context, documentID uuid.UUID) (*Result, error) {
	return o.post(ctx, documentID, nil, trade.DocumentWarehouseTransfer)
}

// PostFixedAssetPurchase posts a fixed asset acquisition
func (o *Orchestrator) PostFixedAssetPurchase(ctx context.Context, documentID uuid.UUID) (*Result, error) {
	return o.post(ctx, documentID, nil, trade.DocumentFixedAsset)
}

// Post posts a document of whatever type it is
func (o *Orchestrator) Post(ctx context.Context, cmd PostCommand) (*Result, error) {
	return o.post(ctx, cmd.DocumentID, cmd.TreasuryID, "")
}

func (o *Orchestrator) post(ctx context.Context, documentID uuid.UUID, treasuryID *uuid.UUID, expected trade.DocumentType) (*Result, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post",
		telemetry.WithAttribute("document_id", documentID.String()),
	)
	defer span.End()

	var doc *trade.Document
	result := &Result{DocumentID: documentID, Movements: []MovementDTO{}}
	err := o.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		doc, err = repos.Documents().FindByIDForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if expected != "" {
			if err := doc.AssertType(expected); err != nil {
				return err
			}
		}
		if err := doc.AssertDraft(); err != nil {
			return err
		}
		if err := doc.Validate(); err != nil {
			return err
		}
		telemetry.SetAttributes(span, "document_type", string(doc.Type), "document_number", doc.Number)

		p := &posting{
			repos:    repos,
			stock:    appinventory.NewStockLedger(repos, o.opts),
			treasury: apptreasury.NewLedger(repos),
			partners: apppartner.NewBalanceEngine(repos),
			doc:      doc,
			result:   result,
		}
		if err := p.applyStock(ctx); err != nil {
			return err
		}
		if err := p.applyCash(ctx, treasuryID); err != nil {
			return err
		}
		// the partner engine only counts posted documents, so the flip is
		// written before the balance is recomputed
		if err := doc.MarkPosted(o.now()); err != nil {
			return err
		}
		if err := repos.Documents().Save(ctx, doc); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
		return p.applyPartner(ctx)
	})

	docType := string(expected)
	if doc != nil {
		docType = string(doc.Type)
	}
	o.metrics.RecordPosting(ctx, docType, time.Since(start), err)

	if err != nil {
		if doc != nil {
			doc.ResetToDraft()
		}
		telemetry.RecordError(span, err)
		o.logger.Warn("document posting failed",
			zap.String("document_id", documentID.String()),
			zap.String("document_type", docType),
			zap.String("error_code", telemetry.ErrorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}

	result.Number = doc.Number
	result.Type = string(doc.Type)
	result.Status = string(doc.Status)
	result.PostedAt = *doc.PostedAt
	o.logger.Info("document posted",
		zap.String("document_id", documentID.String()),
		zap.String("document_type", docType),
		zap.String("number", doc.Number),
		zap.Int("movements", len(result.Movements)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// applyCash writes the treasury effect of cash-settled money
func (p *posting) applyCash(ctx context.Context, override *uuid.UUID) error {
	doc := p.doc
	switch {
	case doc.Type.IsTrade():
		if doc.PaymentMethod == trade.PaymentCredit && doc.PartnerID == nil && doc.RemainingAmount.IsPositive() {
			return errPartnerRequired
		}
	case doc.Type == trade.DocumentFixedAsset:
		if err := p.checkFunding(ctx); err != nil {
			return err
		}
	default:
		return nil
	}
	if !doc.CashAmount().IsPositive() {
		return nil
	}
	treasuryID := override
	if treasuryID == nil {
		treasuryID = doc.TreasuryID
	}
	if treasuryID == nil {
		return errTreasuryRequired
	}
	tx, err := p.treasury.PostDocumentCashEffect(ctx, doc, *treasuryID)
	if err != nil {
		return err
	}
	p.result.Cash = toCashDTO(tx)
	return nil
}

// checkFunding enforces the partner a fixed asset's funding method requires
func (p *posting) checkFunding(ctx context.Context) error {
	var want partner.PartnerType
	switch p.doc.FundingMethod {
	case trade.FundingPayable:
		want = partner.PartnerTypeSupplier
	case trade.FundingEquity:
		want = partner.PartnerTypeShareholder
	default:
		return nil
	}
	if p.doc.PartnerID == nil {
		return errPartnerRequired
	}
	pt, err := p.repos.Partners().FindByID(ctx, *p.doc.PartnerID)
	if err != nil {
		return err
	}
	if pt.Type != want {
		return shared.NewDomainError(errPartnerType.Code,
			fmt.Sprintf("%s funding needs a %s partner, %s is a %s", p.doc.FundingMethod, want, pt.Name, pt.Type))
	}
	return nil
}

// applyPartner recomputes the attached partner's balance
func (p *posting) applyPartner(ctx context.Context) error {
	if p.doc.PartnerID == nil {
		return nil
	}
	balance, err := p.partners.Recalculate(ctx, *p.doc.PartnerID)
	if err != nil {
		return err
	}
	p.result.PartnerBalance = &balance
	return nil
}
