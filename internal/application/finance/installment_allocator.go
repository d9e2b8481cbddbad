package finance

import (
	"context"
	"fmt"
	"time"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InstallmentAllocator schedules a document's remaining amount and spreads
// payments over the schedule oldest first
type InstallmentAllocator struct {
	documents    trade.DocumentRepository
	installments finance.InstallmentRepository
	logger       *zap.Logger
}

// NewInstallmentAllocator creates an InstallmentAllocator over repos
func NewInstallmentAllocator(repos appshared.TransactionalRepositories, logger *zap.Logger) *InstallmentAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstallmentAllocator{
		documents:    repos.Documents(),
		installments: repos.Installments(),
		logger:       logger,
	}
}

// GenerateSchedule creates months installments for the posted document. A
// document can be scheduled once.
func (a *InstallmentAllocator) GenerateSchedule(ctx context.Context, documentID uuid.UUID, months int, start time.Time, interestPct decimal.Decimal) ([]*finance.Installment, error) {
	if months <= 0 {
		return nil, shared.NewInvariantViolation("months", "must be positive")
	}
	doc, err := a.documents.FindByIDForUpdate(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.AssertPosted(); err != nil {
		return nil, err
	}
	exists, err := a.installments.ExistsForDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("check schedule: %w", err)
	}
	if exists {
		return nil, shared.NewStateError(shared.ErrScheduleExists, string(doc.Type), doc.Number, "")
	}
	installments, err := finance.GenerateSchedule(doc.ID, doc.SettleableAmount(), months, start, interestPct)
	if err != nil {
		return nil, err
	}
	if err := a.installments.CreateBatch(ctx, installments); err != nil {
		return nil, fmt.Errorf("create installments: %w", err)
	}
	return installments, nil
}

// ApplyPayment allocates payment.amount + payment.discount across the open
// installments of the document. Anything left after the last installment is
// absorbed. Without a schedule it does nothing.
//
// A payment is allocated at most once. Payments recorded before the schedule
// are refused: the schedule was cut from the remaining amount they had
// already reduced.
func (a *InstallmentAllocator) ApplyPayment(ctx context.Context, documentID uuid.UUID, payment *trade.InvoicePayment) ([]finance.Allocation, error) {
	open, err := a.installments.FindOpenForUpdate(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load installments: %w", err)
	}
	if len(open) == 0 {
		a.logger.Debug("no open installments, payment not allocated",
			zap.String("document_id", documentID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
		return nil, nil
	}
	if payment.CreatedAt.Before(open[0].CreatedAt) {
		return nil, shared.NewStateError(shared.ErrInvalidState, "invoice payment", payment.ID.String(),
			"older than the schedule")
	}
	previous, err := a.installments.FindAllocationsByPayment(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	if len(previous) > 0 {
		return nil, shared.NewStateError(shared.ErrInvalidState, "invoice payment", payment.ID.String(),
			"already allocated to the schedule")
	}
	at := time.Now()
	allocations, remainder := finance.AllocateFIFO(open, payment.SettledAmount(), payment.ID, payment.PaidBy, at)
	touched := make(map[uuid.UUID]struct{}, len(allocations))
	for _, alloc := range allocations {
		touched[alloc.InstallmentID] = struct{}{}
	}
	for _, inst := range open {
		if _, ok := touched[inst.ID]; !ok {
			continue
		}
		if err := a.installments.Save(ctx, inst); err != nil {
			return nil, fmt.Errorf("save installment %d: %w", inst.Number, err)
		}
	}
	if err := a.installments.RecordAllocations(ctx, payment.ID, allocations, at); err != nil {
		return nil, fmt.Errorf("record allocations: %w", err)
	}
	if remainder.IsPositive() {
		a.logger.Info("payment exceeds open installments",
			zap.String("document_id", documentID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.String("unallocated", remainder.String()),
		)
	}
	return allocations, nil
}

// SweepOverdue flips every pending installment due before today to overdue
func (a *InstallmentAllocator) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := a.installments.MarkOverdue(ctx, shared.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return n, nil
}
