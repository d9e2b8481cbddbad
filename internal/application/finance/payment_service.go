package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	apppartner "github.com/erp/ledger/internal/application/partner"
	appshared "github.com/erp/ledger/internal/application/shared"
	apptreasury "github.com/erp/ledger/internal/application/treasury"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL is how long a payment idempotency key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

var (
	errTreasuryRequired = shared.NewDomainError("TREASURY_REQUIRED", "A treasury is required to move cash")
	errRequestInFlight  = shared.NewDomainError("REQUEST_IN_PROGRESS", "A request with this idempotency key is still being processed")
	errPaymentDocument  = shared.NewDomainError("PAYMENT_DOCUMENT_MISMATCH", "Payment does not belong to the document")
)

// PaymentService records invoice payments and maintains installment schedules.
// Each public method is one unit of work.
type PaymentService struct {
	scope          appshared.TransactionScope
	idempotency    appshared.IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope appshared.TransactionScope, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		scope:          scope,
		idempotencyTTL: DefaultIdempotencyTTL,
		logger:         logger,
	}
}

// SetIdempotencyStore enables Idempotency-Key handling for RecordInvoicePayment
func (s *PaymentService) SetIdempotencyStore(store appshared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// paymentKind is the treasury kind of cash moved by a payment against t
func paymentKind(t trade.DocumentType) treasury.TransactionKind {
	switch t {
	case trade.DocumentSalesInvoice:
		return treasury.KindCollection
	case trade.DocumentSalesReturn, trade.DocumentPurchaseReturn:
		return treasury.KindRefund
	}
	return treasury.KindPayment
}

// RecordInvoicePayment settles part of a posted document. The cash leg, the
// payment row, the document's remaining amount, the installment allocation
// and the partner balance change together or not at all.
func (s *PaymentService) RecordInvoicePayment(ctx context.Context, in RecordPaymentInput) (*PaymentResponse, error) {
	if in.IdempotencyKey != "" && s.idempotency != nil {
		return s.recordIdempotent(ctx, in)
	}
	return s.record(ctx, in)
}

func (s *PaymentService) recordIdempotent(ctx context.Context, in RecordPaymentInput) (*PaymentResponse, error) {
	key := "payment:" + in.DocumentID.String() + ":" + in.IdempotencyKey
	claimed, err := s.idempotency.Claim(ctx, key, s.idempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !claimed {
		return s.replay(ctx, key)
	}
	resp, err := s.record(ctx, in)
	if err != nil {
		if relErr := s.idempotency.Release(ctx, key); relErr != nil {
			s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, err
	}
	if err := s.idempotency.Resolve(ctx, key, resp.Payment.ID.String(), s.idempotencyTTL); err != nil {
		s.logger.Warn("failed to store idempotency result", zap.String("key", key), zap.Error(err))
	}
	return resp, nil
}

func (s *PaymentService) replay(ctx context.Context, key string) (*PaymentResponse, error) {
	value, ok, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if !ok || value == appshared.IdempotencyPending {
		return nil, errRequestInFlight
	}
	paymentID, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("idempotency key %s holds %q: %w", key, value, err)
	}
	payment, err := s.scope.Repositories().InvoicePayments().FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	resp := &PaymentResponse{Payment: ToPaymentDTO(payment), Replayed: true}
	return resp, nil
}

func (s *PaymentService) record(ctx context.Context, in RecordPaymentInput) (*PaymentResponse, error) {
	resp := &PaymentResponse{}
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		doc, err := repos.Documents().FindByIDForUpdate(ctx, in.DocumentID)
		if err != nil {
			return err
		}
		if err := doc.AssertPosted(); err != nil {
			return err
		}
		date := in.PaymentDate
		if date.IsZero() {
			date = time.Now()
		}
		payment := trade.NewInvoicePayment(doc, in.Amount, in.Discount, date)
		payment.Notes = in.Notes
		payment.PaidBy = in.PaidBy
		if err := doc.ApplyPayment(payment.Amount, payment.Discount); err != nil {
			return err
		}

		if payment.Amount.IsPositive() {
			treasuryID := in.TreasuryID
			if treasuryID == nil {
				treasuryID = doc.TreasuryID
			}
			if treasuryID == nil {
				return errTreasuryRequired
			}
			tx, err := apptreasury.NewLedger(repos).RecordTransaction(ctx, apptreasury.RecordInput{
				TreasuryID:  *treasuryID,
				Kind:        paymentKind(doc.Type),
				Amount:      payment.Amount.Mul(trade.CashDirection(doc.Type)),
				Description: fmt.Sprintf("payment on %s %s", doc.Type, doc.Number),
				PartnerID:   doc.PartnerID,
				Reference:   payment.Reference(),
			})
			if err != nil {
				return err
			}
			payment.TreasuryID = treasuryID
			payment.TreasuryTransactionID = &tx.ID
		}

		if err := repos.InvoicePayments().Create(ctx, payment); err != nil {
			return fmt.Errorf("create invoice payment: %w", err)
		}
		if err := repos.Documents().Save(ctx, doc); err != nil {
			return fmt.Errorf("save document: %w", err)
		}

		allocations, err := NewInstallmentAllocator(repos, s.logger).ApplyPayment(ctx, doc.ID, payment)
		if err != nil {
			return err
		}
		if doc.PartnerID != nil {
			balance, err := apppartner.NewBalanceEngine(repos).Recalculate(ctx, *doc.PartnerID)
			if err != nil {
				return err
			}
			resp.PartnerBalance = &balance
		}

		resp.Payment = ToPaymentDTO(payment)
		resp.RemainingAmount = doc.RemainingAmount
		resp.Allocations = ToAllocationDTOs(allocations)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice payment recorded",
		zap.String("document_id", in.DocumentID.String()),
		zap.String("payment_id", resp.Payment.ID.String()),
		zap.String("amount", resp.Payment.Amount.String()),
		zap.String("discount", resp.Payment.Discount.String()),
		zap.String("remaining", resp.RemainingAmount.String()),
	)
	return resp, nil
}

// GenerateSchedule splits a posted document's remaining amount into installments
func (s *PaymentService) GenerateSchedule(ctx context.Context, in GenerateScheduleInput) (*ScheduleResponse, error) {
	var installments []*finance.Installment
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		installments, err = NewInstallmentAllocator(repos, s.logger).GenerateSchedule(ctx, in.DocumentID, in.Months, in.StartDate, in.InterestPercentage)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToScheduleResponse(in.DocumentID, installments), nil
}

// GetSchedule returns a document's installments ordered by number
func (s *PaymentService) GetSchedule(ctx context.Context, documentID uuid.UUID) (*ScheduleResponse, error) {
	repos := s.scope.Repositories()
	if _, err := repos.Documents().FindByID(ctx, documentID); err != nil {
		return nil, err
	}
	rows, err := repos.Installments().FindByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	installments := make([]*finance.Installment, len(rows))
	for i := range rows {
		installments[i] = &rows[i]
	}
	return ToScheduleResponse(documentID, installments), nil
}

// ApplyPaymentToInstallments allocates an existing payment to the document's
// schedule. Payments already allocated, including every payment recorded
// after the schedule, and payments recorded before it are refused.
func (s *PaymentService) ApplyPaymentToInstallments(ctx context.Context, documentID, paymentID uuid.UUID) ([]AllocationDTO, error) {
	var allocations []finance.Allocation
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		payment, err := repos.InvoicePayments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.DocumentID != documentID {
			return errPaymentDocument
		}
		if _, err := repos.Documents().FindByIDForUpdate(ctx, documentID); err != nil {
			return err
		}
		allocations, err = NewInstallmentAllocator(repos, s.logger).ApplyPayment(ctx, documentID, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToAllocationDTOs(allocations), nil
}

// SweepOverdue marks every pending installment due before today as overdue
func (s *PaymentService) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		n, err = NewInstallmentAllocator(repos, s.logger).SweepOverdue(ctx, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("installments marked overdue", zap.Int64("count", n))
	}
	return n, nil
}

// IsRequestInFlight reports whether err means a duplicate idempotent request
// arrived while the first one was still running
func IsRequestInFlight(err error) bool {
	return errors.Is(err, errRequestInFlight)
}
