package treasury

import (
	"context"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service runs treasury operations in their own unit of work
type Service struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewService creates a new treasury Service
func NewService(scope appshared.TransactionScope, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scope: scope, logger: logger}
}

// RecordTransaction appends a manual cash movement (income, expense, capital
// deposit, drawing, commission payout ...)
func (s *Service) RecordTransaction(ctx context.Context, req RecordTransactionRequest) (*TransactionResponse, error) {
	in := RecordInput{
		TreasuryID:  req.TreasuryID,
		Kind:        treasury.TransactionKind(req.Kind),
		Amount:      req.Amount,
		Description: req.Description,
		PartnerID:   req.PartnerID,
	}
	if req.ReferenceKind != "" && req.ReferenceID != nil {
		in.Reference = shared.NewReference(req.ReferenceKind, *req.ReferenceID)
	}

	var tx *treasury.Transaction
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		tx, err = NewLedger(repos).RecordTransaction(ctx, in)
		return err
	})
	if err != nil {
		s.logger.Warn("treasury transaction rejected",
			zap.String("treasury_id", req.TreasuryID.String()),
			zap.String("kind", req.Kind),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// GetBalance returns the treasury's balance without taking its lock
func (s *Service) GetBalance(ctx context.Context, treasuryID uuid.UUID) (*BalanceResponse, error) {
	repos := s.scope.Repositories()
	t, err := repos.Treasuries().FindByID(ctx, treasuryID)
	if err != nil {
		return nil, err
	}
	balance, err := NewLedger(repos).Balance(ctx, treasuryID, false)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{TreasuryID: t.ID, Name: t.Name, Balance: balance}, nil
}

// ListTransactions returns the most recent transactions of a treasury, newest first
func (s *Service) ListTransactions(ctx context.Context, treasuryID uuid.UUID, limit int) ([]TransactionResponse, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	repos := s.scope.Repositories()
	if _, err := repos.Treasuries().FindByID(ctx, treasuryID); err != nil {
		return nil, err
	}
	txs, err := repos.TreasuryTransactions().FindByTreasury(ctx, treasuryID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionResponse, len(txs))
	for i := range txs {
		out[i] = ToTransactionResponse(&txs[i])
	}
	return out, nil
}
