package partner

import (
	"context"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceResponse is a partner's recomputed balance
type BalanceResponse struct {
	PartnerID  uuid.UUID       `json:"partner_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Balance    decimal.Decimal `json:"balance"`
	Receivable decimal.Decimal `json:"receivable"`
	Payable    decimal.Decimal `json:"payable"`
}

// RecalculateAllResult summarizes a bulk repair
type RecalculateAllResult struct {
	Processed int         `json:"processed"`
	Changed   int         `json:"changed"`
	Failed    []uuid.UUID `json:"failed,omitempty"`
}

// Service exposes the balance engine as an operator repair
type Service struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewService creates a new partner Service
func NewService(scope appshared.TransactionScope, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scope: scope, logger: logger}
}

// UpdatePartnerBalance recomputes one partner's balance
func (s *Service) UpdatePartnerBalance(ctx context.Context, partnerID uuid.UUID) (*BalanceResponse, error) {
	var resp *BalanceResponse
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		if _, err := NewBalanceEngine(repos).Recalculate(ctx, partnerID); err != nil {
			return err
		}
		p, err := repos.Partners().FindByID(ctx, partnerID)
		if err != nil {
			return err
		}
		resp = &BalanceResponse{
			PartnerID:  p.ID,
			Name:       p.Name,
			Type:       string(p.Type),
			Balance:    p.CurrentBalance,
			Receivable: p.Receivable(),
			Payable:    p.Payable(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RecalculateAll repairs every partner, one unit of work each. A failing
// partner is logged and skipped.
func (s *Service) RecalculateAll(ctx context.Context) (*RecalculateAllResult, error) {
	partners, err := s.scope.Repositories().Partners().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	result := &RecalculateAllResult{}
	for i := range partners {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		before := partners[i].CurrentBalance
		resp, err := s.UpdatePartnerBalance(ctx, partners[i].ID)
		result.Processed++
		if err != nil {
			s.logger.Error("partner balance repair failed",
				zap.String("partner_id", partners[i].ID.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, partners[i].ID)
			continue
		}
		if !resp.Balance.Equal(before) {
			result.Changed++
			s.logger.Info("partner balance corrected",
				zap.String("partner_id", partners[i].ID.String()),
				zap.String("before", before.String()),
				zap.String("after", resp.Balance.String()),
			)
		}
	}
	return result, nil
}
