package partner

import (
	"context"
	"fmt"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceEngine derives partner balances from posted credit documents. It
// always recomputes the full balance; it never patches the cached value.
type BalanceEngine struct {
	partners  partner.Repository
	documents trade.DocumentRepository
}

// NewBalanceEngine creates a BalanceEngine over repos
func NewBalanceEngine(repos appshared.TransactionalRepositories) *BalanceEngine {
	return &BalanceEngine{
		partners:  repos.Partners(),
		documents: repos.Documents(),
	}
}

// Recalculate locks the partner, rebuilds its balance from opening balance
// plus every posted non-cash document and stores the result
func (e *BalanceEngine) Recalculate(ctx context.Context, partnerID uuid.UUID) (decimal.Decimal, error) {
	p, err := e.partners.FindByIDForUpdate(ctx, partnerID)
	if err != nil {
		return decimal.Zero, err
	}
	docs, err := e.documents.FindPartnerBalanceDocuments(ctx, partnerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load partner documents: %w", err)
	}
	deltas := make([]decimal.Decimal, 0, len(docs))
	for i := range docs {
		if !docs[i].AffectsPartnerBalance() {
			continue
		}
		deltas = append(deltas, docs[i].RawPartnerDelta())
	}
	balance := p.Recalculate(deltas)
	if err := e.partners.UpdateCurrentBalance(ctx, partnerID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("update partner balance: %w", err)
	}
	return balance, nil
}
