package treasury

import (
	"context"
	"fmt"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordInput is a pre-signed cash movement. The ledger never flips the sign
// of Amount based on Kind.
type RecordInput struct {
	TreasuryID  uuid.UUID
	Kind        treasury.TransactionKind
	Amount      decimal.Decimal
	Description string
	PartnerID   *uuid.UUID
	Reference   shared.Reference
}

// Ledger owns the treasury transaction log. Like the stock ledger it is bound
// to the repositories of the caller's unit of work.
type Ledger struct {
	treasuries   treasury.Repository
	transactions treasury.TransactionRepository
}

// NewLedger creates a Ledger over repos
func NewLedger(repos appshared.TransactionalRepositories) *Ledger {
	return &Ledger{
		treasuries:   repos.Treasuries(),
		transactions: repos.TreasuryTransactions(),
	}
}

// Balance sums the treasury's transactions. With lock set the treasury row is
// held until the enclosing transaction ends.
func (l *Ledger) Balance(ctx context.Context, treasuryID uuid.UUID, lock bool) (decimal.Decimal, error) {
	var err error
	if lock {
		_, err = l.treasuries.FindByIDForUpdate(ctx, treasuryID)
	} else {
		_, err = l.treasuries.FindByID(ctx, treasuryID)
	}
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := l.transactions.SumByTreasury(ctx, treasuryID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum treasury: %w", err)
	}
	return balance, nil
}

// RecordTransaction locks the treasury and appends one row, refusing any
// amount that would leave the balance below zero
func (l *Ledger) RecordTransaction(ctx context.Context, in RecordInput) (*treasury.Transaction, error) {
	before, err := l.Balance(ctx, in.TreasuryID, true)
	if err != nil {
		return nil, err
	}
	tx, err := treasury.NewTransaction(in.TreasuryID, in.Kind, in.Amount, before, in.Description)
	if err != nil {
		return nil, err
	}
	tx.WithPartner(in.PartnerID).WithReference(in.Reference)
	if err := l.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create treasury transaction: %w", err)
	}
	return tx, nil
}

// cashEffect maps a document type to the kind and sign of its cash movement
func cashEffect(t trade.DocumentType) (treasury.TransactionKind, decimal.Decimal, bool) {
	switch t {
	case trade.DocumentSalesInvoice:
		return treasury.KindCollection, decimal.NewFromInt(1), true
	case trade.DocumentPurchaseInvoice:
		return treasury.KindPayment, decimal.NewFromInt(-1), true
	case trade.DocumentSalesReturn:
		return treasury.KindRefund, decimal.NewFromInt(-1), true
	case trade.DocumentPurchaseReturn:
		return treasury.KindRefund, decimal.NewFromInt(1), true
	case trade.DocumentFixedAsset:
		return treasury.KindAssetPurchase, decimal.NewFromInt(-1), true
	}
	return "", decimal.Zero, false
}

// PostDocumentCashEffect writes the cash movement a posted document implies.
// Documents with nothing paid write nothing. A second call for the same
// document returns the row written by the first.
func (l *Ledger) PostDocumentCashEffect(ctx context.Context, doc *trade.Document, treasuryID uuid.UUID) (*treasury.Transaction, error) {
	amount := doc.CashAmount()
	if !amount.IsPositive() {
		return nil, nil
	}
	kind, sign, ok := cashEffect(doc.Type)
	if !ok {
		return nil, nil
	}
	ref := doc.Reference()
	existing, err := l.transactions.FindByReference(ctx, ref.Kind, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("find cash effect: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	return l.RecordTransaction(ctx, RecordInput{
		TreasuryID:  treasuryID,
		Kind:        kind,
		Amount:      amount.Mul(sign),
		Description: fmt.Sprintf("%s %s", doc.Type, doc.Number),
		PartnerID:   doc.PartnerID,
		Reference:   ref,
	})
}
