package treasury

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies a cash movement. The ledger never derives the
// sign of an amount from its kind; callers pass pre-signed amounts.
type TransactionKind string

const (
	KindIncome           TransactionKind = "income"
	KindExpense          TransactionKind = "expense"
	KindCollection       TransactionKind = "collection"
	KindPayment          TransactionKind = "payment"
	KindRefund           TransactionKind = "refund"
	KindCommissionPayout TransactionKind = "commission_payout"
	KindCapitalDeposit   TransactionKind = "capital_deposit"
	KindDrawing          TransactionKind = "drawing"
	KindAssetPurchase    TransactionKind = "asset_purchase"
)

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is known
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindIncome,
		KindExpense,
		KindCollection,
		KindPayment,
		KindRefund,
		KindCommissionPayout,
		KindCapitalDeposit,
		KindDrawing,
		KindAssetPurchase:
		return true
	}
	return false
}

// Transaction is one immutable row of the treasury ledger
type Transaction struct {
	ID           uuid.UUID
	TreasuryID   uuid.UUID
	Kind         TransactionKind
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Description  string
	PartnerID    *uuid.UUID
	Reference    shared.Reference
	CreatedAt    time.Time
}

// NewTransaction validates a signed amount against the current balance and
// creates the row. It returns InsufficientResourceError, without producing a
// row, if the balance would drop below zero.
func NewTransaction(treasuryID uuid.UUID, kind TransactionKind, amount, balanceBefore decimal.Decimal, description string) (*Transaction, error) {
	if treasuryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TREASURY", "Treasury ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_KIND", fmt.Sprintf("unknown transaction kind %q", kind))
	}
	amount = shared.RoundMoney(amount)
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount cannot be zero")
	}
	after, err := NextBalance(treasuryID, balanceBefore, amount)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		ID:           uuid.New(),
		TreasuryID:   treasuryID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: after,
		Description:  description,
		CreatedAt:    time.Now(),
	}, nil
}

// NextBalance returns before + amount, or an error if the result is negative
func NextBalance(treasuryID uuid.UUID, before, amount decimal.Decimal) (decimal.Decimal, error) {
	after := shared.RoundMoney(before.Add(amount))
	if after.IsNegative() {
		return decimal.Zero, shared.NewInsufficientResourceError(
			shared.ErrInsufficientBalance,
			"treasury",
			treasuryID.String(),
			shared.RoundMoney(before),
			shared.RoundMoney(amount.Neg()),
		)
	}
	return after, nil
}

// WithPartner tags the transaction with a partner
func (t *Transaction) WithPartner(partnerID *uuid.UUID) *Transaction {
	t.PartnerID = partnerID
	return t
}

// WithReference tags the transaction with the document or payment that produced it
func (t *Transaction) WithReference(ref shared.Reference) *Transaction {
	t.Reference = ref
	return t
}

// IsInflow returns true for positive amounts
func (t *Transaction) IsInflow() bool {
	return t.Amount.IsPositive()
}
