package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus represents the state of a scheduled installment
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// IsValid checks if the status is a valid InstallmentStatus
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue:
		return true
	}
	return false
}

// IsTerminal returns true once nothing can change the installment any more
func (s InstallmentStatus) IsTerminal() bool {
	return s == InstallmentPaid
}

// CanApplyPayment returns true if payments can be allocated in this status
func (s InstallmentStatus) CanApplyPayment() bool {
	return s == InstallmentPending || s == InstallmentOverdue
}

// Installment is one row of a document's payment schedule.
//
//	pending -> paid | pending (partial) | overdue
//	overdue -> paid
//
// paid is terminal.
type Installment struct {
	ID               uuid.UUID
	DocumentID       uuid.UUID
	Number           int
	Amount           decimal.Decimal
	DueDate          time.Time
	Status           InstallmentStatus
	PaidAmount       decimal.Decimal
	PaidAt           *time.Time
	PaidBy           *uuid.UUID
	InvoicePaymentID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Room returns the amount still owed on the installment
func (i *Installment) Room() decimal.Decimal {
	room := i.Amount.Sub(i.PaidAmount)
	if room.IsNegative() {
		return decimal.Zero
	}
	return room
}

// Allocate applies up to available to the installment and returns the amount
// actually applied. Full settlement flips the installment to paid and stamps
// who paid, when and through which payment.
func (i *Installment) Allocate(available decimal.Decimal, paymentID uuid.UUID, paidBy *uuid.UUID, at time.Time) decimal.Decimal {
	if !i.Status.CanApplyPayment() || !available.IsPositive() {
		return decimal.Zero
	}
	applied := decimal.Min(i.Room(), available)
	if applied.IsZero() {
		return decimal.Zero
	}
	i.PaidAmount = shared.RoundMoney(i.PaidAmount.Add(applied))
	i.UpdatedAt = at
	if i.PaidAmount.Equal(i.Amount) {
		i.Status = InstallmentPaid
		i.PaidAt = &at
		i.PaidBy = paidBy
		pid := paymentID
		i.InvoicePaymentID = &pid
	}
	return applied
}

// MarkOverdue moves a pending installment whose due date lies before today to
// overdue. Paid and already-overdue installments are left alone.
func (i *Installment) MarkOverdue(now time.Time) bool {
	if i.Status != InstallmentPending {
		return false
	}
	if !i.DueDate.Before(shared.StartOfDay(now)) {
		return false
	}
	i.Status = InstallmentOverdue
	i.UpdatedAt = now
	return true
}
