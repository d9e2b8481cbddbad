package finance

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation records how much of a payment landed on one installment
type Allocation struct {
	InstallmentID uuid.UUID
	Number        int
	Applied       decimal.Decimal
	Settled       bool
}

// AllocateFIFO walks the open installments oldest first and applies amount
// until it runs out. Installments after the first partially paid one receive
// nothing. Any amount left after the last installment is returned as the
// remainder; the caller decides whether that is an error.
func AllocateFIFO(installments []*Installment, amount decimal.Decimal, paymentID uuid.UUID, paidBy *uuid.UUID, at time.Time) ([]Allocation, decimal.Decimal) {
	ordered := make([]*Installment, len(installments))
	copy(ordered, installments)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Number < ordered[b].Number })

	remaining := amount
	var allocations []Allocation
	for _, inst := range ordered {
		if !remaining.IsPositive() {
			break
		}
		applied := inst.Allocate(remaining, paymentID, paidBy, at)
		if applied.IsZero() {
			continue
		}
		remaining = remaining.Sub(applied)
		allocations = append(allocations, Allocation{
			InstallmentID: inst.ID,
			Number:        inst.Number,
			Applied:       applied,
			Settled:       inst.Status == InstallmentPaid,
		})
	}
	return allocations, remaining
}
