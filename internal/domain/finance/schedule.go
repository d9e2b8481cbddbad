package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ScheduleTotal returns settleable × (1 + interestPct/100) rounded to money scale
func ScheduleTotal(settleable, interestPct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(interestPct.Div(hundred))
	return shared.RoundMoney(settleable.Mul(factor))
}

// GenerateSchedule splits settleable (plus interest) into months installments.
// Each installment is floor(total/months) at money scale and the last one
// absorbs the remainder, so the amounts always sum to the total exactly. Due
// dates fall on start + k calendar months, clamped to the end of shorter months.
func GenerateSchedule(documentID uuid.UUID, settleable decimal.Decimal, months int, start time.Time, interestPct decimal.Decimal) ([]*Installment, error) {
	if months <= 0 {
		return nil, shared.NewInvariantViolation("months", "must be positive")
	}
	if !settleable.IsPositive() {
		return nil, shared.NewInvariantViolation("remaining_amount", "must be positive to schedule installments")
	}
	if interestPct.IsNegative() {
		return nil, shared.NewInvariantViolation("interest_percentage", "cannot be negative")
	}

	total := ScheduleTotal(settleable, interestPct)
	n := decimal.NewFromInt(int64(months))
	base := shared.FloorMoney(total.Div(n))
	last := total.Sub(base.Mul(decimal.NewFromInt(int64(months - 1))))

	now := time.Now()
	start = shared.StartOfDay(start)
	installments := make([]*Installment, 0, months)
	for k := 0; k < months; k++ {
		amount := base
		if k == months-1 {
			amount = last
		}
		installments = append(installments, &Installment{
			ID:         uuid.New(),
			DocumentID: documentID,
			Number:     k + 1,
			Amount:     amount,
			DueDate:    AddMonthsClamped(start, k),
			Status:     InstallmentPending,
			PaidAmount: decimal.Zero,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return installments, nil
}

// AddMonthsClamped adds n calendar months to t without overflowing into the
// following month: Jan 31 + 1 month is Feb 28 (or 29), not Mar 3.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return first.AddDate(0, 0, d-1)
}
