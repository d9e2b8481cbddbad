package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
)

// OverdueSweepJobName identifies the installment overdue sweep
const OverdueSweepJobName = "overdue_sweep"

// OverdueSweeper marks past-due pending installments overdue
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
}

// NewOverdueSweepJob builds the job that flips unpaid installments whose due
// date has passed to overdue
func NewOverdueSweepJob(sweeper OverdueSweeper, interval time.Duration, metrics *telemetry.LedgerMetrics, logger *zap.Logger) Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Job{
		Name:     OverdueSweepJobName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			marked, err := sweeper.SweepOverdue(ctx, time.Now())
			if err != nil {
				return err
			}
			metrics.RecordOverdueSweep(ctx, marked)
			if marked > 0 {
				logger.Info("Installments marked overdue", zap.Int64("count", marked))
			}
			return nil
		},
	}
}
