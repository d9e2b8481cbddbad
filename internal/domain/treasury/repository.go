package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository persists treasuries
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Treasury, error)
	// FindByIDForUpdate loads the treasury and holds its row lock for the
	// rest of the enclosing transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Treasury, error)
	FindAll(ctx context.Context) ([]Treasury, error)
	Save(ctx context.Context, t *Treasury) error
}

// TransactionRepository is the append-only treasury transaction log
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	SumByTreasury(ctx context.Context, treasuryID uuid.UUID) (decimal.Decimal, error)
	SumAll(ctx context.Context) (decimal.Decimal, error)
	// SumByKinds sums amounts of the given kinds created in [from, to)
	SumByKinds(ctx context.Context, kinds []TransactionKind, from, to time.Time) (decimal.Decimal, error)
	FindByReference(ctx context.Context, kind string, id uuid.UUID) (*Transaction, error)
	FindByTreasury(ctx context.Context, treasuryID uuid.UUID, limit int) ([]Transaction, error)
}
