package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository persists partners
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Partner, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Partner, error)
	FindAll(ctx context.Context) ([]Partner, error)
	Save(ctx context.Context, p *Partner) error
	UpdateCurrentBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}
