package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InstallmentRepository persists installment schedules
type InstallmentRepository interface {
	CreateBatch(ctx context.Context, installments []*Installment) error
	ExistsForDocument(ctx context.Context, documentID uuid.UUID) (bool, error)
	// FindOpenForUpdate returns the pending and overdue installments of the
	// document ordered by number and row-locked for the enclosing transaction
	FindOpenForUpdate(ctx context.Context, documentID uuid.UUID) ([]*Installment, error)
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]Installment, error)
	Save(ctx context.Context, installment *Installment) error
	// MarkOverdue flips every pending installment due before cutoff and returns the count
	MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error)
	// RecordAllocations stores what paymentID contributed to each installment.
	// A payment lands on an installment at most once.
	RecordAllocations(ctx context.Context, paymentID uuid.UUID, allocations []Allocation, at time.Time) error
	// FindAllocationsByPayment returns the stored allocations of a payment by installment number
	FindAllocationsByPayment(ctx context.Context, paymentID uuid.UUID) ([]Allocation, error)
}
