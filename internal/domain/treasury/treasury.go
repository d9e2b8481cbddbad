package treasury

import (
	"github.com/erp/ledger/internal/domain/shared"
)

// Treasury is a cash account (till, safe or bank) whose balance is derived
// from its transaction log
type Treasury struct {
	shared.BaseEntity
	Name     string
	IsActive bool
}

// NewTreasury creates an active treasury
func NewTreasury(name string) (*Treasury, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Treasury name cannot be empty")
	}
	return &Treasury{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		IsActive:   true,
	}, nil
}
