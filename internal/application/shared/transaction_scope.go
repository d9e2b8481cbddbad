package shared

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/domain/treasury"
)

// TransactionScope runs a unit of work. Every repository handed to fn shares
// one database transaction: fn returning an error rolls all of it back, fn
// returning nil commits it. Row locks taken inside fn are held until then.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
	// Repositories returns repositories bound to the plain connection, for
	// reads that need no unit of work
	Repositories() TransactionalRepositories
}

// TransactionalRepositories is the capability set the ledgers are built on
type TransactionalRepositories interface {
	Products() inventory.ProductRepository
	StockMovements() inventory.StockMovementRepository
	Treasuries() treasury.Repository
	TreasuryTransactions() treasury.TransactionRepository
	Partners() partner.Repository
	Documents() trade.DocumentRepository
	InvoicePayments() trade.InvoicePaymentRepository
	Installments() finance.InstallmentRepository
}
