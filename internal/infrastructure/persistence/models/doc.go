// Package models contains the GORM persistence models of the ledger tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// entity with ToDomain and a FromDomain constructor.
//
// Ledger tables (stock_movements, treasury_transactions, invoice_payments) are
// insert-only. stock_keys carries no data and exists only to be row-locked.
package models

// All returns every model in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&ProductModel{},
		&StockKeyModel{},
		&StockMovementModel{},
		&TreasuryModel{},
		&TreasuryTransactionModel{},
		&PartnerModel{},
		&DocumentModel{},
		&DocumentItemModel{},
		&InvoicePaymentModel{},
		&InstallmentModel{},
		&InstallmentAllocationModel{},
	}
}

// PartialIndexes are the indexes struct tags cannot express. Both PostgreSQL
// and SQLite accept them verbatim.
var PartialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_treasury_tx_reference ON treasury_transactions (reference_kind, reference_id) WHERE reference_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS ix_stock_movements_live ON stock_movements (warehouse_id, product_id) WHERE tombstoned = false`,
}
