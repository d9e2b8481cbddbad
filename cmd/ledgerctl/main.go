// Command ledgerctl runs the ledger repairs and reports against the
// configured database without going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appfinance "github.com/erp/ledger/internal/application/finance"
	appinventory "github.com/erp/ledger/internal/application/inventory"
	apppartner "github.com/erp/ledger/internal/application/partner"
	appreport "github.com/erp/ledger/internal/application/report"
	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
)

// Globals are shared by every subcommand
type Globals struct {
	LogLevel string        `help:"Log level." default:"warn" enum:"debug,info,warn,error"`
	Timeout  time.Duration `help:"Give up after this long." default:"5m"`
}

// app is what the subcommands run against
type app struct {
	ctx     context.Context
	scope   appshared.TransactionScope
	db      *persistence.Database
	log     *zap.Logger
	options appinventory.StockLedgerOptions
}

type RecomputeAvgCostCmd struct {
	ProductID uuid.UUID `arg:"" help:"Product to recompute."`
}

func (c *RecomputeAvgCostCmd) Run(a *app) error {
	avg, err := appinventory.NewStockService(a.scope, a.options, a.log).UpdateProductAvgCost(a.ctx, c.ProductID)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"product_id": c.ProductID, "average_cost": avg})
}

type TombstoneMovementCmd struct {
	MovementID uuid.UUID `arg:"" help:"Stock movement to void."`
}

func (c *TombstoneMovementCmd) Run(a *app) error {
	result, err := appinventory.NewStockService(a.scope, a.options, a.log).TombstoneMovement(a.ctx, c.MovementID)
	if err != nil {
		return err
	}
	return printJSON(result)
}

type RecomputePartnerCmd struct {
	PartnerID uuid.UUID `arg:"" help:"Partner to recompute."`
}

func (c *RecomputePartnerCmd) Run(a *app) error {
	balance, err := apppartner.NewService(a.scope, a.log).UpdatePartnerBalance(a.ctx, c.PartnerID)
	if err != nil {
		return err
	}
	return printJSON(balance)
}

type RecomputePartnersCmd struct{}

func (c *RecomputePartnersCmd) Run(a *app) error {
	result, err := apppartner.NewService(a.scope, a.log).RecalculateAll(a.ctx)
	if err != nil {
		return err
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d partners could not be recomputed", len(result.Failed))
	}
	return nil
}

type SweepOverdueCmd struct {
	AsOf time.Time `help:"Treat this instant as now (RFC 3339)." placeholder:"TIME"`
}

func (c *SweepOverdueCmd) Run(a *app) error {
	now := c.AsOf
	if now.IsZero() {
		now = time.Now()
	}
	marked, err := appfinance.NewPaymentService(a.scope, a.log).SweepOverdue(a.ctx, now)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"marked": marked, "as_of": now})
}

type ReportCmd struct {
	From time.Time `required:"" help:"First day, inclusive." format:"2006-01-02"`
	To   time.Time `required:"" help:"Last day, inclusive." format:"2006-01-02"`
}

func (c *ReportCmd) Run(a *app) error {
	svc := appreport.NewService(a.scope, persistence.NewGormReportRepository(a.db.DB), a.log)
	result, err := svc.GenerateReport(a.ctx, c.From, c.To)
	if err != nil {
		return err
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.IsBalanced() {
		fmt.Fprintf(os.Stderr, "warning: balance sheet is off by %s\n", result.BalanceDiscrepancy)
	}
	return nil
}

var cli struct {
	Globals

	RecomputeAvgCost  RecomputeAvgCostCmd  `cmd:"" help:"Rebuild a product's weighted average cost from its movements."`
	TombstoneMovement TombstoneMovementCmd `cmd:"" help:"Void a stock movement and recompute its product's cost."`
	RecomputePartner  RecomputePartnerCmd  `cmd:"" help:"Rebuild one partner's balance from its documents."`
	RecomputePartners RecomputePartnersCmd `cmd:"" help:"Rebuild every partner's balance."`
	SweepOverdue      SweepOverdueCmd      `cmd:"" help:"Mark pending installments past due as overdue."`
	Report            ReportCmd            `cmd:"" help:"Print the financial report for a day range."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("ledgerctl"),
		kong.Description("Ledger repairs and reports."),
		kong.UsageOnError(),
	)

	log, err := logger.New(&logger.Config{Level: cli.LogLevel, Format: "console", Output: "stderr"})
	kctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: log, LogLevel: "warn"})
	kctx.FatalIfErrorf(err)
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cli.Timeout)
	defer cancel()

	kctx.FatalIfErrorf(kctx.Run(&app{
		ctx:     ctx,
		scope:   persistence.NewGormTransactionScope(db.DB),
		db:      db,
		log:     log,
		options: appinventory.StockLedgerOptions{AllowNegativeStock: cfg.Ledger.AllowNegativeStock},
	}))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
