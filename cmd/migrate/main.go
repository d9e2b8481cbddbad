package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/migrations"
)

// Globals are shared by every subcommand
type Globals struct {
	Path     string `help:"Migrations directory. Defaults to the migrations compiled into the binary." type:"path"`
	LogLevel string `help:"Log level." default:"info" enum:"debug,info,warn,error"`
}

type UpCmd struct{}

func (c *UpCmd) Run(m *migration.Migrator) error { return m.Up() }

type DownCmd struct {
	Yes bool `help:"Confirm rolling back every migration." short:"y"`
}

func (c *DownCmd) Run(m *migration.Migrator) error {
	if !c.Yes {
		return fmt.Errorf("down drops the whole ledger schema; pass --yes to confirm")
	}
	return m.Down()
}

type StepCmd struct {
	N int `arg:"" help:"Number of migrations to apply; negative rolls back."`
}

func (c *StepCmd) Run(m *migration.Migrator) error { return m.Steps(c.N) }

type VersionCmd struct{}

func (c *VersionCmd) Run(m *migration.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Printf("version: %d, dirty: %t\n", version, dirty)
	return nil
}

type ForceCmd struct {
	Version int `arg:"" help:"Version to record as applied."`
}

func (c *ForceCmd) Run(m *migration.Migrator) error { return m.Force(c.Version) }

type CreateCmd struct {
	Name string `arg:"" help:"Short description, e.g. \"add partner index\"."`
	Dir  string `help:"Directory to write into." default:"migrations" type:"path"`
}

func (c *CreateCmd) Run() error {
	mf, err := migration.CreateMigration(c.Dir, c.Name)
	if err != nil {
		return err
	}
	fmt.Printf("created %s\ncreated %s\n", mf.UpPath, mf.DownPath)
	return nil
}

type ListCmd struct{}

func (c *ListCmd) Run(g *Globals) error {
	fsys := os.DirFS(g.Path)
	if g.Path == "" {
		fsys = migrations.FS
	}
	list, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	for _, mf := range list {
		fmt.Printf("%06d  %s\n", mf.Version, mf.Name)
	}
	return nil
}

var cli struct {
	Globals

	Up      UpCmd      `cmd:"" help:"Apply all pending migrations."`
	Down    DownCmd    `cmd:"" help:"Roll back all migrations."`
	Step    StepCmd    `cmd:"" help:"Apply or roll back N migrations."`
	Version VersionCmd `cmd:"" help:"Print the applied migration version."`
	Force   ForceCmd   `cmd:"" help:"Set the version without running migrations."`
	Create  CreateCmd  `cmd:"" help:"Create a new migration pair."`
	List    ListCmd    `cmd:"" help:"List available migrations."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Description("Ledger database schema migrations."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	log, err := logger.New(&logger.Config{Level: cli.LogLevel, Format: "console", Output: "stdout"})
	ctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	switch ctx.Selected().Name {
	case "create", "list":
		ctx.FatalIfErrorf(ctx.Run())
		return
	}

	m, closeDB, err := openMigrator(cli.Path, log)
	ctx.FatalIfErrorf(err)
	defer closeDB()

	ctx.FatalIfErrorf(ctx.Run(m))
}

func openMigrator(path string, log *zap.Logger) (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if path == "" {
		path = cfg.Database.MigrationsPath
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	m, err := migration.New(db, path, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}, nil
}
