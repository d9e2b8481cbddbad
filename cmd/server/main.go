package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsm/redislock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	appfinance "github.com/erp/ledger/internal/application/finance"
	appinventory "github.com/erp/ledger/internal/application/inventory"
	apppartner "github.com/erp/ledger/internal/application/partner"
	"github.com/erp/ledger/internal/application/posting"
	appreport "github.com/erp/ledger/internal/application/report"
	apptreasury "github.com/erp/ledger/internal/application/treasury"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if err := run(cfg); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// the log provider comes first so the logger can tee into it
	bootLog := zap.NewNop()
	logProvider, err := telemetry.NewLoggerProvider(ctx, otelCfg, bootLog)
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, telemetry.NewZapCore(logProvider, cfg.Telemetry.ServiceName, zapcore.InfoLevel))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Error("Failed to initialize tracer provider", zap.Error(err))
		return err
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, otelCfg, log)
	if err != nil {
		log.Error("Failed to initialize meter provider", zap.Error(err))
		return err
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Error("Failed to start profiler", zap.Error(err))
		return err
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	defer func() {
		shutdownCtx := context.Background()
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Logger provider shutdown failed", zap.Error(err))
		}
	}()

	meter := meterProvider.Meter("github.com/erp/ledger")

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      cfg.Log.Level,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		Instrumentation: telemetry.DBConfig{
			TraceEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		},
		Meter: meter,
	})
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Error("Failed to get sql.DB", zap.Error(err))
		return err
	}
	migrator, err := migration.New(sqlDB, cfg.Database.MigrationsPath, log)
	if err != nil {
		log.Error("Failed to create migrator", zap.Error(err))
		return err
	}
	// the migrator shares the pool, so it is not closed here
	if err := migrator.Up(); err != nil {
		log.Error("Failed to apply migrations", zap.Error(err))
		return err
	}

	idempotency, redisClient, cacheCloser, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Build(ctx)
	if err != nil {
		log.Error("Failed to build idempotency store", zap.Error(err))
		return err
	}
	defer func() {
		if err := cacheCloser.Close(); err != nil {
			log.Warn("Error closing cache", zap.Error(err))
		}
	}()

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		log.Error("Failed to create ledger metrics", zap.Error(err))
		return err
	}

	scope := persistence.NewGormTransactionScope(db.DB)
	stockOpts := appinventory.StockLedgerOptions{AllowNegativeStock: cfg.Ledger.AllowNegativeStock}

	stockService := appinventory.NewStockService(scope, stockOpts, log)
	treasuryService := apptreasury.NewService(scope, log)
	partnerService := apppartner.NewService(scope, log)
	paymentService := appfinance.NewPaymentService(scope, log)
	paymentService.SetIdempotencyStore(idempotency, cfg.Ledger.IdempotencyTTL)
	orchestrator := posting.NewOrchestrator(scope, stockOpts, log, ledgerMetrics)
	reportService := appreport.NewService(scope, persistence.NewGormReportRepository(db.DB), log)

	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.Ping)}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Profiling:      profiler.IsEnabled(),
		Meter:          meter,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		AllowOrigins:   cfg.HTTP.AllowOrigins,
	}, router.Handlers{
		System:   handler.NewSystemHandler(cfg.App.Name, version, checks),
		Posting:  handler.NewPostingHandler(orchestrator),
		Treasury: handler.NewTreasuryHandler(treasuryService),
		Payment:  handler.NewPaymentHandler(paymentService),
		Stock:    handler.NewStockHandler(stockService),
		Partner:  handler.NewPartnerHandler(partnerService),
		Report:   handler.NewReportHandler(reportService),
	})
	if err != nil {
		log.Error("Failed to build HTTP engine", zap.Error(err))
		return err
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		var locker *redislock.Client
		if redisClient != nil {
			locker = redislock.New(redisClient)
		} else {
			log.Warn("Scheduler running without a distributed lock; run a single instance")
		}
		sched, err = scheduler.NewScheduler(scheduler.Config{
			JobTimeout: cfg.Scheduler.JobTimeout,
			LockTTL:    cfg.Scheduler.LockTTL,
		}, locker, log)
		if err != nil {
			log.Error("Failed to create scheduler", zap.Error(err))
			return err
		}
		job := scheduler.NewOverdueSweepJob(paymentService, cfg.Scheduler.OverdueSweepInterval, ledgerMetrics, log)
		if err := sched.Register(job); err != nil {
			log.Error("Failed to register overdue sweep", zap.Error(err))
			return err
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sched != nil {
		g.Go(func() error {
			return sched.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				log.Warn("Scheduler stop failed", zap.Error(err))
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}
