package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers of the ledger API
type Handlers struct {
	System   *handler.SystemHandler
	Posting  *handler.PostingHandler
	Treasury *handler.TreasuryHandler
	Payment  *handler.PaymentHandler
	Stock    *handler.StockHandler
	Partner  *handler.PartnerHandler
	Report   *handler.ReportHandler
}

// EngineConfig tunes the middleware chain
type EngineConfig struct {
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
	Profiling      bool
	Meter          metric.Meter
	MaxBodySize    int64
	TrustedProxies []string
	AllowOrigins   []string
}

// NewEngine builds the gin engine with the full middleware chain, the
// probes and every ledger route under /api/v1
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.AllowOrigins

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		metrics,
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   cfg.Profiling,
			SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
		}),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.Actor(),
		middleware.IdempotencyKey(),
		middleware.TracingAttributeInjector(),
	)

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/ready", h.System.Ready)
	}

	r := NewRouter(engine)
	for _, g := range LedgerGroups(h) {
		r.Register(g)
	}
	r.Setup()
	return engine, nil
}

// LedgerGroups returns the route groups of every non-nil handler
func LedgerGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.System != nil {
		groups = append(groups, NewDomainGroup("system", "/system").
			GET("/info", h.System.GetSystemInfo))
	}

	documents := NewDomainGroup("documents", "/documents")
	if h.Posting != nil {
		documents.POST("/:id/post", h.Posting.PostDocument)
	}
	if h.Payment != nil {
		documents.
			POST("/:id/payments", h.Payment.RecordPayment).
			POST("/:id/installments", h.Payment.GenerateSchedule).
			GET("/:id/installments", h.Payment.GetSchedule).
			POST("/:id/installments/apply", h.Payment.ApplyPayment)
		groups = append(groups, NewDomainGroup("installments", "/installments").
			POST("/overdue-sweep", h.Payment.SweepOverdue))
	}
	groups = append(groups, documents)

	if h.Treasury != nil {
		groups = append(groups, NewDomainGroup("treasuries", "/treasuries").
			POST("/:id/transactions", h.Treasury.RecordTransaction).
			GET("/:id/transactions", h.Treasury.ListTransactions).
			GET("/:id/balance", h.Treasury.GetBalance))
	}

	if h.Stock != nil {
		groups = append(groups,
			NewDomainGroup("stock", "/stock").
				GET("/:warehouse_id/:product_id", h.Stock.GetCurrentStock).
				GET("/:warehouse_id/:product_id/validation", h.Stock.ValidateStock),
			NewDomainGroup("products", "/products").
				POST("/:id/avg-cost/recompute", h.Stock.RecomputeAverageCost),
			NewDomainGroup("stock-movements", "/stock-movements").
				POST("/:id/tombstone", h.Stock.TombstoneMovement),
		)
	}

	if h.Partner != nil {
		groups = append(groups, NewDomainGroup("partners", "/partners").
			POST("/balance/recompute", h.Partner.RecomputeAll).
			POST("/:id/balance/recompute", h.Partner.RecomputeBalance))
	}

	if h.Report != nil {
		groups = append(groups, NewDomainGroup("reports", "/reports").
			GET("/financial", h.Report.GetFinancialReport).
			GET("/partners/:id/statement", h.Report.GetPartnerStatement).
			GET("/stock-card/:product_id", h.Report.GetStockCard))
	}
	return groups
}
