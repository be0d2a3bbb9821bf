// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"brauer/internal/domain/audit"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/http/v1/handlers"
	"brauer/internal/infrastructure/http/v1/middleware"
	"brauer/internal/infrastructure/storage/postgres"
	"brauer/internal/infrastructure/storage/postgres/excise_repo"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// Auditor records entity changes; postgres.AuditStore in production.
	Auditor audit.Recorder
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Repositories are stateless; tenant scope and the querier come from
	// the request context.
	movementRepo := excise_repo.NewMovementRepo()
	rateRepo := excise_repo.NewRateRepo()
	reportRepo := excise_repo.NewReportRepo()
	settingsRepo := excise_repo.NewSettingsRepo()
	stockRepo := excise_repo.NewStockDocRepo()

	rateResolver := excise.NewRateResolver(rateRepo)

	ledger := excise.NewLedger(movementRepo, cfg.Auditor, cfg.TxManager)
	deriver := excise.NewDeriver(
		movementRepo, settingsRepo, stockRepo, stockRepo, stockRepo,
		rateResolver, cfg.Auditor, cfg.TxManager,
	)
	checker := excise.NewChecker(settingsRepo, stockRepo, stockRepo, rateResolver)
	reports := excise.NewReports(reportRepo, movementRepo, stockRepo, cfg.Auditor, cfg.TxManager)

	base := handlers.NewBaseHandler()
	movementHandler := handlers.NewMovementHandler(base, ledger)
	reportHandler := handlers.NewReportHandler(base, reports)
	rateHandler := handlers.NewRateHandler(base, rateRepo)
	settingsHandler := handlers.NewSettingsHandler(base, settingsRepo)
	prevalidateHandler := handlers.NewPrevalidateHandler(base, checker)
	eventsHandler := handlers.NewEventsHandler(base, deriver)

	// API v1. Tenant resolution runs before auth so the token's tenant
	// claim can be checked against the header.
	api := router.Group("/api/v1")
	api.Use(middleware.Tenant(cfg.TxManager))
	api.Use(middleware.Auth(cfg.JWTValidator))

	exciseGroup := api.Group("/excise")
	{
		movements := exciseGroup.Group("/movements")
		{
			movements.GET("", movementHandler.List)
			movements.POST("", movementHandler.Create)
			movements.GET("/:id", movementHandler.Get)
			movements.PATCH("/:id", movementHandler.Update)
			movements.DELETE("/:id", movementHandler.Delete)
		}

		reportsGroup := exciseGroup.Group("/reports")
		{
			reportsGroup.GET("", reportHandler.List)
			reportsGroup.POST("/generate", reportHandler.Generate)
			reportsGroup.GET("/:id", reportHandler.Get)
			reportsGroup.GET("/:id/export", reportHandler.Export)
			reportsGroup.POST("/:id/submit", middleware.RequireRole("excise_admin"), reportHandler.Submit)
			reportsGroup.POST("/:id/revert", middleware.RequireRole("excise_admin"), reportHandler.Revert)
		}

		rates := exciseGroup.Group("/rates")
		{
			rates.GET("", rateHandler.List)
			rates.POST("", middleware.RequireRole("excise_admin"), rateHandler.Create)
			rates.DELETE("/:id", middleware.RequireRole("excise_admin"), rateHandler.Deactivate)
		}

		settings := exciseGroup.Group("/settings")
		{
			settings.GET("", settingsHandler.Get)
			settings.PUT("", middleware.RequireRole("excise_admin"), settingsHandler.Update)
		}

		prevalidate := exciseGroup.Group("/prevalidate")
		{
			prevalidate.GET("/stock-issue/:id", prevalidateHandler.StockIssue)
			prevalidate.GET("/batch/:id", prevalidateHandler.Batch)
		}

		events := exciseGroup.Group("/events")
		{
			events.POST("/stock-issue/:id/confirmed", eventsHandler.StockIssueConfirmed)
			events.POST("/stock-issue/:id/cancelled", eventsHandler.StockIssueCancelled)
			events.POST("/batch/:id/packaging-loss", eventsHandler.BatchPackagingLoss)
		}

		exciseGroup.POST("/reconcile", eventsHandler.Reconcile)
	}

	return router
}
