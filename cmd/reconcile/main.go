// Package main runs a one-shot reconciliation sweep: confirmed stock issues
// that never produced excise movements are derived now. Intended for cron or
// manual invocation after missed confirmation notifications.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"brauer/internal/config"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/domain/excise"
	"brauer/internal/infrastructure/storage/postgres"
	"brauer/internal/infrastructure/storage/postgres/excise_repo"
	"brauer/pkg/logger"
)

func main() {
	var (
		tenantFlag = flag.String("tenant", "", "tenant ID to reconcile (required)")
		limitFlag  = flag.Int("limit", 100, "maximum number of issues to derive")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	tenantID, err := id.Parse(*tenantFlag)
	if err != nil {
		log.Fatalw("invalid or missing -tenant flag", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	movementRepo := excise_repo.NewMovementRepo()
	settingsRepo := excise_repo.NewSettingsRepo()
	rateRepo := excise_repo.NewRateRepo()
	stockRepo := excise_repo.NewStockDocRepo()

	deriver := excise.NewDeriver(
		movementRepo, settingsRepo, stockRepo, stockRepo, stockRepo,
		excise.NewRateResolver(rateRepo), auditStore, txManager,
	)

	ctx = tenant.WithTenant(ctx, tenantID)
	ctx = tenant.WithTxManager(ctx, txManager)

	derived, err := deriver.Reconcile(ctx, *limitFlag)
	if err != nil {
		log.Fatalw("reconciliation failed", "tenant_id", tenantID, "error", err)
	}

	log.Infow("reconciliation complete", "tenant_id", tenantID, "derived", derived)
}
