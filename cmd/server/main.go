package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/config"
	"github.com/mamadbah2/stockroom/internal/repository/memory"
	"github.com/mamadbah2/stockroom/internal/repository/mongodb"
	"github.com/mamadbah2/stockroom/internal/repository/sheets"
	"github.com/mamadbah2/stockroom/internal/repository/supabase"
	"github.com/mamadbah2/stockroom/internal/scheduler"
	"github.com/mamadbah2/stockroom/internal/server/handlers"
	"github.com/mamadbah2/stockroom/internal/server/router"
	"github.com/mamadbah2/stockroom/internal/service/alerts"
	insightsvc "github.com/mamadbah2/stockroom/internal/service/insights"
	"github.com/mamadbah2/stockroom/internal/service/inventory"
	reportingsvc "github.com/mamadbah2/stockroom/internal/service/reporting"
	"github.com/mamadbah2/stockroom/internal/service/scan"
	"github.com/mamadbah2/stockroom/internal/service/session"
	"github.com/mamadbah2/stockroom/pkg/clients/anthropic"
	supabaseclient "github.com/mamadbah2/stockroom/pkg/clients/supabase"
	whatsappclient "github.com/mamadbah2/stockroom/pkg/clients/whatsapp"
	"github.com/mamadbah2/stockroom/pkg/logger"
	"github.com/mamadbah2/stockroom/pkg/metrics"
)

// backend is the storage and auth collaborator pair every driver provides.
type backend interface {
	inventory.Backend
	session.Authenticator
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	inventoryMetrics := metrics.NewInventoryMetrics(registry)
	cronMetrics := metrics.NewCronJobMetrics(registry)

	var store backend
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = memory.NewRepository(baseLogger.Named("repo.memory"))
		baseLogger.Warn("memory storage driver enabled, data is lost on restart")
	default:
		store = supabase.NewRepository(supabaseclient.NewClient(cfg.Supabase), baseLogger.Named("repo.supabase"))
	}

	gate := session.NewGate(store, baseLogger.Named("svc.session"))
	defer gate.Close()

	inventoryOpts := []inventory.Option{
		inventory.WithActivityLimit(cfg.Storage.ActivityLimit),
		inventory.WithMetrics(inventoryMetrics),
	}
	if cfg.WhatsApp.AlertsEnabled() {
		notifier := alerts.NewWhatsAppNotifier(whatsappclient.NewClient(cfg.WhatsApp), cfg.WhatsApp.ManagerID, baseLogger.Named("svc.alerts"))
		inventoryOpts = append(inventoryOpts, inventory.WithNotifier(notifier))
		baseLogger.Info("whatsapp low-stock alerts enabled")
	}
	inventorySvc := inventory.NewService(store, gate, baseLogger.Named("svc.inventory"), inventoryOpts...)
	gate.OnChange(inventorySvc.OnSessionChange)

	resolveCtx, cancelResolve := context.WithTimeout(context.Background(), 15*time.Second)
	if err := gate.Resolve(resolveCtx); err != nil {
		baseLogger.Warn("no session restored", zap.Error(err))
	}
	cancelResolve()

	var archive reportingsvc.SnapshotArchive
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := mongodb.NewSnapshotRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive = mongoRepo
	} else {
		baseLogger.Warn("mongodb uri missing, snapshot trend disabled")
	}

	var exporter reportingsvc.SnapshotExporter
	if cfg.Sheets.SpreadsheetID != "" {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = sheetsRepo
	}

	reportingSvc := reportingsvc.NewService(inventorySvc, gate, archive, exporter, location, baseLogger.Named("svc.reporting"))

	var generator insightsvc.Generator
	if cfg.AI.AnthropicKey != "" {
		generator = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, static insights only")
	}
	insightsSvc := insightsvc.NewService(generator, inventoryMetrics, baseLogger.Named("svc.insights"))

	scanner := scan.NewManager(&scan.VirtualDevice{}, baseLogger.Named("svc.scan"))
	gate.OnChange(scanner.OnSessionChange)
	defer func() {
		if scanner.Active() {
			_ = scanner.Exit()
		}
	}()

	engine := router.New(router.Handlers{
		Auth:      handlers.NewAuthHandler(gate, baseLogger.Named("handlers.auth")),
		Inventory: handlers.NewInventoryHandler(inventorySvc, scanner, baseLogger.Named("handlers.inventory")),
		Reports:   handlers.NewReportHandler(reportingSvc, insightsSvc, inventorySvc, baseLogger.Named("handlers.reports")),
	}, registry, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, cronMetrics, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
