package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dariomutua/fundraza-backend/api/routes"
	"github.com/dariomutua/fundraza-backend/internal/activity"
	"github.com/dariomutua/fundraza-backend/internal/assignments"
	"github.com/dariomutua/fundraza-backend/internal/campaigns"
	"github.com/dariomutua/fundraza-backend/internal/catalog"
	"github.com/dariomutua/fundraza-backend/internal/commissions"
	"github.com/dariomutua/fundraza-backend/internal/members"
	"github.com/dariomutua/fundraza-backend/internal/payments"
	"github.com/dariomutua/fundraza-backend/internal/reports"
	"github.com/dariomutua/fundraza-backend/internal/units"
	"github.com/dariomutua/fundraza-backend/pkg/config"
	"github.com/dariomutua/fundraza-backend/pkg/db"
	"github.com/dariomutua/fundraza-backend/pkg/logger"
	"github.com/dariomutua/fundraza-backend/pkg/metrics"
	"github.com/dariomutua/fundraza-backend/pkg/migrate"
	"github.com/dariomutua/fundraza-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildServices wires every domain service against the shared database
// client and the process-wide Prometheus registry.
func buildServices(cfg *config.Config, dbClient *db.Client) (routes.Services, error) {
	gdb := dbClient.DB()
	stats := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	catalogRepo := catalog.NewRepository(gdb)
	campaignRepo := campaigns.NewRepository(gdb)
	unitRepo := units.NewRepository(gdb)
	assignRepo := assignments.NewRepository(gdb)
	paymentRepo := payments.NewRepository(gdb)
	commissionRepo := commissions.NewRepository(gdb)
	memberRepo := members.NewRepository(gdb)
	audit := activity.NewRecorder(gdb)

	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Services{}, err
	}
	campaignSvc, err := campaigns.NewService(dbClient, campaignRepo, catalogRepo, unitRepo)
	if err != nil {
		return routes.Services{}, err
	}
	unitSvc, err := units.NewService(unitRepo)
	if err != nil {
		return routes.Services{}, err
	}
	assignSvc, err := assignments.NewService(dbClient, assignRepo, unitRepo, catalogSvc, paymentRepo, audit)
	if err != nil {
		return routes.Services{}, err
	}
	engine, err := commissions.NewEngine(commissionRepo, stats)
	if err != nil {
		return routes.Services{}, err
	}
	paymentSvc, err := payments.NewService(dbClient, paymentRepo, assignRepo, unitRepo, campaignRepo, commissionRepo, engine, audit, stats)
	if err != nil {
		return routes.Services{}, err
	}
	memberSvc, err := members.NewService(memberRepo)
	if err != nil {
		return routes.Services{}, err
	}
	duesSvc, err := payments.NewDuesService(dbClient, paymentRepo, memberSvc, stats, cfg.Import.MaxRows)
	if err != nil {
		return routes.Services{}, err
	}
	commissionSvc, err := commissions.NewService(commissionRepo)
	if err != nil {
		return routes.Services{}, err
	}
	reportSvc, err := reports.NewService(reports.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Campaigns:   campaignSvc,
		Catalog:     catalogSvc,
		Units:       unitSvc,
		Assignments: assignSvc,
		Payments:    paymentSvc,
		Dues:        duesSvc,
		Commissions: commissionSvc,
		Members:     memberSvc,
		Reports:     reportSvc,
		Activity:    audit,
	}, nil
}
