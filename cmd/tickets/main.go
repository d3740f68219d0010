package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/clock"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/persistence"
	"github.com/spec-kit/ticket-tracker/internal/repository/memory"
	"github.com/spec-kit/ticket-tracker/internal/service"
	"github.com/spec-kit/ticket-tracker/internal/worker"
)

type report struct {
	Dashboard any `json:"dashboard"`
	Standup   any `json:"standup"`
	Metrics   any `json:"metrics"`
}

func main() {
	configPath := pflag.String("config", os.Getenv(config.ConfigFileEnv), "path to a YAML config file")
	seedPath := pflag.String("seed", "", "path to a YAML fixture of templates and tickets")
	days := pflag.Int("days", 0, "productivity window in days (defaults to the configured value)")
	pflag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk := clock.Real()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	repos := memory.NewRepositories(memory.WithNow(clk.Now))

	worker.StartActivityWorker(service.NewActivityService(dispatcher, logger, metrics))

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.Tickets,
		TemplateRepo: repos.Templates,
		HistoryRepo:  repos.History,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
		Clock:        clk,
		Editor: service.EditorConfig{
			AutosaveDelay: cfg.Autosave.Delay(),
			UndoHistory:   cfg.Undo.MaxHistory,
		},
	})
	templates := service.NewTemplateService(service.TemplateDependencies{
		TemplateRepo: repos.Templates,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
		Clock:        clk,
	})

	dashboardDeps := service.DashboardDependencies{
		TicketRepo:   repos.Tickets,
		TemplateRepo: repos.Templates,
		Logger:       logger,
		Metrics:      metrics,
		Clock:        clk,
		Location:     cfg.Analytics.Location(),
		Days:         cfg.Analytics.Days,
		CacheTTL:     cfg.Redis.TTL(),
	}
	if cfg.Redis.Enabled {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		dashboardDeps.Cache = persistence.NewSnapshotCache(redis.Client, cfg.Redis.KeyPrefix)
	}
	dashboard := service.NewDashboardService(dashboardDeps)

	if *seedPath != "" {
		seed, err := readSeed(*seedPath)
		if err != nil {
			logger.Fatal("failed to read seed", zap.Error(err))
		}
		if err := applySeed(ctx, seed, clk.Now(), templates, tickets); err != nil {
			logger.Fatal("failed to apply seed", zap.Error(err))
		}
		logger.Info("seed applied",
			zap.Int("templates", len(seed.Templates)),
			zap.Int("tickets", len(seed.Tickets)),
		)
	}

	snapshot, err := dashboard.Snapshot(ctx, *days)
	if err != nil {
		logger.Fatal("failed to build dashboard", zap.Error(err))
	}
	standup, err := dashboard.Standup(ctx)
	if err != nil {
		logger.Fatal("failed to build standup", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report{Dashboard: snapshot, Standup: standup, Metrics: metrics.Snapshot()}); err != nil {
		logger.Fatal("failed to write report", zap.Error(err))
	}
}
