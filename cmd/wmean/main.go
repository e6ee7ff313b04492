package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aevon-lab/wmean/internal/aggregation"
	coreagg "github.com/aevon-lab/wmean/internal/core/aggregation"
	corecfg "github.com/aevon-lab/wmean/internal/core/config"
	"github.com/aevon-lab/wmean/internal/core/metrics"
	"github.com/aevon-lab/wmean/internal/core/storage/postgres"
	"github.com/aevon-lab/wmean/internal/ingestion"
	"github.com/aevon-lab/wmean/internal/migrations"
	"github.com/aevon-lab/wmean/internal/projection"
	"github.com/aevon-lab/wmean/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "wmean.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration (also loads aggregation rules)
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"server", cfg.Server,
		"aggregation", cfg.Aggregation,
		"rules", len(cfg.RuleLoading.Rules),
	)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 2.2. Prepare statements against the migrated schema
	if err := dbAdapter.Prepare(); err != nil {
		slog.Error("Failed to prepare storage adapter", "error", err)
		os.Exit(1)
	}

	resultStore := postgres.NewResultAdapter(dbAdapter.DB())

	// 3. Metrics: scope lifecycle and row outcomes of every group fold
	var observer aggregation.Observer
	if cfg.Metrics.Enabled {
		observer = metrics.NewCollector(prometheus.DefaultRegisterer)
	}
	dispatcher := aggregation.NewGroupDispatcher(observer)

	// 4. Initialize Aggregation: one scheduler and checkpoint per window size
	cronInterval := cfg.Aggregation.CronIntervalDuration()
	labels, rulesByWindow := coreagg.RulesByWindow(cfg.RuleLoading.Rules)

	schedulers := make([]*aggregation.Scheduler, 0, len(labels))
	for _, label := range labels {
		window, err := coreagg.ParseWindowSize(label)
		if err != nil {
			slog.Error("Invalid rule window size", "window", label, "error", err)
			os.Exit(1)
		}
		schedulers = append(schedulers, aggregation.NewScheduler(
			cronInterval,
			dbAdapter, // EventStore
			resultStore,
			rulesByWindow[label],
			aggregation.BatchJobParameter{
				BatchSize:   cfg.Aggregation.BatchSize,
				WorkerCount: cfg.Aggregation.WorkerCount,
				BucketSize:  window.Size,
				BucketLabel: label,
				Observer:    observer,
			},
		))
	}

	slog.Info("Aggregation scheduler(s) initialized",
		"interval", cronInterval,
		"enabled", cfg.Aggregation.Enabled,
		"bucket_sizes", labels,
		"batch_size", cfg.Aggregation.BatchSize,
		"worker_count", cfg.Aggregation.WorkerCount,
	)

	// 5. Initialize Ingestion (no event channel - just write to DB)
	ingestionSvc := ingestion.NewService(dbAdapter, cfg.Server.MaxBodySizeMB)

	// 6. Initialize Projection (query API)
	projectionSvc := projection.NewService(
		resultStore,
		dbAdapter,
		cfg.RuleLoading.Repository,
		dispatcher,
		cfg.Projection.MaxLiveEvents,
	)

	// 7. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)
	if cfg.Metrics.Enabled {
		srv.RegisterMetrics(cfg.Metrics.Path, prometheus.DefaultGatherer)
	}

	// 8. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start aggregation scheduler(s) in background if enabled
	var wg sync.WaitGroup
	if cfg.Aggregation.Enabled {
		for _, scheduler := range schedulers {
			wg.Add(1)
			go func(s *aggregation.Scheduler) {
				defer wg.Done()
				if err := s.Start(ctx); err != nil {
					slog.Error("Scheduler stopped with error", "error", err)
				}
			}(scheduler)
		}
	} else {
		slog.Info("Aggregation scheduler disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
		cancel()
	}

	// Schedulers run a final drain on cancellation; wait for it before closing the pool.
	wg.Wait()
	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
