package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/therapylink/clinic-scheduling/internal/appointment"
	"github.com/therapylink/clinic-scheduling/internal/catalog"
	"github.com/therapylink/clinic-scheduling/internal/config"
	"github.com/therapylink/clinic-scheduling/internal/db"
	"github.com/therapylink/clinic-scheduling/internal/directory"
	redisclient "github.com/therapylink/clinic-scheduling/internal/redis"
)

// The overdue worker sweeps scheduled appointments whose start time passed
// more than the grace period ago and marks them delayed, so dashboards show
// a stalled session instead of a stale "scheduled".
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("overdue-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("grace", cfg.OverdueGrace),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// No event bus here: worker transitions reach dashboards through the
	// api-server instance's own reads, not this process.
	svc := appointment.NewService(appointment.ServiceParams{
		Repo:     appointment.NewPgRepository(pgPool),
		Locker:   redisclient.NewLocalLocker(),
		Users:    directory.NewPgStore(pgPool),
		Catalog:  catalog.NewPgCatalog(pgPool),
		ClinicTZ: cfg.ClinicTZ,
		Logger:   log,
	})

	runOnce(rootCtx, svc, cfg.OverdueGrace, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping overdue worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.OverdueGrace, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, grace time.Duration, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	marked, err := svc.MarkOverdueDelayed(runCtx, start, grace)
	if err != nil {
		log.Error("overdue sweep error", zap.Error(err))
		return
	}
	log.Info("overdue sweep complete",
		zap.Int("marked_delayed", marked),
		zap.Duration("took", time.Since(start)),
	)
}
