package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/therapylink/clinic-scheduling/internal/api"
	"github.com/therapylink/clinic-scheduling/internal/appointment"
	"github.com/therapylink/clinic-scheduling/internal/catalog"
	"github.com/therapylink/clinic-scheduling/internal/chat"
	"github.com/therapylink/clinic-scheduling/internal/config"
	"github.com/therapylink/clinic-scheduling/internal/db"
	"github.com/therapylink/clinic-scheduling/internal/directory"
	"github.com/therapylink/clinic-scheduling/internal/events"
	"github.com/therapylink/clinic-scheduling/internal/identity"
	"github.com/therapylink/clinic-scheduling/internal/observability/metrics"
	redisclient "github.com/therapylink/clinic-scheduling/internal/redis"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := newLogger(cfg.Env)
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		pgPool *pgxpool.Pool
		rdb    *redis.Client

		apptRepo  appointment.Repository
		chatRepo  chat.Repository
		userStore directory.Store
		therapies catalog.Catalog
		locker    redisclient.Locker
	)

	if cfg.Demo() {
		// Demo mode runs entirely in-process: no Postgres, no Redis. The
		// business logic is identical; only the collaborator wiring changes.
		log.Warn("running in demo mode with in-memory stores")
		apptRepo = appointment.NewMemoryRepository()
		chatRepo = chat.NewMemoryRepository()
		userStore = directory.NewMemoryStore()
		therapies = catalog.NewMemoryCatalog()
		locker = redisclient.NewLocalLocker()
	} else {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatal("postgres connection error", zap.Error(err))
		}
		defer pgPool.Close()
		log.Info("connected to Postgres")

		rdb, err = redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("error closing redis", zap.Error(err))
			}
		}()
		log.Info("connected to Redis")

		apptRepo = appointment.NewPgRepository(pgPool)
		chatRepo = chat.NewPgRepository(pgPool)
		userStore = directory.NewPgStore(pgPool)
		therapies = catalog.NewPgCatalog(pgPool)
		locker = redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	}

	m := metrics.New()

	bus := events.NewBus(cfg.EventBuffer)
	bus.OnDrop(func(events.Event) { m.EventsDropped.Inc() })

	apptSvc := appointment.NewService(appointment.ServiceParams{
		Repo:     apptRepo,
		Locker:   locker,
		Bus:      bus,
		Users:    userStore,
		Catalog:  therapies,
		ClinicTZ: cfg.ClinicTZ,
		Logger:   log,
		Metrics:  m,
	})
	chatSvc := chat.NewService(chatRepo, userStore, bus, log, m)
	dirSvc := directory.NewService(userStore, bus, log)

	router := api.NewRouter(api.RouterConfig{
		Appointments: apptSvc,
		Chat:         chatSvc,
		Directory:    dirSvc,
		Bus:          bus,
		Authority:    identity.NewHeaderAuthority(),
		Logger:       log,
		Metrics:      m,
		Heartbeat:    cfg.Heartbeat,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}

	log.Info("api-server stopped")
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		log, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}
