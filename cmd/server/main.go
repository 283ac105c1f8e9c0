package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskwarden/backend/api/handler"
	"github.com/taskwarden/backend/internal/config"
	"github.com/taskwarden/backend/internal/infrastructure/monitor"
	"github.com/taskwarden/backend/internal/infrastructure/notify"
	"github.com/taskwarden/backend/internal/infrastructure/outbox"
	pgInfra "github.com/taskwarden/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskwarden/backend/internal/infrastructure/redis"
	"github.com/taskwarden/backend/internal/middleware"
	"github.com/taskwarden/backend/internal/router"
	"github.com/taskwarden/backend/internal/services"
	"github.com/taskwarden/backend/internal/services/lifecycle"
	"github.com/taskwarden/backend/pkg/httpcontext"
	"github.com/taskwarden/backend/pkg/logger"
	"github.com/taskwarden/backend/repository"
	memoryRepo "github.com/taskwarden/backend/repository/memory"
	"github.com/taskwarden/backend/repository/postgres"
	redisRepo "github.com/taskwarden/backend/repository/redis"
	alertUC "github.com/taskwarden/backend/usecase/alert"
	rosterUC "github.com/taskwarden/backend/usecase/roster"
	trackerUC "github.com/taskwarden/backend/usecase/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outboxStore, err := outbox.Open(cfg.Outbox.Path, "outbox")
	if err != nil {
		zapLogger.Fatal("failed to open outbox store", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	mon := monitor.New(pool, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	rosterRepo := postgres.NewRosterRepository(pool)

	var ledger repository.DispatchLedger
	if cfg.Notify.DurableLedger {
		ledger = redisRepo.NewDispatchLedger(redisClient, cfg.Notify.LedgerTTL)
	} else {
		ledger = memoryRepo.NewDispatchLedger()
	}

	notifyClient := notify.NewClient(cfg.Notify, zapLogger)
	outboxBridge := services.NewOutboxBridge(outboxStore)

	alerts := alertUC.New(notifyClient, ledger, outboxBridge, zapLogger)
	tracker := trackerUC.New(taskRepo, alerts, zapLogger)
	roster := rosterUC.New(rosterRepo, cfg.Roster.CacheTTL, zapLogger)

	if cfg.Sweeper.Enabled {
		sweeper := services.NewSweeper(
			taskRepo,
			alerts,
			notifyClient,
			outboxStore,
			mon,
			zapLogger,
			services.SweeperConfig{
				Interval:   cfg.Sweeper.Interval,
				BatchSize:  cfg.Sweeper.BatchSize,
				MaxRetries: cfg.Sweeper.MaxRetries,
			},
		)
		sweeper.Start()
		manager.Register("sweeper", func(ctx context.Context) error {
			sweeper.Stop(ctx)
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(tracker, taskRepo, ctxAdapter, zapLogger),
		Board:  apiHandler.NewBoardHandler(tracker, ctxAdapter, zapLogger),
		Roster: apiHandler.NewRosterHandler(roster, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.Auth.JWTSecret, cfg.Auth.AdminUsername, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
