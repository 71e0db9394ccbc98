package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/sitetasks/api/handler"
	"github.com/fastygo/sitetasks/internal/config"
	"github.com/fastygo/sitetasks/internal/infrastructure/buffer"
	"github.com/fastygo/sitetasks/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/sitetasks/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/sitetasks/internal/infrastructure/redis"
	sqliteInfra "github.com/fastygo/sitetasks/internal/infrastructure/sqlite"
	"github.com/fastygo/sitetasks/internal/middleware"
	"github.com/fastygo/sitetasks/internal/router"
	"github.com/fastygo/sitetasks/internal/services"
	"github.com/fastygo/sitetasks/internal/services/lifecycle"
	"github.com/fastygo/sitetasks/pkg/httpcontext"
	"github.com/fastygo/sitetasks/pkg/logger"
	"github.com/fastygo/sitetasks/repository"
	"github.com/fastygo/sitetasks/repository/postgres"
	redisRepo "github.com/fastygo/sitetasks/repository/redis"
	"github.com/fastygo/sitetasks/repository/sqlite"
	taskUC "github.com/fastygo/sitetasks/usecase/task"
	userUC "github.com/fastygo/sitetasks/usecase/user"
)

// stores groups the data ports of the selected driver.
type stores struct {
	tasks   repository.TaskRepository
	updates repository.TaskUpdateRepository
	reads   repository.ReadStatusRepository
	users   repository.UserRepository
	check   monitor.Check
}

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

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, stop := manager.WithSignals(context.Background())
	defer stop()

	data := openStores(appCtx, cfg, manager, zapLogger)

	var feed repository.ChangeFeed
	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Warn("redis unavailable, running without change notifications", zap.Error(err))
	} else {
		manager.Register(lifecycle.StageStorage, "redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
		feed = redisRepo.NewChangeFeed(redisClient, cfg.Sync.ChangeChannel, zapLogger)
	}

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "buffer")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register(lifecycle.StageStorage, "buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	checks := []monitor.Check{data.check}
	if redisClient != nil {
		checks = append(checks, monitor.RedisCheck(redisClient))
	}
	mon := monitor.New(checks, bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register(lifecycle.StageWorkers, "monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		data.reads,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
		},
	)
	bufferProcessor.Start()
	manager.Register(lifecycle.StageWorkers, "buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})

	taskRepo, updateRepo := data.tasks, data.updates
	if cfg.Sync.PublishChanges && feed != nil {
		taskRepo = services.PublishingTasks(taskRepo, feed, zapLogger)
		updateRepo = services.PublishingUpdates(updateRepo, feed, zapLogger)
	}

	taskUseCase := taskUC.New(taskUC.Dependencies{
		Tasks:      taskRepo,
		Updates:    updateRepo,
		ReadStatus: data.reads,
		Users:      data.users,
		Buffer:     services.NewBufferBridge(bufferProcessor),
	}, zapLogger)
	userUseCase := userUC.New(data.users, cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)

	initial := taskUseCase.FetchAll(appCtx)
	if err := taskUseCase.LastError(); err != nil {
		zapLogger.Warn("initial task load failed", zap.Error(err))
	} else {
		zapLogger.Info("tasks loaded", zap.Int("count", len(initial)))
	}

	listener := services.NewChangeListener(feed, taskUseCase, zapLogger, services.ListenerConfig{
		ResyncInterval: cfg.Sync.ResyncInterval,
	})
	listener.Start(appCtx)
	manager.Register(lifecycle.StageIngress, "change_listener", func(ctx context.Context) error {
		listener.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(userUseCase, ctxAdapter, zapLogger, time.Hour),
		User:   apiHandler.NewUserHandler(userUseCase, ctxAdapter, zapLogger),
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.Strings("components", manager.Components()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register(lifecycle.StageIngress, "http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) stores {
	if cfg.Store.Driver == config.DriverSQLite {
		db, err := sqliteInfra.Open(ctx, cfg.SQLite, zapLogger)
		if err != nil {
			zapLogger.Fatal("sqlite open failed", zap.Error(err))
		}
		manager.Register(lifecycle.StageStorage, "sqlite", func(context.Context) error {
			sqliteInfra.Close(db, zapLogger)
			return nil
		})
		return stores{
			tasks:   sqlite.NewTaskRepository(db),
			updates: sqlite.NewTaskUpdateRepository(db),
			reads:   sqlite.NewReadStatusRepository(db),
			users:   sqlite.NewUserRepository(db),
			check:   monitor.SQLCheck("sqlite", db),
		}
	}

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}
	pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register(lifecycle.StageStorage, "postgres", func(context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})
	return stores{
		tasks:   postgres.NewTaskRepository(pool),
		updates: postgres.NewTaskUpdateRepository(pool),
		reads:   postgres.NewReadStatusRepository(pool),
		users:   postgres.NewUserRepository(pool),
		check:   monitor.PostgresCheck(pool),
	}
}
