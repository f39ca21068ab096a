package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/campus/internal/app"
	"github.com/odyssey-erp/campus/internal/audit"
	audithttp "github.com/odyssey-erp/campus/internal/audit/http"
	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/navigation"
	"github.com/odyssey-erp/campus/internal/observability"
	"github.com/odyssey-erp/campus/internal/platform/cache"
	"github.com/odyssey-erp/campus/internal/platform/db"
	"github.com/odyssey-erp/campus/internal/portal"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/view"
	"github.com/odyssey-erp/campus/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("campus server", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	evaluator := rbac.NewEvaluator(rbac.DefaultMatrix())

	var redisClient *redis.Client
	if cfg.SessionBackend == app.SessionBackendRedis || cfg.AuditEnabled() {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var backend session.Backend = session.NewMemoryBackend()
	if cfg.SessionBackend == app.SessionBackendRedis {
		backend = session.NewRedisBackend(redisClient, cfg.SessionStorageTTL)
	}
	manager := session.NewManager(session.ManagerConfig{
		Backend:    backend,
		Clock:      clockwork.NewRealClock(),
		Timeout:    cfg.SessionTimeout,
		CookieName: cfg.SessionCookie,
		Secure:     cfg.IsProduction(),
		Logger:     logger,
		OnExpired: func(ctx context.Context, scope string, rec session.Record) {
			metrics.SessionExpired()
			logger.Info("session expired",
				slog.String("user_id", rec.User.ID),
				slog.String("session_id", rec.SessionID),
			)
		},
	})

	var (
		users        auth.Repository
		auditHandler *audithttp.Handler
	)
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		users = auth.NewRepository(pool)
		auditHandler = audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), evaluator)
	} else {
		directory, err := auth.LoadDirectory(cfg.DirectoryFile)
		if err != nil {
			return err
		}
		users = directory
		logger.Info("using directory file", slog.String("path", cfg.DirectoryFile), slog.Int("users", len(directory.Users())))
	}

	var (
		publisher auth.ActivityPublisher
		queues    jobs.QueueInspector
	)
	if cfg.AuditEnabled() {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobPublisher := jobs.NewPublisher(redisOpts)
		defer jobPublisher.Close()
		publisher = jobPublisher
		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()
		queues = inspector
	}

	engine, err := view.NewEngine(view.NewGate(evaluator), logger)
	if err != nil {
		return err
	}
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	guard := navigation.NewGuard(navigation.GuardConfig{
		Evaluator:   evaluator,
		LandingPath: cfg.LandingPath,
		Logger:      logger,
		Recorder:    metrics,
		Denied:      engine,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: manager,
		CSRFManager:    csrf,
		AuthHandler: auth.NewHandler(auth.HandlerConfig{
			Logger:      logger,
			Service:     auth.NewService(users),
			Templates:   engine,
			CSRF:        csrf,
			Evaluator:   evaluator,
			Sessions:    manager,
			Publisher:   publisher,
			Observer:    metrics,
			LandingPath: cfg.LandingPath,
			LoginRate:   cfg.LoginRateLimit,
		}),
		PortalHandler: portal.NewHandler(portal.HandlerConfig{
			Logger:    logger,
			Evaluator: evaluator,
			Guard:     guard,
			Templates: engine,
			CSRF:      csrf,
		}),
		AuditHandler:       auditHandler,
		JobHandler:         jobs.NewHandler(queues, logger),
		PermissionsHandler: rbac.NewPermissionsHandler(evaluator),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	monitor := session.NewMonitor(clockwork.NewRealClock(), cfg.SessionCheckInterval, func(ctx context.Context) {
		removed, err := manager.Sweep(ctx)
		if err != nil {
			logger.Warn("session sweep", slog.Any("error", err))
			return
		}
		if removed > 0 {
			logger.Debug("session sweep", slog.Int("removed", removed))
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		monitor.Start(gctx)
		<-gctx.Done()
		monitor.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
