package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/campus/internal/app"
	"github.com/odyssey-erp/campus/internal/audit"
	jobmetrics "github.com/odyssey-erp/campus/internal/jobs"
	"github.com/odyssey-erp/campus/internal/platform/db"
	"github.com/odyssey-erp/campus/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	if cfg.PGDSN == "" {
		logger.Error("worker requires PG_DSN for the login audit trail")
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	auditService := audit.NewService(audit.NewRepository(pool))
	metrics := jobmetrics.NewMetrics(nil)
	loginAudit := jobs.NewLoginAuditJob(auditService, logger, metrics)
	prune := jobs.NewLoginPruneJob(auditService, logger, metrics)

	pruneTask, err := jobs.NewLoginPruneTask(cfg.AuditRetentionDays)
	if err != nil {
		logger.Error("build prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLoginAudit, Handler: loginAudit.Handle},
			{Type: jobs.TaskLoginActivityPrune, Handler: prune.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 2 * * *", Task: pruneTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
