package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/campus/internal/jobs"
	"github.com/odyssey-erp/campus/internal/session"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LoginRecorder persists login activity.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, activity session.LoginActivity) error
}

// LoginPruner removes login activity older than a retention window.
type LoginPruner interface {
	Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

// LoginAuditJob writes queued login activity to the audit trail.
type LoginAuditJob struct {
	Recorder LoginRecorder
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewLoginAuditJob wires dependencies for the login audit handler.
func NewLoginAuditJob(recorder LoginRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *LoginAuditJob {
	return &LoginAuditJob{Recorder: recorder, Logger: logger, Metrics: metrics}
}

// Handle processes login audit tasks.
func (j *LoginAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Recorder == nil {
		return errors.New("login audit: handler not configured")
	}
	run := j.metrics().Start(TaskLoginAudit)
	var payload LoginAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger().Warn("drop undecodable login activity", slog.Any("error", err))
		return run.Finish(asynq.SkipRetry)
	}
	if payload.SessionID == "" || payload.UserID == "" {
		j.logger().Warn("drop incomplete login activity", slog.String("session_id", payload.SessionID))
		return run.Finish(asynq.SkipRetry)
	}

	if err := j.Recorder.RecordLogin(ctx, payload); err != nil {
		j.logger().Error("record login", slog.String("session_id", payload.SessionID), slog.Any("error", err))
		return run.Finish(err)
	}
	run.Rows(1)
	j.logger().Debug("login recorded", slog.String("user_id", payload.UserID), slog.String("role", string(payload.Role)))
	return run.Finish(nil)
}

func (j *LoginAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLoginAudit))
	}
	return slog.Default().With(slog.String("job", TaskLoginAudit))
}

func (j *LoginAuditJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// LoginPruneJob enforces retention on the login audit trail.
type LoginPruneJob struct {
	Pruner  LoginPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLoginPruneJob wires dependencies for the prune handler.
func NewLoginPruneJob(pruner LoginPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *LoginPruneJob {
	return &LoginPruneJob{
		Pruner:  pruner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes prune tasks.
func (j *LoginPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("login prune: handler not configured")
	}
	run := j.metrics().Start(TaskLoginActivityPrune)
	var payload LoginPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RetentionDays <= 0 {
		j.logger().Warn("drop prune task without retention")
		return run.Finish(asynq.SkipRetry)
	}

	removed, err := j.Pruner.Prune(ctx, j.now(), payload.Retention())
	if err != nil {
		j.logger().Error("prune login activity", slog.Any("error", err))
		return run.Finish(err)
	}
	run.Rows(removed)
	j.logger().Info("pruned login activity", slog.Int64("removed", removed), slog.Int("retention_days", payload.RetentionDays))
	return run.Finish(nil)
}

func (j *LoginPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLoginActivityPrune))
	}
	return slog.Default().With(slog.String("job", TaskLoginActivityPrune))
}

func (j *LoginPruneJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LoginPruneJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
