package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/campus/internal/session"
)

const (
	// QueueAudit carries login audit writes.
	QueueAudit = "audit"
	// QueueMaintenance carries periodic housekeeping.
	QueueMaintenance = "maintenance"
	// TaskLoginAudit persists a login activity record.
	TaskLoginAudit = "auth:login-audit"
	// TaskLoginActivityPrune removes login activity past retention.
	TaskLoginActivityPrune = "auth:login-activity-prune"
)

// LoginAuditPayload is the login activity captured at sign in.
type LoginAuditPayload = session.LoginActivity

// LoginPrunePayload configures a prune run.
type LoginPrunePayload struct {
	RetentionDays int `json:"retentionDays"`
}

// Retention converts the payload into a duration.
func (p LoginPrunePayload) Retention() time.Duration {
	return time.Duration(p.RetentionDays) * 24 * time.Hour
}

// NewLoginAuditTask constructs an Asynq task for one login.
func NewLoginAuditTask(payload LoginAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	// One task per session; replays of the same login collapse.
	return asynq.NewTask(TaskLoginAudit, data, asynq.TaskID("login:"+payload.SessionID),
		asynq.Queue(QueueAudit),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	), nil
}

// NewLoginPruneTask constructs the retention task.
func NewLoginPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(LoginPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoginActivityPrune, data,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	), nil
}
