package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/campus/internal/session"
)

// Publisher enqueues login activity for the worker.
type Publisher struct {
	client *asynq.Client
}

// NewPublisher constructs a Publisher over redisOpts.
func NewPublisher(redisOpts asynq.RedisClientOpt) *Publisher {
	return &Publisher{client: asynq.NewClient(redisOpts)}
}

// PublishLoginActivity enqueues a login audit task. A task already queued
// for the same session is not an error.
func (p *Publisher) PublishLoginActivity(ctx context.Context, activity session.LoginActivity) error {
	task, err := NewLoginAuditTask(activity)
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Close releases client resources.
func (p *Publisher) Close() error {
	return p.client.Close()
}
