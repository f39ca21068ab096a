// Package notify delivers fire-and-forget user notifications.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/odyssey-erp/campus/internal/session"
)

// FlashKey holds pending flash messages in the scope storage.
const FlashKey = "erp_flash"

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Message is a one-time notification.
type Message struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Sink presents messages. Callers do not depend on delivery.
type Sink interface {
	Notify(ctx context.Context, msg Message)
}

// FlashSink queues messages in a storage scope until the next page render.
type FlashSink struct {
	storage session.Storage
	logger  *slog.Logger
}

// NewFlashSink constructs a FlashSink over storage.
func NewFlashSink(storage session.Storage, logger *slog.Logger) *FlashSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashSink{storage: storage, logger: logger}
}

// Notify appends msg to the queue.
func (s *FlashSink) Notify(ctx context.Context, msg Message) {
	if s == nil || s.storage == nil {
		return
	}
	queue := s.load(ctx)
	queue = append(queue, msg)
	data, err := json.Marshal(queue)
	if err != nil {
		return
	}
	if err := s.storage.Set(ctx, FlashKey, string(data)); err != nil {
		s.logger.Warn("queue flash", slog.Any("error", err))
	}
}

// Pop removes and returns the oldest queued message.
func (s *FlashSink) Pop(ctx context.Context) *Message {
	if s == nil || s.storage == nil {
		return nil
	}
	queue := s.load(ctx)
	if len(queue) == 0 {
		return nil
	}
	msg := queue[0]
	rest := queue[1:]
	var err error
	if len(rest) == 0 {
		err = s.storage.Delete(ctx, FlashKey)
	} else {
		data, _ := json.Marshal(rest)
		err = s.storage.Set(ctx, FlashKey, string(data))
	}
	if err != nil {
		s.logger.Warn("pop flash", slog.Any("error", err))
	}
	return &msg
}

func (s *FlashSink) load(ctx context.Context) []Message {
	raw, err := s.storage.Get(ctx, FlashKey)
	if err != nil {
		if !errors.Is(err, session.ErrNoValue) {
			s.logger.Warn("load flash", slog.Any("error", err))
		}
		return nil
	}
	var queue []Message
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		return nil
	}
	return queue
}

// LogSink writes messages to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Notify logs msg at a level matching its kind.
func (s LogSink) Notify(ctx context.Context, msg Message) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch msg.Kind {
	case KindError:
		level = slog.LevelError
	case KindWarning:
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "notification", slog.String("kind", string(msg.Kind)), slog.String("message", msg.Message))
}

// Multi fans a message out to every sink.
type Multi []Sink

// Notify forwards msg to each non-nil sink.
func (m Multi) Notify(ctx context.Context, msg Message) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(ctx, msg)
		}
	}
}
