package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/odyssey-erp/campus/internal/rbac"
)

// DefaultTimeout is the sliding inactivity window.
const DefaultTimeout = 8 * time.Hour

// Options configures a Store.
type Options struct {
	Clock   clockwork.Clock
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Store manages the session record of a single scope. Read paths never fail:
// missing, expired, corrupt or unreadable records all mean "no session".
type Store struct {
	storage Storage
	clock   clockwork.Clock
	timeout time.Duration
	logger  *slog.Logger
}

// NewStore binds a Store to storage.
func NewStore(storage Storage, opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{storage: storage, clock: opts.Clock, timeout: opts.Timeout, logger: opts.Logger}
}

// Timeout returns the inactivity window.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// StoreSession persists p as the scope's session. p is kept exactly as given;
// the record's LoginTime and SessionID fall back to now and a generated id
// when p carries none. LastActivity is always now.
func (s *Store) StoreSession(ctx context.Context, p rbac.Principal) (Record, error) {
	now := s.clock.Now().UTC()
	rec := Record{
		User:         p,
		LoginTime:    p.LoginTime,
		SessionID:    p.SessionID,
		LastActivity: now,
	}
	if rec.LoginTime.IsZero() {
		rec.LoginTime = now
	}
	if rec.SessionID == "" {
		rec.SessionID = GenerateSessionID(now)
	}
	if err := s.write(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// GetSession returns the current record, or nil. Expired or corrupt records
// are removed before returning.
func (s *Store) GetSession(ctx context.Context) *Record {
	rec, _, status := s.load(ctx)
	switch status {
	case statusValid:
		return rec
	case statusMissing:
		return nil
	default:
		s.discard(ctx, status)
		return nil
	}
}

// IsValidSession reports whether a live session exists.
func (s *Store) IsValidSession(ctx context.Context) bool {
	return s.GetSession(ctx) != nil
}

// UpdateActivity slides the expiry window of a valid session. LastActivity
// never moves backwards, and the write is skipped when the record changed or
// was cleared after it was read.
func (s *Store) UpdateActivity(ctx context.Context) error {
	rec, raw, status := s.load(ctx)
	switch status {
	case statusValid:
	case statusMissing:
		return nil
	default:
		s.discard(ctx, status)
		return nil
	}
	now := s.clock.Now().UTC()
	if !now.After(rec.LastActivity) {
		return nil
	}
	rec.LastActivity = now
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	replaced, err := s.storage.Replace(ctx, SessionKey, raw, string(data))
	if err != nil {
		return fmt.Errorf("session: update activity: %w", err)
	}
	if !replaced {
		s.logger.Debug("session changed during activity update")
	}
	return nil
}

// ClearSession removes the session and login activity unconditionally.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.storage.Delete(ctx, SessionKey, LoginActivityKey); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// RecordLoginActivity stores the audit record for the current login.
func (s *Store) RecordLoginActivity(ctx context.Context, activity LoginActivity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("session: encode login activity: %w", err)
	}
	if err := s.storage.Set(ctx, LoginActivityKey, string(data)); err != nil {
		return fmt.Errorf("session: write login activity: %w", err)
	}
	return nil
}

// LoginActivity returns the stored audit record, or nil.
func (s *Store) LoginActivity(ctx context.Context) *LoginActivity {
	raw, err := s.storage.Get(ctx, LoginActivityKey)
	if err != nil {
		return nil
	}
	var activity LoginActivity
	if err := json.Unmarshal([]byte(raw), &activity); err != nil {
		return nil
	}
	return &activity
}

type loadStatus int

const (
	statusMissing loadStatus = iota
	statusValid
	statusExpired
	statusCorrupt
	statusUnavailable
)

func (st loadStatus) String() string {
	switch st {
	case statusValid:
		return "valid"
	case statusExpired:
		return "expired"
	case statusCorrupt:
		return "corrupt"
	case statusUnavailable:
		return "unavailable"
	default:
		return "missing"
	}
}

func (s *Store) load(ctx context.Context) (*Record, string, loadStatus) {
	raw, err := s.storage.Get(ctx, SessionKey)
	if err != nil {
		if errors.Is(err, ErrNoValue) {
			return nil, "", statusMissing
		}
		s.logger.Warn("session storage read", slog.Any("error", err))
		return nil, "", statusUnavailable
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || !rec.complete() {
		return nil, raw, statusCorrupt
	}
	if s.clock.Now().Sub(rec.LastActivity) > s.timeout {
		return &rec, raw, statusExpired
	}
	return &rec, raw, statusValid
}

func (s *Store) discard(ctx context.Context, status loadStatus) {
	if err := s.ClearSession(ctx); err != nil {
		s.logger.Warn("session discard", slog.String("reason", status.String()), slog.Any("error", err))
	}
}

func (s *Store) write(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.storage.Set(ctx, SessionKey, string(data)); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return nil
}
