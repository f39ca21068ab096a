package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultCookieName identifies the client scope.
const DefaultCookieName = "campus_scope"

// ExpiredFunc is notified when a sweep removes an expired session.
type ExpiredFunc func(ctx context.Context, scope string, rec Record)

// ManagerConfig collects dependencies for a Manager.
type ManagerConfig struct {
	Backend    Backend
	Clock      clockwork.Clock
	Timeout    time.Duration
	CookieName string
	Secure     bool
	Logger     *slog.Logger
	OnExpired  ExpiredFunc
}

// Manager is constructed once per process and hands out scope-bound Stores.
// A scope is identified by an opaque cookie so every client keeps its own
// independent session.
type Manager struct {
	backend    Backend
	opts       Options
	cookieName string
	secure     bool
	onExpired  ExpiredFunc
}

// NewManager constructs a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Backend == nil {
		cfg.Backend = NewMemoryBackend()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &Manager{
		backend:    cfg.Backend,
		opts:       Options{Clock: cfg.Clock, Timeout: cfg.Timeout, Logger: cfg.Logger}.withDefaults(),
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		onExpired:  cfg.OnExpired,
	}
}

// Store returns the Store bound to scope.
func (m *Manager) Store(scope string) *Store {
	return NewStore(m.backend.Storage(scope), m.opts)
}

// Storage exposes the raw storage of scope for collaborators sharing it.
func (m *Manager) Storage(scope string) Storage {
	return m.backend.Storage(scope)
}

// Timeout returns the inactivity window.
func (m *Manager) Timeout() time.Duration {
	return m.opts.Timeout
}

// CookieName returns the cookie identifier used for scopes.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// ScopeFromRequest returns the caller's scope and whether it was just created.
// Cookie values that are not UUIDs are replaced.
func (m *Manager) ScopeFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err == nil {
		if id, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
			return id.String(), false
		}
	}
	return uuid.NewString(), true
}

// WriteCookie binds the client to scope.
func (m *Manager) WriteCookie(w http.ResponseWriter, scope string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    scope,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Rotate empties scope and binds the client to a fresh one. Callers switch
// to the returned scope so nothing issued before the switch stays usable.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, scope string) (string, error) {
	if err := m.backend.Drop(ctx, scope); err != nil {
		return "", err
	}
	fresh := uuid.NewString()
	m.WriteCookie(w, fresh)
	return fresh, nil
}

// ClearCookie drops the scope cookie from the client.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Sweep removes expired and corrupt sessions from every scope and returns how
// many were removed.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	scopes, err := m.backend.Scopes(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, scope := range scopes {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		store := m.Store(scope)
		rec, _, status := store.load(ctx)
		if status != statusExpired && status != statusCorrupt {
			continue
		}
		store.discard(ctx, status)
		removed++
		if status == statusExpired && rec != nil && m.onExpired != nil {
			m.onExpired(ctx, scope, *rec)
		}
	}
	return removed, nil
}
