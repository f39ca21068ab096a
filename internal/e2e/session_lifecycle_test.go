package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/campus/internal/app"
	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/navigation"
	"github.com/odyssey-erp/campus/internal/portal"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/view"
)

type recordingPublisher struct {
	mu   sync.Mutex
	seen []session.LoginActivity
}

func (p *recordingPublisher) PublishLoginActivity(_ context.Context, a session.LoginActivity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, a)
	return nil
}

type stack struct {
	server    *httptest.Server
	manager   *session.Manager
	clock     *clockwork.FakeClock
	publisher *recordingPublisher
	expired   chan string
}

func newStack(t *testing.T) stack {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame-1"), bcrypt.MinCost)
	require.NoError(t, err)
	var doc strings.Builder
	doc.WriteString("users:\n")
	for _, u := range []struct{ id, email, role string }{
		{"fac-7", "asha@campus.local", "faculty"},
		{"stu-1", "budi@campus.local", "student"},
	} {
		doc.WriteString("  - id: " + u.id + "\n    name: " + u.id + "\n    email: " + u.email +
			"\n    password_hash: \"" + string(hash) + "\"\n    role: " + u.role + "\n")
	}
	directory, err := auth.ParseDirectory(strings.NewReader(doc.String()))
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	expired := make(chan string, 4)
	manager := session.NewManager(session.ManagerConfig{
		Backend: session.NewRedisBackend(client, 24*time.Hour),
		Clock:   clock,
		Timeout: time.Hour,
		OnExpired: func(_ context.Context, _ string, rec session.Record) {
			expired <- rec.User.ID
		},
	})
	evaluator := rbac.NewEvaluator(rbac.DefaultMatrix())
	engine, err := view.NewEngine(view.NewGate(evaluator), nil)
	require.NoError(t, err)
	csrf := shared.NewCSRFManager("e2e-secret")
	publisher := &recordingPublisher{}

	router := app.NewRouter(app.RouterParams{
		Config:         &app.Config{AppEnv: "test", RateLimit: 1000},
		SessionManager: manager,
		CSRFManager:    csrf,
		AuthHandler: auth.NewHandler(auth.HandlerConfig{
			Service:   auth.NewService(directory),
			Templates: engine,
			CSRF:      csrf,
			Evaluator: evaluator,
			Sessions:  manager,
			Publisher: publisher,
		}),
		PortalHandler: portal.NewHandler(portal.HandlerConfig{
			Evaluator: evaluator,
			Guard:     navigation.NewGuard(navigation.GuardConfig{Evaluator: evaluator, Denied: engine}),
			Templates: engine,
			CSRF:      csrf,
		}),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return stack{server: server, manager: manager, clock: clock, publisher: publisher, expired: expired}
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (s stack) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: s.server.URL, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(method, path string, body any, token string) (*http.Response, map[string]any) {
	b.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(shared.CSRFHeader, token)
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (b *browser) login(email string) string {
	b.t.Helper()
	_, anon := b.do(http.MethodGet, "/auth/session", nil, "")
	require.Equal(b.t, false, anon["authenticated"])
	token, _ := anon["csrfToken"].(string)
	require.NotEmpty(b.t, token)

	resp, body := b.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "open-sesame-1"}, token)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	require.Equal(b.t, true, body["authenticated"])
	rotated, _ := body["csrfToken"].(string)
	require.NotEmpty(b.t, rotated)
	require.NotEqual(b.t, token, rotated, "login issues a new csrf token")
	return rotated
}

func TestScopesAreIndependentAcrossClients(t *testing.T) {
	s := newStack(t)
	faculty := s.browser(t)
	student := s.browser(t)

	faculty.login("asha@campus.local")
	student.login("budi@campus.local")

	resp, _ := faculty.do(http.MethodGet, "/modules/library", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = student.do(http.MethodGet, "/modules/library", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.publisher.mu.Lock()
	assert.Len(t, s.publisher.seen, 2)
	s.publisher.mu.Unlock()
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	s := newStack(t)
	faculty := s.browser(t)
	student := s.browser(t)
	faculty.login("asha@campus.local")
	student.login("budi@campus.local")

	s.clock.Advance(40 * time.Minute)
	resp, _ := student.do(http.MethodPost, "/auth/heartbeat", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "unsafe methods need the csrf token")

	_, sess := student.do(http.MethodGet, "/auth/session", nil, "")
	token, _ := sess["csrfToken"].(string)
	resp, _ = student.do(http.MethodPost, "/auth/heartbeat", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s.clock.Advance(30 * time.Minute)
	removed, err := s.manager.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "fac-7", <-s.expired)

	resp, body := faculty.do(http.MethodGet, "/modules/lms", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/auth/login?next=%2Fmodules%2Flms", body["login"])

	resp, _ = student.do(http.MethodGet, "/modules/lms", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutClearsOnlyOwnScope(t *testing.T) {
	s := newStack(t)
	faculty := s.browser(t)
	student := s.browser(t)
	facultyToken := faculty.login("asha@campus.local")
	student.login("budi@campus.local")

	resp, _ := faculty.do(http.MethodPost, "/auth/logout", nil, facultyToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := faculty.do(http.MethodGet, "/auth/session", nil, "")
	assert.Equal(t, false, body["authenticated"])
	_, body = student.do(http.MethodGet, "/auth/session", nil, "")
	assert.Equal(t, true, body["authenticated"])
}
