package app

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/odyssey-erp/campus/internal/observability"
	"github.com/odyssey-erp/campus/internal/platform/httpx"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
	"github.com/odyssey-erp/campus/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *session.Manager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// passivePaths never count as user activity.
var passivePaths = []string{
	"/auth/session",
	"/healthz",
	"/metrics",
	"/jobs/health",
	"/static/",
}

func isPassive(path string) bool {
	for _, p := range passivePaths {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// ScopeMiddleware binds every request to its storage scope, resolves the
// signed-in principal and slides the inactivity window.
func ScopeMiddleware(manager *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, created := manager.ScopeFromRequest(r)
			if created {
				manager.WriteCookie(w, id)
			}
			scope := &shared.RequestScope{
				ID:      id,
				Store:   manager.Store(id),
				Storage: manager.Storage(id),
			}
			ctx := shared.ContextWithScope(r.Context(), scope)

			if rec := scope.Store.GetSession(ctx); rec != nil {
				principal := rec.User
				ctx = rbac.ContextWithPrincipal(ctx, &principal)
				if !isPassive(r.URL.Path) {
					if err := scope.Store.UpdateActivity(ctx); err != nil {
						logger.Warn("update session activity", slog.Any("error", err))
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFMiddleware verifies the scope token on unsafe methods.
func CSRFMiddleware(manager *shared.CSRFManager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			scope := shared.ScopeFromContext(r.Context())
			if scope == nil {
				httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), "missing request scope")
				return
			}
			token := r.Header.Get(shared.CSRFHeader)
			if token == "" {
				token = r.PostFormValue(shared.CSRFFormField)
			}
			if err := manager.VerifyToken(r.Context(), scope, token); err != nil {
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), "invalid csrf token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareStack installs the campus middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.Config == nil || !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	rate := 120
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimit > 0 {
			rate = cfg.Config.RateLimit
		}
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(rate, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		ScopeMiddleware(cfg.SessionManager, cfg.Logger),
		CSRFMiddleware(cfg.CSRFManager, cfg.Logger),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}
