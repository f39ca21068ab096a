package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus/internal/platform/httpx"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// RequirePermission ensures the current principal may apply op to resource.
func (m Middleware) RequirePermission(resource Resource, op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.authorize(w, r, next, resource, op)
		})
	}
}

// RequireParamPermission reads the resource and operation from chi URL params.
// A missing operation param means read.
func (m Middleware) RequireParamPermission(resourceParam, opParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resource := Resource(strings.TrimSpace(strings.ToLower(chi.URLParam(r, resourceParam))))
			op := OpRead
			if opParam != "" {
				op = Operation(strings.TrimSpace(strings.ToLower(chi.URLParam(r, opParam))))
			}
			m.authorize(w, r, next, resource, op)
		})
	}
}

// RequireAnyRole ensures the current principal holds one of roles.
func (m Middleware) RequireAnyRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !m.Evaluator.HasAnyRole(p, roles...) {
				m.logDenied(r, p, "role")
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) authorize(w http.ResponseWriter, r *http.Request, next http.Handler, resource Resource, op Operation) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if !m.Evaluator.CanPerformResourceOperation(p, resource, op) {
		m.logDenied(r, p, string(resource)+"."+string(op))
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	next.ServeHTTP(w, r)
}

func (m Middleware) logDenied(r *http.Request, p *Principal, what string) {
	if m.Logger == nil {
		return
	}
	m.Logger.Info("rbac denied",
		slog.String("path", r.URL.Path),
		slog.String("role", string(p.Role)),
		slog.String("required", what),
	)
}
