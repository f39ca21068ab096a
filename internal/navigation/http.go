package navigation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus/internal/platform/httpx"
	"github.com/odyssey-erp/campus/internal/rbac"
)

// DeniedRenderer writes the access-denied view for HTML clients.
type DeniedRenderer interface {
	RenderDenied(w http.ResponseWriter, r *http.Request, d Denial)
}

// DeniedFunc adapts a function to DeniedRenderer.
type DeniedFunc func(w http.ResponseWriter, r *http.Request, d Denial)

// RenderDenied calls f.
func (f DeniedFunc) RenderDenied(w http.ResponseWriter, r *http.Request, d Denial) {
	f(w, r, d)
}

type plainDenied struct{}

func (plainDenied) RenderDenied(w http.ResponseWriter, _ *http.Request, d Denial) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = fmt.Fprintln(w, d.Text())
}

type stateContextKey struct{}

// ContextWithState stores the accepted navigation state.
func ContextWithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

// StateFromContext returns the navigation state accepted by the guard.
func StateFromContext(ctx context.Context) State {
	st, _ := ctx.Value(stateContextKey{}).(State)
	return st
}

// Require guards a route behind module.
func (g *Guard) Require(module rbac.ModuleID) func(http.Handler) http.Handler {
	return g.RequireWithMessage(module, "")
}

// RequireWithMessage guards a route behind module and shows message when the
// role is denied. An empty message falls back to GuardConfig.Messages.
func (g *Guard) RequireWithMessage(module rbac.ModuleID, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next, module, message)
		})
	}
}

// RequireParam guards a route behind the module named by a chi URL param.
// Unknown module ids are denied like any module the role lacks.
func (g *Guard) RequireParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			module := rbac.ModuleID(strings.ToLower(strings.TrimSpace(chi.URLParam(r, param))))
			g.serve(w, r, next, module, "")
		})
	}
}

func (g *Guard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, module rbac.ModuleID, message string) {
	if message == "" {
		message = g.messages[module]
	}
	nav := FromRequest(r)
	principal := rbac.PrincipalFromContext(r.Context())
	out := g.Evaluate(Attempt{
		Principal:      principal,
		RequiredModule: module,
		Nav:            nav,
		Location:       r.URL.RequestURI(),
		Message:        message,
	})

	switch out.Action {
	case RenderChildren:
		next.ServeHTTP(w, r.WithContext(ContextWithState(r.Context(), nav)))
	case RenderLoginRedirect:
		if httpx.WantsJSON(r) {
			httpx.WriteProblem(w, httpx.ProblemDetail{
				Title:      "Unauthorized",
				Status:     http.StatusUnauthorized,
				Detail:     "session required",
				Extensions: map[string]any{"login": out.LoginTarget},
			})
			return
		}
		http.Redirect(w, r, out.LoginTarget, http.StatusSeeOther)
	case RedirectToCanonical:
		g.logger.Debug("scope mismatch redirect",
			slog.String("path", r.URL.Path),
			slog.String("required", string(module)),
			slog.String("selected", out.Redirect.State.SelectedModule),
		)
		http.Redirect(w, r, out.Redirect.URL(), http.StatusSeeOther)
	default:
		g.logger.Info("navigation denied",
			slog.String("path", r.URL.Path),
			slog.String("role", string(out.Denial.Role)),
			slog.String("module", string(out.Denial.RequiredModule)),
		)
		if httpx.WantsJSON(r) {
			httpx.WriteProblem(w, httpx.ProblemDetail{
				Title:  "Forbidden",
				Status: http.StatusForbidden,
				Detail: out.Denial.Text(),
				Extensions: map[string]any{
					"requiredModule": out.Denial.RequiredModule,
					"role":           out.Denial.Role,
					"requiredRoles":  out.Denial.RequiredRoles,
				},
			})
			return
		}
		g.denied.RenderDenied(w, r, *out.Denial)
	}
}
