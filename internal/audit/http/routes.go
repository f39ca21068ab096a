package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/campus/internal/platform/httpx"
	"github.com/odyssey-erp/campus/internal/rbac"
)

const rateLimit = 10
const rateWindow = time.Minute

// AuditorRoles may read the login trail.
var AuditorRoles = []rbac.Role{rbac.RoleSuperAdmin, rbac.RoleInstitutionAdmin}

// MountRoutes mendaftarkan endpoint riwayat login dan ekspor CSV.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "")
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(h.rbac.RequireAnyRole(AuditorRoles...))
		gr.Get("/audit/logins", h.handleTimeline)
		gr.With(limiter).Get("/audit/logins/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		if user := strings.TrimSpace(p.ID); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
