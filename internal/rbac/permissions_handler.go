package rbac

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus/internal/platform/httpx"
)

// PermissionsHandler exposes the caller's effective grants so clients can
// hide actions they cannot perform.
type PermissionsHandler struct {
	evaluator *Evaluator
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(evaluator *Evaluator) *PermissionsHandler {
	return &PermissionsHandler{evaluator: evaluator}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
}

type resourceGrant struct {
	Resource   Resource    `json:"resource"`
	Operations []Operation `json:"operations"`
}

type permissionsResponse struct {
	Role      Role            `json:"role"`
	Modules   []ModuleID      `json:"modules"`
	Resources []resourceGrant `json:"resources"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	matrix := h.evaluator.Matrix()
	grants := matrix.PermissionsFor(p.Role)
	resources := make([]resourceGrant, 0, len(grants))
	for res, ops := range grants {
		resources = append(resources, resourceGrant{Resource: res, Operations: ops})
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].Resource < resources[j].Resource })
	modules := matrix.ModulesFor(p.Role)
	if modules == nil {
		modules = []ModuleID{}
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Role: p.Role, Modules: modules, Resources: resources})
}
