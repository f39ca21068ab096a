package portal

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus/internal/navigation"
	"github.com/odyssey-erp/campus/internal/notify"
	"github.com/odyssey-erp/campus/internal/platform/httpx"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/view"
)

// HandlerConfig collects dependencies of Handler.
type HandlerConfig struct {
	Logger    *slog.Logger
	Evaluator *rbac.Evaluator
	Guard     *navigation.Guard
	Templates *view.Engine
	CSRF      *shared.CSRFManager
}

// Handler serves the landing dashboard and the module pages.
type Handler struct {
	logger    *slog.Logger
	evaluator *rbac.Evaluator
	guard     *navigation.Guard
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = rbac.NewEvaluator(rbac.DefaultMatrix())
	}
	if cfg.Guard == nil {
		cfg.Guard = navigation.NewGuard(navigation.GuardConfig{Evaluator: cfg.Evaluator, Logger: cfg.Logger})
	}
	return &Handler{
		logger:    cfg.Logger,
		evaluator: cfg.Evaluator,
		guard:     cfg.Guard,
		templates: cfg.Templates,
		csrf:      cfg.CSRF,
		rbac:      rbac.Middleware{Evaluator: cfg.Evaluator, Logger: cfg.Logger},
	}
}

// MountRoutes registers the dashboard and module routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(h.guard.LandingPath(), h.dashboard)
	r.Route("/modules/{module}", func(r chi.Router) {
		r.Use(h.guard.RequireParam("module"))
		r.Get("/", h.module)
		r.With(h.rbac.RequireParamPermission("resource", "")).
			Get("/resources/{resource}", h.resource)
		r.With(h.rbac.RequireParamPermission("resource", "operation")).
			Post("/resources/{resource}/{operation}", h.resourceAction)
	})
}

type moduleTile struct {
	Module rbac.ModuleID `json:"module"`
	Label  string        `json:"label"`
	Link   string        `json:"link"`
}

type dashboardData struct {
	Scoped  rbac.ModuleID `json:"scoped,omitempty"`
	Modules []moduleTile  `json:"modules"`
}

type resourceRow struct {
	Resource string `json:"resource"`
	Label    string `json:"label"`
}

type moduleData struct {
	Module    rbac.ModuleID `json:"module"`
	Resources []resourceRow `json:"resources"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	if p == nil {
		http.Redirect(w, r, h.guard.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	nav := navigation.FromRequest(r)
	data := dashboardData{}

	modules := h.evaluator.Matrix().ModulesFor(p.Role)
	scope := nav.Scope()
	if scope.ScopedToModule && h.evaluator.CanAccessModule(p, rbac.ModuleID(scope.SelectedModule)) {
		data.Scoped = rbac.ModuleID(scope.SelectedModule)
		modules = []rbac.ModuleID{data.Scoped}
	}
	for _, m := range modules {
		link := "/modules/" + string(m)
		if data.Scoped != "" {
			link += "?" + navigation.Scoped(m, nav.ModuleData, "").Query()
		}
		data.Modules = append(data.Modules, moduleTile{Module: m, Label: view.ModuleLabel(m), Link: link})
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, data)
		return
	}
	h.render(w, r, "pages/home.html", "Dashboard", nav, data)
}

func (h *Handler) module(w http.ResponseWriter, r *http.Request) {
	module := currentModule(r)
	data := moduleData{Module: module, Resources: []resourceRow{}}
	for _, res := range Resources(module) {
		data.Resources = append(data.Resources, resourceRow{Resource: string(res), Label: view.ResourceLabel(res)})
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, data)
		return
	}
	h.render(w, r, "pages/module.html", view.ModuleLabel(module), navigation.StateFromContext(r.Context()), data)
}

type resourceView struct {
	Module     rbac.ModuleID    `json:"module"`
	Resource   rbac.Resource    `json:"resource"`
	Label      string           `json:"label"`
	Operations []rbac.Operation `json:"operations"`
}

func (h *Handler) resource(w http.ResponseWriter, r *http.Request) {
	module := currentModule(r)
	resource := rbac.Resource(strings.ToLower(chi.URLParam(r, "resource")))
	if !belongsTo(module, resource) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	p := rbac.PrincipalFromContext(r.Context())
	ops := make([]rbac.Operation, 0, 4)
	for _, op := range []rbac.Operation{rbac.OpCreate, rbac.OpRead, rbac.OpUpdate, rbac.OpDelete} {
		if h.evaluator.CanPerformResourceOperation(p, resource, op) {
			ops = append(ops, op)
		}
	}
	httpx.JSON(w, http.StatusOK, resourceView{
		Module:     module,
		Resource:   resource,
		Label:      view.ResourceLabel(resource),
		Operations: ops,
	})
}

func (h *Handler) resourceAction(w http.ResponseWriter, r *http.Request) {
	module := currentModule(r)
	resource := rbac.Resource(strings.ToLower(chi.URLParam(r, "resource")))
	op := rbac.Operation(strings.ToLower(chi.URLParam(r, "operation")))
	if !belongsTo(module, resource) || op == rbac.OpRead {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	p := rbac.PrincipalFromContext(r.Context())
	h.logger.Info("resource action accepted",
		slog.String("user_id", p.ID),
		slog.String("module", string(module)),
		slog.String("resource", string(resource)),
		slog.String("operation", string(op)),
	)
	msg := notify.Message{
		Kind:    notify.KindSuccess,
		Message: fmt.Sprintf("Request to %s %s submitted.", op, strings.ToLower(view.ResourceLabel(resource))),
	}
	if httpx.WantsJSON(r) {
		notify.LogSink{Logger: h.logger}.Notify(r.Context(), msg)
		httpx.JSON(w, http.StatusAccepted, map[string]any{
			"module":    module,
			"resource":  resource,
			"operation": op,
			"message":   msg.Message,
		})
		return
	}
	sinks := notify.Multi{notify.LogSink{Logger: h.logger}}
	if scope := shared.ScopeFromContext(r.Context()); scope != nil {
		sinks = append(sinks, notify.NewFlashSink(scope.Storage, h.logger))
	}
	sinks.Notify(r.Context(), msg)
	target := "/modules/" + string(module)
	if q := navigation.StateFromContext(r.Context()).Query(); q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, nav navigation.State, data any) {
	if h.templates == nil {
		httpx.Problem(w, http.StatusNotImplemented, http.StatusText(http.StatusNotImplemented), "templates not configured")
		return
	}
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Principal:   rbac.PrincipalFromContext(r.Context()),
		Nav:         nav,
		Data:        data,
	}
	if scope := shared.ScopeFromContext(r.Context()); scope != nil {
		td.Flash = notify.NewFlashSink(scope.Storage, h.logger).Pop(r.Context())
		if h.csrf != nil {
			token, err := h.csrf.EnsureToken(r.Context(), scope)
			if err != nil {
				h.logger.Warn("ensure csrf token", slog.Any("error", err))
			}
			td.CSRFToken = token
		}
	}
	if err := h.templates.Render(w, name, td); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func currentModule(r *http.Request) rbac.ModuleID {
	return rbac.ModuleID(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "module"))))
}
