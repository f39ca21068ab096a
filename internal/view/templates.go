package view

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/campus/internal/navigation"
	"github.com/odyssey-erp/campus/internal/notify"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	logger    *slog.Logger
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *notify.Message
	CurrentPath string
	Principal   *rbac.Principal
	Nav         navigation.State
	Data        any
}

// NewEngine parses templates at build-time.
func NewEngine(gate *Gate, logger *slog.Logger) (*Engine, error) {
	if gate == nil {
		gate = NewGate(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"moduleLabel": func(m rbac.ModuleID) string { return ModuleLabel(m) },
		"roleLabel":   func(r rbac.Role) string { return RoleLabel(r) },
		"scopedLink": func(module rbac.ModuleID, data map[string]any) string {
			st := navigation.Scoped(module, data, "")
			return "/modules/" + string(module) + "?" + st.Query()
		},
	}
	for name, fn := range gate.FuncMap() {
		funcMap[name] = fn
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl, logger: logger}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// DeniedPage is the data of the access-denied view.
type DeniedPage struct {
	navigation.Denial
	RequiredModuleLabel string
	RoleLabel           string
	RequiredRoleLabels  []string
}

// RenderDenied writes the access-denied page with its diagnostic context.
func (e *Engine) RenderDenied(w http.ResponseWriter, r *http.Request, d navigation.Denial) {
	page := DeniedPage{
		Denial:              d,
		RequiredModuleLabel: ModuleLabel(d.RequiredModule),
		RoleLabel:           RoleLabel(d.Role),
	}
	for _, role := range d.RequiredRoles {
		page.RequiredRoleLabels = append(page.RequiredRoleLabels, RoleLabel(role))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	err := e.templates.ExecuteTemplate(w, "pages/denied.html", TemplateData{
		Title:       "Access denied",
		CurrentPath: r.URL.Path,
		Principal:   rbac.PrincipalFromContext(r.Context()),
		Data:        page,
	})
	if err != nil {
		e.logger.Error("render denied", slog.Any("error", err))
	}
}
