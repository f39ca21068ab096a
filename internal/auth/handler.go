package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus/internal/navigation"
	"github.com/odyssey-erp/campus/internal/notify"
	"github.com/odyssey-erp/campus/internal/platform/httpx"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/view"
)

// LoginObserver counts login attempts by outcome.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// HandlerConfig collects dependencies of Handler.
type HandlerConfig struct {
	Logger    *slog.Logger
	Service   *Service
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Evaluator *rbac.Evaluator
	// Sessions rotates the client scope on login and logout. Without it the
	// request scope is reused.
	Sessions    *session.Manager
	Publisher   ActivityPublisher
	Observer    LoginObserver
	LandingPath string
	// LoginRate caps login submissions per client IP and minute.
	LoginRate int
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	evaluator   *rbac.Evaluator
	sessions    *session.Manager
	publisher   ActivityPublisher
	observer    LoginObserver
	landingPath string
	loginRate   int
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = rbac.NewEvaluator(rbac.DefaultMatrix())
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/"
	}
	if cfg.LoginRate <= 0 {
		cfg.LoginRate = 10
	}
	return &Handler{
		logger:      cfg.Logger,
		service:     cfg.Service,
		templates:   cfg.Templates,
		csrfManager: cfg.CSRF,
		evaluator:   cfg.Evaluator,
		sessions:    cfg.Sessions,
		publisher:   cfg.Publisher,
		observer:    cfg.Observer,
		landingPath: cfg.LandingPath,
		loginRate:   cfg.LoginRate,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.With(httprate.Limit(h.loginRate, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/heartbeat", h.heartbeat)
	r.Get("/session", h.sessionInfo)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
	Next   string
}

type sessionView struct {
	Authenticated bool            `json:"authenticated"`
	User          *rbac.Principal `json:"user,omitempty"`
	SessionID     string          `json:"sessionId,omitempty"`
	LoginTime     *time.Time      `json:"loginTime,omitempty"`
	LastActivity  *time.Time      `json:"lastActivity,omitempty"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	Modules       []rbac.ModuleID `json:"modules,omitempty"`
	CSRFToken     string          `json:"csrfToken,omitempty"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	next := navigation.SafeNext(r.URL.Query().Get("next"), h.landingPath)
	if scope != nil && scope.Store.IsValidSession(r.Context()) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{Next: next})
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	scope := shared.ScopeFromContext(r.Context())
	csrfToken, err := h.csrfManager.EnsureToken(r.Context(), scope)
	if err != nil {
		h.logger.Warn("ensure csrf token", slog.Any("error", err))
	}
	var flash *notify.Message
	if scope != nil {
		flash = notify.NewFlashSink(scope.Storage, h.logger).Pop(r.Context())
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	if scope == nil {
		h.logger.Error("scope missing during login")
		httpx.RespondError(w, shared.ErrScopeMissing)
		return
	}
	asJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var form loginForm
	next := h.landingPath
	if asJSON {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		form = loginForm{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
		next = navigation.SafeNext(r.PostFormValue("next"), h.landingPath)
	}

	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		}
	}

	var principal rbac.Principal
	if len(errs) == 0 {
		p, err := h.service.Login(r.Context(), form.Email, form.Password)
		switch {
		case err == nil:
			principal = p
		case errors.Is(err, shared.ErrInvalidCredentials):
			errs["general"] = "Invalid email or password"
		default:
			h.logger.Error("login", slog.Any("error", err))
			h.observe("error")
			httpx.RespondError(w, err)
			return
		}
	}

	if len(errs) > 0 {
		h.observe("rejected")
		form.Password = ""
		if asJSON {
			httpx.WriteProblem(w, httpx.ProblemDetail{
				Title:      "Unauthorized",
				Status:     http.StatusUnauthorized,
				Detail:     "login failed",
				Extensions: map[string]any{"errors": errs},
			})
			return
		}
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: form, Errors: errs, Next: next})
		return
	}

	if err := h.rotate(w, r, scope); err != nil {
		h.logger.Error("rotate scope", slog.Any("error", err))
		h.observe("error")
		httpx.RespondError(w, err)
		return
	}
	rec, err := scope.Store.StoreSession(r.Context(), principal)
	if err != nil {
		h.logger.Error("store session", slog.Any("error", err))
		h.observe("error")
		httpx.RespondError(w, err)
		return
	}
	h.observe("success")
	h.recordActivity(r, scope, rec)

	h.logger.Info("login",
		slog.String("user_id", rec.User.ID),
		slog.String("role", string(rec.User.Role)),
		slog.String("session_id", rec.SessionID),
	)

	if asJSON {
		httpx.JSON(w, http.StatusOK, h.viewOf(r, scope, rec))
		return
	}
	notify.NewFlashSink(scope.Storage, h.logger).Notify(r.Context(), notify.Message{
		Kind:    notify.KindSuccess,
		Message: "Welcome back, " + rec.User.Name,
	})
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) recordActivity(r *http.Request, scope *shared.RequestScope, rec session.Record) {
	activity := session.LoginActivity{
		UserID:    rec.User.ID,
		Email:     rec.User.Email,
		Role:      rec.User.Role,
		LoginTime: rec.LoginTime,
		SessionID: rec.SessionID,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
	if err := scope.Store.RecordLoginActivity(r.Context(), activity); err != nil {
		h.logger.Warn("record login activity", slog.Any("error", err))
	}
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishLoginActivity(r.Context(), activity); err != nil {
		h.logger.Warn("publish login activity", slog.Any("error", err))
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	if scope != nil {
		if err := h.rotate(w, r, scope); err != nil {
			h.logger.Warn("rotate scope", slog.Any("error", err))
		}
		if err := scope.Store.ClearSession(r.Context()); err != nil {
			h.logger.Warn("clear session", slog.Any("error", err))
		}
		notify.NewFlashSink(scope.Storage, h.logger).Notify(r.Context(), notify.Message{
			Kind:    notify.KindInfo,
			Message: "You have been signed out",
		})
	}
	if httpx.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// rotate moves the client onto a fresh scope and drops the old one, so a
// scope cookie planted before login never carries an authenticated session.
// scope is updated in place for everything holding the request context.
func (h *Handler) rotate(w http.ResponseWriter, r *http.Request, scope *shared.RequestScope) error {
	if h.sessions == nil {
		return nil
	}
	fresh, err := h.sessions.Rotate(r.Context(), w, scope.ID)
	if err != nil {
		return err
	}
	*scope = shared.RequestScope{
		ID:      fresh,
		Store:   h.sessions.Store(fresh),
		Storage: h.sessions.Storage(fresh),
	}
	return nil
}

func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	if scope == nil || !scope.Store.IsValidSession(r.Context()) {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := scope.Store.UpdateActivity(r.Context()); err != nil {
		h.logger.Warn("heartbeat", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	rec := scope.Store.GetSession(r.Context())
	if rec == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, h.viewOf(r, scope, *rec))
}

func (h *Handler) sessionInfo(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	if scope == nil {
		httpx.JSON(w, http.StatusOK, sessionView{})
		return
	}
	rec := scope.Store.GetSession(r.Context())
	if rec == nil {
		token, _ := h.csrfManager.EnsureToken(r.Context(), scope)
		httpx.JSON(w, http.StatusOK, sessionView{CSRFToken: token})
		return
	}
	httpx.JSON(w, http.StatusOK, h.viewOf(r, scope, *rec))
}

func (h *Handler) viewOf(r *http.Request, scope *shared.RequestScope, rec session.Record) sessionView {
	user := rec.User
	login := rec.LoginTime
	last := rec.LastActivity
	expires := rec.ExpiresAt(scope.Store.Timeout())
	token, _ := h.csrfManager.EnsureToken(r.Context(), scope)
	return sessionView{
		Authenticated: true,
		User:          &user,
		SessionID:     rec.SessionID,
		LoginTime:     &login,
		LastActivity:  &last,
		ExpiresAt:     &expires,
		Modules:       h.evaluator.Matrix().ModulesFor(user.Role),
		CSRFToken:     token,
	}
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveLogin(outcome)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
