package navigation

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/odyssey-erp/campus/internal/rbac"
)

// GuardState is the state a navigation attempt lands in.
type GuardState int

const (
	Unauthenticated GuardState = iota
	Unauthorized
	ScopeMismatch
	Authorized
)

func (s GuardState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Unauthorized:
		return "unauthorized"
	case ScopeMismatch:
		return "scope_mismatch"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Action is the terminal step taken for a navigation attempt.
type Action int

const (
	RenderLoginRedirect Action = iota
	RenderAccessDenied
	RedirectToCanonical
	RenderChildren
)

func (a Action) String() string {
	switch a {
	case RenderLoginRedirect:
		return "login_redirect"
	case RenderAccessDenied:
		return "access_denied"
	case RedirectToCanonical:
		return "redirect_canonical"
	case RenderChildren:
		return "render"
	default:
		return "unknown"
	}
}

// Attempt is a single navigation request.
type Attempt struct {
	Principal      *rbac.Principal
	RequiredModule rbac.ModuleID
	Nav            State
	// Location is the attempted path including its query.
	Location string
	// Message overrides the default access-denied text.
	Message string
}

// Denial is the diagnostic context shown on the access-denied view.
type Denial struct {
	RequiredModule rbac.ModuleID `json:"requiredModule"`
	Role           rbac.Role     `json:"role"`
	Message        string        `json:"message,omitempty"`
	RequiredRoles  []rbac.Role   `json:"requiredRoles,omitempty"`
}

// Text returns Message, or the default explanation when none was set.
func (d Denial) Text() string {
	if d.Message != "" {
		return d.Message
	}
	return fmt.Sprintf("Role %q cannot access module %q.", d.Role, d.RequiredModule)
}

// Redirect is a canonical scoped destination.
type Redirect struct {
	Path  string
	State State
}

// URL renders the redirect target with its encoded state.
func (r Redirect) URL() string {
	if q := r.State.Query(); q != "" {
		return r.Path + "?" + q
	}
	return r.Path
}

// Outcome is the guard's decision.
type Outcome struct {
	State  GuardState
	Action Action
	// LoginTarget is set for RenderLoginRedirect and preserves the attempted
	// location.
	LoginTarget string
	Denial      *Denial
	Redirect    *Redirect
}

// DecisionRecorder observes guard outcomes.
type DecisionRecorder interface {
	ObserveGuardDecision(state string)
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	Evaluator   *rbac.Evaluator
	LoginPath   string
	LandingPath string
	Logger      *slog.Logger
	Recorder    DecisionRecorder
	Denied      DeniedRenderer
	// Messages holds per-module access-denied text for routes guarded
	// without an explicit message.
	Messages map[rbac.ModuleID]string
}

// Guard evaluates navigation attempts. It performs no I/O.
type Guard struct {
	evaluator   *rbac.Evaluator
	loginPath   string
	landingPath string
	logger      *slog.Logger
	recorder    DecisionRecorder
	denied      DeniedRenderer
	messages    map[rbac.ModuleID]string
}

// NewGuard constructs a Guard.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.Evaluator == nil {
		cfg.Evaluator = rbac.NewEvaluator(rbac.DefaultMatrix())
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Denied == nil {
		cfg.Denied = plainDenied{}
	}
	return &Guard{
		evaluator:   cfg.Evaluator,
		loginPath:   cfg.LoginPath,
		landingPath: cfg.LandingPath,
		logger:      cfg.Logger,
		recorder:    cfg.Recorder,
		denied:      cfg.Denied,
		messages:    cfg.Messages,
	}
}

// Evaluate runs the guard state machine for one attempt.
func (g *Guard) Evaluate(a Attempt) Outcome {
	out := g.evaluate(a)
	if g.recorder != nil {
		g.recorder.ObserveGuardDecision(out.State.String())
	}
	return out
}

func (g *Guard) evaluate(a Attempt) Outcome {
	if a.Principal == nil {
		return Outcome{
			State:       Unauthenticated,
			Action:      RenderLoginRedirect,
			LoginTarget: g.LoginURL(a.Location),
		}
	}

	decision := g.evaluator.EvaluateScopedNavigation(a.Principal, a.RequiredModule, a.Nav.Scope())
	switch decision.Kind {
	case rbac.Allow:
		return Outcome{State: Authorized, Action: RenderChildren}
	case rbac.RedirectScopeMismatch:
		from := ""
		if a.Location != "" {
			if u, err := url.Parse(a.Location); err == nil {
				from = u.Path
			}
		}
		return Outcome{
			State:  ScopeMismatch,
			Action: RedirectToCanonical,
			Redirect: &Redirect{
				Path:  g.landingPath,
				State: Scoped(decision.Target, decision.Payload, from),
			},
		}
	default:
		return Outcome{
			State:  Unauthorized,
			Action: RenderAccessDenied,
			Denial: &Denial{
				RequiredModule: a.RequiredModule,
				Role:           a.Principal.Role,
				Message:        a.Message,
				RequiredRoles:  g.evaluator.Matrix().RolesWithModule(a.RequiredModule),
			},
		}
	}
}

// LoginURL returns the login path that resumes location after sign in.
func (g *Guard) LoginURL(location string) string {
	if location == "" || !isLocalPath(location) {
		return g.loginPath
	}
	return g.loginPath + "?" + url.Values{"next": {location}}.Encode()
}

// LandingPath returns the canonical landing location.
func (g *Guard) LandingPath() string {
	return g.landingPath
}
