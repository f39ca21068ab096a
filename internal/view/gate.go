package view

import (
	"html/template"

	"github.com/odyssey-erp/campus/internal/rbac"
)

// Gate exposes conditional-render helpers over the Evaluator. A nil principal
// always falls back.
type Gate struct {
	evaluator *rbac.Evaluator
}

// NewGate constructs a Gate.
func NewGate(evaluator *rbac.Evaluator) *Gate {
	if evaluator == nil {
		evaluator = rbac.NewEvaluator(rbac.DefaultMatrix())
	}
	return &Gate{evaluator: evaluator}
}

// Can reports whether p may apply op to resource.
func (g *Gate) Can(p *rbac.Principal, resource rbac.Resource, op rbac.Operation) bool {
	return g.evaluator.CanPerformResourceOperation(p, resource, op)
}

func (g *Gate) CanCreate(p *rbac.Principal, resource rbac.Resource) bool {
	return g.evaluator.CanCreate(p, resource)
}

func (g *Gate) CanRead(p *rbac.Principal, resource rbac.Resource) bool {
	return g.evaluator.CanRead(p, resource)
}

func (g *Gate) CanUpdate(p *rbac.Principal, resource rbac.Resource) bool {
	return g.evaluator.CanUpdate(p, resource)
}

func (g *Gate) CanDelete(p *rbac.Principal, resource rbac.Resource) bool {
	return g.evaluator.CanDelete(p, resource)
}

// CanAccess reports whether p may enter module.
func (g *Gate) CanAccess(p *rbac.Principal, module rbac.ModuleID) bool {
	return g.evaluator.CanAccessModule(p, module)
}

// HasRole reports whether p holds one of roles.
func (g *Gate) HasRole(p *rbac.Principal, roles ...rbac.Role) bool {
	return g.evaluator.HasAnyRole(p, roles...)
}

// Permission renders children when p may apply op to resource, else fallback.
func (g *Gate) Permission(p *rbac.Principal, resource rbac.Resource, op rbac.Operation, children, fallback template.HTML) template.HTML {
	if g.Can(p, resource, op) {
		return children
	}
	return fallback
}

// RoleGuard renders children when p holds one of roles, else fallback.
func (g *Gate) RoleGuard(p *rbac.Principal, roles []rbac.Role, children, fallback template.HTML) template.HTML {
	if g.HasRole(p, roles...) {
		return children
	}
	return fallback
}

// FuncMap exposes the gate to templates as can, canAccess and hasRole.
func (g *Gate) FuncMap() template.FuncMap {
	return template.FuncMap{
		"can": func(p *rbac.Principal, resource, op string) bool {
			return g.Can(p, rbac.Resource(resource), rbac.Operation(op))
		},
		"canAccess": func(p *rbac.Principal, module string) bool {
			return g.CanAccess(p, rbac.ModuleID(module))
		},
		"hasRole": func(p *rbac.Principal, roles ...string) bool {
			typed := make([]rbac.Role, len(roles))
			for i, r := range roles {
				typed[i] = rbac.Role(r)
			}
			return g.HasRole(p, typed...)
		},
	}
}
