package rbac

import "slices"

// Evaluator answers authorization questions for a principal against a Matrix.
type Evaluator struct {
	matrix Matrix
}

// NewEvaluator constructs an Evaluator over matrix.
func NewEvaluator(matrix Matrix) *Evaluator {
	return &Evaluator{matrix: matrix}
}

// Matrix exposes the underlying permission tables.
func (e *Evaluator) Matrix() Matrix {
	return e.matrix
}

// CanAccessModule reports whether p may enter module.
func (e *Evaluator) CanAccessModule(p *Principal, module ModuleID) bool {
	if p == nil {
		return false
	}
	return e.matrix.HasModuleAccess(p.Role, module)
}

// CanPerformResourceOperation reports whether p may apply op to resource.
func (e *Evaluator) CanPerformResourceOperation(p *Principal, resource Resource, op Operation) bool {
	if p == nil {
		return false
	}
	return e.matrix.HasPermission(p.Role, resource, op)
}

// CanCreate is shorthand for the create operation.
func (e *Evaluator) CanCreate(p *Principal, resource Resource) bool {
	return e.CanPerformResourceOperation(p, resource, OpCreate)
}

// CanRead is shorthand for the read operation.
func (e *Evaluator) CanRead(p *Principal, resource Resource) bool {
	return e.CanPerformResourceOperation(p, resource, OpRead)
}

// CanUpdate is shorthand for the update operation.
func (e *Evaluator) CanUpdate(p *Principal, resource Resource) bool {
	return e.CanPerformResourceOperation(p, resource, OpUpdate)
}

// CanDelete is shorthand for the delete operation.
func (e *Evaluator) CanDelete(p *Principal, resource Resource) bool {
	return e.CanPerformResourceOperation(p, resource, OpDelete)
}

// HasAnyRole reports whether p holds one of roles.
func (e *Evaluator) HasAnyRole(p *Principal, roles ...Role) bool {
	if p == nil {
		return false
	}
	return slices.Contains(roles, p.Role)
}

// EvaluateScopedNavigation decides whether p may navigate into required
// given the active navigation scope. Module denial always wins; the
// super-role is checked before any scope mismatch.
func (e *Evaluator) EvaluateScopedNavigation(p *Principal, required ModuleID, scope Scope) Decision {
	if !e.CanAccessModule(p, required) {
		return Decision{Kind: DenyNoAccess}
	}
	if p.IsSuperUser() {
		return Decision{Kind: Allow}
	}
	if scope.ScopedToModule && IsValidModuleID(scope.SelectedModule) {
		selected := ModuleID(scope.SelectedModule)
		// Kept separate from the bypass above: only the super-role may
		// cross into master-setup while scoped.
		if selected == ModuleMasterSetup && p.Role == RoleSuperAdmin {
			return Decision{Kind: Allow}
		}
		if required != selected {
			return Decision{Kind: RedirectScopeMismatch, Target: selected, Payload: scope.Payload}
		}
		return Decision{Kind: Allow}
	}
	return Decision{Kind: Allow}
}
