package view

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/campus/internal/rbac"
)

func TestGateFacultyCourseActions(t *testing.T) {
	gate := NewGate(rbac.NewEvaluator(rbac.DefaultMatrix()))
	faculty := &rbac.Principal{ID: "f1", Role: rbac.RoleFaculty}

	assert.False(t, gate.CanCreate(faculty, rbac.ResourceCourses))
	assert.True(t, gate.CanRead(faculty, rbac.ResourceCourses))
	assert.False(t, gate.CanUpdate(faculty, rbac.ResourceCourses))
	assert.False(t, gate.CanDelete(faculty, rbac.ResourceCourses))

	create := template.HTML(`<button>New course</button>`)
	list := template.HTML(`<a href="/courses">Courses</a>`)
	assert.Equal(t, template.HTML(""), gate.Permission(faculty, rbac.ResourceCourses, rbac.OpCreate, create, ""))
	assert.Equal(t, list, gate.Permission(faculty, rbac.ResourceCourses, rbac.OpRead, list, ""))
}

func TestGateNilPrincipalFallsBack(t *testing.T) {
	gate := NewGate(nil)
	fallback := template.HTML("<em>sign in</em>")

	assert.Equal(t, fallback, gate.Permission(nil, rbac.ResourceCourses, rbac.OpRead, "x", fallback))
	assert.Equal(t, fallback, gate.RoleGuard(nil, []rbac.Role{rbac.RoleStudent}, "x", fallback))
	assert.False(t, gate.CanAccess(nil, rbac.ModuleLMS))
	assert.False(t, gate.HasRole(nil))
}

func TestGateRoleGuard(t *testing.T) {
	gate := NewGate(nil)
	librarian := &rbac.Principal{ID: "l1", Role: rbac.RoleLibrarian}

	assert.Equal(t, template.HTML("ok"), gate.RoleGuard(librarian, []rbac.Role{rbac.RoleLibrarian, rbac.RoleStaff}, "ok", ""))
	assert.Equal(t, template.HTML(""), gate.RoleGuard(librarian, []rbac.Role{rbac.RoleStudent}, "ok", ""))
}

func TestGateFuncMap(t *testing.T) {
	funcs := NewGate(nil).FuncMap()
	student := &rbac.Principal{ID: "s1", Role: rbac.RoleStudent}

	can := funcs["can"].(func(*rbac.Principal, string, string) bool)
	canAccess := funcs["canAccess"].(func(*rbac.Principal, string) bool)
	hasRole := funcs["hasRole"].(func(*rbac.Principal, ...string) bool)

	assert.True(t, can(student, "books", "read"))
	assert.False(t, can(student, "books", "delete"))
	assert.False(t, can(student, "unknown", "read"))
	assert.True(t, canAccess(student, "hostel"))
	assert.False(t, canAccess(student, "payroll"))
	assert.True(t, hasRole(student, "parent", "student"))
}
