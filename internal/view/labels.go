package view

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/campus/internal/rbac"
)

var moduleLabels = map[rbac.ModuleID]string{
	rbac.ModuleLMS:         "LMS",
	rbac.ModuleHRMS:        "HRMS",
	rbac.ModuleGTE:         "GTE",
	rbac.ModuleMasterSetup: "Master Setup",
}

var roleLabels = map[rbac.Role]string{
	rbac.RoleHOD:        "Head of Department",
	rbac.RoleParent:     "Parent / Guardian",
	rbac.RoleSuperAdmin: "Super Administrator",
}

// ModuleLabel returns the display name of a module.
func ModuleLabel(module rbac.ModuleID) string {
	if label, ok := moduleLabels[module]; ok {
		return label
	}
	return humanize(string(module))
}

// RoleLabel returns the display name of a role.
func RoleLabel(role rbac.Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return humanize(string(role))
}

func humanize(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "-", " "))
}

// ResourceLabel returns the display name of a resource.
func ResourceLabel(resource rbac.Resource) string {
	return humanize(string(resource))
}
