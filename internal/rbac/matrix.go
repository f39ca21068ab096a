package rbac

import (
	"slices"
	"strings"
)

var allModules = []ModuleID{
	ModuleAcademics,
	ModuleAcademicOperation,
	ModuleAdmission,
	ModuleLMS,
	ModuleExamination,
	ModuleAlumni,
	ModuleHostel,
	ModuleLibrary,
	ModuleProcurement,
	ModuleAssets,
	ModuleFinance,
	ModuleHRMS,
	ModulePayroll,
	ModuleAffiliation,
	ModuleGTE,
	ModuleResearch,
	ModuleMasterSetup,
}

var allRoles = []Role{
	RoleSuperAdmin,
	RoleInstitutionAdmin,
	RolePrincipal,
	RoleHOD,
	RoleFaculty,
	RoleStaff,
	RoleLibrarian,
	RoleStudent,
	RoleParent,
}

var (
	crud     = []Operation{OpCreate, OpRead, OpUpdate, OpDelete}
	readOnly = []Operation{OpRead}
	noDelete = []Operation{OpCreate, OpRead, OpUpdate}
)

// Matrix holds the static role→module and role→(resource, operation) tables.
// The zero value denies everything.
type Matrix struct {
	modules   map[Role][]ModuleID
	resources map[Role]map[Resource]map[Operation]struct{}
}

// NewMatrix builds a Matrix from plain tables. Inputs are copied.
func NewMatrix(modules map[Role][]ModuleID, resources map[Role]map[Resource][]Operation) Matrix {
	m := Matrix{
		modules:   make(map[Role][]ModuleID, len(modules)),
		resources: make(map[Role]map[Resource]map[Operation]struct{}, len(resources)),
	}
	for role, mods := range modules {
		m.modules[role] = slices.Clone(mods)
	}
	for role, grants := range resources {
		byResource := make(map[Resource]map[Operation]struct{}, len(grants))
		for res, ops := range grants {
			set := make(map[Operation]struct{}, len(ops))
			for _, op := range ops {
				set[op] = struct{}{}
			}
			byResource[res] = set
		}
		m.resources[role] = byResource
	}
	return m
}

// HasModuleAccess reports whether module is configured for role.
func (m Matrix) HasModuleAccess(role Role, module ModuleID) bool {
	return slices.Contains(m.modules[role], module)
}

// HasPermission reports whether (resource, op) is granted to role.
func (m Matrix) HasPermission(role Role, resource Resource, op Operation) bool {
	ops, ok := m.resources[role][resource]
	if !ok {
		return false
	}
	_, ok = ops[op]
	return ok
}

// ModulesFor returns the ordered modules available to role.
func (m Matrix) ModulesFor(role Role) []ModuleID {
	return slices.Clone(m.modules[role])
}

// RolesWithModule lists roles that may enter module, most privileged first.
func (m Matrix) RolesWithModule(module ModuleID) []Role {
	var roles []Role
	for _, role := range allRoles {
		if m.HasModuleAccess(role, module) {
			roles = append(roles, role)
		}
	}
	return roles
}

// PermissionsFor returns the resource grants for role as sorted operation lists.
func (m Matrix) PermissionsFor(role Role) map[Resource][]Operation {
	out := make(map[Resource][]Operation, len(m.resources[role]))
	for res, ops := range m.resources[role] {
		for _, op := range crud {
			if _, ok := ops[op]; ok {
				out[res] = append(out[res], op)
			}
		}
	}
	return out
}

// IsValidModuleID reports membership in the closed module enumeration.
func IsValidModuleID(value string) bool {
	return slices.Contains(allModules, ModuleID(value))
}

// IsValidRole reports membership in the closed role enumeration.
func IsValidRole(value string) bool {
	return slices.Contains(allRoles, Role(value))
}

// IsValidOperation reports whether value is a CRUD verb.
func IsValidOperation(value string) bool {
	return slices.Contains(crud, Operation(strings.ToLower(value)))
}

// Modules returns the closed module enumeration.
func Modules() []ModuleID {
	return slices.Clone(allModules)
}

// Roles returns the closed role enumeration.
func Roles() []Role {
	return slices.Clone(allRoles)
}

var defaultMatrix = NewMatrix(
	map[Role][]ModuleID{
		RoleSuperAdmin: allModules,
		RoleInstitutionAdmin: {
			ModuleAcademics, ModuleAcademicOperation, ModuleAdmission, ModuleLMS, ModuleExamination,
			ModuleAlumni, ModuleHostel, ModuleLibrary, ModuleProcurement, ModuleAssets,
			ModuleFinance, ModuleHRMS, ModulePayroll, ModuleAffiliation, ModuleResearch,
		},
		RolePrincipal: {
			ModuleAcademics, ModuleAcademicOperation, ModuleAdmission, ModuleLMS, ModuleExamination,
			ModuleAlumni, ModuleHRMS, ModuleResearch, ModuleAffiliation,
		},
		RoleHOD: {
			ModuleAcademics, ModuleAcademicOperation, ModuleLMS, ModuleExamination, ModuleResearch,
		},
		RoleFaculty: {ModuleLMS, ModuleExamination, ModuleAcademicOperation},
		RoleStaff: {
			ModuleAdmission, ModuleHostel, ModuleProcurement, ModuleAssets, ModuleFinance, ModuleHRMS, ModulePayroll,
		},
		RoleLibrarian: {ModuleLibrary, ModuleAssets},
		RoleStudent:   {ModuleLMS, ModuleExamination, ModuleLibrary, ModuleHostel},
		RoleParent:    {ModuleExamination},
	},
	map[Role]map[Resource][]Operation{
		RoleSuperAdmin: {
			ResourceCourses: crud, ResourceStudents: crud, ResourceFaculty: crud, ResourcePrograms: crud,
			ResourceAdmissions: crud, ResourceAssignments: crud, ResourceAttendance: crud,
			ResourceExaminations: crud, ResourceResults: crud, ResourceBooks: crud, ResourceHostelRooms: crud,
			ResourceAssets: crud, ResourcePurchaseOrder: crud, ResourceFees: crud, ResourcePayslips: crud,
			ResourceEmployees: crud, ResourceAlumni: crud, ResourceResearch: crud,
			ResourceInstitutions: crud, ResourceUsers: crud,
		},
		RoleInstitutionAdmin: {
			ResourceCourses: crud, ResourceStudents: crud, ResourceFaculty: crud, ResourcePrograms: crud,
			ResourceAdmissions: crud, ResourceExaminations: crud, ResourceResults: noDelete,
			ResourceBooks: readOnly, ResourceHostelRooms: crud, ResourceAssets: crud,
			ResourcePurchaseOrder: crud, ResourceFees: crud, ResourcePayslips: readOnly,
			ResourceEmployees: crud, ResourceAlumni: crud, ResourceResearch: readOnly,
			ResourceUsers: noDelete,
		},
		RolePrincipal: {
			ResourceCourses: noDelete, ResourceStudents: noDelete, ResourceFaculty: noDelete,
			ResourcePrograms: noDelete, ResourceAdmissions: noDelete, ResourceExaminations: noDelete,
			ResourceResults: noDelete, ResourceAttendance: readOnly, ResourceEmployees: readOnly,
			ResourceAlumni: readOnly, ResourceResearch: noDelete,
		},
		RoleHOD: {
			ResourceCourses: noDelete, ResourceStudents: readOnly, ResourceFaculty: readOnly,
			ResourceAssignments: crud, ResourceAttendance: noDelete, ResourceExaminations: noDelete,
			ResourceResults: noDelete, ResourceResearch: noDelete,
		},
		RoleFaculty: {
			ResourceCourses: readOnly,
		},
		RoleStaff: {
			ResourceAdmissions: noDelete, ResourceHostelRooms: noDelete, ResourceAssets: noDelete,
			ResourcePurchaseOrder: noDelete, ResourceFees: noDelete, ResourcePayslips: readOnly,
			ResourceEmployees: readOnly,
		},
		RoleLibrarian: {
			ResourceBooks: crud, ResourceAssets: readOnly,
		},
		RoleStudent: {
			ResourceCourses: readOnly, ResourceAssignments: readOnly, ResourceExaminations: readOnly,
			ResourceResults: readOnly, ResourceBooks: readOnly, ResourceHostelRooms: readOnly,
		},
		RoleParent: {
			ResourceResults: readOnly, ResourceAttendance: readOnly,
		},
	},
)

// DefaultMatrix returns the built-in permission configuration.
func DefaultMatrix() Matrix {
	return defaultMatrix
}

// HasModuleAccess checks the default matrix.
func HasModuleAccess(role Role, module ModuleID) bool {
	return defaultMatrix.HasModuleAccess(role, module)
}

// HasPermission checks the default matrix.
func HasPermission(role Role, resource Resource, op Operation) bool {
	return defaultMatrix.HasPermission(role, resource, op)
}
