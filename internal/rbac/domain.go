package rbac

import "time"

// Role identifies the category a principal belongs to.
type Role string

// Roles ordered from most to least privileged.
const (
	RoleSuperAdmin       Role = "super-admin"
	RoleInstitutionAdmin Role = "institution-admin"
	RolePrincipal        Role = "principal"
	RoleHOD              Role = "hod"
	RoleFaculty          Role = "faculty"
	RoleStaff            Role = "staff"
	RoleLibrarian        Role = "librarian"
	RoleStudent          Role = "student"
	RoleParent           Role = "parent"
)

// ModuleID names a top-level business area.
type ModuleID string

// Business modules.
const (
	ModuleAcademics         ModuleID = "academics"
	ModuleAcademicOperation ModuleID = "academic-operation"
	ModuleAdmission         ModuleID = "admission"
	ModuleLMS               ModuleID = "lms"
	ModuleExamination       ModuleID = "examination"
	ModuleAlumni            ModuleID = "alumni"
	ModuleHostel            ModuleID = "hostel"
	ModuleLibrary           ModuleID = "library"
	ModuleProcurement       ModuleID = "procurement"
	ModuleAssets            ModuleID = "assets"
	ModuleFinance           ModuleID = "finance"
	ModuleHRMS              ModuleID = "hrms"
	ModulePayroll           ModuleID = "payroll"
	ModuleAffiliation       ModuleID = "affiliation"
	ModuleGTE               ModuleID = "gte"
	ModuleResearch          ModuleID = "research"
	ModuleMasterSetup       ModuleID = "master-setup"
)

// Resource names an entity gated by CRUD operation.
type Resource string

// Resources.
const (
	ResourceCourses       Resource = "courses"
	ResourceStudents      Resource = "students"
	ResourceFaculty       Resource = "faculty"
	ResourcePrograms      Resource = "programs"
	ResourceAdmissions    Resource = "admissions"
	ResourceAssignments   Resource = "assignments"
	ResourceAttendance    Resource = "attendance"
	ResourceExaminations  Resource = "examinations"
	ResourceResults       Resource = "results"
	ResourceBooks         Resource = "books"
	ResourceHostelRooms   Resource = "hostel-rooms"
	ResourceAssets        Resource = "assets"
	ResourcePurchaseOrder Resource = "purchase-orders"
	ResourceFees          Resource = "fees"
	ResourcePayslips      Resource = "payslips"
	ResourceEmployees     Resource = "employees"
	ResourceAlumni        Resource = "alumni"
	ResourceResearch      Resource = "research-projects"
	ResourceInstitutions  Resource = "institutions"
	ResourceUsers         Resource = "users"
)

// Operation is a CRUD verb.
type Operation string

// CRUD operations.
const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Principal describes the authenticated actor.
type Principal struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	InstitutionID string    `json:"institutionId,omitempty"`
	ProgramID     string    `json:"programId,omitempty"`
	LoginTime     time.Time `json:"loginTime,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
}

// IsSuperUser reports whether the principal holds the top super-role.
func (p *Principal) IsSuperUser() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// Scope is the navigation restriction attached to an in-app transition.
// SelectedModule is untrusted and validated before use.
type Scope struct {
	ScopedToModule bool
	SelectedModule string
	Payload        map[string]any
}

// DecisionKind enumerates evaluator outcomes.
type DecisionKind int

const (
	// Allow permits the navigation.
	Allow DecisionKind = iota
	// DenyNoAccess means the role cannot reach the module at all.
	DenyNoAccess
	// RedirectScopeMismatch sends the user back to the module they are scoped to.
	RedirectScopeMismatch
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case DenyNoAccess:
		return "deny"
	case RedirectScopeMismatch:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of EvaluateScopedNavigation.
type Decision struct {
	Kind    DecisionKind
	Target  ModuleID
	Payload map[string]any
}
