package portal

import (
	"slices"

	"github.com/odyssey-erp/campus/internal/rbac"
)

// moduleResources lists the resources managed inside each module.
var moduleResources = map[rbac.ModuleID][]rbac.Resource{
	rbac.ModuleAcademics:         {rbac.ResourcePrograms, rbac.ResourceCourses, rbac.ResourceFaculty},
	rbac.ModuleAcademicOperation: {rbac.ResourceCourses, rbac.ResourceAttendance},
	rbac.ModuleAdmission:         {rbac.ResourceAdmissions, rbac.ResourceStudents},
	rbac.ModuleLMS:               {rbac.ResourceCourses, rbac.ResourceAssignments},
	rbac.ModuleExamination:       {rbac.ResourceExaminations, rbac.ResourceResults},
	rbac.ModuleAlumni:            {rbac.ResourceAlumni},
	rbac.ModuleHostel:            {rbac.ResourceHostelRooms},
	rbac.ModuleLibrary:           {rbac.ResourceBooks},
	rbac.ModuleProcurement:       {rbac.ResourcePurchaseOrder},
	rbac.ModuleAssets:            {rbac.ResourceAssets},
	rbac.ModuleFinance:           {rbac.ResourceFees},
	rbac.ModuleHRMS:              {rbac.ResourceEmployees},
	rbac.ModulePayroll:           {rbac.ResourcePayslips},
	rbac.ModuleAffiliation:       {rbac.ResourceInstitutions, rbac.ResourcePrograms},
	rbac.ModuleResearch:          {rbac.ResourceResearch},
	rbac.ModuleMasterSetup:       {rbac.ResourceInstitutions, rbac.ResourceUsers},
}

// Resources returns the resources of module.
func Resources(module rbac.ModuleID) []rbac.Resource {
	return moduleResources[module]
}

func belongsTo(module rbac.ModuleID, resource rbac.Resource) bool {
	return slices.Contains(moduleResources[module], resource)
}
