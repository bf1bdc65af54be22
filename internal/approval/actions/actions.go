// Package actions holds every handler an approved request can trigger and
// registers them on a dispatch.Builder.
package actions

import (
	"context"

	"acadmin/internal/approval/dispatch"
	txcontext "acadmin/pkg/platform/tx"
)

// AcademicYears is the academic-year module, when deployed.
type AcademicYears interface {
	UpdateStatus(ctx context.Context, q txcontext.Querier, id int64, status string) error
	Delete(ctx context.Context, q txcontext.Querier, id int64) error
}

// Outcomes is the outcomes module, when deployed.
type Outcomes interface {
	UpdateItem(ctx context.Context, q txcontext.Querier, id int64, fields OutcomeFields) error
}

// Deps are optional collaborators. Nil fields fall back to direct table
// updates.
type Deps struct {
	AcademicYears AcademicYears
	Outcomes      Outcomes
}

type handlers struct {
	deps Deps
}

// Register adds the complete handler set to b.
func Register(b *dispatch.Builder, deps Deps) {
	h := &handlers{deps: deps}

	dispatch.Register(b, "degree", "delete", h.deleteDegree)
	dispatch.Register(b, "degree", "edit", h.editDegree)
	dispatch.Register(b, "program", "delete", h.deleteProgram)
	dispatch.Register(b, "program", "edit", h.editProgram)
	dispatch.Register(b, "branch", "delete", h.deleteBranch)
	dispatch.Register(b, "branch", "edit", h.editBranch)
	dispatch.Register(b, "curriculum_group", "delete", h.deleteCurriculumGroup)
	dispatch.Register(b, "subject", "delete", h.deleteSubject)
	dispatch.Register(b, "faculty", "delete", h.deleteFaculty)
	dispatch.Register(b, "affiliation", "edit_in_use", h.editAffiliation)
	dispatch.Register(b, "semesters", "binding_change", h.changeBinding)
	dispatch.Register(b, "semesters", "edit_structure", h.editStructure)
	dispatch.Register(b, "academic_year", "status_change", h.changeAcademicYearStatus)
	dispatch.Register(b, "academic_year", "delete", h.deleteAcademicYear)
	dispatch.Register(b, "outcome", "edit", h.editOutcome)
}

// NewRegistry builds the immutable registry with the complete handler set.
func NewRegistry(deps Deps) (*dispatch.Registry, error) {
	b := dispatch.NewBuilder()
	Register(b, deps)
	return b.Build()
}
