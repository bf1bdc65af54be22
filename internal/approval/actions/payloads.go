package actions

// DegreeDeletePayload is the payload of degree.delete.
type DegreeDeletePayload struct {
	Cascade bool `json:"cascade"`
}

// ProgramDeletePayload is the payload of program.delete.
type ProgramDeletePayload struct {
	Cascade               bool `json:"cascade"`
	AllowDeleteIfChildren bool `json:"allow_delete_if_children"`
}

// EditPayload carries column updates for the *.edit handlers.
type EditPayload struct {
	Updates map[string]any `json:"updates"`
}

// NoPayload is used by handlers that only need the object id.
type NoPayload struct{}

// BindingChangePayload is the payload of semesters.binding_change.
type BindingChangePayload struct {
	BindingMode string `json:"binding_mode"`
	LabelMode   string `json:"label_mode"`
	AutoRebuild bool   `json:"auto_rebuild"`
}

// StructurePayload is the payload of semesters.edit_structure.
type StructurePayload struct {
	Years        int `json:"years"`
	TermsPerYear int `json:"terms_per_year"`
}

// AcademicYearStatusPayload is the payload of academic_year.status_change.
type AcademicYearStatusPayload struct {
	Status string `json:"status"`
}

// OutcomeEditPayload is the payload of outcome.edit. Only After is applied.
type OutcomeEditPayload struct {
	After OutcomeFields `json:"after"`
}

// OutcomeFields are the editable fields of an outcome item. Nil fields are
// left unchanged.
type OutcomeFields struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	BloomLevel    *string  `json:"bloom_level"`
	TimelineYears *int     `json:"timeline_years"`
	Tags          []string `json:"tags"`
}

// Columns maps set fields to outcome_items columns.
func (f OutcomeFields) Columns() map[string]any {
	cols := make(map[string]any, 5)
	if f.Title != nil {
		cols["title"] = *f.Title
	}
	if f.Description != nil {
		cols["description"] = *f.Description
	}
	if f.BloomLevel != nil {
		cols["bloom_level"] = *f.BloomLevel
	}
	if f.TimelineYears != nil {
		cols["timeline_years"] = *f.TimelineYears
	}
	if f.Tags != nil {
		tags := make([]any, 0, len(f.Tags))
		for _, t := range f.Tags {
			tags = append(tags, t)
		}
		cols["tags"] = tags
	}
	return cols
}
