package catalog

import (
	"context"
	"fmt"

	"acadmin/internal/approval/models"
	"acadmin/internal/schema"
	txcontext "acadmin/pkg/platform/tx"
)

// DeleteBranch deletes a branch by id or branch_code, with its structure row.
func DeleteBranch(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef) error {
	if id, ok := ref.ByID(); ok && caps.HasNumericID(TableBranches) && caps.HasColumn(TableBranchStructure, "branch_id") {
		if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE branch_id = $1", ident(TableBranchStructure)), id); err != nil {
			return fmt.Errorf("delete structure of branch %d: %w", id, err)
		}
	}
	return deleteByRef(ctx, q, caps, TableBranches, "branch_code", ref)
}

// DeleteSubject deletes a subject by id or subject_code.
func DeleteSubject(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef) error {
	return deleteByRef(ctx, q, caps, TableSubjects, "subject_code", ref)
}

// DeleteCurriculumGroup deletes a curriculum group and its link rows.
func DeleteCurriculumGroup(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef) error {
	if err := requireTable(caps, TableCurriculumGroups); err != nil {
		return err
	}
	if !caps.HasNumericID(TableCurriculumGroups) {
		return deleteByRef(ctx, q, caps, TableCurriculumGroups, "group_code", ref)
	}
	id, err := resolveID(ctx, q, caps, TableCurriculumGroups, "group_code", ref)
	if err != nil {
		return err
	}
	if caps.HasColumn(TableCurriculumGroupLinks, "group_id") {
		if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE group_id = $1", ident(TableCurriculumGroupLinks)), id); err != nil {
			return fmt.Errorf("delete links of curriculum group %d: %w", id, err)
		}
	}
	if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE id = $1", ident(TableCurriculumGroups)), id); err != nil {
		return fmt.Errorf("delete curriculum group %d: %w", id, err)
	}
	return nil
}

// DeleteFaculty resolves a faculty profile and removes it along with rows in
// every dependent table this deployment has. Missing dependent tables are
// skipped.
func DeleteFaculty(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef) (CascadeResult, error) {
	var res CascadeResult
	if err := requireTable(caps, TableFacultyProfiles); err != nil {
		return res, err
	}
	id, err := resolveID(ctx, q, caps, TableFacultyProfiles, "faculty_code", ref)
	if err != nil {
		return res, err
	}
	for _, table := range facultyDependents {
		if !caps.HasColumn(table, "faculty_id") {
			continue
		}
		n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE faculty_id = $1", ident(table)), id)
		if err != nil {
			return res, fmt.Errorf("delete %s of faculty %d: %w", table, id, err)
		}
		res.add(table, n)
	}
	if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE id = $1", ident(TableFacultyProfiles)), id); err != nil {
		return res, fmt.Errorf("delete faculty %d: %w", id, err)
	}
	return res, nil
}
