package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"acadmin/internal/approval/models"
	"acadmin/pkg/platform/sentinel"
	txcontext "acadmin/pkg/platform/tx"
)

// PostgresStore reads and writes approver_assignments and approval_rules_config.
// Calls join the transaction carried by ctx, if any.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const ruleColumns = `object_type, action, require_user_assignment, fallback_to_roles, requires_reason,
	min_approvers, approval_rule, auto_approve_after_hours, escalate_after_hours,
	linked_page_permission, COALESCE(updated_by, ''), updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.RuleConfig, error) {
	var (
		cfg       models.RuleConfig
		rule      string
		autoHours sql.NullInt32
		escHours  sql.NullInt32
		updatedAt sql.NullTime
	)
	if err := row.Scan(&cfg.ObjectType, &cfg.Action, &cfg.RequireUserAssignment, &cfg.FallbackToRoles,
		&cfg.RequiresReason, &cfg.MinApprovers, &rule, &autoHours, &escHours,
		&cfg.LinkedPagePermission, &cfg.UpdatedBy, &updatedAt); err != nil {
		return nil, err
	}
	cfg.ApprovalRule = models.Rule(rule)
	if autoHours.Valid {
		h := int(autoHours.Int32)
		cfg.AutoApproveAfterHours = &h
	}
	if escHours.Valid {
		h := int(escHours.Int32)
		cfg.EscalateAfterHours = &h
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		cfg.UpdatedAt = &t
	}
	return &cfg, nil
}

func (s *PostgresStore) FindRuleConfig(ctx context.Context, key models.ActionKey) (*models.RuleConfig, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM approval_rules_config WHERE object_type = $1 AND action = $2`,
		key.ObjectType, key.Action)
	cfg, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find rule config %s: %w", key, err)
	}
	return cfg, nil
}

func (s *PostgresStore) ListRuleConfigs(ctx context.Context) ([]*models.RuleConfig, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM approval_rules_config ORDER BY object_type, action`)
	if err != nil {
		return nil, fmt.Errorf("list rule configs: %w", err)
	}
	defer rows.Close()
	var out []*models.RuleConfig
	for rows.Next() {
		cfg, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule config: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func ruleArgs(cfg *models.RuleConfig) []any {
	var updatedBy sql.NullString
	if cfg.UpdatedBy != "" {
		updatedBy = sql.NullString{String: cfg.UpdatedBy, Valid: true}
	}
	var updatedAt sql.NullTime
	if cfg.UpdatedAt != nil {
		updatedAt = sql.NullTime{Time: *cfg.UpdatedAt, Valid: true}
	}
	return []any{
		cfg.ObjectType, cfg.Action, cfg.RequireUserAssignment, cfg.FallbackToRoles, cfg.RequiresReason,
		cfg.MinApprovers, string(cfg.ApprovalRule), nullableInt(cfg.AutoApproveAfterHours),
		nullableInt(cfg.EscalateAfterHours), cfg.LinkedPagePermission, updatedBy, updatedAt,
	}
}

func nullableInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

const insertRule = `
	INSERT INTO approval_rules_config (
		object_type, action, require_user_assignment, fallback_to_roles, requires_reason,
		min_approvers, approval_rule, auto_approve_after_hours, escalate_after_hours,
		linked_page_permission, updated_by, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func (s *PostgresStore) UpsertRuleConfig(ctx context.Context, cfg *models.RuleConfig) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, insertRule+`
		ON CONFLICT (object_type, action) DO UPDATE SET
			require_user_assignment = EXCLUDED.require_user_assignment,
			fallback_to_roles = EXCLUDED.fallback_to_roles,
			requires_reason = EXCLUDED.requires_reason,
			min_approvers = EXCLUDED.min_approvers,
			approval_rule = EXCLUDED.approval_rule,
			auto_approve_after_hours = EXCLUDED.auto_approve_after_hours,
			escalate_after_hours = EXCLUDED.escalate_after_hours,
			linked_page_permission = EXCLUDED.linked_page_permission,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`, ruleArgs(cfg)...)
	if err != nil {
		return fmt.Errorf("upsert rule config %s: %w", cfg.Key(), err)
	}
	return nil
}

func (s *PostgresStore) InsertRuleConfigIfAbsent(ctx context.Context, cfg *models.RuleConfig) (bool, error) {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, insertRule+` ON CONFLICT (object_type, action) DO NOTHING`, ruleArgs(cfg)...)
	if err != nil {
		return false, fmt.Errorf("seed rule config %s: %w", cfg.Key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed rule config %s: %w", cfg.Key(), err)
	}
	return n == 1, nil
}

const assignmentColumns = `id, object_type, action, approver_email, degree_code, program_code, branch_code,
	is_active, assigned_by, assigned_at, COALESCE(deactivated_by, ''), deactivated_at`

func scanAssignment(row rowScanner) (*models.ApproverAssignment, error) {
	var (
		a             models.ApproverAssignment
		deactivatedAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.ObjectType, &a.Action, &a.ApproverEmail,
		&a.Scope.Degree, &a.Scope.Program, &a.Scope.Branch,
		&a.IsActive, &a.AssignedBy, &a.AssignedAt, &a.DeactivatedBy, &deactivatedAt); err != nil {
		return nil, err
	}
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		a.DeactivatedAt = &t
	}
	return &a, nil
}

func (s *PostgresStore) queryAssignments(ctx context.Context, query string, args ...any) ([]*models.ApproverAssignment, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()
	var out []*models.ApproverAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListActiveAssignments(ctx context.Context, key models.ActionKey) ([]*models.ApproverAssignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM approver_assignments
		WHERE object_type = $1 AND action = $2 AND is_active
		ORDER BY id`, key.ObjectType, key.Action)
}

func (s *PostgresStore) ListAssignments(ctx context.Context, f AssignmentFilter) ([]*models.ApproverAssignment, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, "$"+strconv.Itoa(len(args))))
	}
	if !f.IncludeInactive {
		conds = append(conds, "is_active")
	}
	if f.ObjectType != "" {
		add("object_type = %s", f.ObjectType)
	}
	if f.Action != "" {
		add("action = %s", f.Action)
	}
	if f.ApproverEmail != "" {
		add("approver_email = %s", models.NormalizeEmail(f.ApproverEmail))
	}
	query := `SELECT ` + assignmentColumns + ` FROM approver_assignments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return s.queryAssignments(ctx, query+" ORDER BY id DESC", args...)
}

// SaveAssignment inserts a, or reactivates the row with the same tuple.
func (s *PostgresStore) SaveAssignment(ctx context.Context, a *models.ApproverAssignment) (*models.ApproverAssignment, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO approver_assignments (
			object_type, action, approver_email, degree_code, program_code, branch_code,
			is_active, assigned_by, assigned_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		ON CONFLICT (object_type, action, approver_email, degree_code, program_code, branch_code)
		DO UPDATE SET is_active = TRUE, assigned_by = EXCLUDED.assigned_by, assigned_at = EXCLUDED.assigned_at,
			deactivated_by = NULL, deactivated_at = NULL
		RETURNING `+assignmentColumns,
		a.ObjectType, a.Action, a.ApproverEmail, a.Scope.Degree, a.Scope.Program, a.Scope.Branch,
		a.AssignedBy, a.AssignedAt)
	saved, err := scanAssignment(row)
	if err != nil {
		return nil, fmt.Errorf("save assignment: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) FindAssignment(ctx context.Context, id int64) (*models.ApproverAssignment, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM approver_assignments WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find assignment %d: %w", id, err)
	}
	return a, nil
}

// DeactivateAssignment flips is_active only on an active row.
func (s *PostgresStore) DeactivateAssignment(ctx context.Context, id int64, by string, at time.Time) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE approver_assignments
		SET is_active = FALSE, deactivated_by = $2, deactivated_at = $3
		WHERE id = $1 AND is_active
	`, id, by, at)
	if err != nil {
		return fmt.Errorf("deactivate assignment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate assignment %d: %w", id, err)
	}
	if n == 0 {
		if _, err := s.FindAssignment(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}
