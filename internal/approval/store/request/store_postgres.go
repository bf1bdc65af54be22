package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"acadmin/internal/approval/models"
	"acadmin/pkg/platform/sentinel"
	txcontext "acadmin/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore reads and writes approvals and approvals_votes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, object_type, object_id, action, status, requester, requester_email,
	COALESCE(approver, ''), payload, COALESCE(reason_note, ''), COALESCE(decision_note, ''),
	rule, created_at, decided_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.ApprovalRequest, error) {
	var (
		r         models.ApprovalRequest
		status    string
		rule      string
		payload   []byte
		decidedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.ObjectType, &r.ObjectID, &r.Action, &status, &r.Requester,
		&r.RequesterEmail, &r.Approver, &payload, &r.ReasonNote, &r.DecisionNote, &rule,
		&r.CreatedAt, &decidedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = models.Status(status)
	r.Rule = models.Rule(rule)
	r.Payload = payload
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *PostgresStore) Create(ctx context.Context, r *models.ApprovalRequest) error {
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO approvals (
			object_type, object_id, action, status, requester, requester_email,
			payload, reason_note, rule, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, r.ObjectType, r.ObjectID, r.Action, string(r.Status), r.Requester, r.RequesterEmail,
		string(r.Payload), nullString(r.ReasonNote), string(r.Rule), r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

func (s *PostgresStore) find(ctx context.Context, id int64, suffix string) (*models.ApprovalRequest, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM approvals WHERE id = $1`+suffix, id)
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find approval %d: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	return s.find(ctx, id, "")
}

// FindForUpdate locks the row until the surrounding transaction ends.
// Concurrent voters on one request queue here.
func (s *PostgresStore) FindForUpdate(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	return s.find(ctx, id, " FOR UPDATE")
}

// UpdateStatus writes the decision columns only while the row is still in from.
func (s *PostgresStore) UpdateStatus(ctx context.Context, r *models.ApprovalRequest, from models.Status) error {
	var decidedAt sql.NullTime
	if r.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *r.DecidedAt, Valid: true}
	}
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE approvals
		SET status = $3, approver = $4, decision_note = $5, decided_at = $6, updated_at = $7
		WHERE id = $1 AND status = $2
	`, r.ID, string(from), string(r.Status), nullString(r.Approver), nullString(r.DecisionNote),
		decidedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update approval %d: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update approval %d: %w", r.ID, err)
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, r.ID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.ApprovalRequest, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+requestColumns+` FROM approvals WHERE status = ANY($1) ORDER BY created_at DESC, id DESC`,
		pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()
	out := make([]*models.ApprovalRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertVote returns sentinel.ErrConflict when the voter already voted.
func (s *PostgresStore) InsertVote(ctx context.Context, v *models.ApprovalVote) error {
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO approvals_votes (approval_id, voter_email, decision, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, v.ApprovalID, v.VoterEmail, string(v.Decision), nullString(v.Note), v.CreatedAt).Scan(&v.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVotes(ctx context.Context, approvalID int64) ([]models.ApprovalVote, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, approval_id, voter_email, decision, COALESCE(note, ''), created_at
		FROM approvals_votes WHERE approval_id = $1 ORDER BY id
	`, approvalID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()
	var out []models.ApprovalVote
	for rows.Next() {
		var (
			v        models.ApprovalVote
			decision string
		)
		if err := rows.Scan(&v.ID, &v.ApprovalID, &v.VoterEmail, &decision, &v.Note, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Decision = models.Decision(decision)
		out = append(out, v)
	}
	return out, rows.Err()
}
