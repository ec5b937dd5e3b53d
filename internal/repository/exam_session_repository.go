package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opencbt/opencbt-backend/internal/model"
)

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

const sessionColumns = `id, title, category, access_code, starts_at, ends_at,
	duration_minutes, passing_score, max_violations, shuffle_questions,
	status, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(
		&s.ID, &s.Title, &s.Category, &s.AccessCode, &s.StartsAt, &s.EndsAt,
		&s.DurationMinutes, &s.PassingScore, &s.MaxViolations, &s.ShuffleQuestions,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by its UUID.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// GetByAccessCode retrieves an ACTIVE session whose access code matches,
// case-insensitively. Codes are unique among active sessions.
func (r *ExamSessionRepository) GetByAccessCode(ctx context.Context, code string) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE LOWER(access_code) = LOWER($1) AND status = $2`,
		code, model.SessionStatusActive))
}

// ListActive retrieves all ACTIVE sessions, used to prewarm the payload cache
// on startup.
func (r *ExamSessionRepository) ListActive(ctx context.Context) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE status = $1`,
		model.SessionStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// IsTargeted reports whether the session is scoped to the given section.
// A session with no target rows is open to every section.
func (r *ExamSessionRepository) IsTargeted(ctx context.Context, sessionID uuid.UUID, sectionID int) (bool, error) {
	var total, matching int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE section_id = $2)
		 FROM session_targets
		 WHERE session_id = $1`,
		sessionID, sectionID,
	).Scan(&total, &matching)
	if err != nil {
		return false, err
	}
	return total == 0 || matching > 0, nil
}
