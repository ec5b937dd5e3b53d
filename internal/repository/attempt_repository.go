package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opencbt/opencbt-backend/internal/model"
)

// SubmitResult is the computed outcome written at the submit transition.
type SubmitResult struct {
	Status          model.AttemptStatus
	Score           *float64
	Passed          *bool
	CorrectCount    int
	IncorrectCount  int
	UnansweredCount int
	AutoSubmitted   bool
}

// GradingQueueItem is one pending-grading attempt as listed to reviewers.
type GradingQueueItem struct {
	AttemptID       uuid.UUID           `json:"attempt_id"`
	SessionID       uuid.UUID           `json:"session_id"`
	SessionTitle    string              `json:"session_title"`
	ParticipantID   int                 `json:"participant_id"`
	ParticipantName string              `json:"participant_name"`
	Status          model.AttemptStatus `json:"status"`
	SubmittedAt     *time.Time          `json:"submitted_at"`
}

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, session_id, participant_id, status, violation_count,
	score, passed, correct_count, incorrect_count, unanswered_count,
	question_order, started_at, deadline_at, submitted_at, auto_submitted`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(
		&a.ID, &a.SessionID, &a.ParticipantID, &a.Status, &a.ViolationCount,
		&a.Score, &a.Passed, &a.CorrectCount, &a.IncorrectCount, &a.UnansweredCount,
		&a.QuestionOrder, &a.StartedAt, &a.DeadlineAt, &a.SubmittedAt, &a.AutoSubmitted,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetBySessionAndParticipant retrieves the attempt for a (session, participant)
// pair. At most one exists, enforced by a unique constraint.
func (r *AttemptRepository) GetBySessionAndParticipant(ctx context.Context, sessionID uuid.UUID, participantID int) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE session_id = $1 AND participant_id = $2`,
		sessionID, participantID))
}

// Create inserts a new IN_PROGRESS attempt. The unique (session, participant)
// constraint plus ON CONFLICT DO NOTHING makes concurrent entry safe: the
// loser observes pgx.ErrNoRows and re-fetches the winner's row.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (session_id, participant_id, status, question_order, deadline_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, participant_id) DO NOTHING
		 RETURNING id, started_at`,
		a.SessionID, a.ParticipantID, model.AttemptStatusInProgress, a.QuestionOrder, a.DeadlineAt,
	).Scan(&a.ID, &a.StartedAt)
}

// Submit performs the guarded submit transition. The WHERE status filter makes
// the transition fire at most once: concurrent triggers (manual, deadline,
// violation threshold) race on the row and only the first writer wins.
func (r *AttemptRepository) Submit(ctx context.Context, attemptID uuid.UUID, res SubmitResult) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, passed = $3,
		     correct_count = $4, incorrect_count = $5, unanswered_count = $6,
		     auto_submitted = $7, submitted_at = NOW()
		 WHERE id = $8 AND status = $9`,
		res.Status, res.Score, res.Passed,
		res.CorrectCount, res.IncorrectCount, res.UnansweredCount,
		res.AutoSubmitted, attemptID, model.AttemptStatusInProgress,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RecordViolation appends a violation event and applies an atomic increment to
// the counter. The increment happens entirely server-side, so two rapid events
// can never read a stale count and both write n+1. Returns the new count, or
// applied=false if the attempt already left IN_PROGRESS.
func (r *AttemptRepository) RecordViolation(ctx context.Context, attemptID uuid.UUID, kind string, payload []byte) (int, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO violation_events (attempt_id, kind, payload)
		 VALUES ($1, $2, $3::jsonb)`,
		attemptID, kind, payload,
	); err != nil {
		return 0, false, err
	}

	var count int
	err = tx.QueryRow(ctx,
		`UPDATE attempts
		 SET violation_count = violation_count + 1
		 WHERE id = $1 AND status = $2
		 RETURNING violation_count`,
		attemptID, model.AttemptStatusInProgress,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Attempt already submitted; keep the event row for audit but
			// leave the counter alone.
			return 0, false, tx.Commit(ctx)
		}
		return 0, false, err
	}

	return count, true, tx.Commit(ctx)
}

// UpsertAnswer creates or overwrites one captured answer.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, answer string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, answer)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET answer = EXCLUDED.answer, updated_at = NOW()`,
		attemptID, questionID, answer,
	)
	return err
}

// ListAnswers retrieves the durable answer rows for an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, answer, essay_score, updated_at
		 FROM attempt_answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AttemptAnswer
	for rows.Next() {
		var a model.AttemptAnswer
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.Answer, &a.EssayScore, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// SaveEssayScore stores a reviewer's 0–100 sub-score for one essay item.
// Unanswered essays still get a row so the graded condition can be met.
func (r *AttemptRepository) SaveEssayScore(ctx context.Context, attemptID, questionID uuid.UUID, score float64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, answer, essay_score)
		 VALUES ($1, $2, '', $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET essay_score = EXCLUDED.essay_score, updated_at = NOW()`,
		attemptID, questionID, score,
	)
	return err
}

// SetGradingResult writes the reconciled score. Status only ever moves
// PENDING_GRADING → GRADED; a graded attempt keeps its status on later
// idempotent re-saves.
func (r *AttemptRepository) SetGradingResult(ctx context.Context, attemptID uuid.UUID, score *float64, passed *bool, graded bool) error {
	query := `UPDATE attempts SET score = $1, passed = $2 WHERE id = $3 AND status IN ($4, $5)`
	args := []any{score, passed, attemptID, model.AttemptStatusPendingGrading, model.AttemptStatusGraded}
	if graded {
		query = `UPDATE attempts
		         SET score = $1, passed = $2, status = $6
		         WHERE id = $3 AND status IN ($4, $5)`
		args = append(args, model.AttemptStatusGraded)
	}
	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

// ListOverdue retrieves IN_PROGRESS attempts whose deadline has passed. The
// deadline worker force-submits these.
func (r *AttemptRepository) ListOverdue(ctx context.Context, limit int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE status = $1 AND deadline_at < NOW()
		 ORDER BY deadline_at ASC
		 LIMIT $2`,
		model.AttemptStatusInProgress, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListPendingGrading retrieves paginated attempts awaiting essay grading,
// joined with participant and session names for the grading queue.
func (r *AttemptRepository) ListPendingGrading(ctx context.Context, page, perPage int) ([]GradingQueueItem, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE status = $1`,
		model.AttemptStatusPendingGrading,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.session_id, s.title, a.participant_id, p.name, a.status, a.submitted_at
		 FROM attempts a
		 JOIN exam_sessions s ON a.session_id = s.id
		 JOIN participants p ON a.participant_id = p.id
		 WHERE a.status = $1
		 ORDER BY a.submitted_at ASC
		 LIMIT $2 OFFSET $3`,
		model.AttemptStatusPendingGrading, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []GradingQueueItem
	for rows.Next() {
		var it GradingQueueItem
		if err := rows.Scan(
			&it.AttemptID, &it.SessionID, &it.SessionTitle,
			&it.ParticipantID, &it.ParticipantName, &it.Status, &it.SubmittedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}
