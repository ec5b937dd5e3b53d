package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opencbt/opencbt-backend/internal/model"
)

// QuestionRepository handles question data access. Question rows are frozen
// once any attempt references their session.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListBySession retrieves a session's question set in authored order,
// including canonical answers and rubrics.
func (r *QuestionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_type, prompt, options, correct_answer,
		        rubric, weight, difficulty, order_num
		 FROM questions
		 WHERE session_id = $1
		 ORDER BY order_num ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.SessionID, &q.QuestionType, &q.Prompt, &q.Options,
			&q.CorrectAnswer, &q.Rubric, &q.Weight, &q.Difficulty, &q.OrderNum,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
