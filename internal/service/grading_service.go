package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/repository"
	"github.com/opencbt/opencbt-backend/internal/response"
	"github.com/opencbt/opencbt-backend/internal/scoring"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrNotGradable  = errors.New("attempt is still in progress")
	ErrNotEssayItem = errors.New("question is not an essay item in this attempt's session")
)

// GradingService reconciles reviewer-scored essays into final attempt scores.
// Every saved sub-score triggers a full recompute, so re-grading an essay is
// idempotent and the stored score never drifts from its inputs.
type GradingService struct {
	sessionRepo  *repository.ExamSessionRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	log          zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	sessionRepo *repository.ExamSessionRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		log:          log.With().Str("component", "grading_service").Logger(),
	}
}

// AttemptDetail is the reviewer's grading view: the attempt, the full question
// set including rubrics, and every captured answer with its essay sub-score.
type AttemptDetail struct {
	Attempt   *model.Attempt        `json:"attempt"`
	Questions []model.Question      `json:"questions"`
	Answers   []model.AttemptAnswer `json:"answers"`
}

// ListPending retrieves the paginated grading queue.
func (s *GradingService) ListPending(ctx context.Context, page, perPage int) ([]repository.GradingQueueItem, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	items, total, err := s.attemptRepo.ListPendingGrading(ctx, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if items == nil {
		items = []repository.GradingQueueItem{}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	return items, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// GetAttemptDetail retrieves the grading view for one attempt.
func (s *GradingService) GetAttemptDetail(ctx context.Context, attemptID uuid.UUID) (*AttemptDetail, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.ListBySession(ctx, attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	answers, err := s.attemptRepo.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if answers == nil {
		answers = []model.AttemptAnswer{}
	}

	return &AttemptDetail{Attempt: attempt, Questions: questions, Answers: answers}, nil
}

// SaveEssayScore stores a reviewer's 0-100 sub-score for one essay item and
// recomputes the attempt's weighted score. The attempt moves to GRADED once
// every essay item carries a sub-score; re-saving a score on a graded attempt
// recomputes in place without a status change.
func (s *GradingService) SaveEssayScore(ctx context.Context, attemptID, questionID uuid.UUID, subScore float64) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.Status.Submitted() {
		return nil, ErrNotGradable
	}

	questions, err := s.questionRepo.ListBySession(ctx, attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	var target *model.Question
	for i := range questions {
		if questions[i].ID == questionID {
			target = &questions[i]
			break
		}
	}
	if target == nil || target.QuestionType.AutoGradable() {
		return nil, ErrNotEssayItem
	}

	if err := s.attemptRepo.SaveEssayScore(ctx, attemptID, questionID, subScore); err != nil {
		return nil, fmt.Errorf("save essay score: %w", err)
	}

	if err := s.reconcile(ctx, attempt, questions); err != nil {
		return nil, err
	}

	final, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Str("question_id", questionID.String()).
		Float64("sub_score", subScore).
		Str("status", string(final.Status)).
		Msg("Essay score saved")

	return final, nil
}

// reconcile recomputes the weighted final score from the durable answer rows
// and writes it back, flipping the status to GRADED when complete.
func (s *GradingService) reconcile(ctx context.Context, attempt *model.Attempt, questions []model.Question) error {
	rows, err := s.attemptRepo.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}

	answers := make(map[string]string, len(rows))
	essayScores := make(map[string]float64)
	for _, row := range rows {
		answers[row.QuestionID.String()] = row.Answer
		if row.EssayScore != nil {
			essayScores[row.QuestionID.String()] = *row.EssayScore
		}
	}

	score, graded := scoring.Finalize(questions, answers, essayScores)

	sess, err := s.sessionRepo.GetByID(ctx, attempt.SessionID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	passed := scoring.Passed(score, sess.PassingScore)

	if err := s.attemptRepo.SetGradingResult(ctx, attempt.ID, score, passed, graded); err != nil {
		return fmt.Errorf("set grading result: %w", err)
	}
	return nil
}
