package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opencbt/opencbt-backend/internal/config"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/repository"
	"github.com/opencbt/opencbt-backend/internal/scoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrNoQuestions      = errors.New("session has no questions")
)

// AttemptService handles the live attempt: answer capture, the submit
// transition, violation processing, and the Redis fast lane (cached payloads
// and answer keys).
type AttemptService struct {
	sessionRepo  *repository.ExamSessionRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	sessionRepo *repository.ExamSessionRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// answerQueueItem is the persist_answers_queue wire format.
type answerQueueItem struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// violationQueueItem is the persist_violations_queue wire format.
type violationQueueItem struct {
	AttemptID string `json:"attempt_id"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
	Payload   string `json:"payload"`
}

// keyEntry is one question's grading data in the cached answer key hash.
type keyEntry struct {
	QuestionType  model.QuestionType `json:"question_type"`
	CorrectAnswer string             `json:"correct_answer"`
	Weight        float64            `json:"weight"`
}

// CaptureAnswer buffers an autosaved answer in Redis and enqueues it for
// durable persistence. The buffer is the hot path; the queue worker trails
// behind writing rows.
func (s *AttemptService) CaptureAnswer(ctx context.Context, attempt *model.Attempt, questionID uuid.UUID, answer string) error {
	bufferKey := config.CacheKey.AttemptAnswersKey(attempt.ID.String())
	if err := s.rdb.HSet(ctx, bufferKey, questionID.String(), answer).Err(); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}

	item, err := json.Marshal(answerQueueItem{
		AttemptID:  attempt.ID.String(),
		QuestionID: questionID.String(),
		Answer:     answer,
	})
	if err != nil {
		return fmt.Errorf("marshal answer item: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, item).Err(); err != nil {
		return fmt.Errorf("enqueue answer: %w", err)
	}
	return nil
}

// ReportViolation enqueues a violation event for the single-consumer worker.
// Events are never applied inline: funnelling them through one queue gives the
// counter a strict order even when a burst arrives over several connections.
func (s *AttemptService) ReportViolation(ctx context.Context, attempt *model.Attempt, kind, payload string) error {
	item, err := json.Marshal(violationQueueItem{
		AttemptID: attempt.ID.String(),
		Kind:      kind,
		Timestamp: time.Now().Unix(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal violation item: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, item).Err(); err != nil {
		return fmt.Errorf("enqueue violation: %w", err)
	}
	return nil
}

// Submit performs the terminal transition. The result row is written and
// confirmed before this returns: any error here means the submit did NOT
// happen and the client must retry. A lost race against another trigger is a
// no-op success, the attempt is terminal either way.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, overlay map[string]string, autoSubmitted bool) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("lookup attempt: %w", err)
	}
	if attempt.Status.Submitted() {
		return attempt, ErrAlreadySubmitted
	}

	sess, err := s.sessionRepo.GetByID(ctx, attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	answers, err := mergedAnswers(ctx, s.rdb, s.attemptRepo, attempt)
	if err != nil {
		return nil, err
	}
	for qid, answer := range overlay {
		answers[qid] = answer
	}

	questions, err := s.gradingQuestions(ctx, attempt.SessionID)
	if err != nil {
		return nil, err
	}

	// Drop buffered entries that reference no question in the set. A junk key
	// that reached the buffer must never hit the answer rows, where the
	// question_id foreign key would abort the transition on every retry.
	if filtered := knownAnswers(questions, answers); len(filtered) != len(answers) {
		s.log.Warn().
			Str("attempt_id", attempt.ID.String()).
			Int("dropped", len(answers)-len(filtered)).
			Msg("Dropped answers for unknown question IDs")
		answers = filtered
	}

	tally := scoring.Grade(questions, answers)
	score := tally.SubmittedScore()

	res := repository.SubmitResult{
		Status:          tally.StatusAfterSubmit(),
		Score:           score,
		Passed:          scoring.Passed(score, sess.PassingScore),
		CorrectCount:    tally.Correct,
		IncorrectCount:  tally.Incorrect,
		UnansweredCount: tally.Unanswered,
		AutoSubmitted:   autoSubmitted,
	}

	// Make every answer durable before the transition, so graders and the
	// result view never depend on the Redis buffer again.
	for qid, answer := range answers {
		questionID, perr := uuid.Parse(qid)
		if perr != nil {
			continue
		}
		if err := s.attemptRepo.UpsertAnswer(ctx, attempt.ID, questionID, answer); err != nil {
			return nil, fmt.Errorf("persist answer: %w", err)
		}
	}

	won, err := s.attemptRepo.Submit(ctx, attempt.ID, res)
	if err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}

	final, err := s.attemptRepo.GetByID(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}

	if won {
		s.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(attempt.ID.String()))
		s.log.Info().
			Str("attempt_id", attempt.ID.String()).
			Str("status", string(final.Status)).
			Bool("auto_submitted", autoSubmitted).
			Msg("Attempt submitted")
	}

	return final, nil
}

// ForceSubmit is the system-triggered submit used by the deadline sweep and
// the violation threshold. Already-terminal attempts are a no-op.
func (s *AttemptService) ForceSubmit(ctx context.Context, attemptID uuid.UUID) error {
	_, err := s.Submit(ctx, attemptID, nil, true)
	if errors.Is(err, ErrAlreadySubmitted) {
		return nil
	}
	return err
}

// ApplyViolation records one violation event with an atomic counter increment
// and force-submits the attempt when the session threshold is reached. Called
// only from the single violation worker, which serializes events per queue.
func (s *AttemptService) ApplyViolation(ctx context.Context, attemptID uuid.UUID, kind string, payload []byte) error {
	count, applied, err := s.attemptRepo.RecordViolation(ctx, attemptID, kind, payload)
	if err != nil {
		return fmt.Errorf("record violation: %w", err)
	}
	if !applied {
		// Event logged after the attempt went terminal. Audit only.
		return nil
	}

	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("lookup attempt: %w", err)
	}
	sess, err := s.sessionRepo.GetByID(ctx, attempt.SessionID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}

	s.log.Warn().
		Str("attempt_id", attemptID.String()).
		Str("kind", kind).
		Int("count", count).
		Int("max", sess.MaxViolations).
		Msg("Violation recorded")

	if violationLimitReached(count, sess.MaxViolations) {
		if err := s.ForceSubmit(ctx, attemptID); err != nil {
			return fmt.Errorf("force submit at threshold: %w", err)
		}
		s.log.Warn().
			Str("attempt_id", attemptID.String()).
			Int("count", count).
			Msg("Violation threshold reached, attempt force-submitted")
	}
	return nil
}

// WarmSessionCache loads a session's participant payload and answer key from
// PostgreSQL into Redis.
func (s *AttemptService) WarmSessionCache(ctx context.Context, sess *model.ExamSession) error {
	questions, err := s.questionRepo.ListBySession(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	payloadJSON, err := json.Marshal(buildPayload(sess, questions))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		entry, err := json.Marshal(keyEntry{
			QuestionType:  q.QuestionType,
			CorrectAnswer: q.CorrectAnswer,
			Weight:        q.Weight,
		})
		if err != nil {
			return fmt.Errorf("marshal key entry: %w", err)
		}
		answerKey[q.ID.String()] = entry
	}

	sessionID := sess.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.SessionPayloadKey(sessionID), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.SessionAnswerKey(sessionID))
	pipe.HSet(ctx, config.CacheKey.SessionAnswerKey(sessionID), answerKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("session_id", sessionID).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads every active session into Redis on startup, so the
// first wave of participants never lazy-loads under thundering herd traffic.
func (s *AttemptService) PrewarmAllCaches(ctx context.Context) error {
	sessions, err := s.sessionRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	if len(sessions) == 0 {
		s.log.Info().Msg("No active sessions to prewarm")
		return nil
	}

	warmed := 0
	for i := range sessions {
		if err := s.WarmSessionCache(ctx, &sessions[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("session_id", sessions[i].ID.String()).
				Msg("Failed to warm session, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(sessions)).
		Msg("Prewarming complete")
	return nil
}

// GetSessionPayload serves the participant-facing paper, cache-first with a
// lazy rewarm on miss.
func (s *AttemptService) GetSessionPayload(ctx context.Context, sessionID uuid.UUID) (*model.SessionPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.SessionPayloadKey(sessionID.String())).Bytes()
	if err == nil {
		var payload model.SessionPayload
		if uerr := json.Unmarshal(data, &payload); uerr == nil {
			return &payload, nil
		}
		// Corrupt cache entry falls through to a rewarm.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if err := s.WarmSessionCache(ctx, sess); err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return buildPayload(sess, questions), nil
}

// gradingQuestions returns the grading view of a session's question set,
// preferring the cached answer key so submit storms stay off PostgreSQL.
func (s *AttemptService) gradingQuestions(ctx context.Context, sessionID uuid.UUID) ([]model.Question, error) {
	cached, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswerKey(sessionID.String())).Result()
	if err == nil && len(cached) > 0 {
		questions := make([]model.Question, 0, len(cached))
		for id, raw := range cached {
			questionID, perr := uuid.Parse(id)
			if perr != nil {
				continue
			}
			var entry keyEntry
			if uerr := json.Unmarshal([]byte(raw), &entry); uerr != nil {
				questions = nil
				break
			}
			questions = append(questions, model.Question{
				ID:            questionID,
				SessionID:     sessionID,
				QuestionType:  entry.QuestionType,
				CorrectAnswer: entry.CorrectAnswer,
				Weight:        entry.Weight,
			})
		}
		if questions != nil {
			return questions, nil
		}
	}

	questions, err := s.questionRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

// knownAnswers keeps only the entries keyed by a question in the set.
func knownAnswers(questions []model.Question, answers map[string]string) map[string]string {
	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID.String()] = struct{}{}
	}

	kept := make(map[string]string, len(answers))
	for qid, answer := range answers {
		if _, ok := known[qid]; ok {
			kept[qid] = answer
		}
	}
	return kept
}

// violationLimitReached reports whether the counter has hit the session's
// threshold. A threshold of zero or less disables automatic submission; events
// are still counted and logged.
func violationLimitReached(count, maxViolations int) bool {
	return maxViolations > 0 && count >= maxViolations
}

// mergedAnswers merges the Redis autosave buffer over the durable rows. The
// buffer wins per question because it always holds the latest autosave;
// durable rows fill in anything the buffer lost (e.g. after a Redis restart).
func mergedAnswers(ctx context.Context, rdb *redis.Client, attemptRepo *repository.AttemptRepository, attempt *model.Attempt) (map[string]string, error) {
	rows, err := attemptRepo.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	answers := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Answer != "" {
			answers[row.QuestionID.String()] = row.Answer
		}
	}

	buffered, err := rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attempt.ID.String())).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load answer buffer: %w", err)
	}
	for qid, answer := range buffered {
		answers[qid] = answer
	}

	return answers, nil
}

func buildPayload(sess *model.ExamSession, questions []model.Question) *model.SessionPayload {
	forParticipant := make([]model.QuestionForParticipant, len(questions))
	for i, q := range questions {
		forParticipant[i] = model.QuestionForParticipant{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Prompt:       q.Prompt,
			Options:      q.Options,
			Weight:       q.Weight,
			Difficulty:   q.Difficulty,
			OrderNum:     q.OrderNum,
		}
	}
	return &model.SessionPayload{
		SessionID:       sess.ID,
		Title:           sess.Title,
		DurationMinutes: sess.DurationMinutes,
		Questions:       forParticipant,
	}
}
