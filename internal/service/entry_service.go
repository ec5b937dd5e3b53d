package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/repository"
	"github.com/opencbt/opencbt-backend/internal/scoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Entry gating errors. ErrInvalidCode deliberately covers both unknown codes
// and sessions not targeted at the participant's section, so a valid code
// cannot be probed from outside its audience.
var (
	ErrInvalidCode     = errors.New("no active session matches this access code")
	ErrNotYetOpen      = errors.New("session has not opened yet")
	ErrClosed          = errors.New("session window has closed")
	ErrNoActiveAttempt = errors.New("no attempt exists for this session")
)

// EntryService owns the attempt lifecycle from access code to live attempt:
// gating, idempotent attempt creation, and resumption state.
type EntryService struct {
	sessionRepo  *repository.ExamSessionRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewEntryService creates a new EntryService.
func NewEntryService(
	sessionRepo *repository.ExamSessionRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *EntryService {
	return &EntryService{
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "entry_service").Logger(),
	}
}

// EntryResult is the outcome of an enter call: the session, the attempt, and
// whether the attempt already existed.
type EntryResult struct {
	Session *model.ExamSession `json:"session"`
	Attempt *model.Attempt     `json:"attempt"`
	Resumed bool               `json:"resumed"`
}

// Enter resolves an access code into an attempt. Codes are trimmed and matched
// case-insensitively. Re-entering is idempotent: a non-terminal attempt is
// resumed, a terminal one is returned as-is so the client can render the result
// view. A fresh attempt gets its question order and server-side deadline fixed
// here, once, before the first render.
func (s *EntryService) Enter(ctx context.Context, participantID, sectionID int, accessCode string) (*EntryResult, error) {
	code := strings.TrimSpace(accessCode)

	sess, err := s.sessionRepo.GetByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	targeted, err := s.sessionRepo.IsTargeted(ctx, sess.ID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("check session target: %w", err)
	}
	if !targeted {
		return nil, ErrInvalidCode
	}

	now := time.Now()
	if err := gate(sess, now); err != nil {
		return nil, err
	}

	existing, err := s.attemptRepo.GetBySessionAndParticipant(ctx, sess.ID, participantID)
	if err == nil {
		return &EntryResult{Session: sess, Attempt: existing, Resumed: true}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup attempt: %w", err)
	}

	questions, err := s.questionRepo.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	attempt := &model.Attempt{
		SessionID:     sess.ID,
		ParticipantID: participantID,
		Status:        model.AttemptStatusInProgress,
		QuestionOrder: attemptOrder(sess, participantID, questions),
		DeadlineAt:    deadline(sess, now),
	}

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the creation race; the winner's row is authoritative.
			winner, ferr := s.attemptRepo.GetBySessionAndParticipant(ctx, sess.ID, participantID)
			if ferr != nil {
				return nil, fmt.Errorf("fetch winning attempt: %w", ferr)
			}
			return &EntryResult{Session: sess, Attempt: winner, Resumed: true}, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("session_id", sess.ID.String()).
		Int("participant_id", participantID).
		Time("deadline_at", attempt.DeadlineAt).
		Msg("Attempt started")

	return &EntryResult{Session: sess, Attempt: attempt, Resumed: false}, nil
}

// State builds the resumption view for the participant's attempt in a session:
// buffered answers merged over durable rows, plus the server-derived remaining
// time. The client renders this clock but never decides expiry from it.
func (s *EntryService) State(ctx context.Context, sessionID uuid.UUID, participantID int) (*model.AttemptState, error) {
	attempt, err := s.attemptRepo.GetBySessionAndParticipant(ctx, sessionID, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("lookup attempt: %w", err)
	}

	sess, err := s.sessionRepo.GetByID(ctx, attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	answers, err := mergedAnswers(ctx, s.rdb, s.attemptRepo, attempt)
	if err != nil {
		return nil, err
	}

	return &model.AttemptState{
		AttemptID:        attempt.ID,
		SessionID:        attempt.SessionID,
		Status:           attempt.Status,
		QuestionOrder:    attempt.QuestionOrder,
		AutosavedAnswers: answers,
		RemainingSeconds: remainingSeconds(attempt, time.Now()),
		ViolationCount:   attempt.ViolationCount,
		MaxViolations:    sess.MaxViolations,
	}, nil
}

// ActiveAttempt returns the participant's IN_PROGRESS attempt for a session,
// or ErrNoActiveAttempt. Used by the answer and stream paths, which must not
// touch terminal attempts.
func (s *EntryService) ActiveAttempt(ctx context.Context, sessionID uuid.UUID, participantID int) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetBySessionAndParticipant(ctx, sessionID, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("lookup attempt: %w", err)
	}
	if attempt.Status.Submitted() {
		return nil, ErrNoActiveAttempt
	}
	return attempt, nil
}

// gate checks the entry window against the server clock.
func gate(sess *model.ExamSession, now time.Time) error {
	if now.Before(sess.StartsAt) {
		return ErrNotYetOpen
	}
	if !now.Before(sess.EndsAt) {
		return ErrClosed
	}
	return nil
}

// deadline computes the immutable attempt deadline: the personal duration
// clipped to the session end. Extending a session after the fact never extends
// attempts already started.
func deadline(sess *model.ExamSession, startedAt time.Time) time.Time {
	d := startedAt.Add(time.Duration(sess.DurationMinutes) * time.Minute)
	if d.After(sess.EndsAt) {
		return sess.EndsAt
	}
	return d
}

// remainingSeconds derives the display clock from the stored deadline. Never
// negative; a terminal attempt reads zero.
func remainingSeconds(attempt *model.Attempt, now time.Time) float64 {
	if attempt.Status.Submitted() {
		return 0
	}
	r := attempt.DeadlineAt.Sub(now).Seconds()
	if r < 0 {
		return 0
	}
	return r
}

// attemptOrder derives the fixed presentation order for a new attempt. The
// seed is scoped to the (session, participant) pair, which identifies the
// attempt since at most one exists per pair.
func attemptOrder(sess *model.ExamSession, participantID int, questions []model.Question) []string {
	seed := fmt.Sprintf("%s:%d", sess.ID, participantID)
	return scoring.Order(questions, sess.ShuffleQuestions, seed)
}
