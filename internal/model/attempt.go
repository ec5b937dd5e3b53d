package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. Transitions are monotonic:
// IN_PROGRESS → {SUBMITTED | PENDING_GRADING} → GRADED.
type AttemptStatus string

const (
	AttemptStatusInProgress     AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted      AttemptStatus = "SUBMITTED"
	AttemptStatusPendingGrading AttemptStatus = "PENDING_GRADING"
	AttemptStatusGraded         AttemptStatus = "GRADED"
)

// Submitted reports whether the attempt has left IN_PROGRESS. A submitted
// attempt never accepts further answers or re-submission.
func (s AttemptStatus) Submitted() bool {
	return s != AttemptStatusInProgress
}

// Attempt is the result record, one per (session, participant).
type Attempt struct {
	ID              uuid.UUID     `json:"id"`
	SessionID       uuid.UUID     `json:"session_id"`
	ParticipantID   int           `json:"participant_id"`
	Status          AttemptStatus `json:"status"`
	ViolationCount  int           `json:"violation_count"`
	Score           *float64      `json:"score"`
	Passed          *bool         `json:"passed"`
	CorrectCount    int           `json:"correct_count"`
	IncorrectCount  int           `json:"incorrect_count"`
	UnansweredCount int           `json:"unanswered_count"`
	// QuestionOrder is the attempt-scoped presentation order, fixed at
	// creation so re-renders of the same attempt are stable.
	QuestionOrder []string   `json:"question_order"`
	StartedAt     time.Time  `json:"started_at"`
	DeadlineAt    time.Time  `json:"deadline_at"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	AutoSubmitted bool       `json:"auto_submitted"`
}

// AttemptAnswer is one captured answer, with the reviewer-assigned score for
// essay items.
type AttemptAnswer struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
	EssayScore *float64  `json:"essay_score,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AttemptState is the resumption view served to the exam client: buffered
// answers plus the server-derived remaining time.
type AttemptState struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	SessionID        uuid.UUID         `json:"session_id"`
	Status           AttemptStatus     `json:"status"`
	QuestionOrder    []string          `json:"question_order"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
	RemainingSeconds float64           `json:"remaining_seconds"`
	ViolationCount   int               `json:"violation_count"`
	MaxViolations    int               `json:"max_violations"`
}

// SubmitAttemptRequest carries an optional final answer overlay flushed by the
// client at submit time. Buffered autosaves remain authoritative for anything
// not present here.
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"omitempty"`
}

// EssayGradeRequest is the payload for saving one essay sub-score.
type EssayGradeRequest struct {
	Score float64 `json:"score" binding:"min=0,max=100"`
}
