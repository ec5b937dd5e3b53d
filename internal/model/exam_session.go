package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates the lifecycle states of an exam session definition.
type SessionStatus string

const (
	SessionStatusDraft    SessionStatus = "DRAFT"
	SessionStatusActive   SessionStatus = "ACTIVE"
	SessionStatusArchived SessionStatus = "ARCHIVED"
)

// ExamSession is the immutable-for-the-duration definition of an assessment.
// Participants enter it with an access code inside the [StartsAt, EndsAt) window.
type ExamSession struct {
	ID               uuid.UUID     `json:"id"`
	Title            string        `json:"title"`
	Category         string        `json:"category"`
	AccessCode       string        `json:"-"`
	StartsAt         time.Time     `json:"starts_at"`
	EndsAt           time.Time     `json:"ends_at"`
	DurationMinutes  int           `json:"duration_minutes"`
	PassingScore     float64       `json:"passing_score"`
	MaxViolations    int           `json:"max_violations"`
	ShuffleQuestions bool          `json:"shuffle_questions"`
	Status           SessionStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// SessionTarget scopes a session to a section. A participant may only enter
// sessions targeted at their section.
type SessionTarget struct {
	ID        int       `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	SectionID int       `json:"section_id"`
}

// EnterSessionRequest is the payload for entering an exam with an access code.
type EnterSessionRequest struct {
	AccessCode string `json:"access_code" binding:"required,min=4,max=20"`
}

// SessionPayload is the Redis-cached paper sent to participants (no canonical answers).
type SessionPayload struct {
	SessionID       uuid.UUID                `json:"session_id"`
	Title           string                   `json:"title"`
	DurationMinutes int                      `json:"duration_minutes"`
	Questions       []QuestionForParticipant `json:"questions"`
}
