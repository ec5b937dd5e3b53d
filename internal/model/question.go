package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType is the tagged variant over the supported item kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// AutoGradable reports whether the type is machine-scored. Essay items are
// scored by a reviewer in the grading phase.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeTrueFalse
}

// Question represents a single exam question. Definitions are frozen once any
// attempt references them.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	QuestionType  QuestionType    `json:"question_type"`
	Prompt        string          `json:"prompt"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
	Rubric        string          `json:"rubric,omitempty"`
	Weight        float64         `json:"weight"`
	Difficulty    string          `json:"difficulty,omitempty"`
	OrderNum      int             `json:"order_num"`
}

// QuestionForParticipant is a question without the canonical answer or rubric.
type QuestionForParticipant struct {
	ID           uuid.UUID       `json:"id"`
	QuestionType QuestionType    `json:"question_type"`
	Prompt       string          `json:"prompt"`
	Options      json.RawMessage `json:"options,omitempty"`
	Weight       float64         `json:"weight"`
	Difficulty   string          `json:"difficulty,omitempty"`
	OrderNum     int             `json:"order_num"`
}
