package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opencbt/opencbt-backend/internal/model"
)

func TestKnownAnswersDropsForeignKeys(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	questions := []model.Question{
		{ID: q1, QuestionType: model.QuestionTypeMultipleChoice, Weight: 1},
		{ID: q2, QuestionType: model.QuestionTypeEssay, Weight: 2},
	}

	// A syntactically valid UUID that is not a question in the set. Such a key
	// can reach the buffer through the stream, and persisting it would violate
	// the answer rows' foreign key on every submit retry.
	junk := uuid.New().String()

	answers := map[string]string{
		q1.String(): "A",
		q2.String(): "essay text",
		junk:        "x",
	}

	kept := knownAnswers(questions, answers)

	if len(kept) != 2 {
		t.Fatalf("kept %d answers, want 2", len(kept))
	}
	if kept[q1.String()] != "A" || kept[q2.String()] != "essay text" {
		t.Errorf("known answers mangled: %v", kept)
	}
	if _, ok := kept[junk]; ok {
		t.Error("answer for unknown question survived the filter")
	}
}

func TestKnownAnswersEmptySet(t *testing.T) {
	kept := knownAnswers(nil, map[string]string{uuid.New().String(): "x"})
	if len(kept) != 0 {
		t.Fatalf("kept %d answers against an empty question set, want 0", len(kept))
	}
}

func TestViolationLimitReached(t *testing.T) {
	tests := []struct {
		name  string
		count int
		max   int
		want  bool
	}{
		{"below threshold", 2, 3, false},
		{"at threshold", 3, 3, true},
		{"above threshold", 5, 3, true},
		{"zero disables auto submit", 100, 0, false},
		{"negative disables auto submit", 100, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := violationLimitReached(tt.count, tt.max); got != tt.want {
				t.Errorf("violationLimitReached(%d, %d) = %v, want %v", tt.count, tt.max, got, tt.want)
			}
		})
	}
}
