package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opencbt/opencbt-backend/internal/model"
)

func mc(id uuid.UUID, correct string, weight float64) model.Question {
	return model.Question{ID: id, QuestionType: model.QuestionTypeMultipleChoice, CorrectAnswer: correct, Weight: weight}
}

func tf(id uuid.UUID, correct string, weight float64) model.Question {
	return model.Question{ID: id, QuestionType: model.QuestionTypeTrueFalse, CorrectAnswer: correct, Weight: weight}
}

func essay(id uuid.UUID, weight float64) model.Question {
	return model.Question{ID: id, QuestionType: model.QuestionTypeEssay, Weight: weight}
}

func fourIDs() [4]uuid.UUID {
	return [4]uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
}

func TestGrade_AutoGradableOnly(t *testing.T) {
	ids := fourIDs()
	questions := []model.Question{
		mc(ids[0], "A", 1), mc(ids[1], "B", 1), mc(ids[2], "C", 1), mc(ids[3], "D", 1),
	}

	tests := []struct {
		name        string
		answers     map[string]string
		correct     int
		incorrect   int
		unanswered  int
		provisional float64
	}{
		{
			name: "three of four correct",
			answers: map[string]string{
				ids[0].String(): "A",
				ids[1].String(): "B",
				ids[2].String(): "C",
				ids[3].String(): "A",
			},
			correct: 3, incorrect: 1, unanswered: 0, provisional: 75,
		},
		{
			name:    "all unanswered",
			answers: map[string]string{},
			correct: 0, incorrect: 0, unanswered: 4, provisional: 0,
		},
		{
			name: "blank answer counts as unanswered",
			answers: map[string]string{
				ids[0].String(): "A",
				ids[1].String(): "  ",
			},
			correct: 1, incorrect: 0, unanswered: 3, provisional: 25,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(questions, tc.answers)

			if got.Correct != tc.correct || got.Incorrect != tc.incorrect || got.Unanswered != tc.unanswered {
				t.Fatalf("counts = %d/%d/%d, want %d/%d/%d",
					got.Correct, got.Incorrect, got.Unanswered, tc.correct, tc.incorrect, tc.unanswered)
			}
			// Exhaustive partition over auto-gradable items.
			if got.Correct+got.Incorrect+got.Unanswered != len(questions) {
				t.Fatalf("partition broken: %d+%d+%d != %d", got.Correct, got.Incorrect, got.Unanswered, len(questions))
			}
			if got.EssayPending != 0 {
				t.Fatalf("EssayPending = %d, want 0", got.EssayPending)
			}
			if got.Provisional == nil || *got.Provisional != tc.provisional {
				t.Fatalf("Provisional = %v, want %v", got.Provisional, tc.provisional)
			}
			// No essays: submitted score equals the provisional score and the
			// attempt resolves directly to SUBMITTED.
			if s := got.SubmittedScore(); s == nil || *s != tc.provisional {
				t.Fatalf("SubmittedScore = %v, want %v", s, tc.provisional)
			}
			if got.StatusAfterSubmit() != model.AttemptStatusSubmitted {
				t.Fatalf("StatusAfterSubmit = %s, want SUBMITTED", got.StatusAfterSubmit())
			}
		})
	}
}

func TestGrade_MixedEssaySet(t *testing.T) {
	q1, q2, e1 := uuid.New(), uuid.New(), uuid.New()
	questions := []model.Question{
		mc(q1, "A", 1),
		mc(q2, "B", 1),
		essay(e1, 2),
	}
	answers := map[string]string{
		q1.String(): "A",
		q2.String(): "C",
		e1.String(): "my essay text",
	}

	got := Grade(questions, answers)

	if got.Correct != 1 || got.Incorrect != 1 || got.Unanswered != 0 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/0", got.Correct, got.Incorrect, got.Unanswered)
	}
	if got.EssayPending != 1 {
		t.Fatalf("EssayPending = %d, want 1", got.EssayPending)
	}
	if got.AutoGradableMax != 2 || got.EarnedWeight != 1 {
		t.Fatalf("weights = earned %v / auto max %v, want 1/2", got.EarnedWeight, got.AutoGradableMax)
	}
	if got.Provisional == nil || *got.Provisional != 50 {
		t.Fatalf("Provisional = %v, want 50", got.Provisional)
	}
	// Essay pending: the recorded score stays null and the attempt lands in
	// PENDING_GRADING.
	if s := got.SubmittedScore(); s != nil {
		t.Fatalf("SubmittedScore = %v, want nil", s)
	}
	if got.StatusAfterSubmit() != model.AttemptStatusPendingGrading {
		t.Fatalf("StatusAfterSubmit = %s, want PENDING_GRADING", got.StatusAfterSubmit())
	}
}

func TestGrade_AllEssaySet(t *testing.T) {
	questions := []model.Question{essay(uuid.New(), 3), essay(uuid.New(), 2)}

	got := Grade(questions, nil)

	if got.EssayPending != 2 {
		t.Fatalf("EssayPending = %d, want 2", got.EssayPending)
	}
	if got.Provisional != nil {
		t.Fatalf("Provisional = %v, want nil (no auto-gradable weight)", got.Provisional)
	}
	if got.StatusAfterSubmit() != model.AttemptStatusPendingGrading {
		t.Fatalf("StatusAfterSubmit = %s, want PENDING_GRADING", got.StatusAfterSubmit())
	}
}

func TestGrade_EmptyQuestionSet(t *testing.T) {
	got := Grade(nil, nil)
	if got.MaxWeight != 0 || got.Provisional != nil {
		t.Fatalf("empty set: MaxWeight=%v Provisional=%v, want 0/nil", got.MaxWeight, got.Provisional)
	}
}

func TestGrade_TrueFalseCaseInsensitive(t *testing.T) {
	id := uuid.New()
	questions := []model.Question{tf(id, "true", 1)}

	got := Grade(questions, map[string]string{id.String(): "TRUE"})
	if got.Correct != 1 {
		t.Fatalf("Correct = %d, want 1 (case-insensitive true/false match)", got.Correct)
	}
}

func TestFinalize_WeightedRecompute(t *testing.T) {
	q1, q2, e1 := uuid.New(), uuid.New(), uuid.New()
	questions := []model.Question{
		mc(q1, "A", 1),
		mc(q2, "B", 1),
		essay(e1, 2),
	}
	answers := map[string]string{
		q1.String(): "A",
		q2.String(): "C",
	}

	// Essay not graded yet: stays pending, no final score.
	final, graded := Finalize(questions, answers, nil)
	if final != nil || graded {
		t.Fatalf("ungraded: final=%v graded=%v, want nil/false", final, graded)
	}

	// Essay graded at 80/100: weighted = 1 + 0.8*2 = 2.6 of 4 → 65.
	scores := map[string]float64{e1.String(): 80}
	final, graded = Finalize(questions, answers, scores)
	if !graded {
		t.Fatal("graded = false, want true")
	}
	if final == nil || *final != 65 {
		t.Fatalf("final = %v, want 65", final)
	}

	// Idempotent: re-saving the same scores produces the same final score.
	again, _ := Finalize(questions, answers, scores)
	if again == nil || *again != *final {
		t.Fatalf("re-finalize = %v, want %v", again, final)
	}
}

func TestFinalize_PartialEssayScores(t *testing.T) {
	e1, e2 := uuid.New(), uuid.New()
	questions := []model.Question{essay(e1, 1), essay(e2, 1)}

	final, graded := Finalize(questions, nil, map[string]float64{e1.String(): 100})
	if final != nil || graded {
		t.Fatalf("partial grading: final=%v graded=%v, want nil/false", final, graded)
	}

	final, graded = Finalize(questions, nil, map[string]float64{e1.String(): 100, e2.String(): 50})
	if !graded || final == nil || *final != 75 {
		t.Fatalf("full grading: final=%v graded=%v, want 75/true", final, graded)
	}
}

func TestPassed(t *testing.T) {
	tests := []struct {
		name    string
		score   *float64
		passing float64
		want    *bool
	}{
		{name: "nil score stays nil", score: nil, passing: 70, want: nil},
		{name: "above threshold", score: f(75), passing: 70, want: b(true)},
		{name: "exactly threshold", score: f(75), passing: 75, want: b(true)},
		{name: "below threshold", score: f(65), passing: 70, want: b(false)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Passed(tc.score, tc.passing)
			switch {
			case got == nil && tc.want == nil:
			case got == nil || tc.want == nil:
				t.Fatalf("Passed = %v, want %v", got, tc.want)
			case *got != *tc.want:
				t.Fatalf("Passed = %v, want %v", *got, *tc.want)
			}
		})
	}
}

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }
