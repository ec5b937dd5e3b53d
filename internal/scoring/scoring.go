// Package scoring implements the pure grading math: the first-phase tally of
// machine-gradable items and the second-phase weighted reconciliation once
// essay items carry reviewer scores. Nothing here touches storage.
package scoring

import (
	"math"
	"strings"

	"github.com/opencbt/opencbt-backend/internal/model"
)

// Tally is the outcome of first-phase grading.
type Tally struct {
	Correct      int
	Incorrect    int
	Unanswered   int
	EssayPending int

	MaxWeight       float64
	EarnedWeight    float64
	AutoGradableMax float64

	// Provisional is the auto-gradable score on a 0–100 scale, nil when the
	// set has no auto-gradable weight (e.g. all-essay sets).
	Provisional *float64
}

// Grade tallies answers against the question set. Answers are keyed by
// question ID; missing or blank entries count as unanswered. Essay items are
// never auto-graded; they only bump EssayPending.
func Grade(questions []model.Question, answers map[string]string) Tally {
	var t Tally

	for _, q := range questions {
		t.MaxWeight += q.Weight

		if !q.QuestionType.AutoGradable() {
			t.EssayPending++
			continue
		}

		t.AutoGradableMax += q.Weight

		submitted, ok := answers[q.ID.String()]
		submitted = strings.TrimSpace(submitted)
		if !ok || submitted == "" {
			t.Unanswered++
			continue
		}

		if answerMatches(q, submitted) {
			t.Correct++
			t.EarnedWeight += q.Weight
		} else {
			t.Incorrect++
		}
	}

	if t.AutoGradableMax > 0 {
		score := round(t.EarnedWeight / t.AutoGradableMax * 100)
		t.Provisional = &score
	}

	return t
}

// SubmittedScore is the score recorded at the submit transition: nil while any
// essay item awaits grading, otherwise the provisional score.
func (t Tally) SubmittedScore() *float64 {
	if t.EssayPending > 0 {
		return nil
	}
	return t.Provisional
}

// StatusAfterSubmit resolves the post-submit attempt status: PENDING_GRADING
// iff the set contains essay items, SUBMITTED otherwise.
func (t Tally) StatusAfterSubmit() model.AttemptStatus {
	if t.EssayPending > 0 {
		return model.AttemptStatusPendingGrading
	}
	return model.AttemptStatusSubmitted
}

// Finalize recomputes the weighted final score once reviewer scores exist.
// essayScores maps question ID to a 0–100 sub-score. It returns the final
// score and whether every essay item has been scored (the graded condition).
// The final score is nil until graded, and stays nil for empty question sets.
// Re-running with the same inputs yields the same result.
func Finalize(questions []model.Question, answers map[string]string, essayScores map[string]float64) (*float64, bool) {
	graded := true
	var weighted, maxWeight float64

	for _, q := range questions {
		maxWeight += q.Weight

		if q.QuestionType.AutoGradable() {
			submitted := strings.TrimSpace(answers[q.ID.String()])
			if submitted != "" && answerMatches(q, submitted) {
				weighted += q.Weight
			}
			continue
		}

		sub, ok := essayScores[q.ID.String()]
		if !ok {
			graded = false
			continue
		}
		weighted += sub / 100 * q.Weight
	}

	if !graded {
		return nil, false
	}
	if maxWeight == 0 {
		// Config error upstream; the score stays unresolved.
		return nil, true
	}

	final := round(weighted / maxWeight * 100)
	return &final, true
}

// Passed resolves the pass flag: nil while the score is unresolved.
func Passed(score *float64, passingScore float64) *bool {
	if score == nil {
		return nil
	}
	p := *score >= passingScore
	return &p
}

// answerMatches compares a submitted value against the canonical answer.
// True/false answers compare case-insensitively; choice answers compare the
// option key exactly.
func answerMatches(q model.Question, submitted string) bool {
	correct := strings.TrimSpace(q.CorrectAnswer)
	switch q.QuestionType {
	case model.QuestionTypeTrueFalse:
		return strings.EqualFold(submitted, correct)
	case model.QuestionTypeMultipleChoice:
		return submitted == correct
	default:
		return false
	}
}

func round(x float64) float64 {
	return math.Round(x)
}
