package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opencbt/opencbt-backend/internal/model"
)

func questionSet(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeMultipleChoice, Weight: 1, OrderNum: i}
	}
	return qs
}

func TestOrder_NoShuffleKeepsAuthoredOrder(t *testing.T) {
	qs := questionSet(5)
	got := Order(qs, false, "attempt-1")
	for i, q := range qs {
		if got[i] != q.ID.String() {
			t.Fatalf("position %d = %s, want %s", i, got[i], q.ID)
		}
	}
}

func TestOrder_StableForSameSeed(t *testing.T) {
	qs := questionSet(20)

	first := Order(qs, true, "attempt-abc")
	second := Order(qs, true, "attempt-abc")

	if len(first) != len(qs) {
		t.Fatalf("len = %d, want %d", len(first), len(qs))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order not stable at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestOrder_IsPermutation(t *testing.T) {
	qs := questionSet(20)
	got := Order(qs, true, "attempt-xyz")

	seen := make(map[string]bool, len(got))
	for _, id := range got {
		if seen[id] {
			t.Fatalf("duplicate id %s in order", id)
		}
		seen[id] = true
	}
	for _, q := range qs {
		if !seen[q.ID.String()] {
			t.Fatalf("missing id %s in order", q.ID)
		}
	}
}

func TestOrder_DifferentSeedsDiverge(t *testing.T) {
	qs := questionSet(30)

	a := Order(qs, true, "attempt-a")
	b := Order(qs, true, "attempt-b")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("orders for different seeds are identical; shuffle is not attempt-scoped")
	}
}
