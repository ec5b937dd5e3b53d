package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opencbt/opencbt-backend/internal/model"
)

func window(start, end time.Time) *model.ExamSession {
	return &model.ExamSession{
		ID:              uuid.New(),
		StartsAt:        start,
		EndsAt:          end,
		DurationMinutes: 60,
		Status:          model.SessionStatusActive,
	}
}

func TestGateWindow(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	sess := window(start, end)

	tests := []struct {
		name string
		now  time.Time
		want error
	}{
		{"before open", start.Add(-time.Minute), ErrNotYetOpen},
		{"exactly at open", start, nil},
		{"mid window", start.Add(time.Hour), nil},
		{"exactly at close", end, ErrClosed},
		{"after close", end.Add(time.Second), ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate(sess, tt.now); !errors.Is(got, tt.want) {
				t.Errorf("gate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeadlineClippedToSessionEnd(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	sess := window(start, end)

	// Entering early: full personal duration.
	d := deadline(sess, start.Add(30*time.Minute))
	if want := start.Add(90 * time.Minute); !d.Equal(want) {
		t.Errorf("deadline = %v, want %v", d, want)
	}

	// Entering with less than the duration left: clipped to session end.
	d = deadline(sess, end.Add(-10*time.Minute))
	if !d.Equal(end) {
		t.Errorf("deadline = %v, want session end %v", d, end)
	}
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	active := &model.Attempt{
		Status:     model.AttemptStatusInProgress,
		DeadlineAt: now.Add(90 * time.Second),
	}
	if got := remainingSeconds(active, now); got != 90 {
		t.Errorf("remainingSeconds = %v, want 90", got)
	}

	// Past-deadline attempt not yet swept: clamps to zero, never negative.
	overdue := &model.Attempt{
		Status:     model.AttemptStatusInProgress,
		DeadlineAt: now.Add(-time.Minute),
	}
	if got := remainingSeconds(overdue, now); got != 0 {
		t.Errorf("remainingSeconds overdue = %v, want 0", got)
	}

	submitted := &model.Attempt{
		Status:     model.AttemptStatusSubmitted,
		DeadlineAt: now.Add(time.Hour),
	}
	if got := remainingSeconds(submitted, now); got != 0 {
		t.Errorf("remainingSeconds submitted = %v, want 0", got)
	}
}

func TestAttemptOrderStablePerParticipant(t *testing.T) {
	sess := window(time.Now(), time.Now().Add(time.Hour))
	sess.ShuffleQuestions = true

	questions := make([]model.Question, 8)
	for i := range questions {
		questions[i] = model.Question{ID: uuid.New(), SessionID: sess.ID}
	}

	first := attemptOrder(sess, 42, questions)
	second := attemptOrder(sess, 42, questions)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order not stable for same participant: %v vs %v", first, second)
		}
	}

	other := attemptOrder(sess, 43, questions)
	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different participants to get different orders")
	}
}
