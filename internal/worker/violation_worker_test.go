package worker

import (
	"testing"
)

func TestRetryOrBury(t *testing.T) {
	p := violationPayload{
		AttemptID: "a1",
		Kind:      "focus_loss",
		Timestamp: 1700000000,
		Payload:   `{"reason":"blur"}`,
	}

	// A fresh event survives violationMaxRetries requeues, then gets buried.
	for i := 1; i <= violationMaxRetries; i++ {
		var buried bool
		p, buried = retryOrBury(p)
		if buried {
			t.Fatalf("buried after %d retries, want %d survivable retries", i, violationMaxRetries)
		}
		if p.Retries != i {
			t.Fatalf("Retries = %d after %d requeues", p.Retries, i)
		}
	}

	p, buried := retryOrBury(p)
	if !buried {
		t.Fatalf("not buried after %d retries", p.Retries)
	}

	// The event itself is untouched; only the counter moves.
	if p.AttemptID != "a1" || p.Kind != "focus_loss" || p.Payload != `{"reason":"blur"}` {
		t.Errorf("payload fields changed across retries: %+v", p)
	}
}
