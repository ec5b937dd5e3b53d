package worker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPermanentPersistError(t *testing.T) {
	fkErr := &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "attempt_answers_question_id_fkey"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"foreign key violation", fkErr, true},
		{"wrapped foreign key violation", fmt.Errorf("upsert answer: %w", fkErr), true},
		{"other pg error", &pgconn.PgError{Code: "40001"}, false},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := permanentPersistError(tt.err); got != tt.want {
				t.Errorf("permanentPersistError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
