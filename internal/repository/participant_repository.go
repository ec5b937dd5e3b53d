package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opencbt/opencbt-backend/internal/model"
)

// ParticipantRepository handles participant account data access.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// GetByUsername retrieves a participant by username, for login.
func (r *ParticipantRepository) GetByUsername(ctx context.Context, username string) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, section_id, created_at
		 FROM participants
		 WHERE username = $1`, username,
	).Scan(&p.ID, &p.Username, &p.Name, &p.PasswordHash, &p.SectionID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a participant by ID.
func (r *ParticipantRepository) GetByID(ctx context.Context, id int) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, section_id, created_at
		 FROM participants
		 WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.Name, &p.PasswordHash, &p.SectionID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new participant account.
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO participants (username, name, password_hash, section_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		p.Username, p.Name, p.PasswordHash, p.SectionID,
	).Scan(&p.ID, &p.CreatedAt)
}
