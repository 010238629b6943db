package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jobportal/auth-service/internal/domain"
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// CreateProfile inserts the job-portal profile row that pairs with an
// auth record. The id is the auth record's id, not a fresh one.
func (r *ProfileRepository) CreateProfile(ctx context.Context, p *domain.Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_profile (user_id, email, name, user_type)
		VALUES ($1, $2, $3, $4)`,
		p.UserID, p.Email, p.Name, p.UserType,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}
