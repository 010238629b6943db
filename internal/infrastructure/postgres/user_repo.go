package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jobportal/auth-service/internal/domain"
)

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, user_type, provider,
	is_verified, otp_secret, otp_counter, otp_issued_at, created_at, updated_at`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM user_auth WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM user_auth WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_auth (email, name, password_hash, user_type, provider, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.PasswordHash, u.UserType, u.Provider, u.IsVerified,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_auth
		SET email = $2, name = $3, password_hash = $4, user_type = $5,
		    provider = $6, is_verified = $7, otp_secret = $8,
		    otp_counter = $9, otp_issued_at = $10, updated_at = NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.UserType,
		u.Provider, u.IsVerified, u.OTPSecret, u.OTPCounter, u.OTPIssuedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_auth WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

// PurgeUnverified deletes local accounts that never completed OTP
// verification and were created before cutoff. Profiles go first to
// keep the FK satisfied.
func (r *UserRepository) PurgeUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_profile p
		USING user_auth a
		WHERE p.user_id = a.id
		  AND a.provider = 'local'
		  AND NOT a.is_verified
		  AND a.created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge unverified profiles: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM user_auth
		WHERE provider = 'local'
		  AND NOT is_verified
		  AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge unverified users: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.UserType, &u.Provider,
		&u.IsVerified, &u.OTPSecret, &u.OTPCounter, &u.OTPIssuedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
