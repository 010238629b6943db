package repository

import (
	"context"
	"time"

	"github.com/jobportal/auth-service/internal/domain"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Exists(ctx context.Context, id string) (bool, error)
}

type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
}

// TokenBlacklist records revoked refresh tokens by JTI. Revoking an
// already-revoked token returns domain.ErrTokenRevoked.
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
