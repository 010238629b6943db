package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("email or password is not valid")
	ErrInvalidToken       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrOTPMismatch        = errors.New("otp does not match")
	ErrOAuthExchange      = errors.New("could not obtain access token from provider")
	ErrOAuthUserInfo      = errors.New("could not obtain user info from provider")
	ErrProfileIncomplete  = errors.New("profile record was not created")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Provider is the origin of a user's credentials.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	UserType     string
	Provider     Provider
	IsVerified   bool

	// OTP state. The secret is created on first verification need and
	// persists across codes; the counter rotates on every issuance so
	// only the most recent code verifies.
	OTPSecret   string
	OTPCounter  uint64
	OTPIssuedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the job-portal profile record paired with every auth
// record. Creation is a second write, so a registration can fail
// between the two; callers must surface that instead of reporting
// success.
type Profile struct {
	UserID    string
	Email     string
	Name      string
	UserType  string
	CreatedAt time.Time
}
