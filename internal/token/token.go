// Package token encodes and decodes the signed, time-bound credentials
// used across the auth flows: access tokens (API calls), refresh tokens
// (renewal, revocable by JTI), guest tokens (carry an unverified
// identity through the OTP flow) and reset tokens (authorize a password
// reset commit).
//
// Decoding is two-tier on purpose. DecodeVerified checks the signature
// and expiry and returns trusted Claims; DecodeUnverified only parses
// the structure and returns a ClaimsHint, a distinct type that the
// request gate uses for a cheap existence lookup and nothing else.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jobportal/auth-service/internal/domain"
)

// Kind discriminates what a credential may be used for.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindGuest   Kind = "guest"
	KindReset   Kind = "reset"
)

// Claims is the verified payload of a credential. Which fields a kind
// may carry is enforced at issue time, so a guest token can never be
// mistaken for an access token by shape alone.
type Claims struct {
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	UserType string `json:"user_type,omitempty"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// ClaimsHint is the untrusted result of a structural parse. It is a
// separate type so unverified data cannot flow into code that expects
// verified Claims.
type ClaimsHint struct {
	UserID string
	Email  string
	Kind   Kind
}

// Codec signs and verifies credentials with a process-wide HMAC key.
type Codec struct {
	key []byte
}

func NewCodec(key []byte) *Codec {
	return &Codec{key: key}
}

// Issue serializes claims plus an absolute expiry and signs them.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return c.sign(claims)
}

func (c *Codec) sign(claims Claims) (string, error) {
	if err := normalize(&claims); err != nil {
		return "", err
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// DecodeVerified verifies signature and expiry and returns trusted
// claims. Returns domain.ErrTokenExpired past expiry and
// domain.ErrInvalidToken for anything else that fails.
func (c *Codec) DecodeVerified(raw string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !t.Valid || claims.Kind == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// DecodeUnverified parses the token structure WITHOUT checking the
// signature and returns an untrusted hint. Callers must not authorize
// anything off the result; it exists for the request gate's existence
// pre-check only.
func (c *Codec) DecodeUnverified(raw string) (*ClaimsHint, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, domain.ErrInvalidToken
	}
	return &ClaimsHint{
		UserID: claims.UserID,
		Email:  claims.Email,
		Kind:   claims.Kind,
	}, nil
}

// Augment re-issues a token merging the non-zero fields of extra into
// its claims. The source token must verify; the expiry carries over
// unchanged, so augmentation never extends a credential's life.
func (c *Codec) Augment(raw string, extra Claims) (string, error) {
	claims, err := c.DecodeVerified(raw)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return "", err
		}
		return "", domain.ErrInvalidToken
	}

	merged := *claims
	if extra.UserID != "" {
		merged.UserID = extra.UserID
	}
	if extra.Email != "" {
		merged.Email = extra.Email
	}
	if extra.UserType != "" {
		merged.UserType = extra.UserType
	}
	if extra.Kind != "" {
		merged.Kind = extra.Kind
	}
	merged.IssuedAt = jwt.NewNumericDate(time.Now())
	return c.sign(merged)
}

// normalize enforces the per-kind claim shape: every kind needs a
// subject, access and guest tokens carry the full identity, refresh
// tokens carry a JTI for blacklisting, reset tokens carry the uid and
// nothing else.
func normalize(claims *Claims) error {
	if claims.UserID == "" {
		return fmt.Errorf("issue %s token: missing user id", claims.Kind)
	}

	switch claims.Kind {
	case KindAccess, KindGuest:
		if claims.Email == "" {
			return fmt.Errorf("issue %s token: missing email", claims.Kind)
		}
	case KindRefresh:
		claims.UserType = ""
		if claims.ID == "" {
			claims.ID = uuid.NewString()
		}
	case KindReset:
		claims.Email = ""
		claims.UserType = ""
	default:
		return fmt.Errorf("issue token: unknown kind %q", claims.Kind)
	}
	return nil
}
