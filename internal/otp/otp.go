// Package otp derives the one-time numeric codes used to verify email
// ownership. Codes are HOTP (RFC 4226): 6 digits bound to a per-user
// base32 secret and a moving counter. The secret persists for the life
// of the account; the counter rotates on every issuance, so issuing a
// new code invalidates the previous one. On top of the counter each
// code carries an explicit validity window tracked by its issuance
// timestamp.
package otp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

var validateOpts = hotp.ValidateOpts{
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Generator derives and judges codes. It holds no per-user state; the
// secret, counter and issuance time live on the user record.
type Generator struct {
	issuer string
	window time.Duration
}

func NewGenerator(issuer string, window time.Duration) *Generator {
	return &Generator{issuer: issuer, window: window}
}

// Window is the validity period of an issued code.
func (g *Generator) Window() time.Duration {
	return g.window
}

// GenerateSecret creates a fresh base32 secret for a user that has
// none yet.
func (g *Generator) GenerateSecret(accountEmail string) (string, error) {
	key, err := hotp.Generate(hotp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	return key.Secret(), nil
}

// GenerateCode derives the code for the given counter value.
func (g *Generator) GenerateCode(secret string, counter uint64) (string, error) {
	code, err := hotp.GenerateCodeCustom(secret, counter, validateOpts)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return code, nil
}

// Verify reports whether submitted is the code currently derived from
// secret and counter, and the code's window has not elapsed. It fails
// closed: a bad secret, an expired window or a mismatch all return
// false, never an error. The comparison inside hotp.ValidateCustom is
// constant-time.
func (g *Generator) Verify(secret string, counter uint64, issuedAt time.Time, submitted string) bool {
	if secret == "" || issuedAt.IsZero() {
		return false
	}
	if time.Since(issuedAt) > g.window {
		return false
	}
	ok, err := hotp.ValidateCustom(submitted, counter, secret, validateOpts)
	return err == nil && ok
}
