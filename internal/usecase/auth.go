package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobportal/auth-service/internal/domain"
	"github.com/jobportal/auth-service/internal/email"
	"github.com/jobportal/auth-service/internal/oauth"
	"github.com/jobportal/auth-service/internal/otp"
	"github.com/jobportal/auth-service/internal/repository"
	"github.com/jobportal/auth-service/internal/token"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultGuestTTL   = 5 * time.Minute
)

type otpPurpose string

const (
	purposeVerify otpPurpose = "verify"
	purposeReset  otpPurpose = "reset-password"
)

// oauthProvider is the subset of oauth.Google the usecase needs.
// Defined here (point of use) so tests can inject a fake.
type oauthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	UserInfo(ctx context.Context, accessToken string) (*oauth.UserInfo, error)
}

// TokenPair is the access+refresh credential pair issued to a
// verified user.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TTLs configures token lifetimes. Zero fields fall back to defaults.
type TTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Guest   time.Duration
}

type AuthUsecase struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	blacklist repository.TokenBlacklist
	email     email.Sender
	codec     *token.Codec
	otp       *otp.Generator
	google    oauthProvider
	logger    *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
	guestTTL   time.Duration
}

func NewAuthUsecase(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	blacklist repository.TokenBlacklist,
	emailSender email.Sender,
	codec *token.Codec,
	otpGen *otp.Generator,
	google oauthProvider,
	logger *slog.Logger,
	ttls TTLs,
) *AuthUsecase {
	if ttls.Access == 0 {
		ttls.Access = defaultAccessTTL
	}
	if ttls.Refresh == 0 {
		ttls.Refresh = defaultRefreshTTL
	}
	if ttls.Guest == 0 {
		ttls.Guest = defaultGuestTTL
	}
	return &AuthUsecase{
		users:      users,
		profiles:   profiles,
		blacklist:  blacklist,
		email:      emailSender,
		codec:      codec,
		otp:        otpGen,
		google:     google,
		logger:     logger.With("component", "auth_usecase"),
		accessTTL:  ttls.Access,
		refreshTTL: ttls.Refresh,
		guestTTL:   ttls.Guest,
	}
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
	UserType string
}

// Register creates an unverified auth record plus its profile record,
// then starts the OTP verification flow. Registration is a two-step
// write; if the profile insert fails the caller gets an explicit
// error instead of a silent half-created account.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		UserType:     in.UserType,
		Provider:     domain.ProviderLocal,
	})
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	if err := u.profiles.CreateProfile(ctx, &domain.Profile{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		UserType: user.UserType,
	}); err != nil {
		u.logger.ErrorContext(ctx, "profile record not created", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrProfileIncomplete, err)
	}

	return u.startVerification(ctx, user, purposeVerify)
}

// VerifyOTP completes registration: the guest token proves which email
// the OTP was sent to, the code proves the inbox. On success the user
// is marked verified and gets the access+refresh pair.
func (u *AuthUsecase) VerifyOTP(ctx context.Context, guestToken, code string) (*TokenPair, error) {
	claims, err := u.codec.DecodeVerified(guestToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != token.KindGuest {
		return nil, domain.ErrInvalidToken
	}

	user, err := u.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !u.verifyAndConsumeOTP(ctx, user, code) {
		return nil, domain.ErrOTPMismatch
	}

	user.IsVerified = true
	if err := u.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	return u.issuePair(user)
}

// LoginResult carries either a token pair (verified user) or a fresh
// guest token re-entering the OTP flow (unverified user).
type LoginResult struct {
	Pair       *TokenPair
	GuestToken string
	Verified   bool
}

func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*LoginResult, error) {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if user.IsVerified {
		pair, err := u.issuePair(user)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Pair: pair, Verified: true}, nil
	}

	// Unverified user with correct credentials re-enters the OTP flow.
	guest, err := u.startVerification(ctx, user, purposeVerify)
	if err != nil {
		return nil, err
	}
	return &LoginResult{GuestToken: guest, Verified: false}, nil
}

// Logout blacklists the refresh token's JTI for its remaining
// lifetime. Logging out an already-revoked token returns
// domain.ErrTokenRevoked.
func (u *AuthUsecase) Logout(ctx context.Context, refreshToken string) error {
	claims, err := u.codec.DecodeVerified(refreshToken)
	if err != nil {
		return err
	}
	if claims.Kind != token.KindRefresh {
		return domain.ErrInvalidToken
	}
	return u.blacklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

// Refresh issues a new access+refresh pair from a refresh token. The
// blacklist is consulted before anything is issued.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := u.codec.DecodeVerified(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != token.KindRefresh {
		return nil, domain.ErrInvalidToken
	}

	revoked, err := u.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}

	user, err := u.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u.issuePair(user)
}

// RequestPasswordReset starts the forget-password flow: guest token
// plus OTP sent to the account email.
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		return "", err
	}
	return u.startVerification(ctx, user, purposeReset)
}

// VerifyPasswordResetOTP trades a guest token plus a correct OTP for
// a reset-authorization token bound to the user id. The reset token is
// the guest token re-issued with its identity claims stripped, so its
// expiry carries over.
func (u *AuthUsecase) VerifyPasswordResetOTP(ctx context.Context, guestToken, code string) (resetToken, uid string, err error) {
	claims, err := u.codec.DecodeVerified(guestToken)
	if err != nil {
		return "", "", err
	}
	if claims.Kind != token.KindGuest {
		return "", "", domain.ErrInvalidToken
	}

	user, err := u.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return "", "", fmt.Errorf("find user: %w", err)
	}

	if !u.verifyAndConsumeOTP(ctx, user, code) {
		return "", "", domain.ErrOTPMismatch
	}

	resetToken, err = u.codec.Augment(guestToken, token.Claims{Kind: token.KindReset})
	if err != nil {
		return "", "", fmt.Errorf("issue reset token: %w", err)
	}
	return resetToken, user.ID, nil
}

// CommitPasswordReset verifies that the reset token matches uid and
// commits the new password, then sends the confirmation email.
func (u *AuthUsecase) CommitPasswordReset(ctx context.Context, uid, resetToken, newPassword string) error {
	claims, err := u.codec.DecodeVerified(resetToken)
	if err != nil {
		return err
	}
	if claims.Kind != token.KindReset || claims.UserID != uid {
		return domain.ErrInvalidToken
	}

	user, err := u.users.FindByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := u.users.Update(ctx, user); err != nil {
		return fmt.Errorf("commit password: %w", err)
	}

	body := "Your password is successfully changed.\nLogin to your account to access your account."
	if err := u.email.Send(ctx, user.Email, "Reset Your Password", body); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// RequestPasswordChange sends an OTP to an already-authenticated
// user's email; the change commits in ConfirmPasswordChange.
func (u *AuthUsecase) RequestPasswordChange(ctx context.Context, userID string) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	code, err := u.rotateOTP(ctx, user)
	if err != nil {
		return err
	}
	return u.sendOTPEmail(ctx, user.Email, purposeReset, code)
}

func (u *AuthUsecase) ConfirmPasswordChange(ctx context.Context, userID, code, newPassword string) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !u.verifyAndConsumeOTP(ctx, user, code) {
		return domain.ErrOTPMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := u.users.Update(ctx, user); err != nil {
		return fmt.Errorf("commit password: %w", err)
	}
	return nil
}

func (u *AuthUsecase) GoogleAuthURL(state string) string {
	return u.google.AuthURL(state)
}

// GoogleCallback exchanges the provider code, fetches userinfo, and
// either logs in the existing local user by email or auto-registers a
// new one with provider=google and is_verified=true. Returns whether a
// new account was created.
func (u *AuthUsecase) GoogleCallback(ctx context.Context, code string) (*TokenPair, bool, error) {
	accessToken, err := u.google.Exchange(ctx, code)
	if err != nil {
		return nil, false, err
	}

	info, err := u.google.UserInfo(ctx, accessToken)
	if err != nil {
		return nil, false, err
	}

	created := false
	user, err := u.users.FindByEmail(ctx, info.Email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = u.users.Create(ctx, &domain.User{
			Email:      info.Email,
			Name:       info.Name,
			UserType:   "applicant",
			Provider:   domain.ProviderGoogle,
			IsVerified: true,
		})
		if err != nil {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		if err := u.profiles.CreateProfile(ctx, &domain.Profile{
			UserID:   user.ID,
			Email:    user.Email,
			Name:     user.Name,
			UserType: user.UserType,
		}); err != nil {
			u.logger.ErrorContext(ctx, "profile record not created", "user_id", user.ID, "error", err)
			return nil, false, fmt.Errorf("%w: %w", domain.ErrProfileIncomplete, err)
		}
		created = true
	default:
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	pair, err := u.issuePair(user)
	if err != nil {
		return nil, false, err
	}
	return pair, created, nil
}

// Profile returns the account record for an authenticated user.
func (u *AuthUsecase) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return user, nil
}

// ---- internals ----

func (u *AuthUsecase) issuePair(user *domain.User) (*TokenPair, error) {
	access, err := u.codec.Issue(token.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		UserType: user.UserType,
		Kind:     token.KindAccess,
	}, u.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := u.codec.Issue(token.Claims{
		UserID: user.ID,
		Kind:   token.KindRefresh,
	}, u.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// startVerification issues a guest token carrying the user's identity,
// rotates the OTP and emails the code.
func (u *AuthUsecase) startVerification(ctx context.Context, user *domain.User, purpose otpPurpose) (string, error) {
	guest, err := u.codec.Issue(token.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		UserType: user.UserType,
		Kind:     token.KindGuest,
	}, u.guestTTL)
	if err != nil {
		return "", fmt.Errorf("issue guest token: %w", err)
	}

	code, err := u.rotateOTP(ctx, user)
	if err != nil {
		return "", err
	}
	if err := u.sendOTPEmail(ctx, user.Email, purpose, code); err != nil {
		return "", err
	}
	return guest, nil
}

// rotateOTP creates the secret on first need, advances the counter and
// persists the new OTP state. Advancing the counter invalidates any
// previously issued code.
func (u *AuthUsecase) rotateOTP(ctx context.Context, user *domain.User) (string, error) {
	if user.OTPSecret == "" {
		secret, err := u.otp.GenerateSecret(user.Email)
		if err != nil {
			return "", err
		}
		user.OTPSecret = secret
	}

	user.OTPCounter++
	now := time.Now()
	user.OTPIssuedAt = &now

	code, err := u.otp.GenerateCode(user.OTPSecret, user.OTPCounter)
	if err != nil {
		return "", err
	}

	if err := u.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("persist otp state: %w", err)
	}
	return code, nil
}

// verifyAndConsumeOTP judges the submitted code and, on success,
// clears the issuance timestamp so the same code cannot be replayed.
func (u *AuthUsecase) verifyAndConsumeOTP(ctx context.Context, user *domain.User, code string) bool {
	var issuedAt time.Time
	if user.OTPIssuedAt != nil {
		issuedAt = *user.OTPIssuedAt
	}
	if !u.otp.Verify(user.OTPSecret, user.OTPCounter, issuedAt, code) {
		return false
	}

	user.OTPIssuedAt = nil
	if err := u.users.Update(ctx, user); err != nil {
		u.logger.ErrorContext(ctx, "consume otp", "user_id", user.ID, "error", err)
		return false
	}
	return true
}

func (u *AuthUsecase) sendOTPEmail(ctx context.Context, to string, purpose otpPurpose, code string) error {
	minutes := int(u.otp.Window().Minutes())

	var subject, body string
	switch purpose {
	case purposeReset:
		subject = "OTP to confirm your account"
		body = fmt.Sprintf("OTP is %s\nThis otp is valid only for %d minutes.", code, minutes)
	default:
		subject = "Verify your account"
		body = fmt.Sprintf("OTP to verify your account %s\nThis otp is valid only for %d minutes.", code, minutes)
	}

	if err := u.email.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}
