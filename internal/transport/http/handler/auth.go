package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jobportal/auth-service/internal/domain"
	"github.com/jobportal/auth-service/internal/metrics"
	"github.com/jobportal/auth-service/internal/token"
	"github.com/jobportal/auth-service/internal/usecase"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (string, error)
	VerifyOTP(ctx context.Context, guestToken, code string) (*usecase.TokenPair, error)
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*usecase.TokenPair, error)
	GoogleAuthURL(state string) string
	GoogleCallback(ctx context.Context, code string) (*usecase.TokenPair, bool, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	codec       *token.Codec
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, codec *token.Codec, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		codec:       codec,
		logger:      logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Email    string `json:"email"     binding:"required,email"`
	Name     string `json:"name"      binding:"required"`
	Password string `json:"password"  binding:"required,min=8"`
	UserType string `json:"user_type" binding:"required,oneof=applicant employer"`
}

// POST /register
// Creates an unverified account, emails a one-time code, and hands back
// a short-lived guest token for the verification step.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guest, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		UserType: req.UserType,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": errEmailTaken})
		case errors.Is(err, domain.ErrProfileIncomplete):
			h.logger.Error("register profile", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": errInternalServer})
		default:
			h.logger.Error("register", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	metrics.OTPIssuedTotal.WithLabelValues("register").Inc()
	c.JSON(http.StatusOK, gin.H{
		"msg":   msgOTPSent,
		"url":   "/otp/verify",
		"token": guest,
	})
}

type otpRequest struct {
	OTP string `json:"otp" binding:"required,len=6,numeric"`
}

// POST /otp/verify?token=<guest>
// Exchanges a guest token plus the emailed code for an access/refresh pair.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	guest := c.Query("token")
	if guest == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.authUsecase.VerifyOTP(c.Request.Context(), guest, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			metrics.OTPVerifiedTotal.WithLabelValues("expired").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": errTokenExpired})
		case errors.Is(err, domain.ErrInvalidToken):
			metrics.OTPVerifiedTotal.WithLabelValues("bad_token").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		case errors.Is(err, domain.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		case errors.Is(err, domain.ErrOTPMismatch):
			metrics.OTPVerifiedTotal.WithLabelValues("mismatch").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": errOTPMismatch})
		default:
			h.logger.Error("verify otp", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	metrics.OTPVerifiedTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusCreated, gin.H{
		"msg":   msgOTPVerified,
		"token": pair,
	})
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /login
// Verified users get a token pair; unverified users get a fresh guest
// token and are sent back through OTP verification.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusNotFound, gin.H{
				"errors": gin.H{"non_field_errors": []string{errInvalidCredentials}},
			})
			return
		}
		h.logger.Error("login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	if !result.Verified {
		metrics.LoginsTotal.WithLabelValues("unverified").Inc()
		metrics.OTPIssuedTotal.WithLabelValues("login").Inc()
		c.JSON(http.StatusOK, gin.H{
			"msg":    msgUserNotVerified,
			"token":  result.GuestToken,
			"verify": false,
		})
		return
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"msg":    msgLoginSuccess,
		"token":  result.Pair,
		"verify": true,
	})
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// POST /logout
// Blacklists the refresh token for its remaining lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authUsecase.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenRevoked):
			c.JSON(http.StatusBadRequest, gin.H{"error": errTokenRevoked})
		case errors.Is(err, domain.ErrTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": errTokenExpired})
		case errors.Is(err, domain.ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": errTokenInvalid})
		default:
			h.logger.Error("logout", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": msgLogout})
}

// POST /token/refresh
// Exchanges a live refresh token for a brand new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.authUsecase.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenRevoked),
			errors.Is(err, domain.ErrTokenExpired),
			errors.Is(err, domain.ErrInvalidToken),
			errors.Is(err, domain.ErrUserNotFound):
			metrics.TokenRefreshesTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		default:
			h.logger.Error("refresh", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"token": pair})
}

type verifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// POST /token/verify
// Signature and expiry check only; no user lookup.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req verifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.codec.DecodeVerified(req.Token); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenExpired})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": msgTokenValid})
}

// GET /google/login
// Hands the client the provider consent URL instead of redirecting, so
// SPA and mobile clients can open it themselves.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{"google_redirect_url": h.authUsecase.GoogleAuthURL(state)})
}

// GET /google/login/callback?code=<provider code>
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errOAuthExchange})
		return
	}

	pair, created, err := h.authUsecase.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOAuthExchange):
			metrics.OAuthCallbacksTotal.WithLabelValues("exchange_failed").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": errOAuthExchange})
		case errors.Is(err, domain.ErrOAuthUserInfo):
			metrics.OAuthCallbacksTotal.WithLabelValues("userinfo_failed").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": errOAuthUserInfo})
		default:
			h.logger.Error("google callback", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	if created {
		metrics.OAuthCallbacksTotal.WithLabelValues("registered").Inc()
		c.JSON(http.StatusCreated, gin.H{"msg": msgRegistered, "token": pair})
		return
	}

	metrics.OAuthCallbacksTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"msg": msgLoginSuccess, "token": pair})
}
