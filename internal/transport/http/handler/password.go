package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jobportal/auth-service/internal/domain"
	"github.com/jobportal/auth-service/internal/metrics"
)

type passwordUsecaser interface {
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	VerifyPasswordResetOTP(ctx context.Context, guestToken, code string) (resetToken, uid string, err error)
	CommitPasswordReset(ctx context.Context, uid, resetToken, newPassword string) error
	RequestPasswordChange(ctx context.Context, userID string) error
	ConfirmPasswordChange(ctx context.Context, userID, code, newPassword string) error
}

type PasswordHandler struct {
	passwordUsecase passwordUsecaser
	logger          *slog.Logger
}

func NewPasswordHandler(passwordUsecase passwordUsecaser, logger *slog.Logger) *PasswordHandler {
	return &PasswordHandler{
		passwordUsecase: passwordUsecase,
		logger:          logger.With("component", "password_handler"),
	}
}

type forgetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /forget-password
// Starts the reset flow: emails a code and returns a guest token that
// scopes the verify step to this account.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req forgetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guest, err := h.passwordUsecase.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
			return
		}
		h.logger.Error("request password reset", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	metrics.OTPIssuedTotal.WithLabelValues("password_reset").Inc()
	c.JSON(http.StatusOK, gin.H{
		"msg":   msgOTPSent,
		"token": guest,
	})
}

// POST /forget-password/verify?token=<guest>
// Trades the guest token plus the emailed code for a short reset token
// and the uid the commit step must echo back.
func (h *PasswordHandler) VerifyReset(c *gin.Context) {
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

	resetToken, uid, err := h.passwordUsecase.VerifyPasswordResetOTP(c.Request.Context(), guest, req.OTP)
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
			h.logger.Error("verify password reset otp", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	metrics.OTPVerifiedTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"msg":   msgResetVerified,
		"token": resetToken,
		"uid":   uid,
	})
}

type resetPasswordRequest struct {
	Password  string `json:"password"  binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required,eqfield=Password"`
}

// POST /reset-password?uid=<id>&token=<reset token>
func (h *PasswordHandler) CommitReset(c *gin.Context) {
	uid := c.Query("uid")
	resetToken := c.Query("token")
	if uid == "" || resetToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.passwordUsecase.CommitPasswordReset(c.Request.Context(), uid, resetToken, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenExpired})
		case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		case errors.Is(err, domain.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		default:
			h.logger.Error("commit password reset", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": msgPasswordReset})
}

// POST /change-password
// Requires verified auth; emails a confirmation code to the logged-in
// user's address.
func (h *PasswordHandler) RequestChange(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	if err := h.passwordUsecase.RequestPasswordChange(c.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
			return
		}
		h.logger.Error("request password change", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	metrics.OTPIssuedTotal.WithLabelValues("password_change").Inc()
	c.JSON(http.StatusOK, gin.H{"msg": msgOTPSent})
}

type changePasswordRequest struct {
	OTP      string `json:"otp"      binding:"required,len=6,numeric"`
	Password string `json:"password" binding:"required,min=8"`
}

// POST /change-password/verify
func (h *PasswordHandler) ConfirmChange(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.passwordUsecase.ConfirmPasswordChange(c.Request.Context(), userID, req.OTP, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrOTPMismatch):
			metrics.OTPVerifiedTotal.WithLabelValues("mismatch").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": errOTPMismatch})
		case errors.Is(err, domain.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		default:
			h.logger.Error("confirm password change", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	metrics.OTPVerifiedTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"msg": msgPasswordChanged})
}
