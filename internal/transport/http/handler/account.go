package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jobportal/auth-service/internal/domain"
)

type accountUsecaser interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

type AccountHandler struct {
	accountUsecase accountUsecaser
	logger         *slog.Logger
}

func NewAccountHandler(accountUsecase accountUsecaser, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountUsecase: accountUsecase,
		logger:         logger.With("component", "account_handler"),
	}
}

type profileResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	UserType   string    `json:"user_type"`
	Provider   string    `json:"provider"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// GET /me
func (h *AccountHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	user, err := h.accountUsecase.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
			return
		}
		h.logger.Error("load profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		UserType:   user.UserType,
		Provider:   string(user.Provider),
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
	})
}

// GET /restricted
// Smoke probe that sits outside the credential gate.
func (h *AccountHandler) Restricted(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"msg": "I am a restricted page"})
}

// GET /api/docs
// Minimal machine-readable route index.
func (h *AccountHandler) Docs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"routes": []gin.H{
			{"method": "POST", "path": "/register"},
			{"method": "POST", "path": "/otp/verify"},
			{"method": "POST", "path": "/login"},
			{"method": "POST", "path": "/logout"},
			{"method": "POST", "path": "/token/refresh"},
			{"method": "POST", "path": "/token/verify"},
			{"method": "GET", "path": "/google/login"},
			{"method": "GET", "path": "/google/login/callback"},
			{"method": "POST", "path": "/forget-password"},
			{"method": "POST", "path": "/forget-password/verify"},
			{"method": "POST", "path": "/reset-password"},
			{"method": "POST", "path": "/change-password"},
			{"method": "POST", "path": "/change-password/verify"},
			{"method": "GET", "path": "/me"},
		},
	})
}
