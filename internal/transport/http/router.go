package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jobportal/auth-service/internal/repository"
	"github.com/jobportal/auth-service/internal/token"
	"github.com/jobportal/auth-service/internal/transport/http/handler"
	"github.com/jobportal/auth-service/internal/transport/http/middleware"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	authHandler *handler.AuthHandler,
	passwordHandler *handler.PasswordHandler,
	accountHandler *handler.AccountHandler,
	codec *token.Codec,
	users repository.UserRepository,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.ValidateRequest(codec, users, logger))

	authMW := middleware.Auth(codec)

	// Registration and login
	r.POST("/register", authHandler.Register)
	r.POST("/otp/verify", authHandler.VerifyOTP)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authMW, authHandler.Logout)
	r.POST("/token/refresh", authHandler.Refresh)
	r.POST("/token/verify", authHandler.VerifyToken)

	// OAuth
	r.GET("/google/login", authHandler.GoogleLogin)
	r.GET("/google/login/callback", authHandler.GoogleCallback)

	// Password reset (unauthenticated, OTP-gated)
	r.POST("/forget-password", passwordHandler.RequestReset)
	r.POST("/forget-password/verify", passwordHandler.VerifyReset)
	r.POST("/reset-password", passwordHandler.CommitReset)

	// Password change (authenticated, OTP-confirmed)
	r.POST("/change-password", authMW, passwordHandler.RequestChange)
	r.POST("/change-password/verify", authMW, passwordHandler.ConfirmChange)

	// Account
	r.GET("/me", authMW, accountHandler.Me)
	r.GET("/restricted", accountHandler.Restricted)
	r.GET("/api/docs", accountHandler.Docs)

	return r
}
