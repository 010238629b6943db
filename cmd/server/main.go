package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jobportal/auth-service/config"
	"github.com/jobportal/auth-service/internal/email"
	"github.com/jobportal/auth-service/internal/health"
	"github.com/jobportal/auth-service/internal/infrastructure/postgres"
	redisinfra "github.com/jobportal/auth-service/internal/infrastructure/redis"
	ctxlog "github.com/jobportal/auth-service/internal/log"
	"github.com/jobportal/auth-service/internal/metrics"
	"github.com/jobportal/auth-service/internal/oauth"
	"github.com/jobportal/auth-service/internal/otp"
	"github.com/jobportal/auth-service/internal/token"
	httptransport "github.com/jobportal/auth-service/internal/transport/http"
	"github.com/jobportal/auth-service/internal/transport/http/handler"
	"github.com/jobportal/auth-service/internal/usecase"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisinfra.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		stop()
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	userRepo := postgres.NewUserRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	blacklist := redisinfra.NewBlacklist(redisClient)

	codec := token.NewCodec([]byte(cfg.JWTSecret))
	otpGen := otp.NewGenerator(cfg.OTPIssuer, cfg.OTPWindow)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	google := oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})

	authUsecase := usecase.NewAuthUsecase(
		userRepo, profileRepo, blacklist, sender, codec, otpGen, google, logger,
		usecase.TTLs{
			Access:  cfg.AccessTokenTTL,
			Refresh: cfg.RefreshTokenTTL,
			Guest:   cfg.GuestTokenTTL,
		},
	)

	authHandler := handler.NewAuthHandler(authUsecase, codec, logger)
	passwordHandler := handler.NewPasswordHandler(authUsecase, logger)
	accountHandler := handler.NewAccountHandler(authUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(pool, redisinfra.Pinger{Client: redisClient}, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authHandler, passwordHandler, accountHandler, codec, userRepo),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
