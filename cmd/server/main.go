package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"eventplatform/config"
	_ "eventplatform/docs"
	"eventplatform/internal/adapters/auth"
	"eventplatform/internal/adapters/email"
	deliveryhttp "eventplatform/internal/delivery/http"
	"eventplatform/internal/delivery/http/controllers"
	"eventplatform/internal/delivery/http/middleware"
	"eventplatform/internal/metrics"
	"eventplatform/internal/repository/postgres"
	"eventplatform/internal/services"

	"golang.org/x/crypto/bcrypt"

	_ "github.com/lib/pq"
)

const (
	serviceTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title Event Platform API
// @version 1.0
// @description Capacity-bounded event reservations: create events, join and leave them, and manage your profile.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(cfg.DBUrl); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	store := postgres.NewStore(db)
	eventRepo := postgres.NewEventRepository(db)
	userRepo := postgres.NewUserRepository(db)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	tokens := auth.NewJWTTokens(cfg.JWTSecret)

	authService := services.NewAuthService(userRepo, hasher, tokens, cfg.JWTExpiry, emailService, logger)
	eventService := services.NewEventService(store, eventRepo, userRepo, emailService, logger, serviceTimeout)
	enrollmentService := services.NewEnrollmentService(store, userRepo, emailService, collector, logger, serviceTimeout)
	userService := services.NewUserService(userRepo, eventRepo, serviceTimeout)

	authController := controllers.NewAuthController(logger, authService)
	eventController := controllers.NewEventController(logger, eventService)
	enrollmentController := controllers.NewEnrollmentController(logger, enrollmentService)
	userController := controllers.NewUserController(logger, userService)

	requireAuth := middleware.RequireAuth(tokens, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	mux := deliveryhttp.NewRouter(
		eventController,
		enrollmentController,
		authController,
		userController,
		requireAuth,
		rateLimiter.Limit,
		metrics.Handler(registry),
	)

	var handler http.Handler = middleware.MetricsMiddleware(collector, mux)
	handler = middleware.LoggingMiddleware(logger, handler)
	handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
