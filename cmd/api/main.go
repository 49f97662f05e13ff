package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/inkcircle/inkcircle-api/internal/auth"
	"github.com/inkcircle/inkcircle-api/internal/book"
	"github.com/inkcircle/inkcircle-api/internal/bus"
	"github.com/inkcircle/inkcircle-api/internal/config"
	"github.com/inkcircle/inkcircle-api/internal/database"
	httpServer "github.com/inkcircle/inkcircle-api/internal/http"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/mail"
	"github.com/inkcircle/inkcircle-api/internal/ratelimit"
	"github.com/inkcircle/inkcircle-api/internal/review"
	"github.com/inkcircle/inkcircle-api/internal/tag"
	"github.com/inkcircle/inkcircle-api/internal/user"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

// @title           Inkcircle API
// @version         1.0
// @description     Book-review management API with authentication, email verification, and role-based access control.

// @contact.name   API Support
// @contact.email  support@inkcircle.dev

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Ensure tables and unique indexes exist
	if err := database.Migrate(context.Background(), db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Choose the mail dispatch strategy: queue through NATS when configured,
	// otherwise deliver synchronously in-process
	dispatcher, busHandle, err := initMailDispatcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mail dispatch: %w", err)
	}
	if busHandle != nil {
		defer busHandle.Close()
	}

	// Initialize repositories
	userRepo := user.NewRepository(db)
	bookRepo := book.NewRepository(db)
	reviewRepo := review.NewRepository(db)
	tagRepo := tag.NewRepository(db)
	resetTokenRepo := auth.NewResetTokenRepository(redisClient)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize token services (separate keys for session and action tokens)
	tokenService, err := auth.NewTokenService(cfg.Auth.SessionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize session token service: %w", err)
	}
	actionTokenService, err := auth.NewActionTokenService(cfg.Auth.ActionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize action token service: %w", err)
	}

	// Initialize mail service
	mailService := mail.NewService(dispatcher, cfg.Mail.FrontendURL, logger)

	// Initialize auth service
	authService := auth.NewService(
		userRepo,
		resetTokenRepo,
		tokenService,
		actionTokenService,
		mailService,
		logger,
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
		cfg.Auth.VerifyTokenDuration,
		cfg.Auth.ResetTokenDuration,
	)

	// Initialize request validator
	validator := validate.New()

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(
		authService,
		rateLimiter,
		validator,
		logger,
		!cfg.Server.IsDevelopment(), // isProduction
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)
	userHandler := user.NewHandler(userRepo, auth.GetUserFromContext, validator)
	bookHandler := book.NewHandler(bookRepo, reviewRepo, tagRepo, validator)
	reviewHandler := review.NewHandler(reviewRepo, bookRepo, validator)
	tagHandler := tag.NewHandler(tagRepo, bookRepo, validator)

	authMiddleware := auth.NewMiddleware(tokenService, userRepo)

	// Initialize router
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:   authHandler,
		User:   userHandler,
		Book:   bookHandler,
		Review: reviewHandler,
		Tag:    tagHandler,
	}, authMiddleware, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// initMailDispatcher selects the mail dispatch strategy. With NATS configured
// mail goes through JetStream and the mail worker; without it the API sends
// over SMTP inline, which ties delivery latency to requests and is logged as
// degraded mode.
func initMailDispatcher(cfg *config.Config, logger *logging.Logger) (mail.Dispatcher, *bus.Bus, error) {
	if cfg.Queue.NATSURL != "" {
		b, err := bus.New(cfg.Queue.NATSURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		dispatcher, err := mail.NewQueueDispatcher(b)
		if err != nil {
			b.Close()
			return nil, nil, err
		}

		logger.Info("mail dispatch via NATS queue", "url", cfg.Queue.NATSURL)
		return dispatcher, b, nil
	}

	logger.Warn("NATS_URL not set, sending mail synchronously (degraded mode)")
	sender := mail.NewSMTPSender(
		cfg.Mail.SMTPHost,
		cfg.Mail.SMTPPort,
		cfg.Mail.SMTPUser,
		cfg.Mail.SMTPPassword,
		cfg.Mail.FromAddress,
	)
	return sender, nil, nil
}
