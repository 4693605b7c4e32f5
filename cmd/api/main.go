package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/auth"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/config"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/email"
	httpServer "github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/http"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/password"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/ratelimit"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/session"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/user"
)

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
	logger := logging.New(logging.Options{
		Development: cfg.Server.IsDevelopment(),
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
	})
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"session_store", cfg.Session.Store,
	)

	ctx := context.Background()

	hasher, err := password.New(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	// Initialize credential store
	users, err := user.OpenStore(ctx, cfg.Database, cfg.Database.AutoMigrate)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}
	defer func() {
		if err := users.Close(context.Background()); err != nil {
			logger.Warn("failed to close credential store", "error", err)
		}
	}()

	if err := seedUser(ctx, cfg.Database, users, hasher, logger); err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	// Initialize Redis connection
	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize sessions
	sessionOpts := session.Options{
		Name:        cfg.Session.Name,
		Secret:      cfg.Session.Secret,
		Secure:      !cfg.Server.IsDevelopment(),
		MaxLifetime: cfg.Session.MaxLifetime,
		IdleTimeout: cfg.Session.IdleTimeout,
	}
	var sessions *session.Manager
	if cfg.Session.Store == config.SessionStoreCookie {
		sessions = session.NewCookieManager(sessionOpts)
	} else {
		sessions = session.NewRedisManager(redisClient, sessionOpts)
	}

	// Initialize reset tokens
	resetTokens, err := auth.NewResetTokenService(cfg.Auth.ResetTokenKey, cfg.Auth.ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize reset token service: %w", err)
	}
	passwordResetRepo := auth.NewPasswordResetRepository(redisClient)

	// Initialize notifier
	var notifier auth.Notifier
	if cfg.Email.SMTPEnabled() {
		notifier = email.NewService(email.SMTPConfig{
			Host:        cfg.Email.SMTPHost,
			Port:        cfg.Email.SMTPPort,
			User:        cfg.Email.SMTPUser,
			Password:    cfg.Email.SMTPPassword,
			From:        cfg.Email.FromAddress,
			FrontendURL: cfg.Email.FrontendURL,
		})
	} else {
		logger.Warn("SMTP not configured, reset emails will only be logged")
		notifier = email.NewLogNotifier(logger)
	}

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient, ratelimit.Config{
		IPLimit:           cfg.Auth.ResetIPLimit,
		IPWindow:          cfg.Auth.ResetIPWindow,
		EmailCooldown:     cfg.Auth.ResetEmailCooldown,
		LoginMaxAttempts:  cfg.Auth.LoginMaxAttempts,
		LoginWindow:       cfg.Auth.LoginWindow,
		LoginLockDuration: cfg.Auth.LoginLockDuration,
	})

	// Initialize auth service
	authService := auth.NewService(
		users,
		hasher,
		resetTokens,
		passwordResetRepo,
		notifier,
		sessions,
		logger,
		auth.ServiceConfig{
			MinPasswordLength: cfg.Auth.MinPasswordLength,
			RequireResetToken: cfg.Auth.RequireResetToken,
		},
	)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(authService, sessions, rateLimiter)
	authMiddleware := auth.NewMiddleware(sessions, users)

	// Initialize router
	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, logger)

	// Initialize HTTP server
	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
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
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		authService.WaitForNotifications()
	}

	return nil
}

// seedUser creates the configured bootstrap account for the memory driver
func seedUser(ctx context.Context, cfg config.DatabaseConfig, users user.Repository, hasher password.Hasher, logger *logging.Logger) error {
	if cfg.Driver != config.DriverMemory || cfg.SeedEmail == "" {
		return nil
	}
	if cfg.SeedPassword == "" {
		return errors.New("SEED_USER_PASSWORD is required with SEED_USER_EMAIL")
	}

	hash, err := hasher.Hash(cfg.SeedPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}
	u, err := users.Create(ctx, cfg.SeedEmail, hash)
	if err != nil {
		return err
	}

	logger.Info("seeded user", "user_id", u.ID, "email", u.Email)
	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
