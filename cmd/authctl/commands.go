package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/cmd/authctl/ui"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/config"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/database"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/httputil"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/password"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/session"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/user"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// createUser validates and stores a new account
func createUser(ctx context.Context, users user.Repository, hasher password.Hasher, minLength int, c credentials) (*user.User, error) {
	if err := httputil.Validate(c); err != nil {
		return nil, err
	}
	if err := password.Validate(c.Password, minLength); err != nil {
		return nil, err
	}

	hash, err := hasher.Hash(c.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := users.Create(ctx, c.Email, hash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, fmt.Errorf("%s already exists", user.NormalizeEmail(c.Email))
		}
		return nil, err
	}
	return u, nil
}

// setPassword replaces the password of an existing account
func setPassword(ctx context.Context, users user.Repository, hasher password.Hasher, minLength int, c credentials) (*user.User, error) {
	if err := httputil.Validate(c); err != nil {
		return nil, err
	}
	if err := password.Validate(c.Password, minLength); err != nil {
		return nil, err
	}

	u, err := users.GetByEmail(ctx, user.NormalizeEmail(c.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("no user with email %s", user.NormalizeEmail(c.Email))
		}
		return nil, err
	}

	hash, err := hasher.Hash(c.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return nil, err
	}
	return u, nil
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	plain, _ := cmd.Flags().GetString("password")

	// Interactive mode when either flag is missing
	if email == "" || plain == "" {
		form, err := ui.RunCredentialsForm("Create user", email)
		if err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
		email, plain = form.Email, form.Password
	}

	return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store *user.Store, hasher password.Hasher) error {
		u, err := createUser(ctx, store, hasher, cfg.Auth.MinPasswordLength, credentials{Email: email, Password: plain})
		if err != nil {
			ui.PrintError(err.Error())
			return err
		}
		ui.PrintUser("User created", u)
		return nil
	})
}

func runUserSetPassword(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	plain, _ := cmd.Flags().GetString("password")
	revoke, _ := cmd.Flags().GetBool("revoke-sessions")

	if email == "" || plain == "" {
		form, err := ui.RunCredentialsForm("Set password", email)
		if err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
		email, plain = form.Email, form.Password
	}

	return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store *user.Store, hasher password.Hasher) error {
		u, err := setPassword(ctx, store, hasher, cfg.Auth.MinPasswordLength, credentials{Email: email, Password: plain})
		if err != nil {
			ui.PrintError(err.Error())
			return err
		}
		ui.PrintUser("Password updated", u)

		if revoke && cfg.Session.Store == config.SessionStoreRedis {
			if err := revokeSessions(ctx, cfg, u); err != nil {
				ui.PrintWarning("sessions not revoked: " + err.Error())
				return nil
			}
			ui.PrintInfo("Existing sessions revoked")
		}
		return nil
	})
}

func runHash(cmd *cobra.Command, _ []string) error {
	plain, _ := cmd.Flags().GetString("password")
	algo, _ := cmd.Flags().GetString("algo")
	cost, _ := cmd.Flags().GetInt("cost")

	hasher, err := password.New(algo, cost)
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}

	if plain == "" {
		plain, err = ui.RunPasswordPrompt("Password to hash")
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
	}

	hash, err := hasher.Hash(plain)
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		err := fmt.Errorf("migrations apply to the %s driver only, DB_DRIVER is %s", config.DriverPostgres, cfg.Database.Driver)
		ui.PrintError(err.Error())
		return err
	}

	ctx := contextOrBackground(cmd.Context())
	sqlDB, err := database.OpenPostgres(ctx, database.PostgresOptions{
		DSN:          cfg.Database.ConnectionString(),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}
	defer sqlDB.Close()

	if err := database.Migrate(ctx, sqlDB); err != nil {
		ui.PrintError(err.Error())
		return err
	}

	ui.PrintSuccess("Migrations applied")
	return nil
}

// withStore loads configuration, opens the credential store and runs fn
func withStore(ctx context.Context, fn func(context.Context, *config.Config, *user.Store, password.Hasher) error) error {
	ctx = contextOrBackground(ctx)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return fmt.Errorf("DB_DRIVER=%s has no persistent store to administer", cfg.Database.Driver)
	}

	hasher, err := password.New(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	store, err := user.OpenStore(ctx, cfg.Database, false)
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}
	defer store.Close(context.Background())

	return fn(ctx, cfg, store, hasher)
}

func revokeSessions(ctx context.Context, cfg *config.Config, u *user.User) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping Redis: %w", err)
	}
	manager := session.NewRedisManager(client, session.Options{Secret: cfg.Session.Secret})
	return manager.RevokeUser(ctx, u.ID)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
