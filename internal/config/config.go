package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported credential store drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Supported session stores
const (
	SessionStoreRedis  = "redis"
	SessionStoreCookie = "cookie"
)

// Supported password hashers
const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Auth     AuthConfig
	Email    EmailConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
}

type DatabaseConfig struct {
	Driver         string // postgres, mongo or memory
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	MaxOpenConns   int
	MaxIdleConns   int
	AutoMigrate    bool // apply SQL migrations at startup

	MongoURI      string
	MongoDatabase string

	// Only used by the memory driver
	SeedEmail    string
	SeedPassword string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	Store       string // redis or cookie
	Name        string
	Secret      []byte
	MaxLifetime time.Duration
	IdleTimeout time.Duration
}

type AuthConfig struct {
	Hasher            string
	BcryptCost        int
	MinPasswordLength int

	// PASETO symmetric key for reset tokens (must be 32 bytes for v4.local)
	ResetTokenKey      []byte
	ResetTokenTTL      time.Duration
	RequireResetToken  bool
	LoginMaxAttempts   int
	LoginWindow        time.Duration
	LoginLockDuration  time.Duration
	ResetIPLimit       int
	ResetIPWindow      time.Duration
	ResetEmailCooldown time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
	FrontendURL  string // Frontend URL for reset links
}

type LogConfig struct {
	Level      string
	File       string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:         strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "authdb"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", false),
			MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase:  getEnv("MONGO_DATABASE", "authdb"),
			SeedEmail:      getEnv("SEED_USER_EMAIL", ""),
			SeedPassword:   getEnv("SEED_USER_PASSWORD", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Store:       strings.ToLower(getEnv("SESSION_STORE", SessionStoreRedis)),
			Name:        getEnv("SESSION_COOKIE_NAME", "sid"),
			Secret:      []byte(getEnv("SESSION_SECRET", "")),
			MaxLifetime: getDurationEnv("SESSION_MAX_LIFETIME", 12*time.Hour),
			IdleTimeout: getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		},
		Auth: AuthConfig{
			Hasher:             strings.ToLower(getEnv("AUTH_HASHER", HasherBcrypt)),
			BcryptCost:         getIntEnv("AUTH_BCRYPT_COST", 10),
			MinPasswordLength:  getIntEnv("AUTH_MIN_PASSWORD_LENGTH", 1),
			ResetTokenKey:      []byte(getEnv("RESET_TOKEN_KEY", "")),
			ResetTokenTTL:      getDurationEnv("RESET_TOKEN_TTL", time.Hour),
			RequireResetToken:  getBoolEnv("AUTH_REQUIRE_RESET_TOKEN", false),
			LoginMaxAttempts:   getIntEnv("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:        getDurationEnv("LOGIN_WINDOW", 15*time.Minute),
			LoginLockDuration:  getDurationEnv("LOGIN_LOCK_DURATION", 10*time.Minute),
			ResetIPLimit:       getIntEnv("RESET_IP_LIMIT", 10),
			ResetIPWindow:      getDurationEnv("RESET_IP_WINDOW", 15*time.Minute),
			ResetEmailCooldown: getDurationEnv("RESET_EMAIL_COOLDOWN", 2*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FromAddress:  getEnv("SMTP_FROM", ""),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getIntEnv("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntEnv("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getIntEnv("LOG_MAX_AGE_DAYS", 28),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks option values and fills in generated secrets for development.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Session.Store {
	case SessionStoreRedis, SessionStoreCookie:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.Session.Store)
	}

	switch c.Auth.Hasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		return fmt.Errorf("unsupported AUTH_HASHER %q", c.Auth.Hasher)
	}

	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("AUTH_MIN_PASSWORD_LENGTH must be positive, got %d", c.Auth.MinPasswordLength)
	}

	if len(c.Session.Secret) == 0 && !c.Server.IsDevelopment() {
		return fmt.Errorf("SESSION_SECRET is required outside dev")
	}
	if len(c.Session.Secret) > 0 && len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.Session.Secret))
	}

	// Validate PASETO key length (must be 32 bytes for v4.local)
	if len(c.Auth.ResetTokenKey) == 0 && !c.Server.IsDevelopment() {
		return fmt.Errorf("RESET_TOKEN_KEY is required outside dev")
	}
	if len(c.Auth.ResetTokenKey) > 0 && len(c.Auth.ResetTokenKey) != 32 {
		return fmt.Errorf("RESET_TOKEN_KEY must be exactly 32 bytes, got %d", len(c.Auth.ResetTokenKey))
	}

	// Dev convenience: sessions and reset tokens do not survive a restart
	if len(c.Session.Secret) == 0 {
		c.Session.Secret = randomBytes(32)
	}
	if len(c.Auth.ResetTokenKey) == 0 {
		c.Auth.ResetTokenKey = randomBytes(32)
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// SMTPEnabled reports whether outgoing mail is configured
func (c *EmailConfig) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return b
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv reads whole seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
