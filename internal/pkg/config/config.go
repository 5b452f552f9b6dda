package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	SMTP  SMTPConfig
}

type AuthConfig struct {
	JWTSecret          string        `env:"JWT_SECRET"`
	JWTTTL             time.Duration `env:"JWT_TTL,              default=168h"`
	BcryptCost         int           `env:"BCRYPT_COST,          default=10"`
	OTPTTL             time.Duration `env:"OTP_TTL,              default=15m"`
	PhoneRegion        string        `env:"PHONE_REGION,         default=US"`
	PermissionCacheTTL time.Duration `env:"PERMISSION_CACHE_TTL, default=5m"`
	AdminEmail         string        `env:"ADMIN_EMAIL"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity_system"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// SMTPConfig configures the outbound relay. An empty Host logs mail instead of sending it.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,    default=587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM,    default=no-reply@localhost"`
	Workers  int    `env:"MAIL_WORKERS, default=4"`
}

// Production reports whether the service runs in the production environment.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Production() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Auth.JWTTTL <= 0 {
		return fmt.Errorf("config: JWT_TTL must be positive")
	}
	if c.Auth.OTPTTL < 0 {
		return fmt.Errorf("config: OTP_TTL must not be negative")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
