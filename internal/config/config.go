package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrMissingJWTSecret is returned when no signing key is configured.
	ErrMissingJWTSecret = errors.New("JWT_SECRET_KEY is not set")
	// ErrMissingDBURL is returned when no database URL is configured.
	ErrMissingDBURL = errors.New("DB_URL is not set")
	// ErrUnknownDriver is returned for a DB_DRIVER outside mysql, postgres and mongodb.
	ErrUnknownDriver = errors.New("DB_DRIVER must be one of mysql, postgres, mongodb")
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	DBDriver string `env:"DB_DRIVER" envDefault:"mysql"`
	DBURL    string `env:"DB_URL"`
	DBName   string `env:"DB_NAME" envDefault:"tasks"`
	ResetDB  bool   `env:"RESET_DB" envDefault:"false"`

	RedisAddr string `env:"REDIS_ADDR"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret      string        `env:"JWT_SECRET_KEY"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	SwaggerHost string `env:"SWAGGER_HOST"`

	Lambda LambdaConfig
}

// LambdaConfig is populated when running as an AWS Lambda function.
// Secrets are then read from Secrets Manager instead of plain variables.
type LambdaConfig struct {
	FunctionName      string `env:"AWS_LAMBDA_FUNCTION_NAME"`
	JWTSecretARN      string `env:"JWT_SECRET_KEY_SECRET_ARN"`
	DBSecretARN       string `env:"DB_SECRET_ARN"`
	DBClusterEndpoint string `env:"DB_CLUSTER_ENDPOINT"`
}

// InLambda reports whether the process runs inside AWS Lambda.
func (c *Config) InLambda() bool {
	return c.Lambda.FunctionName != ""
}

// Load reads an optional .env file and builds Config from the process environment.
func Load(ctx context.Context) (*Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()
	return LoadFromEnv(ctx, env.ToMap(os.Environ()), NewSecretsManager)
}

// LoadFromEnv builds Config from environ. newSecrets is only called inside Lambda.
func LoadFromEnv(ctx context.Context, environ map[string]string, newSecrets SecretsClientFactory) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.InLambda() && (cfg.Lambda.JWTSecretARN != "" || cfg.Lambda.DBSecretARN != "") {
		secrets, err := newSecrets(ctx)
		if err != nil {
			return nil, fmt.Errorf("secrets manager client: %w", err)
		}
		if err := resolveSecrets(ctx, cfg, secrets); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "mongodb":
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownDriver, c.DBDriver)
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.DBURL == "" {
		return ErrMissingDBURL
	}
	return nil
}
