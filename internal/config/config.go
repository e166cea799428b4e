// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"finflow-lending/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
// Every field maps to an environment variable, e.g. DB_DRIVER or JWT_EXPIRY.
type AppConfig struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	DB       db.Config      `envconfig:"DB"`
	JWT      JWTConfig      `envconfig:"JWT"`
	Auth     AuthConfig     `envconfig:"AUTH"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	RabbitMQ RabbitMQConfig `envconfig:"RABBITMQ"`
	Log      LogConfig      `envconfig:"LOG"`
	Lending  LendingConfig  `envconfig:"LENDING"`
}

type ServerConfig struct {
	Port            string        `default:"8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"10s"`
	IdleTimeout     time.Duration `split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

type JWTConfig struct {
	Secret string        `default:"change-me-in-production"`
	Expiry time.Duration `default:"30m"`
	Issuer string        `default:"finflow-lending"`
}

type AuthConfig struct {
	BcryptCost       int  `split_words:"true" default:"10"`
	AllowAdminSignup bool `split_words:"true" default:"false"`
}

// RedisConfig enables the read cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int           `default:"0"`
	TTL      time.Duration `default:"60s"`
}

// RabbitMQConfig enables event publishing when URL is set.
type RabbitMQConfig struct {
	URL      string
	Exchange string `default:"lending.events"`
}

type LogConfig struct {
	Level  string `default:"info"`
	Format string `default:"json"`
}

type LendingConfig struct {
	// StrictIdempotency rejects a replayed idempotency key whose loan or amount
	// differs from the stored repayment instead of returning the stored result.
	StrictIdempotency bool `split_words:"true" default:"false"`
}

// LoadConfig loads an optional .env file and then reads the environment.
func LoadConfig(envFiles ...string) (*AppConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logrus.Debug("No .env file found, using system environment variables")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	return &cfg, nil
}

// LogFields returns the loaded configuration with secrets masked.
func (c *AppConfig) LogFields() logrus.Fields {
	return logrus.Fields{
		"server_port":        c.Server.Port,
		"db_driver":          c.DB.Driver,
		"db_host":            c.DB.Host,
		"db_name":            c.DB.Name,
		"db_password":        maskValue(c.DB.Password),
		"jwt_secret":         maskValue(c.JWT.Secret),
		"jwt_expiry":         c.JWT.Expiry.String(),
		"redis_enabled":      c.Redis.Addr != "",
		"rabbitmq_enabled":   c.RabbitMQ.URL != "",
		"strict_idempotency": c.Lending.StrictIdempotency,
	}
}

func maskValue(v string) string {
	if len(v) <= 6 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}
