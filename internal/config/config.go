package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser  string
	DBPass  string
	DBHost  string
	DBPort  string
	DBName  string
	SSLMode string

	RedisHost string
	RedisPort string

	NatsHost string
	NatsPort string

	ApiPort    string
	ApiEnabled string

	// P2PCommission toggles commission charging on user-to-user
	// transfers. The business rule has flipped more than once, so it
	// stays a deploy-time policy flag rather than a constant.
	P2PCommission bool

	SessionTTL time.Duration
}

// New loads and validates configuration from environment variables.
// HTTP server is optional: if CAPYPAY_API_ENABLED != "true", ApiAddr() returns
// an error and the HTTP server simply won't start.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:        os.Getenv("CAPYPAY_POSTGRES_USER"),
		DBPass:        os.Getenv("CAPYPAY_POSTGRES_PASSWORD"),
		DBHost:        os.Getenv("CAPYPAY_POSTGRES_HOST"),
		DBPort:        os.Getenv("CAPYPAY_POSTGRES_PORT"),
		DBName:        os.Getenv("CAPYPAY_POSTGRES_DB"),
		SSLMode:       os.Getenv("CAPYPAY_POSTGRES_SSLMODE"),
		RedisHost:     os.Getenv("CAPYPAY_REDIS_HOST"),
		RedisPort:     os.Getenv("CAPYPAY_REDIS_PORT"),
		NatsHost:      os.Getenv("CAPYPAY_NATS_HOST"),
		NatsPort:      os.Getenv("CAPYPAY_NATS_PORT"),
		ApiPort:       os.Getenv("CAPYPAY_API_PORT"),
		ApiEnabled:    os.Getenv("CAPYPAY_API_ENABLED"),
		P2PCommission: os.Getenv("CAPYPAY_P2P_COMMISSION") == "true",
		SessionTTL:    getEnvDuration("CAPYPAY_SESSION_TTL", 24*time.Hour),
	}

	// Required: database
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
		return nil, fmt.Errorf("missing required env for database: CAPYPAY_POSTGRES_USER/HOST/DB/SSLMODE")
	}

	// Required: redis
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil, fmt.Errorf("missing required env for redis: CAPYPAY_REDIS_HOST/PORT")
	}

	// Required: nats (notifications bus and kitchen commands)
	if cfg.NatsHost == "" || cfg.NatsPort == "" {
		return nil, fmt.Errorf("missing required env for nats: CAPYPAY_NATS_HOST/PORT")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

// ApiAddr returns the HTTP listen address if the API is enabled.
// Returns an error if CAPYPAY_API_ENABLED != "true" — callers should skip
// starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("CAPYPAY_API_PORT is required when CAPYPAY_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (CAPYPAY_API_ENABLED != true)")
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
