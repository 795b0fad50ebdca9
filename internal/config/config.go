package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	DbURL         string
	SessionSecret string

	SessionTTL      time.Duration
	LockThreshold   int
	LockDuration    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	StoreTimeout    time.Duration
	SweepInterval   time.Duration
}

// IsProduction reports whether the process runs with production hardening
// (secure cookies) enabled.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the configuration from a .env file or environment variables and returns a Config struct.
// DATABASE_URL and SESSION_SECRET are required; everything else has a default.
func Load() (*Config, error) {
	// Try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	secret := os.Getenv("SESSION_SECRET")
	if dbURL == "" || secret == "" {
		return nil, fmt.Errorf("missing required environment variables: DATABASE_URL=%q, SESSION_SECRET set=%t", dbURL, secret != "")
	}

	cfg := &Config{
		Port:            envString("PORT", "3000"),
		Env:             envString("APP_ENV", "development"),
		DbURL:           dbURL,
		SessionSecret:   secret,
		SessionTTL:      envDuration("SESSION_TTL", 24*time.Hour),
		LockThreshold:   envInt("LOCK_THRESHOLD", 5),
		LockDuration:    envDuration("LOCK_DURATION", 60*time.Second),
		RateLimitMax:    envInt("LOGIN_RATE_LIMIT", 5),
		RateLimitWindow: envDuration("LOGIN_RATE_WINDOW", 60*time.Second),
		StoreTimeout:    envDuration("STORE_TIMEOUT", 5*time.Second),
		SweepInterval:   envDuration("SWEEP_INTERVAL", time.Minute),
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
