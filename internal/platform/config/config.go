package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Addr       string
	AdminToken string

	// DatabaseURL selects the Postgres-backed stores; when empty the
	// in-memory stores are used (dev and tests).
	DatabaseURL string

	// RedisURL selects the Redis cache; when empty an in-process cache is
	// used instead.
	RedisURL string

	// KafkaBrokers enables the queued aggregate-refresh consumer when
	// non-empty. Refreshes run synchronously otherwise.
	KafkaBrokers []string
	KafkaTopic   string

	// RegistryBaseURL points at the external company registry. Empty means
	// the deterministic mock client is used.
	RegistryBaseURL string
	RegistryTimeout time.Duration

	RegistryCacheTTL  time.Duration
	DuplicateCacheTTL time.Duration

	FuzzyCandidateLimit int
}

// FromEnv builds a Config from environment variables, applying development
// defaults where unset.
func FromEnv() Config {
	cfg := Config{
		Addr:                envOr("PROSREG_ADDR", ":8080"),
		AdminToken:          envOr("PROSREG_ADMIN_TOKEN", "dev-admin-token"),
		DatabaseURL:         os.Getenv("PROSREG_DATABASE_URL"),
		RedisURL:            os.Getenv("PROSREG_REDIS_URL"),
		KafkaTopic:          envOr("PROSREG_KAFKA_TOPIC", "prosreg.offender-refresh"),
		RegistryBaseURL:     os.Getenv("PROSREG_REGISTRY_URL"),
		RegistryTimeout:     envDuration("PROSREG_REGISTRY_TIMEOUT", 5*time.Second),
		RegistryCacheTTL:    envDuration("PROSREG_REGISTRY_CACHE_TTL", 12*time.Hour),
		DuplicateCacheTTL:   envDuration("PROSREG_DUPLICATE_CACHE_TTL", 10*time.Minute),
		FuzzyCandidateLimit: envInt("PROSREG_FUZZY_CANDIDATES", 10),
	}
	if brokers := os.Getenv("PROSREG_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
