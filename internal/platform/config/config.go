// Package config builds runtime configuration from environment variables so
// main stays lean. Every value has a development default; production
// deployments override through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"passgate/internal/registry/models"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Registry captures the pass registry bounds and the fixed admin identity.
type Registry struct {
	Admin          string
	MetadataMaxLen int
	BulkLimit      int
}

// Auth captures caller-identity token verification settings.
type Auth struct {
	JWTSigningKey string
	Issuer        string
}

// Postgres captures the registry database settings. Empty DSN selects the
// in-memory store.
type Postgres struct {
	DSN string
}

// Redis captures the details cache settings. Empty URL disables the cache.
type Redis struct {
	URL          string
	CacheTTL     time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures audit publishing settings. Empty broker list disables the
// outbox worker (events still accumulate in the outbox).
type Kafka struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Registry Registry
	Auth     Auth
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("PASSGATE_ADDR", ":8080"),
			ShutdownTimeout: envDuration("PASSGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Registry: Registry{
			Admin:          envString("PASSGATE_ADMIN", "admin"),
			MetadataMaxLen: envInt("PASSGATE_METADATA_MAX_LEN", models.DefaultMetadataMaxLen),
			BulkLimit:      envInt("PASSGATE_BULK_LIMIT", models.DefaultBulkLimit),
		},
		Auth: Auth{
			// Development default - must be overridden in production.
			JWTSigningKey: envString("PASSGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envString("PASSGATE_JWT_ISSUER", "passgate"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("PASSGATE_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("PASSGATE_REDIS_URL"),
			CacheTTL:     envDuration("PASSGATE_CACHE_TTL", 5*time.Minute),
			PoolSize:     envInt("PASSGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PASSGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("PASSGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PASSGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PASSGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:      envList("PASSGATE_KAFKA_BROKERS"),
			Topic:        envString("PASSGATE_KAFKA_TOPIC", "registry.audit"),
			PollInterval: envDuration("PASSGATE_KAFKA_POLL_INTERVAL", 2*time.Second),
		},
	}
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
