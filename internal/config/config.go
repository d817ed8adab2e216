package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	ServerAddr    string
	WebOrigin     string
	SessionTTL    time.Duration
}

// Load reads .env (if present) then the environment. The DSN comes from
// DATABASE_URL or is assembled from the DB_* parts.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseDSN:   databaseDSN(),
		RedisAddr:     get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		ServerAddr:    get("SERVER_ADDR", ":8080"),
		WebOrigin:     get("WEB_ORIGIN", "http://localhost:3000"),
		SessionTTL:    sessionTTL(),
	}
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func databaseDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		get("DB_HOST", "127.0.0.1"),
		get("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		get("DB_NAME", "inventaire"),
		get("DB_PORT", "5432"),
	)
}

func sessionTTL() time.Duration {
	ttl := 24 * time.Hour
	if v := os.Getenv("SESSION_TTL_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			ttl = d
		}
	}
	return ttl
}
