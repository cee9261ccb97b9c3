package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	DataFile         string
	TranslationsFile string
	UsersFile        string

	MySQLDSN  string // empty -> in-memory credential store
	RedisAddr string
	RedisDB   int
	RedisPass string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	JWTSecret   string
	SessionTTL  time.Duration
	CacheTTL    time.Duration
	Workers     int
	CORSOrigins string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:             env("APP_ENV", "prod"),
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		MetricsAddr:        env("METRICS_ADDR", ":9100"),
		DataFile:           env("DATA_FILE", "places.json"),
		TranslationsFile:   env("TRANSLATIONS_FILE", "translations.json"),
		UsersFile:          env("USERS_FILE", "users.json"),
		MySQLDSN:           env("MYSQL_DSN", ""),
		RedisAddr:          env("REDIS_ADDR", "localhost:6379"),
		RedisPass:          env("REDIS_PASSWORD", ""),
		RedisDB:            atoi("REDIS_DB", 0),
		GoogleClientID:     env("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: env("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  env("GOOGLE_REDIRECT_URL", "http://localhost:8080/v1/auth/google/callback"),
		JWTSecret:          env("JWT_SECRET", ""),
		SessionTTL:         time.Duration(atoi("SESSION_TTL_SECONDS", 86400)) * time.Second,
		CacheTTL:           time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		Workers:            atoi("WARM_WORKERS", 8),
		CORSOrigins:        env("CORS_ORIGINS", "*"),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty, using an ephemeral secret; sessions will not survive restarts")
	}
	if c.GoogleClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID is empty; external login disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
