package main

import (
	"context"
	crand "crypto/rand"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tourguide/internal/adapters/google"
	server "tourguide/internal/adapters/http_server"
	"tourguide/internal/adapters/observability"
	redisad "tourguide/internal/adapters/redis"
	"tourguide/internal/app"
	"tourguide/internal/domain"
	"tourguide/internal/i18n"
	"tourguide/internal/shared"
	"tourguide/internal/storage/jsonfile"
	"tourguide/internal/storage/memory"
	mysqlstore "tourguide/internal/storage/mysql"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// data
	catalog := jsonfile.Load(cfg.DataFile)
	translator := i18n.New(jsonfile.LoadTranslations(cfg.TranslationsFile))
	log.Info().
		Int("places", len(catalog.Places)).
		Int("itineraries", len(catalog.Itineraries)).
		Msg("catalog loaded")

	// credential store: durable when MYSQL_DSN is set, in-memory otherwise
	var creds domain.CredentialStore
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		creds = mysqlstore.New(db)
	} else {
		creds = memory.New()
	}

	// deps
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, filter results will not be cached across processes")
	}
	provider := google.New(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	auth := app.NewAuthService(creds, provider)
	cat := app.NewCatalogService(catalog, cache, cfg.CacheTTL)

	if seed := jsonfile.LoadUsers(cfg.UsersFile); len(seed) > 0 {
		if err := auth.SeedLocalUsers(context.Background(), seed); err != nil {
			log.Fatal().Err(err).Msg("seeding local users failed")
		}
		log.Info().Int("users", len(seed)).Msg("local users seeded")
	}

	tokens := server.NewTokenIssuer(jwtSecret(cfg.JWTSecret), cfg.SessionTTL)

	// http
	srv := server.New(cfg.CORSOrigins)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Cat: cat, Auth: auth, Trans: translator, Tokens: tokens})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func jwtSecret(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	b := make([]byte, 32)
	if _, err := crand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("generating ephemeral JWT secret failed")
	}
	return b
}
