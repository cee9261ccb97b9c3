package main

import (
	"context"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tourguide/internal/adapters/observability"
	redisad "tourguide/internal/adapters/redis"
	"tourguide/internal/app"
	"tourguide/internal/domain"
	"tourguide/internal/shared"
	"tourguide/internal/storage/jsonfile"
)

// Precomputes the filter results every dropdown combination will ask for and
// writes them into the cache, so first page loads after a deploy hit warm
// entries.
func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	catalog := jsonfile.Load(cfg.DataFile)
	if len(catalog.Places) == 0 {
		log.Warn().Str("file", cfg.DataFile).Msg("catalog empty, nothing to warm")
		return
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	cat := app.NewCatalogService(catalog, cache, cfg.CacheTTL)

	var criteria []domain.FilterCriteria
	for _, d := range cat.Districts() {
		criteria = append(criteria, domain.FilterCriteria{District: d, Category: domain.FilterAll})
	}
	for _, c := range cat.Categories() {
		criteria = append(criteria, domain.FilterCriteria{District: domain.FilterAll, Category: c})
	}

	log.Info().Int("combinations", len(criteria)).Int("workers", cfg.Workers).Msg("warmer starting")

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	for _, c := range criteria {
		c := c

		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(crit domain.FilterCriteria) {
			defer wg.Done()
			defer sem.Release(1)

			n := len(cat.FilterPlaces(ctx, crit))
			log.Info().Str("district", crit.District).Str("category", crit.Category).Int("places", n).Msg("warmed")
		}(c)
	}

	wg.Wait()
	log.Info().Msg("warming completed")
}
