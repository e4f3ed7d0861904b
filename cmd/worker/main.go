package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"boat_rental/internal/adapters/boataround"
	"boat_rental/internal/adapters/observability"
	redisad "boat_rental/internal/adapters/redis"
	"boat_rental/internal/app"
	"boat_rental/internal/shared"
	pgrepo "boat_rental/internal/storage/postgres"
)

// The worker drains the parse queue filled by the ingestor: each job is
// one boat page scraped in every language and stored.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := pgrepo.New(db)
	client := boataround.NewClient(cfg.APIBase, cfg.APIRPS)
	parser := boataround.NewParser(cfg.SiteBase, cfg.APIRPS, client, log.Logger)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	queue := redisad.NewQueue(cache.Client(), cfg.ParseQueueName)
	ing := app.NewIngestionService(parser, repo, cache, queue, cfg.MaxRetries, log.Logger)

	// hourly sweep: boats past the TTL or with a failed last parse go
	// back on the queue
	go func() {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			slugs, err := repo.ListStaleSlugs(ctx, cfg.BoatTTLHours, 500)
			if err != nil {
				log.Error().Err(err).Msg("stale sweep failed")
				continue
			}
			for _, slug := range slugs {
				if err := ing.Enqueue(ctx, slug); err != nil {
					log.Error().Err(err).Str("slug", slug).Msg("stale requeue failed")
				}
			}
			if len(slugs) > 0 {
				log.Info().Int("requeued", len(slugs)).Msg("stale boats requeued")
			}
		}
	}()

	log.Info().Int("workers", cfg.Workers).Str("queue", cfg.ParseQueueName).Msg("worker starting")
	if err := ing.Run(ctx, cfg.Workers); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("worker stopped")
	}
	log.Info().Msg("worker drained, bye")
}
