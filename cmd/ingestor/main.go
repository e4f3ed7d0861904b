package main

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"boat_rental/internal/adapters/boataround"
	"boat_rental/internal/adapters/observability"
	redisad "boat_rental/internal/adapters/redis"
	"boat_rental/internal/domain"
	"boat_rental/internal/shared"
	pgrepo "boat_rental/internal/storage/postgres"
)

// The ingestor walks the upstream search for each configured destination
// and enqueues every slug it finds. Workers drain the queue and do the
// actual page parsing.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve()

	dests := splitList(cfg.Destinations)
	if len(dests) == 0 {
		log.Fatal().Msg("INGEST_DESTINATIONS is empty, nothing to import")
	}

	log.Info().
		Str("base", cfg.APIBase).
		Strs("destinations", dests).
		Int("max_pages", cfg.MaxPages).
		Bool("skip_existing", cfg.SkipExisting).
		Msg("ingestor starting")

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
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	queue := redisad.NewQueue(cache.Client(), cfg.ParseQueueName)

	var queued, skipped int
	for _, dest := range dests {
		q := domain.SearchQuery{
			Destination: dest,
			CheckIn:     cfg.CheckIn,
			CheckOut:    cfg.CheckOut,
			Lang:        domain.Languages[0],
			Currency:    "EUR",
			Limit:       50,
			Page:        1,
		}
		for {
			res, err := client.Search(ctx, q)
			if err != nil {
				log.Error().Err(err).Str("destination", dest).Int("page", q.Page).Msg("search page failed")
				break
			}
			for _, boat := range res.Boats {
				slug, _ := boat["slug"].(string)
				if slug == "" {
					continue
				}
				if cfg.SkipExisting {
					if ok, err := repo.BoatExists(ctx, slug); err == nil && ok {
						skipped++
						continue
					}
				}
				if err := queue.Enqueue(ctx, domain.ParseJob{Slug: slug, Attempt: 1}); err != nil {
					log.Error().Err(err).Str("slug", slug).Msg("enqueue failed")
					continue
				}
				queued++
			}
			log.Info().Str("destination", dest).Int("page", q.Page).Int("of", res.TotalPages).Int("boats", len(res.Boats)).Msg("page scanned")

			if q.Page >= res.TotalPages || len(res.Boats) == 0 {
				break
			}
			if cfg.MaxPages > 0 && q.Page >= cfg.MaxPages {
				break
			}
			q.Page++
		}
	}

	if n, err := queue.Len(ctx); err == nil {
		observability.SetQueueDepth(n)
	}
	log.Info().Int("queued", queued).Int("skipped", skipped).Msg("ingestion queue filled")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
