package main

import (
	"database/sql"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"boat_rental/internal/adapters/boataround"
	server "boat_rental/internal/adapters/http_server"
	"boat_rental/internal/adapters/observability"
	redisad "boat_rental/internal/adapters/redis"
	"boat_rental/internal/app"
	"boat_rental/internal/shared"
	pgrepo "boat_rental/internal/storage/postgres"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := pgrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	client := boataround.NewClient(cfg.APIBase, cfg.APIRPS)
	parser := boataround.NewParser(cfg.SiteBase, cfg.APIRPS, client, log.Logger)
	queue := redisad.NewQueue(cache.Client(), cfg.ParseQueueName)
	ing := app.NewIngestionService(parser, repo, cache, queue, cfg.MaxRetries, log.Logger)
	boatTTL := time.Duration(cfg.BoatTTLHours) * time.Hour
	q := app.NewQueryService(repo, cache, client, ing, cfg.CacheTTL, boatTTL, cfg.ImageBase, log.Logger)
	offers := app.NewOfferService(repo, repo, client, q, cfg.SiteBase, log.Logger)
	auth := server.NewAuth(repo, cfg.JWTSecret, cfg.SessionDuration)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Offers: offers, Users: repo, Auth: auth})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
