package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"boat_rental/internal/adapters/observability"
	"boat_rental/internal/domain"
)

type IngestionService struct {
	parser     domain.BoatParser
	repo       domain.BoatRepository
	cache      domain.Cache
	queue      domain.ParseQueue
	maxRetries int
	log        zerolog.Logger
}

func NewIngestionService(p domain.BoatParser, r domain.BoatRepository, cache domain.Cache, q domain.ParseQueue, maxRetries int, log zerolog.Logger) *IngestionService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &IngestionService{
		parser:     p,
		repo:       r,
		cache:      cache,
		queue:      q,
		maxRetries: maxRetries,
		log:        log.With().Str("component", "ingest").Logger(),
	}
}

// ParseAndStore runs one full scrape of slug and persists every piece:
// parent row first, then specs, localized descriptions and details,
// price, gallery. The boat's cache entries are evicted afterwards.
func (s *IngestionService) ParseAndStore(ctx context.Context, slug string) error {
	start := time.Now()

	data, err := s.parser.ParseBoat(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.repo.LogParseMiss(ctx, slug, 404, "not found")
			_ = s.repo.MarkParseFailure(ctx, slug)
			s.invalidateBoat(ctx, slug)
			return fmt.Errorf("parse %s: %w", slug, domain.ErrNotFound)
		}
		_ = s.repo.MarkParseFailure(ctx, slug)
		return fmt.Errorf("parse %s: %w", slug, err)
	}

	var charterID *int64
	if data.CharterID != "" || data.CharterName != "" {
		key := data.CharterID
		if key == "" {
			key = data.CharterName
		}
		ch, err := s.repo.GetOrCreateCharter(ctx, key, data.CharterName, data.CharterLogo)
		if err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("charter upsert failed")
		} else {
			charterID = &ch.ID
		}
	}

	raw, _ := json.Marshal(data)
	boat := domain.Boat{
		BoatID:       data.BoatID,
		Slug:         data.Slug,
		SourceURL:    data.SourceURL,
		CharterID:    charterID,
		Manufacturer: strPtr(data.Info.Manufacturer),
		Model:        strPtr(data.Info.Model),
		Year:         intPtr(data.Info.Year),
		RawJSON:      raw,
	}
	id, err := s.repo.UpsertBoat(ctx, boat)
	if err != nil {
		return fmt.Errorf("upsert boat %s: %w", slug, err)
	}

	if err := s.repo.UpsertSpecs(ctx, specsFromInfo(id, data.Info)); err != nil {
		return fmt.Errorf("upsert specs %s: %w", slug, err)
	}

	for _, lang := range domain.Languages {
		s.storeLanguage(ctx, id, lang, data)
	}

	if p := data.Prices.TotalPrice; p > 0 {
		if err := s.repo.UpsertPrice(ctx, domain.BoatPrice{
			BoatID:      id,
			Currency:    data.Prices.Currency,
			PricePerDay: float64(p),
		}); err != nil {
			return fmt.Errorf("upsert price %s: %w", slug, err)
		}
	}

	photos := make([]domain.BoatPhoto, 0, len(data.Pictures))
	for i, p := range data.Pictures {
		photos = append(photos, domain.BoatPhoto{BoatID: id, URL: p, Order: i + 1})
	}
	if err := s.repo.ReplaceGallery(ctx, id, photos); err != nil {
		return fmt.Errorf("replace gallery %s: %w", slug, err)
	}

	s.invalidateBoat(ctx, slug)

	s.log.Info().
		Str("slug", slug).
		Str("boat_id", data.BoatID).
		Int("images", len(data.Pictures)).
		Int("price", data.Prices.TotalPrice).
		Dur("took", time.Since(start)).
		Msg("boat stored")
	return nil
}

// storeLanguage writes the localized description and details, filling
// gaps from the primary language so every row has usable text.
func (s *IngestionService) storeLanguage(ctx context.Context, id int64, lang string, data domain.ParsedBoatData) {
	text := data.Descriptions[lang]
	if text.Title == "" {
		text.Title = data.Info.Title
	}
	if text.Description == "" {
		text.Description = data.Info.Description
	}
	if text.Location == "" {
		text.Location = data.Info.Location
	}
	if text.Marina == "" {
		text.Marina = data.Info.Marina
	}
	if err := s.repo.UpsertDescription(ctx, domain.BoatDescription{
		BoatID:      id,
		Language:    lang,
		Title:       text.Title,
		Description: text.Description,
		Location:    text.Location,
		Marina:      text.Marina,
		Country:     data.Info.Country,
	}); err != nil {
		s.log.Warn().Err(err).Str("lang", lang).Msg("description upsert failed")
	}

	svc := data.Services[lang]
	eq := data.Equipment[lang]
	if err := s.repo.UpsertDetails(ctx, domain.BoatDetails{
		BoatID:             id,
		Language:           lang,
		Extras:             svc.Extras,
		AdditionalServices: svc.AdditionalServices,
		DeliveryExtras:     svc.DeliveryExtras,
		NotIncluded:        svc.NotIncluded,
		Cockpit:            marshalItems(eq.Cockpit),
		Entertainment:      marshalItems(eq.Entertainment),
		Equipment:          marshalItems(eq.Equipment),
	}); err != nil {
		s.log.Warn().Err(err).Str("lang", lang).Msg("details upsert failed")
	}
}

func (s *IngestionService) invalidateBoat(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	for _, lang := range domain.Languages {
		_ = s.cache.Del(ctx, fmt.Sprintf("boat:%s:%s", slug, lang))
	}
}

// Enqueue schedules a fresh parse of slug.
func (s *IngestionService) Enqueue(ctx context.Context, slug string) error {
	return s.queue.Enqueue(ctx, domain.ParseJob{Slug: slug, Attempt: 1})
}

// Run consumes the parse queue until ctx is done, processing at most
// `workers` jobs concurrently. Failed jobs go back on the queue with a
// bumped attempt counter; exhausted ones are recorded as misses.
func (s *IngestionService) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 5
	}
	sem := semaphore.NewWeighted(int64(workers))

	for {
		if err := ctx.Err(); err != nil {
			break
		}
		job, ok, err := s.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.Error().Err(err).Msg("dequeue failed")
			sleepCtx(ctx, time.Second)
			continue
		}
		if !ok {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func(job domain.ParseJob) {
			defer sem.Release(1)
			s.processJob(ctx, job)
		}(job)

		if n, err := s.queue.Len(ctx); err == nil {
			observability.SetQueueDepth(n)
		}
	}

	// drain in-flight jobs
	_ = sem.Acquire(context.Background(), int64(workers))
	return ctx.Err()
}

func (s *IngestionService) processJob(ctx context.Context, job domain.ParseJob) {
	start := time.Now()
	err := s.ParseAndStore(ctx, job.Slug)
	if err == nil {
		observability.ObserveParse("ok", time.Since(start))
		return
	}

	// a 404 never heals; retrying wastes upstream quota
	if errors.Is(err, domain.ErrNotFound) {
		observability.ObserveParse("failed", time.Since(start))
		s.log.Warn().Str("slug", job.Slug).Msg("boat gone upstream")
		return
	}

	if job.Attempt < s.maxRetries {
		observability.ObserveParse("retry", time.Since(start))
		s.log.Warn().Err(err).Str("slug", job.Slug).Int("attempt", job.Attempt).Msg("parse failed, requeueing")
		sleepCtx(ctx, time.Duration(1<<job.Attempt)*time.Second)
		if qerr := s.queue.Enqueue(ctx, domain.ParseJob{Slug: job.Slug, Attempt: job.Attempt + 1}); qerr != nil {
			s.log.Error().Err(qerr).Str("slug", job.Slug).Msg("requeue failed")
		}
		return
	}

	observability.ObserveParse("failed", time.Since(start))
	_ = s.repo.LogParseMiss(ctx, job.Slug, 0, trimReason(err))
	s.log.Error().Err(err).Str("slug", job.Slug).Int("attempt", job.Attempt).Msg("parse retries exhausted")
}

func trimReason(err error) string {
	msg := err.Error()
	if len(msg) > 250 {
		msg = msg[:250]
	}
	return msg
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

/********** coercion helpers **********/

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func floatPtr(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	s = strings.TrimSuffix(s, "m")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func specsFromInfo(id int64, info domain.ParsedBoatInfo) domain.BoatSpecs {
	return domain.BoatSpecs{
		BoatID:        id,
		Length:        floatPtr(info.Length),
		Beam:          floatPtr(info.Beam),
		Draft:         floatPtr(info.Draft),
		Cabins:        intPtr(info.Cabins),
		Berths:        intPtr(info.Berths),
		Toilets:       intPtr(info.Toilets),
		FuelCapacity:  intPtr(info.Fuel),
		WaterCapacity: intPtr(info.WaterTank),
		MaxSpeed:      floatPtr(info.MaxSpeed),
		EnginePower:   intPtr(info.EnginePower),
		NumberEngines: intPtr(info.NumberEngines),
		EngineType:    strPtr(info.EngineType),
		RenovatedYear: intPtr(info.RenovatedYear),
	}
}

func marshalItems(items []domain.NamedItem) []byte {
	if len(items) == 0 {
		return nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return b
}
