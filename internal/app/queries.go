package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"boat_rental/internal/domain"
)

type QueryService struct {
	repo      domain.BoatRepository
	cache     domain.Cache
	client    domain.SearchClient
	ingest    *IngestionService
	cacheTTL  time.Duration
	boatTTL   time.Duration
	imageBase string
	log       zerolog.Logger
}

func NewQueryService(r domain.BoatRepository, c domain.Cache, cl domain.SearchClient, ing *IngestionService, cacheTTL, boatTTL time.Duration, imageBase string, log zerolog.Logger) *QueryService {
	if boatTTL <= 0 {
		boatTTL = 24 * time.Hour
	}
	return &QueryService{
		repo:      r,
		cache:     c,
		client:    cl,
		ingest:    ing,
		cacheTTL:  cacheTTL,
		boatTTL:   boatTTL,
		imageBase: imageBase,
		log:       log.With().Str("component", "query").Logger(),
	}
}

// Search proxies the upstream search and normalizes every hit into a
// BoatCard, resolving charters so the commission pricing step applies.
// Whole pages are cached briefly; upstream search is slow and popular
// queries repeat.
func (s *QueryService) Search(ctx context.Context, q domain.SearchQuery) (domain.SearchPage, error) {
	key := searchKey(q)
	var page domain.SearchPage
	if ok, _ := s.cache.Get(ctx, key, &page); ok {
		return page, nil
	}

	res, err := s.client.Search(ctx, q)
	if err != nil {
		return domain.SearchPage{}, err
	}

	// charters repeat across a result page; resolve each once
	charters := map[string]*domain.Charter{}
	cards := make([]domain.BoatCard, 0, len(res.Boats))
	for _, raw := range res.Boats {
		card, pricing := CardFromPayload(raw, s.imageBase)
		var charter *domain.Charter
		if card.CharterName != "" {
			ckey := card.CharterID
			if ckey == "" {
				ckey = card.CharterName
			}
			if ch, seen := charters[ckey]; seen {
				charter = ch
			} else if got, err := s.repo.GetOrCreateCharter(ctx, ckey, card.CharterName, card.CharterLogo); err == nil {
				charter = &got
				charters[ckey] = charter
			}
		}
		finishCardPrice(&card, pricing, charter)
		cards = append(cards, card)
	}

	page = domain.SearchPage{
		Boats:      cards,
		Total:      res.Total,
		Page:       res.Page,
		TotalPages: res.TotalPages,
	}
	_ = s.cache.Set(ctx, key, page, int(s.cacheTTL.Seconds()))
	return page, nil
}

// GetBoat serves the detail view read-through: hot cache, then the
// database while the last parse is fresh, otherwise a synchronous
// re-parse. A failed re-parse degrades to the stale row rather than a
// 5xx, matching how the listing upstream flaps.
func (s *QueryService) GetBoat(ctx context.Context, slug, lang string, forceRefresh bool) (domain.BoatView, error) {
	key := fmt.Sprintf("boat:%s:%s", slug, lang)
	if !forceRefresh {
		var bv domain.BoatView
		if ok, _ := s.cache.Get(ctx, key, &bv); ok {
			bv.FromCache = true
			return bv, nil
		}
	}

	b, err := s.repo.GetBoatBySlug(ctx, slug)
	exists := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.BoatView{}, err
	}

	fresh := exists && b.LastParseSuccess && time.Since(b.LastParsed) < s.boatTTL
	if forceRefresh || !fresh {
		if perr := s.ingest.ParseAndStore(ctx, slug); perr != nil {
			if !exists {
				return domain.BoatView{}, perr
			}
			s.log.Warn().Err(perr).Str("slug", slug).Msg("re-parse failed, serving stale row")
		}
	}

	view, err := s.repo.GetBoatView(ctx, slug, lang)
	if err != nil {
		return domain.BoatView{}, err
	}
	// gallery rows keep the relative CDN paths the parser found
	for i, u := range view.Images {
		view.Images[i] = normalizeImageURL(u, s.imageBase)
	}
	view.FromCache = exists && !forceRefresh && fresh
	_ = s.cache.Set(ctx, key, view, int(s.cacheTTL.Seconds()))
	return view, nil
}

func (s *QueryService) Autocomplete(ctx context.Context, query, lang string, limit int) ([]domain.Destination, error) {
	key := fmt.Sprintf("autocomplete:%s:%s:%d", query, lang, limit)
	var out []domain.Destination
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := s.client.Autocomplete(ctx, query, lang, limit)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func searchKey(q domain.SearchQuery) string {
	return fmt.Sprintf("search:%s:%s:%s:%s:%s:%s:%s:%d:%d:%s:%s",
		q.CheckIn, q.CheckOut, q.Destination, q.Category, q.Cabins, q.Year,
		q.Price, q.Page, q.Limit, q.Sort, q.Lang)
}
