package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"boat_rental/internal/domain"
)

type queryFixture struct {
	repo   *fakeRepo
	cache  *fakeCache
	client *fakeClient
	parser *fakeParser
	ingest *IngestionService
	svc    *QueryService
}

func newQueryFixture() *queryFixture {
	f := &queryFixture{
		repo:   newFakeRepo(),
		cache:  newFakeCache(),
		client: &fakeClient{},
		parser: &fakeParser{},
	}
	f.ingest = NewIngestionService(f.parser, f.repo, f.cache, &fakeQueue{}, 3, zerolog.Nop())
	f.svc = NewQueryService(f.repo, f.cache, f.client, f.ingest, 15*time.Minute, 24*time.Hour, imgBase, zerolog.Nop())
	return f
}

func parsedFixture(slug string) domain.ParsedBoatData {
	return domain.ParsedBoatData{
		BoatID:    "64a1b2c3d4e5f6a7b8c9d0e1",
		Slug:      slug,
		SourceURL: "https://www.boataround.com/ru/yachta/" + slug + "/",
		Info: domain.ParsedBoatInfo{
			Title:   "Lagoon 380 S2 | Aride",
			Country: "Seychelles",
		},
		Descriptions: map[string]domain.ParsedLocalizedText{
			domain.Languages[0]: {Title: "Lagoon 380 S2 | Aride"},
		},
		CharterName: "Dream Yacht",
		CharterID:   "ch-77",
	}
}

func TestSearchMapsCardsAndCachesPage(t *testing.T) {
	f := newQueryFixture()
	f.client.searchRes = domain.RawSearchResult{
		Boats: []map[string]any{
			{
				"_id":        "b1",
				"slug":       "lagoon-380",
				"title":      "Lagoon 380",
				"price":      float64(1200),
				"totalPrice": float64(1000),
				"charter":    map[string]any{"name": "Dream Yacht", "_id": "ch-77"},
			},
			{
				"_id":   "b2",
				"slug":  "bavaria-46",
				"title": "Bavaria 46",
				"price": float64(900),
			},
		},
		Total:      2,
		Page:       1,
		TotalPages: 1,
	}
	ctx := context.Background()
	q := domain.SearchQuery{Destination: "seychelles", CheckIn: "2026-09-05", CheckOut: "2026-09-12"}

	page, err := f.svc.Search(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Boats, 2)

	// default commission 20 grants the extra 5% on the quoted total
	first := page.Boats[0]
	require.Equal(t, 950, first.Price)
	require.Equal(t, 1200, first.OldPrice)
	require.Equal(t, "Dream Yacht", first.CharterName)

	// no charter means the plain discount chain, here no discounts at all
	require.Equal(t, 900, page.Boats[1].Price)

	// second identical query is served from cache
	again, err := f.svc.Search(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 950, again.Boats[0].Price)
	require.Equal(t, 2, again.Total)
	require.Equal(t, 1, f.client.searchCalls)
}

func TestGetBoatServedFromHotCache(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()
	cached := domain.BoatView{Slug: "lagoon-380", Language: "de_DE", Title: "Lagoon 380"}
	require.NoError(t, f.cache.Set(ctx, "boat:lagoon-380:de_DE", cached, 60))

	view, err := f.svc.GetBoat(ctx, "lagoon-380", "de_DE", false)
	require.NoError(t, err)
	require.True(t, view.FromCache)
	require.Equal(t, "Lagoon 380", view.Title)
	require.Equal(t, 0, f.parser.callCount())
}

func TestGetBoatFreshRowSkipsParse(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()
	f.parser.data = parsedFixture("lagoon-380")
	require.NoError(t, f.ingest.ParseAndStore(ctx, "lagoon-380"))
	require.Equal(t, 1, f.parser.callCount())

	view, err := f.svc.GetBoat(ctx, "lagoon-380", "en_EN", false)
	require.NoError(t, err)
	require.True(t, view.FromCache)
	require.Equal(t, "Lagoon 380 S2 | Aride", view.Title)
	require.Equal(t, 1, f.parser.callCount())
}

func TestGetBoatStaleRowTriggersReparse(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()
	f.parser.data = parsedFixture("lagoon-380")
	require.NoError(t, f.ingest.ParseAndStore(ctx, "lagoon-380"))

	// age the row past the TTL
	f.repo.mu.Lock()
	b := f.repo.boats["lagoon-380"]
	b.LastParsed = time.Now().Add(-25 * time.Hour)
	f.repo.boats["lagoon-380"] = b
	f.repo.mu.Unlock()

	view, err := f.svc.GetBoat(ctx, "lagoon-380", "ru_RU", false)
	require.NoError(t, err)
	require.False(t, view.FromCache)
	require.Equal(t, 2, f.parser.callCount())
}

func TestGetBoatReparseFailureServesStaleRow(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()
	f.parser.data = parsedFixture("lagoon-380")
	require.NoError(t, f.ingest.ParseAndStore(ctx, "lagoon-380"))

	f.repo.mu.Lock()
	b := f.repo.boats["lagoon-380"]
	b.LastParsed = time.Now().Add(-25 * time.Hour)
	f.repo.boats["lagoon-380"] = b
	f.repo.mu.Unlock()

	f.parser.mu.Lock()
	f.parser.err = errors.New("upstream flapped")
	f.parser.mu.Unlock()

	view, err := f.svc.GetBoat(ctx, "lagoon-380", "ru_RU", false)
	require.NoError(t, err)
	require.Equal(t, "Lagoon 380 S2 | Aride", view.Title)
}

func TestGetBoatUnknownSlugFailsWhenParseFails(t *testing.T) {
	f := newQueryFixture()
	f.parser.err = domain.ErrNotFound

	_, err := f.svc.GetBoat(context.Background(), "no-such-boat", "ru_RU", false)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Contains(t, f.repo.misses, "no-such-boat")
}

func TestGetBoatGalleryURLsAbsolute(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()
	f.parser.data = parsedFixture("lagoon-380")
	f.parser.data.Pictures = []string{
		"boats/64a1b2c3d4e5f6a7b8c9d0e1/a1.jpg",
		"https://cdn.example/b2.jpg",
	}

	view, err := f.svc.GetBoat(ctx, "lagoon-380", "ru_RU", false)
	require.NoError(t, err)
	// relative CDN paths resolve against the bare host, absolute ones pass
	require.Equal(t, []string{
		imgBase + "/boats/64a1b2c3d4e5f6a7b8c9d0e1/a1.jpg",
		"https://cdn.example/b2.jpg",
	}, view.Images)
}

func TestGetBoatForceRefreshBypassesCache(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()
	f.parser.data = parsedFixture("lagoon-380")
	require.NoError(t, f.ingest.ParseAndStore(ctx, "lagoon-380"))

	_, err := f.svc.GetBoat(ctx, "lagoon-380", "ru_RU", false)
	require.NoError(t, err)
	require.Equal(t, 1, f.parser.callCount())

	view, err := f.svc.GetBoat(ctx, "lagoon-380", "ru_RU", true)
	require.NoError(t, err)
	require.False(t, view.FromCache)
	require.Equal(t, 2, f.parser.callCount())
}

func TestAutocompleteCached(t *testing.T) {
	f := newQueryFixture()
	f.client.autoRes = []domain.Destination{{Slug: "split", Name: "Split"}}
	ctx := context.Background()

	out, err := f.svc.Autocomplete(ctx, "spl", "en_EN", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)

	f.client.autoRes = nil
	out, err = f.svc.Autocomplete(ctx, "spl", "en_EN", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Split", out[0].Name)
}
