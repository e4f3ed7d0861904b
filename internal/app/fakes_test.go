package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"boat_rental/internal/domain"
)

// In-memory doubles for the repository, cache, upstream client, parser
// and queue. Just enough behavior to drive the services.

type fakeRepo struct {
	mu        sync.Mutex
	boats     map[string]domain.Boat
	views     map[string]domain.BoatView // slug:lang
	charters  map[string]domain.Charter
	galleries map[int64][]string
	nextID    int64

	upserts  int
	failures []string
	misses   []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		boats:     map[string]domain.Boat{},
		views:     map[string]domain.BoatView{},
		charters:  map[string]domain.Charter{},
		galleries: map[int64][]string{},
	}
}

func (r *fakeRepo) UpsertBoat(_ context.Context, b domain.Boat) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.boats[b.Slug]
	if ok {
		b.ID = existing.ID
	} else {
		r.nextID++
		b.ID = r.nextID
	}
	b.LastParseSuccess = true
	b.LastParsed = time.Now()
	r.boats[b.Slug] = b
	r.upserts++
	return b.ID, nil
}

func (r *fakeRepo) UpsertSpecs(context.Context, domain.BoatSpecs) error { return nil }

func (r *fakeRepo) UpsertDescription(_ context.Context, d domain.BoatDescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for slug, b := range r.boats {
		if b.ID == d.BoatID {
			r.views[slug+":"+d.Language] = domain.BoatView{
				BoatID:   b.BoatID,
				Slug:     slug,
				Language: d.Language,
				Title:    d.Title,
				Country:  d.Country,
			}
		}
	}
	return nil
}

func (r *fakeRepo) UpsertDetails(context.Context, domain.BoatDetails) error { return nil }
func (r *fakeRepo) UpsertPrice(context.Context, domain.BoatPrice) error    { return nil }
func (r *fakeRepo) ReplaceGallery(_ context.Context, boatID int64, photos []domain.BoatPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		urls = append(urls, p.URL)
	}
	r.galleries[boatID] = urls
	return nil
}

func (r *fakeRepo) MarkParseFailure(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, slug)
	if b, ok := r.boats[slug]; ok {
		b.LastParseSuccess = false
		r.boats[slug] = b
	}
	return nil
}

func (r *fakeRepo) LogParseMiss(_ context.Context, slug string, _ int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses = append(r.misses, slug)
	return nil
}

func (r *fakeRepo) GetBoatBySlug(_ context.Context, slug string) (domain.Boat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boats[slug]
	if !ok {
		return domain.Boat{}, domain.ErrNotFound
	}
	return b, nil
}

func (r *fakeRepo) GetBoatView(_ context.Context, slug, lang string) (domain.BoatView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[slug+":"+lang]
	if !ok {
		v, ok = r.views[slug+":"+domain.Languages[0]]
		if !ok {
			return domain.BoatView{}, domain.ErrNotFound
		}
		v.Language = lang
	}
	if b, ok := r.boats[slug]; ok {
		v.Images = append([]string(nil), r.galleries[b.ID]...)
	}
	return v, nil
}

func (r *fakeRepo) BoatExists(_ context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.boats[slug]
	return ok, nil
}

func (r *fakeRepo) ListStaleSlugs(context.Context, int, int) ([]string, error) { return nil, nil }

func (r *fakeRepo) GetOrCreateCharter(_ context.Context, charterID, name, logo string) (domain.Charter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.charters[charterID]; ok {
		return ch, nil
	}
	r.nextID++
	ch := domain.Charter{
		ID:         r.nextID,
		CharterID:  charterID,
		Name:       name,
		Logo:       logo,
		Commission: domain.DefaultCharterCommission,
	}
	r.charters[charterID] = ch
	return ch, nil
}

func (r *fakeRepo) GetCharter(_ context.Context, id int64) (domain.Charter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.charters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return domain.Charter{}, domain.ErrNotFound
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.sets++
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type fakeClient struct {
	mu          sync.Mutex
	searchRes   domain.RawSearchResult
	searchErr   error
	searchCalls int
	lastQuery   domain.SearchQuery

	quote      domain.PriceQuote
	quoteErr   error
	priceCalls int
	lastPrice  []string // slug, checkIn, checkOut, currency, lang

	autoRes []domain.Destination
}

func (c *fakeClient) Search(_ context.Context, q domain.SearchQuery) (domain.RawSearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchCalls++
	c.lastQuery = q
	return c.searchRes, c.searchErr
}

func (c *fakeClient) GetPrice(_ context.Context, slug, checkIn, checkOut, currency, lang string) (domain.PriceQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.priceCalls++
	c.lastPrice = []string{slug, checkIn, checkOut, currency, lang}
	return c.quote, c.quoteErr
}

func (c *fakeClient) Autocomplete(context.Context, string, string, int) ([]domain.Destination, error) {
	return c.autoRes, nil
}

func (c *fakeClient) Equipment(context.Context, string, string) (domain.EquipmentLists, error) {
	return domain.EquipmentLists{}, nil
}

type fakeParser struct {
	mu    sync.Mutex
	data  domain.ParsedBoatData
	err   error
	calls int
}

func (p *fakeParser) ParseBoat(_ context.Context, slug string) (domain.ParsedBoatData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return domain.ParsedBoatData{}, p.err
	}
	d := p.data
	if d.Slug == "" {
		d.Slug = slug
	}
	return d, nil
}

func (p *fakeParser) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []domain.ParseJob
}

func (q *fakeQueue) Enqueue(_ context.Context, job domain.ParseJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Dequeue(context.Context) (domain.ParseJob, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return domain.ParseJob{}, false, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true, nil
}

func (q *fakeQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

type fakeOffers struct {
	mu     sync.Mutex
	byUUID map[string]domain.Offer
	nextID int64
}

func newFakeOffers() *fakeOffers { return &fakeOffers{byUUID: map[string]domain.Offer{}} }

func (f *fakeOffers) CreateOffer(_ context.Context, o domain.Offer) (domain.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	o.IsActive = true
	f.byUUID[o.UUID] = o
	return o, nil
}

func (f *fakeOffers) GetOfferByUUID(_ context.Context, id string) (domain.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byUUID[id]
	if !ok {
		return domain.Offer{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeOffers) IncrementOfferViews(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byUUID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.ViewsCount++
	f.byUUID[id] = o
	return nil
}

func (f *fakeOffers) ListOffersByUser(_ context.Context, userID int64, _ int) ([]domain.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Offer
	for _, o := range f.byUUID {
		if o.CreatedBy == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) DeactivateOffer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byUUID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.IsActive = false
	f.byUUID[id] = o
	return nil
}
