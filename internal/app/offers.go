package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"boat_rental/internal/domain"
)

// OfferService builds shareable commercial offers: a boat snapshot plus a
// date range plus a price computed for the offer audience. The snapshot is
// frozen at creation so later re-parses never change what the client saw.
type OfferService struct {
	offers domain.OfferRepository
	boats  domain.BoatRepository
	client domain.SearchClient
	query  *QueryService
	site   string
	log    zerolog.Logger
}

func NewOfferService(offers domain.OfferRepository, boats domain.BoatRepository, client domain.SearchClient, query *QueryService, site string, log zerolog.Logger) *OfferService {
	if site == "" {
		site = "https://www.boataround.com"
	}
	return &OfferService{
		offers: offers,
		boats:  boats,
		client: client,
		query:  query,
		site:   site,
		log:    log.With().Str("component", "offers").Logger(),
	}
}

// CreateQuickOffer creates an offer for a boat slug with minimal input.
// Role decides which offer types are allowed; branding silently drops to
// default when the account's plan does not cover the requested mode.
func (s *OfferService) CreateQuickOffer(ctx context.Context, user *domain.User, p domain.NewOfferParams) (domain.Offer, error) {
	if p.Slug == "" {
		return domain.Offer{}, fmt.Errorf("slug is required: %w", domain.ErrInvalidInput)
	}
	if p.CheckIn.IsZero() || p.CheckOut.IsZero() {
		return domain.Offer{}, fmt.Errorf("check-in and check-out are required: %w", domain.ErrInvalidInput)
	}
	if !p.CheckOut.After(p.CheckIn) {
		return domain.Offer{}, fmt.Errorf("check-out must be after check-in: %w", domain.ErrInvalidInput)
	}
	if !p.OfferType.Valid() {
		return domain.Offer{}, fmt.Errorf("unknown offer type %q: %w", p.OfferType, domain.ErrInvalidInput)
	}
	switch p.OfferType {
	case domain.OfferTourist:
		if !user.CanCreateTouristOffers() {
			return domain.Offer{}, fmt.Errorf("tourist offers: %w", domain.ErrForbidden)
		}
	case domain.OfferCaptain:
		if !user.CanCreateCaptainOffers() {
			return domain.Offer{}, fmt.Errorf("captain offers: %w", domain.ErrForbidden)
		}
	}

	branding := p.BrandingMode
	if branding == "" {
		branding = domain.BrandingDefault
	}
	if !branding.Valid() {
		return domain.Offer{}, fmt.Errorf("unknown branding mode %q: %w", p.BrandingMode, domain.ErrInvalidInput)
	}
	// Requested branding the plan does not cover is downgraded, not rejected.
	if branding == domain.BrandingNone && !user.CanUseNoBranding() {
		branding = domain.BrandingDefault
	}
	if branding == domain.BrandingCustom && !user.CanUseCustomBranding() {
		branding = domain.BrandingDefault
	}

	ci := p.CheckIn.Format("2006-01-02")
	co := p.CheckOut.Format("2006-01-02")

	// Make sure the boat is parsed and cached; the offer page is served
	// from the snapshot but detail links resolve through the local copy.
	if _, err := s.query.GetBoat(ctx, p.Slug, domain.Languages[0], false); err != nil {
		return domain.Offer{}, fmt.Errorf("load boat %s: %w", p.Slug, err)
	}

	payload := s.boatPayload(ctx, p.Slug, ci, co)

	quote, err := s.client.GetPrice(ctx, p.Slug, ci, co, "EUR", domain.Languages[0])
	if err != nil {
		s.log.Warn().Err(err).Str("slug", p.Slug).Msg("price quote unavailable, falling back to search payload")
	}

	charter := s.charterFor(ctx, p.Slug)

	// Overwrite the snapshot pricing with the quoted values so the frozen
	// payload and the stored totals agree.
	var apiTotal float64
	if quote.Price > 0 {
		apiTotal = FinalPriceWithDiscounts(quote.Price, quote.DiscountWithoutExtra, quote.AdditionalDiscount, charter)
		payload["price"] = quote.Price
		payload["discount"] = quote.DiscountWithoutExtra
		payload["totalPrice"] = apiTotal
	}
	normalizePayloadImages(payload, s.query.imageBase)

	var (
		total         float64
		originalPrice *float64
		discount      float64
		hasMeal       bool
	)
	switch p.OfferType {
	case domain.OfferCaptain:
		total = apiTotal
		if total == 0 {
			total = quote.Price
		}
		if total == 0 {
			total = firstNum(payload, "totalPrice", "price")
		}
		discount = quote.DiscountWithoutExtra
	case domain.OfferTourist:
		in := TouristPriceInput{
			TotalPrice:   firstNum(payload, "totalPrice", "price"),
			Price:        lookupNum(payload, "price"),
			Discount:     lookupNum(payload, "discount"),
			Country:      lookupStr(payload, "country"),
			Category:     lookupStr(payload, "category"),
			Marina:       lookupStr(payload, "marina"),
			Length:       lookupNum(payload, "parameters.length"),
			Berths:       int(firstNum(payload, "parameters.max_sleeps", "parameters.berths")),
			DoubleCabins: int(lookupNum(payload, "parameters.double_cabins")),
			Meal:         p.HasMeal,
		}
		res := TouristPrice(in, p.CheckIn, p.CheckOut)
		total = res.TotalPrice
		op := res.OriginalPrice
		originalPrice = &op
		discount = res.Discount
		hasMeal = p.HasMeal
	}
	if total == 0 {
		return domain.Offer{}, fmt.Errorf("no price available for %s on %s..%s: %w", p.Slug, ci, co, domain.ErrInvalidInput)
	}

	title := firstStrAlias(payload, cardNameAliases)
	if title == "" {
		title = quote.Title
	}
	if title == "" {
		title = "Аренда яхты " + p.Slug
	}
	currency := lookupStr(payload, "currency")
	if currency == "" {
		currency = "EUR"
	}

	snapshot, err := json.Marshal(payload)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("snapshot boat data: %w", err)
	}

	offer := domain.Offer{
		UUID:          uuid.NewString(),
		CreatedBy:     user.ID,
		OfferType:     p.OfferType,
		BrandingMode:  branding,
		SourceURL:     fmt.Sprintf("%s/ru/yachta/%s/?checkIn=%s&checkOut=%s&currency=EUR", s.site, p.Slug, ci, co),
		CheckIn:       p.CheckIn,
		CheckOut:      p.CheckOut,
		BoatData:      snapshot,
		TotalPrice:    total,
		OriginalPrice: originalPrice,
		Discount:      discount,
		Currency:      currency,
		Title:         title,
		Notes:         p.Notes,
		HasMeal:       hasMeal,
		ShowCountdown: true,
	}
	created, err := s.offers.CreateOffer(ctx, offer)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("store offer: %w", err)
	}
	s.log.Info().Str("uuid", created.UUID).Str("slug", p.Slug).Str("type", string(p.OfferType)).Float64("total", total).Msg("offer created")
	return created, nil
}

// GetShared resolves an offer by its public UUID and counts the view.
// Deactivated and expired offers are indistinguishable from missing ones.
func (s *OfferService) GetShared(ctx context.Context, id string) (domain.Offer, error) {
	offer, err := s.offers.GetOfferByUUID(ctx, id)
	if err != nil {
		return domain.Offer{}, err
	}
	if !offer.IsActive || offer.Expired(time.Now()) {
		return domain.Offer{}, domain.ErrNotFound
	}
	if err := s.offers.IncrementOfferViews(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("uuid", id).Msg("view count update failed")
	} else {
		offer.ViewsCount++
	}
	return offer, nil
}

func (s *OfferService) ListMine(ctx context.Context, userID int64, limit int) ([]domain.Offer, error) {
	return s.offers.ListOffersByUser(ctx, userID, limit)
}

// Delete deactivates an offer. Only the creator or an admin may do it;
// the row stays around so already-shared links fail softly.
func (s *OfferService) Delete(ctx context.Context, user *domain.User, id string) error {
	offer, err := s.offers.GetOfferByUUID(ctx, id)
	if err != nil {
		return err
	}
	if offer.CreatedBy != user.ID && !user.IsAdmin() {
		return fmt.Errorf("offer %s: %w", id, domain.ErrForbidden)
	}
	return s.offers.DeactivateOffer(ctx, id)
}

// boatPayload fetches the raw search card for the slug and dates. The raw
// upstream shape is kept because the tourist calculator and the offer page
// both read vendor keys the normalized card drops.
func (s *OfferService) boatPayload(ctx context.Context, slug, ci, co string) map[string]any {
	res, err := s.client.Search(ctx, domain.SearchQuery{
		Slug:     slug,
		CheckIn:  ci,
		CheckOut: co,
		Lang:     domain.Languages[0],
		Currency: "EUR",
		Limit:    1,
	})
	if err != nil || len(res.Boats) == 0 {
		if err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("offer search payload unavailable")
		}
		return map[string]any{"slug": slug}
	}
	payload := res.Boats[0]
	if payload == nil {
		payload = map[string]any{}
	}
	if _, ok := payload["slug"]; !ok {
		payload["slug"] = slug
	}
	return payload
}

func (s *OfferService) charterFor(ctx context.Context, slug string) *domain.Charter {
	boat, err := s.boats.GetBoatBySlug(ctx, slug)
	if err != nil || boat.CharterID == nil {
		return nil
	}
	ch, err := s.boats.GetCharter(ctx, *boat.CharterID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn().Err(err).Str("slug", slug).Msg("charter lookup failed")
		}
		return nil
	}
	return &ch
}

// normalizePayloadImages flattens whichever image list the card carries
// into payload["images"] with absolute URLs.
func normalizePayloadImages(payload map[string]any, imageBase string) {
	var urls []string
	seen := map[string]bool{}
	for _, key := range []string{"images", "pictures", "gallery"} {
		list, ok := payload[key].([]any)
		if !ok {
			continue
		}
		for _, it := range list {
			raw, ok := it.(string)
			if !ok || raw == "" {
				continue
			}
			u := normalizeImageURL(raw, imageBase)
			if u != "" && !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	if len(urls) > 0 {
		payload["images"] = urls
	}
}
