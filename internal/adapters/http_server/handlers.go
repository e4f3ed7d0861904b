package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"boat_rental/internal/app"
	"boat_rental/internal/domain"
)

type Handlers struct {
	Q      *app.QueryService
	Offers *app.OfferService
	Users  domain.UserRepository
	Auth   *Auth
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/auth/register", h.Auth.register)
	s.mux.Post("/v1/auth/login", h.Auth.login)

	s.mux.Get("/v1/search", h.search)
	s.mux.Get("/v1/autocomplete", h.autocomplete)
	s.mux.Get("/v1/boats/{slug}", h.getBoat)

	// shared offers are public by design; the UUID is the capability
	s.mux.Get("/v1/offers/{uuid}", h.getSharedOffer)

	s.mux.Group(func(m chi.Router) {
		m.Use(h.Auth.RequireAuth)
		m.Post("/v1/boats/{slug}/offers", h.createOffer)
		m.Get("/v1/my-offers", h.listMyOffers)
		m.Delete("/v1/offers/{uuid}", h.deleteOffer)
		m.Post("/v1/favorites/{slug}", h.addFavorite)
		m.Delete("/v1/favorites/{slug}", h.removeFavorite)
		m.Get("/v1/favorites", h.listFavorites)
	})
}

// selectLang maps a language hint to one of the site locales; everything
// unknown falls back to the primary.
func selectLang(hint string) string {
	switch s := strings.ToLower(hint); {
	case strings.HasPrefix(s, "en"):
		return "en_EN"
	case strings.HasPrefix(s, "de"):
		return "de_DE"
	case strings.HasPrefix(s, "fr"):
		return "fr_FR"
	case strings.HasPrefix(s, "es"):
		return "es_ES"
	default:
		return "ru_RU"
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps domain sentinels to HTTP problems.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "not allowed for this account")
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "resource already exists")
	default:
		writeProblem(w, http.StatusBadGateway, "Upstream error", "the listing source did not answer")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	page, _ := strconv.Atoi(qp.Get("page"))
	limit, _ := strconv.Atoi(qp.Get("limit"))
	if limit < 0 || limit > 50 {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be between 1 and 50")
		return
	}
	lang := qp.Get("lang")
	if lang == "" {
		lang = selectLang(r.Header.Get("Accept-Language"))
	}
	q := domain.SearchQuery{
		CheckIn:     qp.Get("checkIn"),
		CheckOut:    qp.Get("checkOut"),
		Destination: qp.Get("destination"),
		Category:    qp.Get("category"),
		Cabins:      qp.Get("cabins"),
		Year:        qp.Get("year"),
		Price:       qp.Get("price"),
		Page:        page,
		Limit:       limit,
		Sort:        qp.Get("sort"),
		Lang:        lang,
		Currency:    "EUR",
	}
	out, err := h.Q.Search(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeWithETag(w, r, out)
}

func (h *Handlers) autocomplete(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid query", "q is required")
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = selectLang(r.Header.Get("Accept-Language"))
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.Q.Autocomplete(r.Context(), query, lang, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getBoat(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = selectLang(r.Header.Get("Accept-Language"))
	} else if !containsLang(lang) {
		lang = selectLang(lang)
	}
	refresh := r.URL.Query().Get("refresh") == "1"

	view, err := h.Q.GetBoat(r.Context(), slug, lang, refresh)
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(view)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Language", view.Language)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getBoat body")
	}
}

func containsLang(lang string) bool {
	for _, l := range domain.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

type createOfferRequest struct {
	OfferType    string `json:"offer_type"`
	BrandingMode string `json:"branding_mode,omitempty"`
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	HasMeal      bool   `json:"has_meal,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type offerResponse struct {
	UUID          string          `json:"uuid"`
	OfferType     string          `json:"offer_type"`
	BrandingMode  string          `json:"branding_mode"`
	SourceURL     string          `json:"source_url,omitempty"`
	CheckIn       string          `json:"check_in"`
	CheckOut      string          `json:"check_out"`
	Boat          json.RawMessage `json:"boat"`
	TotalPrice    float64         `json:"total_price"`
	OriginalPrice *float64        `json:"original_price,omitempty"`
	Discount      float64         `json:"discount"`
	Currency      string          `json:"currency"`
	Title         string          `json:"title"`
	HasMeal       bool            `json:"has_meal"`
	ShowCountdown bool            `json:"show_countdown"`
	ViewsCount    int             `json:"views_count"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
}

func offerToResponse(o domain.Offer, includeSource bool) offerResponse {
	resp := offerResponse{
		UUID:          o.UUID,
		OfferType:     string(o.OfferType),
		BrandingMode:  string(o.BrandingMode),
		CheckIn:       o.CheckIn.Format("2006-01-02"),
		CheckOut:      o.CheckOut.Format("2006-01-02"),
		Boat:          json.RawMessage(o.BoatData),
		TotalPrice:    o.TotalPrice,
		OriginalPrice: o.OriginalPrice,
		Discount:      o.Discount,
		Currency:      o.Currency,
		Title:         o.Title,
		HasMeal:       o.HasMeal,
		ShowCountdown: o.ShowCountdown,
		ViewsCount:    o.ViewsCount,
		CreatedAt:     o.CreatedAt,
		ExpiresAt:     o.ExpiresAt,
	}
	if includeSource {
		resp.SourceURL = o.SourceURL
	}
	return resp
}

func (h *Handlers) createOffer(w http.ResponseWriter, r *http.Request) {
	var in createOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "malformed JSON")
		return
	}
	ci, err := time.Parse("2006-01-02", in.CheckIn)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_in must be YYYY-MM-DD")
		return
	}
	co, err := time.Parse("2006-01-02", in.CheckOut)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_out must be YYYY-MM-DD")
		return
	}
	offer, err := h.Offers.CreateQuickOffer(r.Context(), userFrom(r.Context()), domain.NewOfferParams{
		Slug:         chi.URLParam(r, "slug"),
		OfferType:    domain.OfferType(in.OfferType),
		BrandingMode: domain.BrandingMode(in.BrandingMode),
		CheckIn:      ci,
		CheckOut:     co,
		HasMeal:      in.HasMeal,
		Notes:        in.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offerToResponse(offer, true))
}

func (h *Handlers) getSharedOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.Offers.GetShared(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	// clients never see where the snapshot came from
	writeJSON(w, http.StatusOK, offerToResponse(offer, false))
}

func (h *Handlers) listMyOffers(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offers, err := h.Offers.ListMine(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerToResponse(o, true))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deleteOffer(w http.ResponseWriter, r *http.Request) {
	err := h.Offers.Delete(r.Context(), userFrom(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if err := h.Users.AddFavorite(r.Context(), user.ID, chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if err := h.Users.RemoveFavorite(r.Context(), user.ID, chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	favs, err := h.Users.ListFavorites(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}
