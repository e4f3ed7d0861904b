package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

type BoatRepository interface {
	// Write paths. UpsertBoat is the parent row; everything else hangs off
	// its id and must be written after it.
	UpsertBoat(ctx context.Context, b Boat) (int64, error)
	UpsertSpecs(ctx context.Context, s BoatSpecs) error
	UpsertDescription(ctx context.Context, d BoatDescription) error
	UpsertDetails(ctx context.Context, d BoatDetails) error
	UpsertPrice(ctx context.Context, p BoatPrice) error
	ReplaceGallery(ctx context.Context, boatID int64, photos []BoatPhoto) error
	MarkParseFailure(ctx context.Context, slug string) error
	LogParseMiss(ctx context.Context, slug string, status int, reason string) error

	// Read paths
	GetBoatBySlug(ctx context.Context, slug string) (Boat, error)
	GetBoatView(ctx context.Context, slug, lang string) (BoatView, error)
	BoatExists(ctx context.Context, slug string) (bool, error)
	ListStaleSlugs(ctx context.Context, olderThanHours, limit int) ([]string, error)

	GetOrCreateCharter(ctx context.Context, charterID, name, logo string) (Charter, error)
	GetCharter(ctx context.Context, id int64) (Charter, error)
}

type OfferRepository interface {
	CreateOffer(ctx context.Context, o Offer) (Offer, error)
	GetOfferByUUID(ctx context.Context, uuid string) (Offer, error)
	IncrementOfferViews(ctx context.Context, uuid string) error
	ListOffersByUser(ctx context.Context, userID int64, limit int) ([]Offer, error)
	DeactivateOffer(ctx context.Context, uuid string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)

	AddFavorite(ctx context.Context, userID int64, slug string) error
	RemoveFavorite(ctx context.Context, userID int64, slug string) error
	ListFavorites(ctx context.Context, userID int64) ([]Favorite, error)
}

// SearchClient is the upstream REST API surface.
type SearchClient interface {
	Search(ctx context.Context, q SearchQuery) (RawSearchResult, error)
	GetPrice(ctx context.Context, slug, checkIn, checkOut, currency, lang string) (PriceQuote, error)
	Autocomplete(ctx context.Context, query, lang string, limit int) ([]Destination, error)
	Equipment(ctx context.Context, slug, lang string) (EquipmentLists, error)
}

// BoatParser runs one full scrape of a boat page (all languages).
type BoatParser interface {
	ParseBoat(ctx context.Context, slug string) (ParsedBoatData, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ParseJob is one unit of bulk-import work.
type ParseJob struct {
	Slug    string `json:"slug"`
	Attempt int    `json:"attempt"`
}

// ParseQueue is the broker between the ingestor and the workers.
type ParseQueue interface {
	Enqueue(ctx context.Context, job ParseJob) error
	// Dequeue blocks up to its internal poll timeout; ok is false when the
	// queue stayed empty.
	Dequeue(ctx context.Context) (ParseJob, bool, error)
	Len(ctx context.Context) (int64, error)
}
