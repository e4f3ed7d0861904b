package domain

import "time"

// Languages the upstream site publishes boat pages in. The first entry is
// the canonical language used when a localized row is missing.
var Languages = []string{"ru_RU", "en_EN", "de_DE", "fr_FR", "es_ES"}

// Charter is the company operating a boat. Commission is a percent added
// on top of (or compared against) upstream discounts during pricing.
type Charter struct {
	ID         int64
	CharterID  string
	Name       string
	Logo       string
	Commission int
}

const DefaultCharterCommission = 20

// Boat is the cache row for one upstream listing. LastParsed plus
// LastParseSuccess drive the 24h TTL decision in the query service.
type Boat struct {
	ID               int64
	BoatID           string // upstream 24-hex id
	Slug             string
	SourceURL        string
	CharterID        *int64
	Manufacturer     *string
	Model            *string
	Year             *int
	RawJSON          []byte // full parsed payload as stored
	LastParsed       time.Time
	ParseCount       int
	LastParseSuccess bool
}

type BoatSpecs struct {
	BoatID        int64
	Length        *float64
	Beam          *float64
	Draft         *float64
	Cabins        *int
	Berths        *int
	Toilets       *int
	FuelCapacity  *int
	WaterCapacity *int
	MaxSpeed      *float64
	EnginePower   *int
	NumberEngines *int
	EngineType    *string
	FuelType      *string
	RenovatedYear *int
}

// BoatDescription holds the localized text fields. (boat, language) is
// unique in storage.
type BoatDescription struct {
	BoatID      int64
	Language    string
	Title       string
	Description string
	Location    string
	Marina      string
	Country     string
	Region      string
	City        string
}

// BoatDetails holds the localized service/equipment lists as raw JSON
// arrays, exactly as scraped.
type BoatDetails struct {
	BoatID             int64
	Language           string
	Extras             []byte
	AdditionalServices []byte
	DeliveryExtras     []byte
	NotIncluded        []byte
	Cockpit            []byte
	Entertainment      []byte
	Equipment          []byte
}

type BoatPrice struct {
	BoatID       int64
	Currency     string
	PricePerDay  float64
	PricePerWeek *float64
}

type BoatPhoto struct {
	BoatID int64
	URL    string
	Order  int
}

// BoatView is the assembled read model served by the detail endpoint.
type BoatView struct {
	BoatID       string          `json:"boat_id"`
	Slug         string          `json:"slug"`
	Language     string          `json:"language"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Manufacturer *string         `json:"manufacturer,omitempty"`
	Model        *string         `json:"model,omitempty"`
	Year         *int            `json:"year,omitempty"`
	Location     string          `json:"location,omitempty"`
	Marina       string          `json:"marina,omitempty"`
	Country      string          `json:"country,omitempty"`
	Region       string          `json:"region,omitempty"`
	City         string          `json:"city,omitempty"`
	Specs        *BoatSpecsView  `json:"specs,omitempty"`
	Price        *BoatPriceView  `json:"price,omitempty"`
	Images       []string        `json:"images"`
	Extras       []byte          `json:"-"`
	Services     BoatServicesRaw `json:"-"`
	Charter      *CharterView    `json:"charter,omitempty"`
	FromCache    bool            `json:"from_cache"`
	ParsedAt     time.Time       `json:"parsed_at"`
}

type BoatSpecsView struct {
	Length        *float64 `json:"length,omitempty"`
	Beam          *float64 `json:"beam,omitempty"`
	Draft         *float64 `json:"draft,omitempty"`
	Cabins        *int     `json:"cabins,omitempty"`
	Berths        *int     `json:"berths,omitempty"`
	Toilets       *int     `json:"toilets,omitempty"`
	FuelCapacity  *int     `json:"fuel_capacity,omitempty"`
	WaterCapacity *int     `json:"water_capacity,omitempty"`
	MaxSpeed      *float64 `json:"max_speed,omitempty"`
	EnginePower   *int     `json:"engine_power,omitempty"`
	NumberEngines *int     `json:"number_engines,omitempty"`
	EngineType    *string  `json:"engine_type,omitempty"`
}

type BoatPriceView struct {
	PerDay   float64 `json:"per_day"`
	Currency string  `json:"currency"`
}

type CharterView struct {
	Name       string `json:"name"`
	Logo       string `json:"logo,omitempty"`
	Commission int    `json:"commission"`
}

// BoatServicesRaw carries the localized JSON lists through to the detail
// response without re-decoding them.
type BoatServicesRaw struct {
	Extras             []byte
	AdditionalServices []byte
	DeliveryExtras     []byte
	NotIncluded        []byte
	Cockpit            []byte
	Entertainment      []byte
	Equipment          []byte
}

type Favorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	BoatSlug  string    `json:"boat_slug"`
	CreatedAt time.Time `json:"created_at"`
}
