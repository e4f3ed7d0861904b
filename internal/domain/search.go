package domain

// SearchQuery mirrors the upstream search parameters the UI exposes.
// Cabins, Year and Price accept single values, comma lists or X-Y ranges,
// passed through verbatim.
type SearchQuery struct {
	CheckIn     string
	CheckOut    string
	Destination string
	Category    string
	Cabins      string
	Year        string
	Price       string
	Page        int
	Limit       int
	Sort        string
	Lang        string
	Slug        string // exact-match lookup, used by equipment fetches
	Currency    string
}

// BoatCard is one normalized search result. Upstream payloads are
// heterogeneous; the mapper flattens them into this shape.
type BoatCard struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Name            string   `json:"name"`
	Marina          string   `json:"marina,omitempty"`
	Country         string   `json:"country,omitempty"`
	Region          string   `json:"region,omitempty"`
	City            string   `json:"city,omitempty"`
	Location        string   `json:"location,omitempty"`
	Price           int      `json:"price"`
	OldPrice        int      `json:"old_price,omitempty"`
	DiscountPercent int      `json:"discount_percent,omitempty"`
	PricePerDay     int      `json:"price_per_day,omitempty"`
	Currency        string   `json:"currency"`
	Image           string   `json:"image,omitempty"`
	Images          []string `json:"images"`
	Cabins          int      `json:"cabins"`
	Berths          int      `json:"berths"`
	Length          float64  `json:"length"`
	Year            int      `json:"year,omitempty"`
	Category        string   `json:"category,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	CharterName     string   `json:"charter,omitempty"`
	CharterID       string   `json:"-"`
	CharterLogo     string   `json:"charter_logo,omitempty"`
}

type SearchPage struct {
	Boats      []BoatCard `json:"boats"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

// RawSearchResult is the unwrapped upstream search envelope before card
// normalization. Boats keep their original heterogeneous shape.
type RawSearchResult struct {
	Boats      []map[string]any
	Total      int
	Page       int
	TotalPages int
	Filter     map[string]any
}

// Destination is one autocomplete suggestion.
type Destination struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Kind  string `json:"kind,omitempty"`
	Count int    `json:"count,omitempty"`
}

// PriceQuote is the upstream pricing for one boat + date range, before the
// local discount chain runs.
type PriceQuote struct {
	Price                float64
	TotalPrice           float64
	Discount             float64
	DiscountWithoutExtra float64
	AdditionalDiscount   float64
	Currency             string
	Title                string
}

// EquipmentLists is the per-language filter block of the search response.
type EquipmentLists struct {
	Cockpit       []NamedItem
	Entertainment []NamedItem
	Equipment     []NamedItem
}

type NamedItem struct {
	Name string `json:"name"`
}

// ParsedBoatData is everything one full parse of a boat yields.
type ParsedBoatData struct {
	BoatID       string
	Slug         string
	SourceURL    string
	Info         ParsedBoatInfo
	Prices       ParsedPrices
	Pictures     []string
	Descriptions map[string]ParsedLocalizedText // keyed by language
	Services     map[string]ParsedServices
	Equipment    map[string]EquipmentLists
	CharterName  string
	CharterID    string
	CharterLogo  string
}

// ParsedBoatInfo is the flat technical parameter set scraped from the boat
// page. Everything is a string as extracted; the ingestion service does
// the numeric coercion on store.
type ParsedBoatInfo struct {
	Title         string
	Description   string
	Manufacturer  string
	Model         string
	Year          string
	Cabins        string
	Toilets       string
	Berths        string
	Length        string
	Beam          string
	Draft         string
	Location      string
	Marina        string
	Country       string
	EngineType    string
	EnginePower   string
	NumberEngines string
	Fuel          string
	WaterTank     string
	MaxSpeed      string
	RenovatedYear string
}

type ParsedPrices struct {
	TotalPrice int
	MinPrice   int
	OldPrice   int
	Discount   int
	Currency   string
}

type ParsedLocalizedText struct {
	Title       string
	Description string
	Location    string
	Marina      string
}

// ParsedServices are raw JSON arrays lifted out of the page components.
type ParsedServices struct {
	Extras             []byte
	AdditionalServices []byte
	DeliveryExtras     []byte
	NotIncluded        []byte
}
