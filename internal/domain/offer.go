package domain

import "time"

type OfferType string

const (
	OfferTourist OfferType = "tourist" // simplified, client-facing
	OfferCaptain OfferType = "captain" // detailed, everything visible
)

func (t OfferType) Valid() bool { return t == OfferTourist || t == OfferCaptain }

type BrandingMode string

const (
	BrandingDefault BrandingMode = "default"
	BrandingNone    BrandingMode = "no_branding"
	BrandingCustom  BrandingMode = "custom_branding"
)

func (m BrandingMode) Valid() bool {
	return m == BrandingDefault || m == BrandingNone || m == BrandingCustom
}

// Offer is a commercial snapshot of a boat + date range + price, shareable
// by UUID. BoatData freezes the boat payload at creation time so the offer
// survives later re-parses.
type Offer struct {
	ID            int64
	UUID          string
	CreatedBy     int64
	OfferType     OfferType
	BrandingMode  BrandingMode
	SourceURL     string
	CheckIn       time.Time
	CheckOut      time.Time
	BoatData      []byte
	TotalPrice    float64
	OriginalPrice *float64
	Discount      float64
	Currency      string
	Title         string
	Notes         string
	HasMeal       bool
	ShowCountdown bool
	CreatedAt     time.Time
	ExpiresAt     *time.Time
	ViewsCount    int
	IsActive      bool
}

func (o *Offer) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// NewOfferParams is the validated input for quick offer creation.
type NewOfferParams struct {
	Slug         string
	OfferType    OfferType
	BrandingMode BrandingMode
	CheckIn      time.Time
	CheckOut     time.Time
	HasMeal      bool
	Notes        string
}
