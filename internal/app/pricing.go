package app

import (
	"math"
	"strings"
	"time"

	"boat_rental/internal/domain"
)

// Tourist offer surcharge schedule, in EUR.
const (
	insuranceRate  = 0.10
	insuranceMin   = 400
	turkeyBase     = 4400
	seychellesBase = 4500
	defaultBase    = 4500
	praslinExtra   = 400
	lengthExtra    = 200 // hulls over 14.2m
	cookPrice      = 1400
	turkeyDishBase     = 150
	seychellesDishBase = 210
	defaultDishBase    = 210
	maxDoubleCabinsFree  = 4
	doubleCabinExtra     = 180
	catamaranLengthExtra = 500 // Turkey, over 13.8m
	sailingLengthExtra   = 300
)

func isTurkey(country string) bool {
	c := strings.ToLower(country)
	return c == "turkey" || c == "турция"
}

func isSeychelles(country string) bool {
	c := strings.ToLower(country)
	return c == "seychelles" || c == "сейшелы"
}

func isCatamaran(category string) bool {
	c := strings.ToLower(category)
	return strings.Contains(c, "catamaran") || strings.Contains(c, "катамаран")
}

func isSailing(category string) bool {
	c := strings.ToLower(category)
	return strings.Contains(c, "sailing") || strings.Contains(c, "парусная")
}

// FinalPriceWithDiscounts chains the two upstream discounts, then grants
// an extra cut when the additional discount stayed below the charter's
// commission. The commission itself is never added to the price; it only
// gates the extra step.
func FinalPriceWithDiscounts(basePrice, discountWithoutExtra, additionalDiscount float64, charter *domain.Charter) float64 {
	if basePrice == 0 {
		return 0
	}
	price := basePrice
	if discountWithoutExtra != 0 {
		price *= 1 - discountWithoutExtra/100
	}
	if additionalDiscount != 0 {
		price *= 1 - additionalDiscount/100
	}
	if charter != nil && charter.Commission != 0 {
		commission := float64(charter.Commission)
		if additionalDiscount < commission {
			extra := math.Min(5, commission)
			price *= 1 - extra/100
		}
	}
	return price
}

// TouristPriceInput carries everything the tourist surcharge schedule
// keys on. Amounts come from the upstream price quote; boat attributes
// from the cached payload.
type TouristPriceInput struct {
	TotalPrice   float64 // quoted charter price for the range
	Price        float64 // full price before discounts
	Discount     float64 // upstream discount percent
	Country      string
	Category     string
	Marina       string
	Length       float64
	Berths       int
	DoubleCabins int
	Meal         bool
	Adjustment   float64 // manual +/- applied last
}

type TouristPriceResult struct {
	TotalPrice    float64
	OriginalPrice float64
	Discount      float64
	Nights        int
}

// TouristPrice builds the all-inclusive tourist offer price: deposit
// insurance, per-country base fee, marina and length surcharges, and an
// optional meal plan priced per berth plus a cook.
func TouristPrice(in TouristPriceInput, checkIn, checkOut time.Time) TouristPriceResult {
	res := TouristPriceResult{Nights: 1}
	if in.TotalPrice == 0 {
		return res
	}
	if !checkIn.IsZero() && !checkOut.IsZero() {
		if n := int(checkOut.Sub(checkIn).Hours() / 24); n > 1 {
			res.Nights = n
		}
	}

	total := in.TotalPrice

	insurance := math.Max(total*insuranceRate, insuranceMin)
	total += insurance

	if isSeychelles(in.Country) && in.DoubleCabins > maxDoubleCabinsFree {
		total += float64(in.DoubleCabins-maxDoubleCabinsFree) * doubleCabinExtra
	}

	dishBase := float64(defaultDishBase)
	switch {
	case isTurkey(in.Country):
		total += turkeyBase
		dishBase = turkeyDishBase
	case isSeychelles(in.Country):
		total += seychellesBase
		dishBase = seychellesDishBase
	default:
		total += defaultBase
	}

	if strings.EqualFold(strings.TrimSpace(in.Marina), "praslin marina") {
		total += praslinExtra
	}
	if in.Length > 14.2 {
		total += lengthExtra
	}
	if in.Length > 13.8 && isTurkey(in.Country) {
		switch {
		case isCatamaran(in.Category):
			total += catamaranLengthExtra
		case isSailing(in.Category):
			total += sailingLengthExtra
		}
	}

	// meal plan: two berths eat free, plus a cook
	if in.Meal && in.Berths > 0 {
		total += float64(in.Berths-2)*dishBase + cookPrice
	}

	total += in.Adjustment

	res.TotalPrice = math.Round(total*100) / 100
	res.OriginalPrice = math.Round(in.Price*100) / 100
	res.Discount = in.Discount
	return res
}
