package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"boat_rental/internal/domain"
)

func TestFinalPriceWithDiscounts(t *testing.T) {
	cases := []struct {
		name       string
		base       float64
		dwe        float64
		additional float64
		charter    *domain.Charter
		want       float64
	}{
		{name: "zero base", base: 0, dwe: 10, want: 0},
		{name: "no charter", base: 1000, dwe: 10, additional: 5, want: 855},
		{name: "commission grants extra", base: 1000, dwe: 10, additional: 5, charter: &domain.Charter{Commission: 20}, want: 812.25},
		{name: "additional covers commission", base: 1000, dwe: 10, additional: 5, charter: &domain.Charter{Commission: 3}, want: 855},
		{name: "extra capped by small commission", base: 1000, dwe: 10, charter: &domain.Charter{Commission: 3}, want: 873},
		{name: "zero commission is inert", base: 1000, dwe: 10, charter: &domain.Charter{}, want: 900},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FinalPriceWithDiscounts(tc.base, tc.dwe, tc.additional, tc.charter)
			require.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestTouristPriceZeroQuote(t *testing.T) {
	res := TouristPrice(TouristPriceInput{}, time.Time{}, time.Time{})
	require.Zero(t, res.TotalPrice)
	require.Zero(t, res.OriginalPrice)
	require.Equal(t, 1, res.Nights)
}

func TestTouristPriceDefaultCountry(t *testing.T) {
	ci := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
	co := time.Date(2026, 7, 11, 0, 0, 0, 0, time.UTC)
	res := TouristPrice(TouristPriceInput{
		TotalPrice: 5000,
		Price:      6000,
		Discount:   12,
		Country:    "Croatia",
		Length:     10,
	}, ci, co)
	// insurance 500, base 4500
	require.InDelta(t, 10000, res.TotalPrice, 1e-9)
	require.InDelta(t, 6000, res.OriginalPrice, 1e-9)
	require.InDelta(t, 12, res.Discount, 1e-9)
	require.Equal(t, 7, res.Nights)
}

func TestTouristPriceTurkeyCatamaranWithMeal(t *testing.T) {
	res := TouristPrice(TouristPriceInput{
		TotalPrice: 3000,
		Country:    "Turkey",
		Category:   "Catamaran",
		Length:     14.0,
		Berths:     8,
		Meal:       true,
	}, time.Time{}, time.Time{})
	// 3000 + 400 insurance + 4400 base + 500 catamaran + (8-2)*150 + 1400 cook
	require.InDelta(t, 10600, res.TotalPrice, 1e-9)
}

func TestTouristPriceSeychellesSurcharges(t *testing.T) {
	res := TouristPrice(TouristPriceInput{
		TotalPrice:   4000,
		Country:      "Seychelles",
		Marina:       "Praslin Marina",
		Length:       15,
		DoubleCabins: 6,
	}, time.Time{}, time.Time{})
	// 4000 + 400 insurance + 360 cabins + 4500 base + 400 praslin + 200 length
	require.InDelta(t, 9860, res.TotalPrice, 1e-9)
}

func TestTouristPriceRussianNames(t *testing.T) {
	res := TouristPrice(TouristPriceInput{
		TotalPrice: 2000,
		Country:    "Турция",
		Category:   "Парусная Яхта",
		Length:     14.0,
	}, time.Time{}, time.Time{})
	// 2000 + 400 insurance + 4400 base + 300 sailing
	require.InDelta(t, 7100, res.TotalPrice, 1e-9)
}

func TestTouristPriceAdjustment(t *testing.T) {
	res := TouristPrice(TouristPriceInput{
		TotalPrice: 1000,
		Country:    "Greece",
		Adjustment: -150,
	}, time.Time{}, time.Time{})
	// 1000 + 400 insurance + 4500 base - 150
	require.InDelta(t, 5750, res.TotalPrice, 1e-9)
}
