package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"boat_rental/internal/domain"
)

const imgBase = "https://api.boataround.com"

func TestCardFromPayloadFull(t *testing.T) {
	boat := map[string]any{
		"_id":     "64a1b2c3d4e5f6a7b8c9d0e1",
		"slug":    "lagoon-380-aride",
		"title":   "Lagoon 380 S2 | Aride",
		"marina":  "Eden Island",
		"city":    "Victoria",
		"region":  "Mahe",
		"country": "Seychelles",
		"thumb":   "https://cdn.boataround.com/t/abc.jpg",
		"images":  []any{"boats/64a1b2c3d4e5f6a7b8c9d0e1/a1.jpg", "https://cdn.boataround.com/t/abc.jpg"},
		"parameters": map[string]any{
			"cabins":     float64(4),
			"max_sleeps": float64(10),
			"length":     "11,5",
		},
		"year":         float64(2019),
		"category":     "Catamaran",
		"reviewsScore": 4.6,
		"charter": map[string]any{
			"name": "Dream Yacht",
			"_id":  "ch-77",
			"logo": "/logos/dy.png",
		},
		"price":                            float64(2800),
		"totalPrice":                       float64(2450),
		"discount_without_additionalExtra": float64(10),
		"additionalDiscount":               float64(3),
		"avg_price":                        float64(350),
	}

	card, pricing := CardFromPayload(boat, imgBase)

	require.Equal(t, "64a1b2c3d4e5f6a7b8c9d0e1", card.ID)
	require.Equal(t, "lagoon-380-aride", card.Slug)
	require.Equal(t, "Lagoon 380 S2 | Aride", card.Name)
	require.Equal(t, "Eden Island, Victoria, Mahe", card.Location)
	require.Equal(t, "https://cdn.boataround.com/t/abc.jpg", card.Image)
	// thumb deduped against the same URL in the images list
	require.Equal(t, []string{
		"https://cdn.boataround.com/t/abc.jpg",
		imgBase + "/boats/64a1b2c3d4e5f6a7b8c9d0e1/a1.jpg",
	}, card.Images)
	require.Equal(t, 4, card.Cabins)
	require.Equal(t, 10, card.Berths)
	require.InDelta(t, 11.5, card.Length, 1e-9)
	require.Equal(t, 2019, card.Year)
	require.Equal(t, "EUR", card.Currency)
	require.Equal(t, "Dream Yacht", card.CharterName)
	require.Equal(t, "ch-77", card.CharterID)

	require.InDelta(t, 2800, pricing.BasePrice, 1e-9)
	require.InDelta(t, 2450, pricing.TotalPrice, 1e-9)
	require.InDelta(t, 10, pricing.DiscountWithoutExtra, 1e-9)
	require.InDelta(t, 3, pricing.AdditionalDiscount, 1e-9)
	require.InDelta(t, 350, pricing.AvgPrice, 1e-9)
}

func TestCardFromPayloadGeneratedName(t *testing.T) {
	boat := map[string]any{
		"_id":  "b1",
		"type": "Catamaran",
		"city": "Split",
	}
	card, _ := CardFromPayload(boat, imgBase)
	require.Equal(t, "Catamaran in Split", card.Name)
	require.Equal(t, "Split", card.Location)
}

func TestCardFromPayloadFreeBerthsObject(t *testing.T) {
	boat := map[string]any{
		"_id":        "b2",
		"freeBerths": map[string]any{"value": float64(8)},
	}
	card, _ := CardFromPayload(boat, imgBase)
	require.Equal(t, 8, card.Berths)

	boat["freeBerths"] = float64(6)
	card, _ = CardFromPayload(boat, imgBase)
	require.Equal(t, 6, card.Berths)
}

func TestCardFromPayloadCharterString(t *testing.T) {
	boat := map[string]any{"_id": "b3", "charter": " Navigare "}
	card, _ := CardFromPayload(boat, imgBase)
	require.Equal(t, "Navigare", card.CharterName)
}

func TestCardPricingDiscountBackout(t *testing.T) {
	boat := map[string]any{
		"_id":                "b4",
		"price":              float64(1000),
		"discount":           float64(15),
		"additionalDiscount": float64(5),
	}
	_, pricing := CardFromPayload(boat, imgBase)
	require.InDelta(t, 10, pricing.DiscountWithoutExtra, 1e-9)

	// without the additional part the combined discount passes through
	delete(boat, "additionalDiscount")
	_, pricing = CardFromPayload(boat, imgBase)
	require.InDelta(t, 15, pricing.DiscountWithoutExtra, 1e-9)
}

func TestCardPricingPoliciesFallback(t *testing.T) {
	boat := map[string]any{
		"_id": "b5",
		"policies": []any{
			map[string]any{
				"prices": map[string]any{
					"price":                            float64(1800),
					"discount_without_additionalExtra": float64(8),
					"additional_discount":              float64(2),
				},
			},
		},
	}
	_, pricing := CardFromPayload(boat, imgBase)
	require.InDelta(t, 1800, pricing.BasePrice, 1e-9)
	require.InDelta(t, 8, pricing.DiscountWithoutExtra, 1e-9)
	require.InDelta(t, 2, pricing.AdditionalDiscount, 1e-9)
}

func TestNormalizeImageURL(t *testing.T) {
	require.Equal(t, "https://x.com/a.jpg", normalizeImageURL("https://x.com/a.jpg", imgBase))
	require.Equal(t, imgBase+"/p/a.jpg", normalizeImageURL("/p/a.jpg", imgBase))
	require.Equal(t, imgBase+"/boats/abc/a.jpg", normalizeImageURL("boats/abc/a.jpg", imgBase))
	require.Equal(t, imgBase+"/boats/a.jpg", normalizeImageURL("a.jpg", imgBase))
	require.Equal(t, "", normalizeImageURL("  ", imgBase))
}

func TestFinishCardPriceTotalWithCommission(t *testing.T) {
	card := domain.BoatCard{}
	finishCardPrice(&card, CardPricing{
		BasePrice:          2800,
		TotalPrice:         2450,
		AdditionalDiscount: 3,
		AvgPrice:           350,
	}, &domain.Charter{Commission: 20})
	// 2450 * 0.95 = 2327.5, truncated
	require.Equal(t, 2327, card.Price)
	require.Equal(t, 2800, card.OldPrice)
	require.Equal(t, 17, card.DiscountPercent)
	require.Equal(t, 350, card.PricePerDay)
}

func TestFinishCardPriceDiscountChain(t *testing.T) {
	card := domain.BoatCard{}
	finishCardPrice(&card, CardPricing{
		BasePrice:            1000,
		DiscountWithoutExtra: 10,
		AdditionalDiscount:   5,
	}, nil)
	require.Equal(t, 855, card.Price)
	require.Equal(t, 1000, card.OldPrice)
	require.Equal(t, 15, card.DiscountPercent)
}
