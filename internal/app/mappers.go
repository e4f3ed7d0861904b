package app

import (
	"strconv"
	"strings"

	"boat_rental/internal/domain"
)

/********** alias registries (single source of truth) **********/

var cardNameAliases = []string{"title", "name", "boatName", "boat_name", "displayName", "parameters.displayName", "parameters.name"}

var charterAliases = map[string][]string{
	"name": {"name", "title", "company"},
	"id":   {"_id", "id", "charterId"},
	"logo": {"logo", "logo_url", "image"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// lookupNum coerces numbers that arrive as json numbers or strings.
func lookupNum(m map[string]any, path string) float64 {
	switch v := lookupAny(m, path).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		s = strings.TrimSuffix(s, "m")
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	}
	return 0
}

func firstStrAlias(m map[string]any, paths []string) string {
	for _, p := range paths {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

func firstNum(m map[string]any, paths ...string) float64 {
	for _, p := range paths {
		if n := lookupNum(m, p); n != 0 {
			return n
		}
	}
	return 0
}

// normalizeImageURL expands the relative CDN paths the API hands back.
// The base is the bare host: photos live under /boats/ at the root, not
// under the versioned API prefix.
func normalizeImageURL(u, imageBase string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	base := strings.TrimRight(imageBase, "/")
	if strings.HasPrefix(u, "/") {
		return base + u
	}
	if !strings.HasPrefix(u, "boats/") {
		return base + "/boats/" + u
	}
	return base + "/" + u
}

/********** card mapping **********/

// CardPricing is the raw discount chain extracted alongside a card; the
// query service resolves the charter and finishes the price.
type CardPricing struct {
	BasePrice            float64
	TotalPrice           float64
	DiscountWithoutExtra float64
	AdditionalDiscount   float64
	AvgPrice             float64
}

// CardFromPayload flattens one heterogeneous search hit into a BoatCard.
// Pricing is returned separately so the caller can apply the charter
// commission step before rendering.
func CardFromPayload(boat map[string]any, imageBase string) (domain.BoatCard, CardPricing) {
	var card domain.BoatCard

	card.ID = firstStrAlias(boat, []string{"_id", "id"})
	if card.ID == "" {
		card.ID = "unknown"
	}
	card.Slug = lookupStr(boat, "slug")

	card.Name = firstStrAlias(boat, cardNameAliases)
	if card.Name == "" {
		boatType := lookupStr(boat, "type")
		loc := firstStrAlias(boat, []string{"city", "marina", "country"})
		if boatType != "" && loc != "" {
			card.Name = boatType + " in " + loc
		}
	}

	card.Marina = lookupStr(boat, "marina")
	card.Country = lookupStr(boat, "country")
	card.Region = lookupStr(boat, "region")
	card.City = lookupStr(boat, "city")
	parts := make([]string, 0, 3)
	for _, p := range []string{card.Marina, card.City, card.Region} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		card.Location = strings.Join(parts, ", ")
	} else {
		card.Location = card.Country
	}

	// thumb is already resized by the CDN; main_img needs normalizing
	if thumb := lookupStr(boat, "thumb"); thumb != "" {
		card.Images = append(card.Images, thumb)
	} else if main := lookupStr(boat, "main_img"); main != "" {
		card.Images = append(card.Images, normalizeImageURL(main, imageBase))
	}
	for _, key := range []string{"images", "gallery"} {
		list, ok := boat[key].([]any)
		if !ok {
			continue
		}
		for _, it := range list {
			s, _ := it.(string)
			if strings.TrimSpace(s) == "" {
				continue
			}
			n := normalizeImageURL(s, imageBase)
			if !containsStr(card.Images, n) {
				card.Images = append(card.Images, n)
			}
		}
		break
	}
	if len(card.Images) > 0 {
		card.Image = card.Images[0]
	}

	card.Cabins = int(firstNum(boat, "parameters.cabins", "cabins", "cabin"))
	card.Berths = int(firstNum(boat, "parameters.max_sleeps", "parameters.allowed_people", "berths", "berth"))
	if card.Berths == 0 {
		// freeBerths is sometimes an object, sometimes a bare number
		switch fb := boat["freeBerths"].(type) {
		case map[string]any:
			card.Berths = int(lookupNum(fb, "value"))
		case float64:
			card.Berths = int(fb)
		}
	}
	length := lookupNum(boat, "parameters.length")
	card.Length = float64(int(length*10+0.5)) / 10
	card.Year = int(firstNum(boat, "year", "buildYear"))
	card.Category = lookupStr(boat, "category")
	card.Rating = firstNum(boat, "reviewsScore", "rating")
	card.Currency = lookupStr(boat, "currency")
	if card.Currency == "" {
		card.Currency = "EUR"
	}

	extractCharter(boat, &card)

	pricing := CardPricing{
		BasePrice:            firstNum(boat, "price", "totalPrice"),
		TotalPrice:           lookupNum(boat, "totalPrice"),
		AdditionalDiscount:   firstNum(boat, "additionalDiscount", "additional_discount"),
		DiscountWithoutExtra: lookupNum(boat, "discount_without_additionalExtra"),
		AvgPrice:             lookupNum(boat, "avg_price"),
	}
	// discount is often the combined total; back the additional part out
	if pricing.DiscountWithoutExtra == 0 {
		total := lookupNum(boat, "discount")
		if total != 0 && pricing.AdditionalDiscount != 0 {
			if d := total - pricing.AdditionalDiscount; d > 0 {
				pricing.DiscountWithoutExtra = d
			}
		} else {
			pricing.DiscountWithoutExtra = total
		}
	}
	// last resort: policies[0].prices
	if policies, ok := boat["policies"].([]any); ok && len(policies) > 0 {
		if p0, ok := policies[0].(map[string]any); ok {
			if pricing.BasePrice == 0 {
				pricing.BasePrice = lookupNum(p0, "prices.price")
			}
			if pricing.DiscountWithoutExtra == 0 {
				pricing.DiscountWithoutExtra = lookupNum(p0, "prices.discount_without_additionalExtra")
			}
			if pricing.AdditionalDiscount == 0 {
				pricing.AdditionalDiscount = lookupNum(p0, "prices.additional_discount")
			}
		}
	}

	return card, pricing
}

// extractCharter handles the charter arriving as an object, a bare name,
// or tucked inside parameters.
func extractCharter(boat map[string]any, card *domain.BoatCard) {
	card.CharterLogo = lookupStr(boat, "charter_logo")
	card.CharterID = lookupStr(boat, "charter_id")

	switch ch := boat["charter"].(type) {
	case map[string]any:
		card.CharterName = firstStrAlias(ch, charterAliases["name"])
		if card.CharterID == "" {
			card.CharterID = firstStrAlias(ch, charterAliases["id"])
		}
		if card.CharterLogo == "" {
			card.CharterLogo = firstStrAlias(ch, charterAliases["logo"])
		}
	case string:
		card.CharterName = strings.TrimSpace(ch)
	}

	if card.CharterName == "" {
		switch pc := lookupAny(boat, "parameters.charter").(type) {
		case map[string]any:
			card.CharterName = firstStrAlias(pc, charterAliases["name"])
			if card.CharterID == "" {
				card.CharterID = firstStrAlias(pc, charterAliases["id"])
			}
			if card.CharterLogo == "" {
				card.CharterLogo = firstStrAlias(pc, charterAliases["logo"])
			}
		case string:
			card.CharterName = strings.TrimSpace(pc)
		}
	}
}

// finishCardPrice computes the displayed price. Search results carry
// totalPrice with the base discounts already applied, so only the
// conditional commission step runs on top; without it the full discount
// chain applies to the base price.
func finishCardPrice(card *domain.BoatCard, p CardPricing, charter *domain.Charter) {
	var price float64
	if p.TotalPrice > 0 {
		price = p.TotalPrice
		if charter != nil && charter.Commission != 0 {
			commission := float64(charter.Commission)
			if p.AdditionalDiscount < commission {
				extra := minF(5, commission)
				price *= 1 - extra/100
			}
		}
	} else {
		price = FinalPriceWithDiscounts(p.BasePrice, p.DiscountWithoutExtra, p.AdditionalDiscount, charter)
	}
	card.Price = int(price)

	if p.BasePrice > 0 && price > 0 && p.BasePrice > price {
		card.OldPrice = int(p.BasePrice)
		card.DiscountPercent = int((p.BasePrice-price)/p.BasePrice*100 + 0.5)
	}
	if p.AvgPrice > 0 {
		card.PricePerDay = int(p.AvgPrice)
	}
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
