package boataround

import (
	"strconv"

	"boat_rental/internal/domain"
)

// The search endpoint wraps results in {status, data: [{data: [boats],
// totalResults, totalBoats, filter}]} but older variants return the boat
// list directly under data. unwrapSearch handles both.
func unwrapSearch(raw map[string]any, page, limit int) domain.RawSearchResult {
	res := domain.RawSearchResult{Page: page}

	data, _ := raw["data"].([]any)
	if len(data) == 0 {
		return res
	}

	if env, ok := data[0].(map[string]any); ok {
		if inner, ok := env["data"].([]any); ok {
			res.Boats = boatMaps(inner)
			res.Total = int(num(env["totalResults"]))
			if res.Total == 0 {
				res.Total = int(num(env["totalBoats"]))
			}
			if f, ok := env["filter"].(map[string]any); ok {
				res.Filter = f
			}
			res.TotalPages = totalPages(res.Total, len(res.Boats), limit)
			return res
		}
	}

	// flat variant: data is the boat list itself
	res.Boats = boatMaps(data)
	res.Total = int(num(raw["totalResults"]))
	if res.Total == 0 {
		res.Total = len(res.Boats)
	}
	res.TotalPages = totalPages(res.Total, len(res.Boats), limit)
	return res
}

func boatMaps(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// totalPages prefers the actual page size over the requested limit; the
// upstream occasionally caps pages below the asked-for limit.
func totalPages(total, got, limit int) int {
	per := got
	if per <= 0 {
		per = limit
	}
	if per <= 0 || total <= 0 {
		return 0
	}
	return (total + per - 1) / per
}

// priceInfo digs the price object out of the nested price envelope:
// data[0].data[0], with a flat data[0] fallback.
func priceInfo(raw map[string]any) (map[string]any, bool) {
	data, _ := raw["data"].([]any)
	if len(data) == 0 {
		return nil, false
	}
	outer, ok := data[0].(map[string]any)
	if !ok {
		return nil, false
	}
	if inner, ok := outer["data"].([]any); ok && len(inner) > 0 {
		if m, ok := inner[0].(map[string]any); ok {
			return m, true
		}
	}
	return outer, true
}

// listPayload flattens the autocomplete response, which nests one level
// deeper than expected on some locales.
func listPayload(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		if d, ok := v["data"].([]any); ok {
			if len(d) == 1 {
				if inner, ok := d[0].(map[string]any); ok {
					if dd, ok := inner["data"].([]any); ok {
						return dd
					}
				}
				if dd, ok := d[0].([]any); ok {
					return dd
				}
			}
			return d
		}
	}
	return nil
}

func namedItems(v any) []domain.NamedItem {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]domain.NamedItem, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case string:
			out = append(out, domain.NamedItem{Name: x})
		case map[string]any:
			if n := firstStr(x, "name", "title", "label"); n != "" {
				out = append(out, domain.NamedItem{Name: n})
			}
		}
	}
	return out
}

func num(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}
