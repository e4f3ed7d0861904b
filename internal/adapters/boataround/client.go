// internal/adapters/boataround/client.go
package boataround

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"boat_rental/internal/adapters/observability"
	"boat_rental/internal/domain"
)

// The site blocks default user agents; these headers mimic the mobile web
// client the upstream API expects.
var apiHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	"Origin":          "https://www.boataround.com",
	"Referer":         "https://www.boataround.com/",
	"Connection":      "keep-alive",
}

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
	cb   *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(base string, rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	settings := gobreaker.Settings{
		Name:    "boataround-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 8
		},
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 30 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
		cb:   gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

var (
	ErrNotFound    = errors.New("boataround: not found")
	ErrRateLimited = errors.New("boataround: rate limited")
)

// Search queries /search. The upstream has a known bug returning 500 when
// sort is combined with cabins/year/price filters; on that combination we
// retry once without sort before giving up.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) (domain.RawSearchResult, error) {
	params := url.Values{}
	limit := q.Limit
	if limit <= 0 {
		limit = 18
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	setIf(params, "checkIn", q.CheckIn)
	setIf(params, "checkOut", q.CheckOut)
	setIf(params, "destinations", q.Destination)
	setIf(params, "category", q.Category)
	setIf(params, "cabins", q.Cabins)
	setIf(params, "year", q.Year)
	setIf(params, "price", q.Price)
	setIf(params, "sort", q.Sort)
	setIf(params, "slug", q.Slug)
	setIf(params, "currency", q.Currency)
	lang := q.Lang
	if lang == "" {
		lang = "en_EN"
	}
	params.Set("lang", lang)

	var raw map[string]any
	err := c.getJSON(ctx, "search", c.base+"/search?"+params.Encode(), &raw)
	if err != nil && isServerErr(err) && q.Sort != "" && (q.Cabins != "" || q.Year != "" || q.Price != "") {
		params.Del("sort")
		err = c.getJSON(ctx, "search", c.base+"/search?"+params.Encode(), &raw)
	}
	if err != nil {
		return domain.RawSearchResult{}, err
	}
	return unwrapSearch(raw, page, limit), nil
}

// GetPrice fetches /price/{slug}. The interesting numbers live at
// data[0].data[0].policies[0].prices with top-level fallbacks.
func (c *Client) GetPrice(ctx context.Context, slug, checkIn, checkOut, currency, lang string) (domain.PriceQuote, error) {
	params := url.Values{}
	if currency == "" {
		currency = "EUR"
	}
	if lang == "" {
		lang = "en_EN"
	}
	params.Set("currency", currency)
	params.Set("lang", lang)
	params.Set("loggedIn", "0")
	setIf(params, "checkIn", checkIn)
	setIf(params, "checkOut", checkOut)

	var raw map[string]any
	if err := c.getJSON(ctx, "price", c.base+"/price/"+url.PathEscape(slug)+"?"+params.Encode(), &raw); err != nil {
		return domain.PriceQuote{}, err
	}

	info, ok := priceInfo(raw)
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("price payload for %s: %w", slug, ErrNotFound)
	}

	quote := domain.PriceQuote{
		TotalPrice: num(info["totalPrice"]),
		Discount:   num(info["discount"]),
		Currency:   currency,
		Title:      str(info["title"]),
	}
	if policies, ok := info["policies"].([]any); ok && len(policies) > 0 {
		if p0, ok := policies[0].(map[string]any); ok {
			if prices, ok := p0["prices"].(map[string]any); ok {
				quote.Price = num(prices["price"])
				quote.DiscountWithoutExtra = num(prices["discount_without_additionalExtra"])
				quote.AdditionalDiscount = num(prices["additional_discount"])
			}
		}
	}
	if quote.Price == 0 {
		quote.Price = num(info["price"])
	}
	if quote.DiscountWithoutExtra == 0 {
		quote.DiscountWithoutExtra = num(info["discount_without_additionalExtra"])
	}
	return quote, nil
}

func (c *Client) Autocomplete(ctx context.Context, query, lang string, limit int) ([]domain.Destination, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if lang == "" {
		lang = "en_EN"
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("lang", lang)
	params.Set("limit", strconv.Itoa(limit))

	var raw any
	if err := c.getJSON(ctx, "autocomplete", c.base+"/autocomplete/?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	items := listPayload(raw)
	out := make([]domain.Destination, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		d := domain.Destination{
			Slug:  str(m["slug"]),
			Name:  firstStr(m, "name", "title", "label"),
			Kind:  firstStr(m, "type", "kind"),
			Count: int(num(m["count"])),
		}
		if d.Slug == "" && d.Name == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Equipment pulls the per-language filter block (cockpit, entertainment,
// equipment) from a search-by-slug response.
func (c *Client) Equipment(ctx context.Context, slug, lang string) (domain.EquipmentLists, error) {
	res, err := c.Search(ctx, domain.SearchQuery{Slug: slug, Lang: lang, Limit: 1})
	if err != nil {
		return domain.EquipmentLists{}, err
	}
	return domain.EquipmentLists{
		Cockpit:       namedItems(res.Filter["cockpit"]),
		Entertainment: namedItems(res.Filter["entertainment"]),
		Equipment:     namedItems(res.Filter["equipment"]),
	}, nil
}

// ---- internals ----

func setIf(v url.Values, k, s string) {
	if s != "" {
		v.Set(k, s)
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return fmt.Sprintf("remote %d: %s", e.code, e.body) }

func isServerErr(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= 500
}

// getJSON performs a GET with client-side rate limiting, a circuit
// breaker, and retries on 429/transient 5xx honoring Retry-After.
func (c *Client) getJSON(ctx context.Context, endpoint, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		start := time.Now()
		body, err := c.cb.Execute(func() ([]byte, error) {
			return c.doOnce(ctx, u)
		})
		if err == nil {
			observability.ObserveUpstream(endpoint, http.StatusOK, time.Since(start))
			return json.Unmarshal(body, out)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var se *statusError
		if errors.As(err, &se) {
			observability.ObserveUpstream(endpoint, se.code, time.Since(start))
			switch {
			case se.code == http.StatusNotFound:
				return ErrNotFound
			case se.code == http.StatusTooManyRequests || se.code >= 500:
				lastErr = err
			default:
				return err
			}
		} else {
			// network error or open breaker
			observability.ObserveUpstream(endpoint, 0, time.Since(start))
			lastErr = err
		}

		if i < 3 && sleepCtx(ctx, backoff(i)) {
			continue
		}
		break
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range apiHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNoContent:
		io.Copy(io.Discard, resp.Body)
		return []byte("{}"), nil
	case http.StatusTooManyRequests:
		wait := retryAfter(resp)
		io.Copy(io.Discard, resp.Body)
		if wait > 0 {
			sleepCtx(ctx, wait)
		}
		return nil, &statusError{code: resp.StatusCode}
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if
// absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay with concurrency-safe jitter.
// Base doubles each attempt (200ms, 400ms, 800ms...) with up to +50%
// random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
