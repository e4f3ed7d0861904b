// internal/adapters/boataround/parser.go
package boataround

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"boat_rental/internal/adapters/observability"
	"boat_rental/internal/domain"
)

// localeFor maps a language code to the locale path segment and the
// localized boat-type segment the site routes on.
var localeFor = map[string]struct{ locale, word string }{
	"ru_RU": {"ru", "yachta"},
	"en_EN": {"us", "boat"},
	"de_DE": {"de", "boot"},
	"fr_FR": {"fr", "bateau"},
	"es_ES": {"es", "bote"},
}

// Page fetches mimic a desktop browser; the Referer is only added after
// the site answers 405.
var pageHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	"Connection":      "keep-alive",
}

var (
	boatIDRe   = regexp.MustCompile(`/boats/([a-f0-9]{24})/`)
	pictureRe  = regexp.MustCompile(`(?i)boats/([a-f0-9]{24})/([a-f0-9]+)\.(jpg|jpeg|png|webp)`)
	priceRegex = []*regexp.Regexp{
		regexp.MustCompile(`total["']?\s*:\s*["']?(\d+)`),
		regexp.MustCompile(`price["']?\s*:\s*["']?(\d+)`),
		regexp.MustCompile(`(\d[\d\s]{2,})\s*€`),
		regexp.MustCompile(`€\s*(\d[\d\s]{2,})`),
	}
)

// Parser scrapes boat pages. One ParseBoat call fetches the page in every
// supported language plus the per-language equipment filters from the API.
type Parser struct {
	site string
	hc   *http.Client
	rl   *rate.Limiter
	api  domain.SearchClient
	log  zerolog.Logger

	retryDelay  func() time.Duration
	penaltyWait time.Duration
}

func NewParser(site string, rps int, api domain.SearchClient, log zerolog.Logger) *Parser {
	if rps <= 0 {
		rps = 5
	}
	return &Parser{
		site:        strings.TrimRight(site, "/"),
		hc:          &http.Client{Timeout: 45 * time.Second},
		rl:          rate.NewLimiter(rate.Limit(rps), rps),
		api:         api,
		log:         log.With().Str("component", "parser").Logger(),
		retryDelay:  pageDelay,
		penaltyWait: 10 * time.Second,
	}
}

// BoatURL builds the localized page URL. Prices are always requested in
// EUR so stored amounts stay comparable.
func (p *Parser) BoatURL(slug, lang string) string {
	loc, ok := localeFor[lang]
	if !ok {
		loc = localeFor["ru_RU"]
	}
	return fmt.Sprintf("%s/%s/%s/%s/?currency=EUR", p.site, loc.locale, loc.word, slug)
}

// ParseBoat scrapes the primary-language page for identifiers, specs,
// prices and photos, then the remaining languages for localized text and
// services. A missing secondary language degrades to the primary text;
// only a failed primary fetch is an error.
func (p *Parser) ParseBoat(ctx context.Context, slug string) (domain.ParsedBoatData, error) {
	primary := domain.Languages[0]

	html, doc, err := p.fetchDoc(ctx, p.BoatURL(slug, primary))
	if err != nil {
		return domain.ParsedBoatData{}, fmt.Errorf("fetch %s: %w", slug, err)
	}

	boatID := extractBoatID(html)
	if boatID == "" {
		return domain.ParsedBoatData{}, fmt.Errorf("boat id not found on page for %s: %w", slug, domain.ErrNotFound)
	}

	data := domain.ParsedBoatData{
		BoatID:       boatID,
		Slug:         slug,
		SourceURL:    p.BoatURL(slug, primary),
		Info:         extractBoatInfo(doc),
		Prices:       extractPrices(doc, html),
		Pictures:     extractPictures(doc, html),
		Descriptions: make(map[string]domain.ParsedLocalizedText, len(domain.Languages)),
		Services:     make(map[string]domain.ParsedServices, len(domain.Languages)),
		Equipment:    make(map[string]domain.EquipmentLists, len(domain.Languages)),
	}
	data.Descriptions[primary] = domain.ParsedLocalizedText{
		Title:       data.Info.Title,
		Description: data.Info.Description,
		Location:    data.Info.Location,
		Marina:      data.Info.Marina,
	}
	data.Services[primary] = extractServices(doc)

	for _, lang := range domain.Languages {
		if lang != primary {
			langDoc, err := p.fetchLang(ctx, slug, lang)
			if err != nil {
				p.log.Warn().Err(err).Str("slug", slug).Str("lang", lang).Msg("language page fetch failed")
			} else {
				data.Descriptions[lang] = extractLocalizedText(langDoc)
				data.Services[lang] = extractServices(langDoc)
			}
		}
		if p.api != nil {
			eq, err := p.api.Equipment(ctx, slug, lang)
			if err != nil {
				p.log.Warn().Err(err).Str("slug", slug).Str("lang", lang).Msg("equipment fetch failed")
				continue
			}
			data.Equipment[lang] = eq
		}
	}

	p.fillCharter(ctx, &data)
	return data, nil
}

func (p *Parser) fetchLang(ctx context.Context, slug, lang string) (*goquery.Document, error) {
	_, doc, err := p.fetchDoc(ctx, p.BoatURL(slug, lang))
	return doc, err
}

// fillCharter pulls charter identity from the search API, which carries
// it in the card payload while the page itself does not.
func (p *Parser) fillCharter(ctx context.Context, data *domain.ParsedBoatData) {
	if p.api == nil {
		return
	}
	res, err := p.api.Search(ctx, domain.SearchQuery{Slug: data.Slug, Limit: 1})
	if err != nil || len(res.Boats) == 0 {
		return
	}
	card := res.Boats[0]
	switch ch := card["charter"].(type) {
	case map[string]any:
		data.CharterName = firstStr(ch, "name", "title")
		data.CharterID = firstStr(ch, "_id", "id", "charterId")
		data.CharterLogo = firstStr(ch, "logo", "image")
	case string:
		data.CharterName = ch
	}
	if data.CharterID == "" {
		data.CharterID = firstStr(card, "charterId", "charter_id")
	}
}

const pageFetchAttempts = 3

// fetchDoc retries the blocks the site throws at scrapers: 403 is
// retried after a human-ish pause, 405 gets a Referer on the next try,
// 429 waits out the longer penalty first. 404 is final.
func (p *Parser) fetchDoc(ctx context.Context, u string) (string, *goquery.Document, error) {
	var lastErr error
	withReferer := false
	for attempt := 0; attempt < pageFetchAttempts; attempt++ {
		if attempt > 0 && !sleepCtx(ctx, p.retryDelay()) {
			return "", nil, ctx.Err()
		}
		html, doc, err := p.fetchPage(ctx, u, withReferer)
		if err == nil {
			return html, doc, nil
		}
		if errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
			return "", nil, err
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) {
			switch se.code {
			case http.StatusForbidden:
			case http.StatusMethodNotAllowed:
				withReferer = true
			case http.StatusTooManyRequests:
				if !sleepCtx(ctx, p.penaltyWait) {
					return "", nil, ctx.Err()
				}
			default:
				if se.code < 500 {
					return "", nil, err
				}
			}
		}
		p.log.Warn().Err(err).Str("url", u).Int("attempt", attempt+1).Msg("page fetch failed")
	}
	return "", nil, lastErr
}

func (p *Parser) fetchPage(ctx context.Context, u string, withReferer bool) (string, *goquery.Document, error) {
	if err := p.rl.Wait(ctx); err != nil {
		return "", nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", nil, err
	}
	for k, v := range pageHeaders {
		req.Header.Set(k, v)
	}
	if withReferer {
		req.Header.Set("Referer", "https://www.boataround.com/")
	}

	start := time.Now()
	resp, err := p.hc.Do(req)
	if err != nil {
		observability.ObserveUpstream("page", 0, time.Since(start))
		return "", nil, err
	}
	defer resp.Body.Close()
	observability.ObserveUpstream("page", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return "", nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", nil, &statusError{code: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(b)))
	if err != nil {
		return "", nil, err
	}
	return string(b), doc, nil
}

// pageDelay imitates a human pause between page attempts, 2 to 5 seconds.
func pageDelay() time.Duration {
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 3 * time.Second
	}
	return 2*time.Second + time.Duration(float64(b[0])/255.0*float64(3*time.Second))
}

// ---- extraction ----

func extractBoatID(html string) string {
	if m := boatIDRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// extractPictures reads the <gallery-mobile :gallery> JSON attribute and
// falls back to scanning the raw HTML for CDN photo paths.
func extractPictures(doc *goquery.Document, html string) []string {
	if raw, ok := doc.Find("gallery-mobile").Attr(":gallery"); ok && raw != "" {
		var items []struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			pics := make([]string, 0, len(items))
			for _, it := range items {
				path := strings.ReplaceAll(it.Path, `\/`, "/")
				if strings.HasPrefix(path, "boats/") {
					pics = append(pics, path)
				}
			}
			if len(pics) > 0 {
				return pics
			}
		}
	}

	seen := make(map[string]bool)
	var pics []string
	for _, m := range pictureRe.FindAllStringSubmatch(html, -1) {
		path := fmt.Sprintf("boats/%s/%s.%s", m[1], m[2], strings.ToLower(m[3]))
		if !seen[path] {
			seen[path] = true
			pics = append(pics, path)
		}
	}
	return pics
}

func extractBoatInfo(doc *goquery.Document) domain.ParsedBoatInfo {
	var info domain.ParsedBoatInfo

	// Schema.org Product carries title, description, manufacturer.
	if prod, ok := findProductLD(doc); ok {
		info.Title = str(prod["name"])
		info.Description = str(prod["description"])
		info.Model = str(prod["model"])
		if m, ok := prod["manufacturer"].(map[string]any); ok {
			info.Manufacturer = str(m["name"])
		} else if b, ok := prod["brand"].(map[string]any); ok {
			info.Manufacturer = str(b["name"])
		}
	}

	if box := doc.Find("mobile-payment-box"); box.Length() > 0 {
		setIfEmpty(&info.Title, attr(box, "boat-title"))
		info.Year = attr(box, "boat-year")
		info.Cabins = attr(box, "boat-cabins")
		info.Berths = attr(box, "boat-people")
		info.Length = attr(box, "boat-length")
		setIfEmpty(&info.Manufacturer, attr(box, "manufacturer"))
		info.Country = attr(box, "country")
		info.Location = attr(box, "region")
		info.Beam = attr(box, "boat-beam")
		info.Draft = attr(box, "boat-draft")
		info.EngineType = attr(box, "boat-engine-type")
		info.Fuel = attr(box, "boat-fuel")
		info.MaxSpeed = attr(box, "boat-max-speed")
		info.Toilets = attr(box, "boat-toilets")
	}

	// boat-info-list is the authoritative source for technicals.
	if raw, ok := doc.Find("boat-info-list").Attr(":parameters"); ok && raw != "" {
		var params map[string]any
		if err := json.Unmarshal([]byte(raw), &params); err == nil {
			setParam(&info.Toilets, params, "toilets")
			setParam(&info.Length, params, "length")
			setParam(&info.Beam, params, "beam")
			setParam(&info.Draft, params, "draft")
			setParam(&info.EnginePower, params, "engine_power")
			setParam(&info.NumberEngines, params, "number_engines")
			setParam(&info.EngineType, params, "engine")
			setParam(&info.Fuel, params, "fuel")
			setParam(&info.MaxSpeed, params, "maximum_speed")
			setParam(&info.WaterTank, params, "water_tank")
			setParam(&info.Year, params, "year")
			setParam(&info.RenovatedYear, params, "renovated_year")
			setParam(&info.Cabins, params, "cabins")
			setParam(&info.Berths, params, "max_sleeps")
		}
	}

	if wl := doc.Find("add-to-wishlist"); wl.Length() > 0 {
		setIfEmpty(&info.Marina, attr(wl, "marina"))
		setIfEmpty(&info.Year, attr(wl, "year"))
		setIfEmpty(&info.Cabins, attr(wl, "cabins"))
	}

	// Titles read "Lagoon 380 S2 | Aride"; the first word is the builder.
	if info.Manufacturer == "" && info.Title != "" {
		head := strings.TrimSpace(strings.SplitN(info.Title, "|", 2)[0])
		if fields := strings.Fields(head); len(fields) > 0 {
			info.Manufacturer = fields[0]
		}
	}

	return info
}

// findProductLD walks every JSON-LD script looking for a schema.org
// Product, whether it is the top-level object, an item in a list, or
// nested under @graph.
func findProductLD(doc *goquery.Document) (map[string]any, bool) {
	var prod map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		var candidates []any
		switch v := raw.(type) {
		case []any:
			candidates = v
		case map[string]any:
			if g, ok := v["@graph"].([]any); ok {
				candidates = g
			} else {
				candidates = []any{v}
			}
		}
		for _, c := range candidates {
			m, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if str(m["@type"]) == "Product" {
				prod = m
				return false
			}
		}
		return true
	})
	return prod, prod != nil
}

func extractLocalizedText(doc *goquery.Document) domain.ParsedLocalizedText {
	var t domain.ParsedLocalizedText
	if prod, ok := findProductLD(doc); ok {
		t.Title = str(prod["name"])
		t.Description = str(prod["description"])
	}
	if wl := doc.Find("add-to-wishlist"); wl.Length() > 0 {
		t.Marina = attr(wl, "marina")
		t.Location = attr(wl, "region")
	}
	if t.Location == "" {
		if box := doc.Find("mobile-payment-box"); box.Length() > 0 {
			t.Location = attr(box, "region")
		}
	}
	return t
}

// extractPrices prefers the payment box attributes and falls back to
// regexes over the raw HTML, accepting only plausible amounts.
func extractPrices(doc *goquery.Document, html string) domain.ParsedPrices {
	prices := domain.ParsedPrices{Currency: "EUR"}

	if box := doc.Find("mobile-payment-box"); box.Length() > 0 {
		// unbound Vue attributes keep their expression as the value
		if v := attr(box, ":price"); v != "" && v != "price" {
			if n, err := strconv.Atoi(v); err == nil {
				prices.TotalPrice = n
				prices.MinPrice = n
			}
		}
		if v := attr(box, ":old-price"); v != "" && v != "oldPrice" {
			if n, err := strconv.Atoi(v); err == nil {
				prices.OldPrice = n
			}
		}
		if v := attr(box, ":discount"); v != "" && v != "discount" {
			if n, err := strconv.Atoi(v); err == nil {
				prices.Discount = n
			}
		}
	}

	if prices.TotalPrice == 0 {
		for _, re := range priceRegex {
			m := re.FindStringSubmatch(html)
			if m == nil {
				continue
			}
			s := strings.NewReplacer(" ", "", ",", "").Replace(m[1])
			n, err := strconv.Atoi(s)
			if err != nil || n <= 100 || n >= 100000 {
				continue
			}
			prices.TotalPrice = n
			prices.MinPrice = n
			break
		}
	}
	return prices
}

// extractServices lifts the Vue component JSON attributes out verbatim;
// the arrays are stored as raw JSON per language.
func extractServices(doc *goquery.Document) domain.ParsedServices {
	var svc domain.ParsedServices
	el := doc.Find("extras-list")
	if el.Length() > 0 {
		svc.Extras = jsonAttr(el, ":extras")
		svc.AdditionalServices = jsonAttr(el, ":additional-services")
		svc.DeliveryExtras = jsonAttr(el, ":extras-delivery")
	}
	svc.NotIncluded = extractNotIncluded(doc)
	return svc
}

type excludedItem struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Option      string `json:"option"`
	Description string `json:"description"`
}

// extractNotIncluded reads the rendered "not included in price" block,
// which has no JSON attribute and must be scraped from markup.
func extractNotIncluded(doc *goquery.Document) []byte {
	var items []excludedItem
	doc.Find("div.extras-list.excluded div.extra-item").Each(func(_ int, s *goquery.Selection) {
		it := excludedItem{
			Name:        strings.TrimSpace(s.Find("li.extra-item__heading").First().Text()),
			Price:       strings.TrimSpace(s.Find("div.extra-item__price").First().Text()),
			Description: strings.TrimSpace(s.Find("div.extra-item__description").First().Text()),
		}
		s.Find("span[class]").EachWithBreak(func(_ int, sp *goquery.Selection) bool {
			if cls, _ := sp.Attr("class"); strings.Contains(cls, "extra-item__type--") {
				it.Option = strings.TrimSpace(sp.Text())
				return false
			}
			return true
		})
		if it.Name != "" {
			items = append(items, it)
		}
	})
	if len(items) == 0 {
		return nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return b
}

func jsonAttr(s *goquery.Selection, name string) []byte {
	raw, ok := s.Attr(name)
	if !ok || raw == "" || !json.Valid([]byte(raw)) {
		return nil
	}
	return []byte(raw)
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func setParam(dst *string, params map[string]any, key string) {
	v, ok := params[key]
	if !ok || v == nil {
		return
	}
	switch x := v.(type) {
	case string:
		if x != "" {
			*dst = x
		}
	case float64:
		*dst = strconv.FormatFloat(x, 'f', -1, 64)
	}
}
