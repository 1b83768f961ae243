// Package products scrapes the Bureau's listing pages for the product
// identifiers behind each observation station and forecast town.
package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/lox/bomweather/internal/bomerr"
	"github.com/lox/bomweather/internal/cache"
	"github.com/lox/bomweather/internal/htmlutil"
	"github.com/lox/bomweather/internal/metrics"
	"github.com/lox/bomweather/internal/models"
)

const (
	DefaultBaseURL = "http://www.bom.gov.au"

	ObservationCacheKey = "products_obs.json"
	ForecastCacheKey    = "products_forecast.json"
)

var (
	// The product code appears twice in each station link.
	obsLinkPattern     = regexp.MustCompile(`<a href="/products/(ID[A-Z]\d{5})/(ID[A-Z]\d{5})\.(\d{5})\.shtml">`)
	townLinkPattern    = regexp.MustCompile(`/forecasts/([^"/]+?)\.shtml">Detailed`)
	productPattern     = regexp.MustCompile(`Product\s+(ID[A-Z]\d{5})`)
	derivedFromPattern = regexp.MustCompile(`Product\s+derived\s+from\s+(ID[A-Z]\d{5})\s+and\s+(ID[A-Z]\d{5})`)
)

// PageFetcher retrieves a page body.
type PageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Resolver struct {
	fetcher       PageFetcher
	baseURL       string
	cache         cache.Provider
	jurisdictions []string
	logger        *slog.Logger
}

func NewResolver(fetcher PageFetcher, baseURL string, c cache.Provider, logger *slog.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if c == nil {
		c = cache.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher:       fetcher,
		baseURL:       baseURL,
		cache:         c,
		jurisdictions: models.Jurisdictions,
		logger:        logger,
	}
}

// WithJurisdictions limits scraping to the given jurisdiction codes.
func (r *Resolver) WithJurisdictions(codes ...string) *Resolver {
	r.jurisdictions = codes
	return r
}

// ObservationProducts returns the observation product for each WMO identifier.
func (r *Resolver) ObservationProducts(ctx context.Context, refresh bool) (map[string]string, error) {
	var products map[string]string
	err := r.cached(ctx, ObservationCacheKey, refresh, &products, func(ctx context.Context) (any, error) {
		return r.ScrapeObservationProducts(ctx)
	})
	return products, err
}

// ForecastProducts returns the forecast product for each forecast town, in
// scrape order.
func (r *Resolver) ForecastProducts(ctx context.Context, refresh bool) ([]models.TownProduct, error) {
	var towns []models.TownProduct
	err := r.cached(ctx, ForecastCacheKey, refresh, &towns, func(ctx context.Context) (any, error) {
		return r.ScrapeForecastProducts(ctx)
	})
	return towns, err
}

// cached decodes the JSON cache entry for key into dst, scraping on a miss.
// An entry that no longer decodes is scraped again.
func (r *Resolver) cached(ctx context.Context, key string, refresh bool, dst any, scrape func(context.Context) (any, error)) error {
	derive := func(ctx context.Context) ([]byte, error) {
		v, err := scrape(ctx)
		if err != nil {
			return nil, err
		}
		return json.MarshalIndent(v, "", "    ")
	}

	blob, err := cache.Get(ctx, r.logger, r.cache, key, refresh, derive)
	if err != nil {
		return err
	}
	err = json.Unmarshal(blob, dst)
	if err == nil {
		return nil
	}
	if refresh {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	r.logger.Warn("products: cached mapping unreadable, scraping again", "key", key, "error", err)

	blob, err = cache.Get(ctx, r.logger, r.cache, key, true, derive)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// ScrapeObservationProducts reads every jurisdiction's station listing.
func (r *Resolver) ScrapeObservationProducts(ctx context.Context) (map[string]string, error) {
	products := make(map[string]string)
	for _, state := range r.jurisdictions {
		url := fmt.Sprintf("%s/%s/observations/%sall.shtml", r.baseURL, state, state)
		page, err := r.fetcher.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("observation listing %s: %w", state, err)
		}

		links, err := r.parseObservationLinks(state, page)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			products[l.WMO] = l.Product
		}
		r.logger.Debug("products: scraped observation listing", "state", state, "stations", len(links))
	}
	return products, nil
}

type obsLink struct {
	Product string
	WMO     string
}

func (r *Resolver) parseObservationLinks(state string, page []byte) ([]obsLink, error) {
	matches := obsLinkPattern.FindAllSubmatch(page, -1)
	if len(matches) == 0 {
		return nil, bomerr.Formatf("observation listing", state, "no station links found")
	}

	links := make([]obsLink, 0, len(matches))
	for _, m := range matches {
		primary, secondary, wmo := string(m[1]), string(m[2]), string(m[3])
		if primary != secondary {
			metrics.DataQualityWarnings.WithLabelValues("product_mismatch").Inc()
			r.logger.Warn("products: station link names two products",
				"state", state, "wmo", wmo, "product", primary, "other", secondary)
		}
		links = append(links, obsLink{Product: primary, WMO: wmo})
	}
	return links, nil
}

// ScrapeForecastProducts reads every jurisdiction's town index and each town's
// forecast page.
func (r *Resolver) ScrapeForecastProducts(ctx context.Context) ([]models.TownProduct, error) {
	var towns []models.TownProduct
	seen := make(map[string]int)

	for _, state := range r.jurisdictions {
		url := fmt.Sprintf("%s/%s/forecasts/precis.shtml", r.baseURL, state)
		page, err := r.fetcher.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("forecast town index %s: %w", state, err)
		}

		slugs := parseTownLinks(page)
		if len(slugs) == 0 {
			r.logger.Warn("products: no forecast towns listed", "state", state)
			continue
		}

		for _, town := range slugs {
			product, err := r.TownProduct(ctx, state, town)
			if err != nil {
				return nil, err
			}
			if product == "" {
				r.logger.Debug("products: town has no forecast product", "state", state, "town", town)
				continue
			}

			tp := models.TownProduct{Town: town, Product: product, State: state}
			if i, ok := seen[town]; ok {
				towns[i] = tp
				continue
			}
			seen[town] = len(towns)
			towns = append(towns, tp)
		}
	}
	return towns, nil
}

func parseTownLinks(page []byte) []string {
	var slugs []string
	for _, m := range townLinkPattern.FindAllSubmatch(page, -1) {
		slugs = append(slugs, string(m[1]))
	}
	return slugs
}

// TownProduct returns the forecast product published on a town's forecast
// page, or "" if the page names none or no longer exists.
func (r *Resolver) TownProduct(ctx context.Context, state, town string) (string, error) {
	url := fmt.Sprintf("%s/%s/forecasts/%s.shtml", r.baseURL, state, town)
	page, err := r.fetcher.Get(ctx, url)
	if err != nil {
		if pageGone(err) {
			metrics.DataQualityWarnings.WithLabelValues("town_page_missing").Inc()
			r.logger.Debug("products: town forecast page missing", "state", state, "town", town, "error", err)
			return "", nil
		}
		return "", fmt.Errorf("forecast page %s/%s: %w", state, town, err)
	}
	return parseTownProduct(string(page)), nil
}

// pageGone reports whether err is the server saying the page does not exist.
func pageGone(err error) bool {
	var te *bomerr.TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode == http.StatusNotFound || te.StatusCode == http.StatusGone
}

func parseTownProduct(page string) string {
	text := htmlutil.ToText(page)
	if m := productPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := derivedFromPattern.FindStringSubmatch(text); m != nil {
		return m[2]
	}
	return ""
}
