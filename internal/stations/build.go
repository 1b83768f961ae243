package stations

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"github.com/lox/bomweather/internal/cache"
	"github.com/lox/bomweather/internal/models"
)

// CacheKey is the cache entry holding the raw station table.
const CacheKey = "stations.txt"

// BuildObservationIndex keeps the parsed stations that have an observation
// product, keyed by WMO in table order. The first parse error is returned.
func BuildObservationIndex(rows iter.Seq2[models.Station, error], products map[string]string) (*Index[models.Station], error) {
	idx := newIndex[models.Station]()
	for st, err := range rows {
		if err != nil {
			return nil, err
		}
		product, ok := products[st.WMO]
		if !ok {
			continue
		}
		st.ObsProduct = product
		idx.set(st.WMO, st)
	}
	return idx, nil
}

// BuildForecastIndex positions each forecast town at the first station in the
// same jurisdiction whose name contains the town name. Towns without such a
// station are left out.
func BuildForecastIndex(towns []models.TownProduct, stations *Index[models.Station]) *Index[models.ForecastLocation] {
	idx := newIndex[models.ForecastLocation]()
	for _, town := range towns {
		st, ok := matchTown(town, stations)
		if !ok {
			continue
		}
		idx.set(town.Product, models.ForecastLocation{
			SiteName: town.Town,
			Product:  town.Product,
			Lat:      st.Lat,
			Lon:      st.Lon,
			State:    town.State,
		})
	}
	return idx
}

func matchTown(town models.TownProduct, stations *Index[models.Station]) (models.Station, bool) {
	name, _, _ := strings.Cut(strings.ToLower(town.Town), "-")
	for _, st := range stations.All() {
		if !strings.EqualFold(st.State, town.State) {
			continue
		}
		if strings.Contains(strings.ToLower(st.SiteName), name) {
			return st, true
		}
	}
	return models.Station{}, false
}

// ProductSource resolves the product identifiers the indexes are joined with.
type ProductSource interface {
	ObservationProducts(ctx context.Context, refresh bool) (map[string]string, error)
	ForecastProducts(ctx context.Context, refresh bool) ([]models.TownProduct, error)
}

// Locations builds the location indexes from the station table and product
// mappings, going through the cache for each.
type Locations struct {
	ftp      Retriever
	cache    cache.Provider
	products ProductSource
	logger   *slog.Logger
}

func NewLocations(ftp Retriever, c cache.Provider, products ProductSource, logger *slog.Logger) *Locations {
	if c == nil {
		c = cache.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locations{ftp: ftp, cache: c, products: products, logger: logger}
}

// Table returns the station table lines.
func (l *Locations) Table(ctx context.Context, refresh bool) ([]string, error) {
	table, err := cache.Get(ctx, l.logger, l.cache, CacheKey, refresh, func(ctx context.Context) ([]byte, error) {
		return FetchTable(ctx, l.ftp)
	})
	if err != nil {
		return nil, err
	}
	return SplitLines(table), nil
}

func (l *Locations) ObservationIndex(ctx context.Context, refresh bool) (*Index[models.Station], error) {
	products, err := l.products.ObservationProducts(ctx, refresh)
	if err != nil {
		return nil, err
	}
	lines, err := l.Table(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return BuildObservationIndex(ParseTable(lines), products)
}

func (l *Locations) ForecastIndex(ctx context.Context, refresh bool) (*Index[models.ForecastLocation], error) {
	stations, err := l.ObservationIndex(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return l.ForecastIndexFrom(ctx, stations, refresh)
}

// ForecastIndexFrom places the forecast towns against an observation index
// the caller already holds.
func (l *Locations) ForecastIndexFrom(ctx context.Context, stations *Index[models.Station], refresh bool) (*Index[models.ForecastLocation], error) {
	towns, err := l.products.ForecastProducts(ctx, refresh)
	if err != nil {
		return nil, err
	}
	idx := BuildForecastIndex(towns, stations)
	if unplaced := len(towns) - idx.Len(); unplaced > 0 {
		l.logger.Debug("stations: forecast towns without a matching station", "towns", len(towns), "unplaced", unplaced)
	}
	return idx, nil
}
