// Package observations reads the latest readings from a station's JSON feed.
package observations

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lox/bomweather/internal/bomerr"
	"github.com/lox/bomweather/internal/metrics"
	"github.com/lox/bomweather/internal/models"
)

const (
	DefaultBaseURL = "http://www.bom.gov.au"

	// noData is what the feed publishes in place of a missing reading.
	noData = "-"

	timeLayout = "20060102150405"
)

// stationLocal is a zero-offset location used for the naive station-local
// timestamp; its offset carries no meaning.
var stationLocal = time.FixedZone("station local", 0)

// Fetcher retrieves a document body.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Client struct {
	fetcher Fetcher
	baseURL string
	logger  *slog.Logger
}

func NewClient(fetcher Fetcher, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{fetcher: fetcher, baseURL: baseURL, logger: logger}
}

// URL is the JSON feed for a station.
func (c *Client) URL(wmo, product string) string {
	return fmt.Sprintf("%s/fwo/%s/%s.%s.json", c.baseURL, product, product, wmo)
}

// Latest returns the most recent observation.
func (c *Client) Latest(ctx context.Context, wmo, product string) (*models.Observation, error) {
	return c.Get(ctx, wmo, product, 0)
}

// Name returns the station name the feed reports.
func (c *Client) Name(ctx context.Context, wmo, product string) (string, error) {
	obs, err := c.Latest(ctx, wmo, product)
	if err != nil {
		return "", err
	}
	return obs.Name, nil
}

// Get returns the observation at position idx of the feed, 0 being the most recent.
func (c *Client) Get(ctx context.Context, wmo, product string, idx int) (*models.Observation, error) {
	body, err := c.fetcher.Get(ctx, c.URL(wmo, product))
	if err != nil {
		return nil, fmt.Errorf("observations %s.%s: %w", product, wmo, err)
	}

	obs, err := Parse(body, idx)
	if err != nil {
		var fe *bomerr.FormatError
		if errors.As(err, &fe) && fe.Subject == "" {
			fe.Subject = product + "." + wmo
		}
		return nil, err
	}

	if flags := Validate(obs); len(flags) > 0 {
		for _, f := range flags {
			metrics.DataQualityWarnings.WithLabelValues(f).Inc()
		}
		c.logger.Warn("observations: implausible values", "wmo", wmo, "product", product, "flags", flags)
	}
	return obs, nil
}

type feed struct {
	Observations *struct {
		Data []map[string]any `json:"data"`
	} `json:"observations"`
}

// Parse decodes an observation feed and returns element idx of its data array.
func Parse(body []byte, idx int) (*models.Observation, error) {
	var f feed
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return nil, &bomerr.FormatError{Source: "observation feed", Err: fmt.Errorf("decode: %w", err)}
	}
	if f.Observations == nil {
		return nil, bomerr.Formatf("observation feed", "", "missing observations object")
	}
	if idx < 0 || idx >= len(f.Observations.Data) {
		return nil, bomerr.Formatf("observation feed", "", "observation %d requested, feed has %d", idx, len(f.Observations.Data))
	}

	r := record(Clean(f.Observations.Data[idx]))
	return r.observation()
}

// Clean replaces every no-data placeholder with nil, in place.
func Clean(rec map[string]any) map[string]any {
	for k, v := range rec {
		if s, ok := v.(string); ok && s == noData {
			rec[k] = nil
		}
	}
	return rec
}

type record map[string]any

func (r record) observation() (*models.Observation, error) {
	var p parser
	p.rec = r

	obs := &models.Observation{
		WMO:            p.integer("wmo"),
		Name:           p.requiredString("name"),
		HistoryProduct: p.requiredString("history_product"),
		LocalTime:      p.timestamp("local_date_time_full", stationLocal),
		UTCTime:        p.timestamp("aifstime_utc", time.UTC),
		Lat:            p.requiredFloat("lat"),
		Lon:            p.requiredFloat("lon"),
		ApparentTemp:   p.float("apparent_t"),
		Cloud:          p.str("cloud"),
		CloudBase:      p.float("cloud_base_m"),
		CloudOktas:     p.float("cloud_oktas"),
		CloudType:      p.str("cloud_type"),
		DeltaT:         p.float("delta_t"),
		GustKmh:        p.float("gust_kmh"),
		GustKt:         p.float("gust_kt"),
		AirTemp:        p.float("air_temp"),
		Dewpoint:       p.float("dewpt"),
		Pressure:       p.float("press"),
		PressureMSL:    p.float("press_msl"),
		PressureQNH:    p.float("press_qnh"),
		RainTrace:      p.float("rain_trace"),
		RelHumidity:    p.float("rel_hum"),
		VisibilityKm:   p.float("vis_km"),
		Weather:        p.str("weather"),
		WindDir:        p.str("wind_dir"),
		WindSpeedKmh:   p.float("wind_spd_kmh"),
		WindSpeedKt:    p.float("wind_spd_kt"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return obs, nil
}

// parser extracts typed fields and keeps the first error it meets.
type parser struct {
	rec record
	err error
}

func (p *parser) fail(key, format string, args ...any) {
	if p.err == nil {
		p.err = bomerr.Formatf("observation feed", "", "field %s: %s", key, fmt.Sprintf(format, args...))
	}
}

func (p *parser) lookup(key string) (any, bool) {
	v, ok := p.rec[key]
	if !ok {
		p.fail(key, "missing")
	}
	return v, ok
}

func (p *parser) float(key string) sql.NullFloat64 {
	v, ok := p.lookup(key)
	if !ok || v == nil {
		return sql.NullFloat64{}
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			p.fail(key, "%v", err)
			return sql.NullFloat64{}
		}
		return sql.NullFloat64{Float64: f, Valid: true}
	case string:
		// vis_km and rain_trace are published as text.
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			p.fail(key, "not numeric: %q", n)
			return sql.NullFloat64{}
		}
		return sql.NullFloat64{Float64: f, Valid: true}
	default:
		p.fail(key, "unexpected type %T", v)
		return sql.NullFloat64{}
	}
}

func (p *parser) str(key string) sql.NullString {
	v, ok := p.lookup(key)
	if !ok || v == nil {
		return sql.NullString{}
	}
	switch s := v.(type) {
	case string:
		return sql.NullString{String: s, Valid: true}
	case json.Number:
		return sql.NullString{String: s.String(), Valid: true}
	default:
		p.fail(key, "unexpected type %T", v)
		return sql.NullString{}
	}
}

func (p *parser) requiredFloat(key string) float64 {
	v := p.float(key)
	if !v.Valid {
		p.fail(key, "no value")
	}
	return v.Float64
}

func (p *parser) requiredString(key string) string {
	v := p.str(key)
	if !v.Valid {
		p.fail(key, "no value")
	}
	return v.String
}

func (p *parser) integer(key string) int {
	s := p.requiredString(key)
	if p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, "not an integer: %q", s)
	}
	return n
}

func (p *parser) timestamp(key string, loc *time.Location) time.Time {
	s := p.requiredString(key)
	if p.err != nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(timeLayout, s, loc)
	if err != nil {
		p.fail(key, "%v", err)
	}
	return t
}
