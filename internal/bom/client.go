// Package bom is the query surface over the Bureau of Meteorology's public
// feeds: nearest station lookup, latest observations and forecasts.
package bom

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lox/bomweather/internal/cache"
	"github.com/lox/bomweather/internal/forecast"
	"github.com/lox/bomweather/internal/ftputil"
	"github.com/lox/bomweather/internal/httputil"
	"github.com/lox/bomweather/internal/models"
	"github.com/lox/bomweather/internal/observations"
	"github.com/lox/bomweather/internal/products"
	"github.com/lox/bomweather/internal/stations"
)

// Retriever fetches a file from the FTP service.
type Retriever interface {
	Retrieve(ctx context.Context, path string) ([]byte, error)
}

type Options struct {
	BaseURL       string        // web site root, defaults to http://www.bom.gov.au
	FTPHost       string        // host:port, defaults to ftp.bom.gov.au:21
	Timeout       time.Duration // per request, defaults to 10s
	HTTPClient    *http.Client  // overrides Timeout for HTTP when set
	FTP           Retriever     // overrides FTPHost when set
	Cache         cache.Provider
	Jurisdictions []string // defaults to models.Jurisdictions
	Logger        *slog.Logger
}

type Client struct {
	locations    *stations.Locations
	observations *observations.Client
	forecasts    *forecast.Client
	logger       *slog.Logger
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httputil.NewClient(opts.Timeout)
	}
	fetcher := httputil.NewFetcher(httpClient)

	var ftp Retriever = opts.FTP
	if ftp == nil {
		ftp = ftputil.NewClient(opts.FTPHost, opts.Timeout)
	}

	resolver := products.NewResolver(fetcher, opts.BaseURL, opts.Cache, logger)
	if len(opts.Jurisdictions) > 0 {
		resolver.WithJurisdictions(opts.Jurisdictions...)
	}

	return &Client{
		locations:    stations.NewLocations(ftp, opts.Cache, resolver, logger),
		observations: observations.NewClient(fetcher, opts.BaseURL, logger),
		forecasts:    forecast.NewClient(ftp, logger),
		logger:       logger,
	}
}

// ObservationLocations returns every station with an observation feed, keyed by WMO.
func (c *Client) ObservationLocations(ctx context.Context, refresh bool) (*stations.Index[models.Station], error) {
	return c.locations.ObservationIndex(ctx, refresh)
}

// ForecastLocations returns every forecast town that could be placed, keyed by product.
func (c *Client) ForecastLocations(ctx context.Context, refresh bool) (*stations.Index[models.ForecastLocation], error) {
	return c.locations.ForecastIndex(ctx, refresh)
}

// NearestObservationStation returns the observation station closest to lat, lon.
func (c *Client) NearestObservationStation(ctx context.Context, lat, lon float64, refresh bool) (models.Station, error) {
	if err := stations.CheckCoordinates(lat, lon); err != nil {
		return models.Station{}, err
	}
	idx, err := c.ObservationLocations(ctx, refresh)
	if err != nil {
		return models.Station{}, err
	}
	return stations.Closest(idx, lat, lon)
}

// NearestForecastLocation returns the forecast location closest to lat, lon.
func (c *Client) NearestForecastLocation(ctx context.Context, lat, lon float64, refresh bool) (models.ForecastLocation, error) {
	if err := stations.CheckCoordinates(lat, lon); err != nil {
		return models.ForecastLocation{}, err
	}
	idx, err := c.ForecastLocations(ctx, refresh)
	if err != nil {
		return models.ForecastLocation{}, err
	}
	return stations.Closest(idx, lat, lon)
}

func (c *Client) LatestObservation(ctx context.Context, wmo, product string) (*models.Observation, error) {
	return c.observations.Latest(ctx, wmo, product)
}

// StationName returns the name a station's feed reports for itself.
func (c *Client) StationName(ctx context.Context, wmo, product string) (string, error) {
	return c.observations.Name(ctx, wmo, product)
}

// Forecast returns the forecast for the area described by name within
// product, or its first location when name is empty.
func (c *Client) Forecast(ctx context.Context, product, name string) (*models.Forecast, error) {
	return c.forecasts.Fetch(ctx, product, name)
}

// Refresh rebuilds every cached lookup table from the source feeds.
func (c *Client) Refresh(ctx context.Context) error {
	start := time.Now()
	obs, err := c.locations.ObservationIndex(ctx, true)
	if err != nil {
		return err
	}
	towns, err := c.locations.ForecastIndexFrom(ctx, obs, true)
	if err != nil {
		return err
	}
	c.logger.Info("bom: lookup tables refreshed",
		"stations", obs.Len(),
		"forecast_locations", towns.Len(),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}
