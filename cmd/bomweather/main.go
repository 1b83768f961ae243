package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"

	_ "modernc.org/sqlite"

	"github.com/lox/bomweather/internal/bom"
	"github.com/lox/bomweather/internal/config"
	"github.com/lox/bomweather/internal/display"
)

type CLI struct {
	config.Config

	Station          StationCmd          `cmd:"" help:"Nearest observation station to a coordinate."`
	ForecastLocation ForecastLocationCmd `cmd:"" name:"forecast-location" help:"Nearest forecast location to a coordinate."`
	Observation      ObservationCmd      `cmd:"" help:"Latest observation for a station."`
	Forecast         ForecastCmd         `cmd:"" help:"Forecast for a product."`
	Refresh          RefreshCmd          `cmd:"" help:"Rebuild the cached lookup tables."`
}

// App is what every command runs against.
type App struct {
	Client  *bom.Client
	Logger  *slog.Logger
	Out     io.Writer
	Clock   clockwork.Clock
	Retries uint64
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bomweather"),
		kong.Description("Australian Bureau of Meteorology observations, forecasts and nearest-station lookup."),
		kong.UsageOnError(),
		kong.Vars(config.Vars()),
	)

	if err := run(kctx, &cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context, cli *CLI) error {
	logger := cli.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	if cli.NoColor {
		color.NoColor = true
	}

	clock := clockwork.NewRealClock()
	provider, closeCache, err := cli.OpenCache(clock)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Warn("close cache", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{
		Client:  bom.New(cli.ClientOptions(provider, logger)),
		Logger:  logger,
		Out:     os.Stdout,
		Clock:   clock,
		Retries: cli.Retries,
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	runErr := kctx.Run(app)

	if cli.Metrics {
		if err := writeMetrics(os.Stderr); err != nil {
			logger.Warn("write metrics", "error", err)
		}
	}
	return runErr
}

// Coordinates are the shared flags of the nearest-location commands.
type Coordinates struct {
	Lat     float64 `required:"" help:"Latitude in decimal degrees, south negative (--lat=-27.47)."`
	Lon     float64 `required:"" help:"Longitude in decimal degrees."`
	Refresh bool    `help:"Rebuild the lookup tables before searching."`
}

type StationCmd struct {
	Coordinates
}

func (c *StationCmd) Run(ctx context.Context, app *App) error {
	return app.retry(ctx, func() error {
		st, err := app.Client.NearestObservationStation(ctx, c.Lat, c.Lon, c.Refresh)
		if err != nil {
			return err
		}
		fmt.Fprint(app.Out, display.FormatStation(st))
		return nil
	})
}

type ForecastLocationCmd struct {
	Coordinates
}

func (c *ForecastLocationCmd) Run(ctx context.Context, app *App) error {
	return app.retry(ctx, func() error {
		loc, err := app.Client.NearestForecastLocation(ctx, c.Lat, c.Lon, c.Refresh)
		if err != nil {
			return err
		}
		fmt.Fprint(app.Out, display.FormatForecastLocation(loc))
		return nil
	})
}

type ObservationCmd struct {
	WMO     string `arg:"" name:"wmo" help:"WMO station number, e.g. 95551."`
	Product string `arg:"" help:"Observation product, e.g. IDQ60801."`
}

func (c *ObservationCmd) Run(ctx context.Context, app *App) error {
	return app.retry(ctx, func() error {
		obs, err := app.Client.LatestObservation(ctx, c.WMO, c.Product)
		if err != nil {
			return err
		}
		fmt.Fprint(app.Out, display.FormatObservation(obs, app.Clock.Now()))
		return nil
	})
}

type ForecastCmd struct {
	Product string `arg:"" help:"Forecast product, e.g. IDQ10095."`
	Name    string `arg:"" optional:"" help:"Location description within the product; defaults to the first."`
}

func (c *ForecastCmd) Run(ctx context.Context, app *App) error {
	return app.retry(ctx, func() error {
		fc, err := app.Client.Forecast(ctx, c.Product, c.Name)
		if err != nil {
			return err
		}
		fmt.Fprint(app.Out, display.FormatForecast(fc))
		return nil
	})
}

type RefreshCmd struct{}

func (c *RefreshCmd) Run(ctx context.Context, app *App) error {
	return app.retry(ctx, func() error {
		return app.Client.Refresh(ctx)
	})
}
