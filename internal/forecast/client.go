// Package forecast retrieves and decodes the Bureau's per-product forecast XML.
package forecast

import (
	"context"
	"database/sql"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lox/bomweather/internal/bomerr"
	"github.com/lox/bomweather/internal/metrics"
	"github.com/lox/bomweather/internal/models"
)

const (
	// ProductDir is the FTP directory holding one XML document per product.
	ProductDir = "/anon/gen/fwo/"

	areaLocation     = "location"
	areaMetropolitan = "metropolitan"
)

// Retriever fetches a file from the FTP service.
type Retriever interface {
	Retrieve(ctx context.Context, path string) ([]byte, error)
}

type Client struct {
	ftp    Retriever
	logger *slog.Logger
}

func NewClient(ftp Retriever, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{ftp: ftp, logger: logger}
}

// Path is the FTP path of a forecast product document.
func Path(product string) string {
	return ProductDir + product + ".xml"
}

// Fetch downloads the forecast for product and decodes the area described by
// name, or the first location area when name is empty.
func (c *Client) Fetch(ctx context.Context, product, name string) (*models.Forecast, error) {
	body, err := c.ftp.Retrieve(ctx, Path(product))
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", product, err)
	}
	return parse(product, name, body, c.logger)
}

// Parse decodes a forecast document.
func Parse(product, name string, body []byte) (*models.Forecast, error) {
	return parse(product, name, body, slog.Default())
}

type xmlProduct struct {
	XMLName xml.Name `xml:"product"`
	Amoc    struct {
		IssueTimeLocal string `xml:"issue-time-local"`
	} `xml:"amoc"`
	Areas []xmlArea `xml:"forecast>area"`
}

type xmlArea struct {
	AAC         string      `xml:"aac,attr"`
	Description string      `xml:"description,attr"`
	Type        string      `xml:"type,attr"`
	Periods     []xmlPeriod `xml:"forecast-period"`
}

type xmlPeriod struct {
	Index  int        `xml:"index,attr"`
	Start  string     `xml:"start-time-utc,attr"`
	End    string     `xml:"end-time-utc,attr"`
	Values []xmlValue `xml:",any"`
}

// xmlValue is any period child; the feed mixes <element> and <text> nodes,
// both keyed by their type attribute.
type xmlValue struct {
	XMLName xml.Name
	Type    string `xml:"type,attr"`
	Value   string `xml:",chardata"`
}

// value returns the first child of the given type.
func (p *xmlPeriod) value(typ string) sql.NullString {
	for _, v := range p.Values {
		if v.Type != typ {
			continue
		}
		s := strings.TrimSpace(v.Value)
		return sql.NullString{String: s, Valid: s != ""}
	}
	return sql.NullString{}
}

func parse(product, name string, body []byte, logger *slog.Logger) (*models.Forecast, error) {
	var doc xmlProduct
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &bomerr.FormatError{Source: "forecast", Subject: product, Err: fmt.Errorf("unmarshal xml: %w", err)}
	}

	issued := strings.TrimSpace(doc.Amoc.IssueTimeLocal)
	if issued == "" {
		return nil, bomerr.Formatf("forecast", product, "missing amoc issue-time-local")
	}
	issueTime, err := time.Parse(time.RFC3339, issued)
	if err != nil {
		return nil, bomerr.Formatf("forecast", product, "issue time %q: %v", issued, err)
	}

	var locations []*xmlArea
	var metro *xmlArea
	for i := range doc.Areas {
		switch doc.Areas[i].Type {
		case areaLocation:
			locations = append(locations, &doc.Areas[i])
		case areaMetropolitan:
			if metro == nil {
				metro = &doc.Areas[i]
			}
		}
	}
	if len(locations) == 0 {
		return nil, bomerr.Formatf("forecast", product, "no location areas")
	}

	area := locations[0]
	if name != "" && name != area.Description {
		found := false
		for _, loc := range locations {
			if loc.Description == name {
				area, found = loc, true
				break
			}
		}
		if !found {
			logger.Warn("forecast: no location area with that description, using first", "product", product, "name", name, "using", area.Description)
		}
	}

	fc := &models.Forecast{
		Product:   product,
		AAC:       area.AAC,
		Name:      area.Description,
		IssueTime: issueTime,
		Periods:   make([]models.ForecastPeriod, 0, len(area.Periods)),
	}

	for i := range area.Periods {
		xp := &area.Periods[i]
		start, err := periodTime(xp.Start)
		if err != nil {
			return nil, bomerr.Formatf("forecast", product, "period %d start: %v", xp.Index, err)
		}
		end, err := periodTime(xp.End)
		if err != nil {
			return nil, bomerr.Formatf("forecast", product, "period %d end: %v", xp.Index, err)
		}

		p := models.ForecastPeriod{
			Index:       xp.Index,
			Start:       start,
			End:         end,
			Icon:        xp.value("forecast_icon_code"),
			Text:        xp.value("forecast"),
			TempMin:     xp.value("air_temperature_minimum"),
			TempMax:     xp.value("air_temperature_maximum"),
			Precis:      xp.value("precis"),
			PrecipProb:  xp.value("probability_of_precipitation"),
			PrecipRange: xp.value("precipitation_range"),
		}

		if !p.Text.Valid && metro != nil {
			p.Text = metroText(metro, i, xp.Index, product, logger)
		}
		fc.Periods = append(fc.Periods, p)
	}

	return fc, nil
}

// metroText borrows the narrative from the metropolitan period at the same
// position, provided both periods carry the same index.
func metroText(metro *xmlArea, pos, index int, product string, logger *slog.Logger) sql.NullString {
	if pos >= len(metro.Periods) || metro.Periods[pos].Index != index {
		metrics.DataQualityWarnings.WithLabelValues("metro_period_mismatch").Inc()
		logger.Warn("forecast: metropolitan period does not line up, leaving text empty", "product", product, "position", pos, "index", index)
		return sql.NullString{}
	}
	return metro.Periods[pos].value("forecast")
}

func periodTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
