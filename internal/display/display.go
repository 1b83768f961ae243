// Package display renders stations, observations and forecasts for a terminal.
package display

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/lox/bomweather/internal/forecast"
	"github.com/lox/bomweather/internal/models"
)

var (
	labelColor   = color.New(color.FgCyan)
	valueColor   = color.New(color.FgWhite)
	dateColor    = color.New(color.FgGreen)
	sectionColor = color.New(color.FgBlue, color.Bold)
	numberColor  = color.New(color.FgGreen)
	missingColor = color.New(color.FgHiBlack)

	freshColor   = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	expiredColor = color.New(color.FgRed)
)

const missing = "n/a"

// observationAgeColor grades an observation by how long ago it was taken.
// Feeds are refreshed every half hour.
func observationAgeColor(taken, now time.Time) *color.Color {
	minutes := int(now.Sub(taken).Minutes())
	if minutes > 90 {
		return expiredColor
	} else if minutes > 45 {
		return warningColor
	}
	return freshColor
}

func field(sb *strings.Builder, label string, c *color.Color, value string) {
	labelColor.Fprintf(sb, "%-14s", label+":")
	if value == "" {
		missingColor.Fprint(sb, missing)
	} else {
		c.Fprint(sb, value)
	}
	sb.WriteString("\n")
}

func number(v sql.NullFloat64, unit string) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64) + unit
}

func text(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func coords(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// FormatStation formats an observation station.
func FormatStation(s models.Station) string {
	var sb strings.Builder
	sectionColor.Fprintln(&sb, s.SiteName)
	field(&sb, "Site", valueColor, s.SiteID)
	field(&sb, "WMO", valueColor, s.WMO)
	field(&sb, "Product", valueColor, s.ObsProduct)
	field(&sb, "State", valueColor, s.State)
	field(&sb, "Location", numberColor, coords(s.Lat, s.Lon))
	return sb.String()
}

// FormatForecastLocation formats a forecast town.
func FormatForecastLocation(f models.ForecastLocation) string {
	var sb strings.Builder
	sectionColor.Fprintln(&sb, f.SiteName)
	field(&sb, "Product", valueColor, f.Product)
	field(&sb, "State", valueColor, f.State)
	field(&sb, "Location", numberColor, coords(f.Lat, f.Lon))
	return sb.String()
}

// FormatObservation formats an observation; now decides how stale it looks.
func FormatObservation(o *models.Observation, now time.Time) string {
	var sb strings.Builder
	sectionColor.Fprintf(&sb, "%s (%d)\n", o.Name, o.WMO)

	field(&sb, "Taken", observationAgeColor(o.UTCTime, now),
		o.LocalTime.Format("Mon 2 Jan 15:04")+" local, "+o.UTCTime.Format("15:04 MST"))
	field(&sb, "Temperature", numberColor, number(o.AirTemp, "°C"))
	field(&sb, "Feels like", numberColor, number(o.ApparentTemp, "°C"))
	field(&sb, "Dew point", numberColor, number(o.Dewpoint, "°C"))
	field(&sb, "Humidity", numberColor, number(o.RelHumidity, "%"))

	wind := text(o.WindDir)
	if s := number(o.WindSpeedKmh, " km/h"); s != "" {
		wind = strings.TrimSpace(wind + " " + s)
	}
	if g := number(o.GustKmh, " km/h"); g != "" {
		wind += ", gusting " + g
	}
	field(&sb, "Wind", valueColor, wind)
	field(&sb, "Pressure", numberColor, number(o.PressureMSL, " hPa"))
	field(&sb, "Rain", numberColor, number(o.RainTrace, " mm"))
	field(&sb, "Cloud", valueColor, text(o.Cloud))
	field(&sb, "Visibility", numberColor, number(o.VisibilityKm, " km"))
	field(&sb, "Weather", valueColor, text(o.Weather))
	return sb.String()
}

// FormatForecast formats every period of a forecast in order.
func FormatForecast(f *models.Forecast) string {
	var sb strings.Builder
	sectionColor.Fprintf(&sb, "%s (%s, %s)\n", f.Name, f.Product, f.AAC)
	labelColor.Fprint(&sb, "Issued: ")
	dateColor.Fprintln(&sb, f.IssueTime.Format("Mon 2 Jan 2006 15:04 -07:00"))

	for _, p := range f.Periods {
		sb.WriteString("\n")
		dateColor.Fprintf(&sb, "%s  ", p.Start.Format("Mon 2 Jan"))
		valueColor.Fprintln(&sb, forecast.Condition(p))

		temps := ""
		if p.TempMin.Valid || p.TempMax.Valid {
			lo, hi := text(p.TempMin), text(p.TempMax)
			if lo == "" {
				lo = "-"
			}
			if hi == "" {
				hi = "-"
			}
			temps = lo + " / " + hi + " °C"
		}
		field(&sb, "Min / max", numberColor, temps)
		field(&sb, "Summary", valueColor, text(p.Precis))
		field(&sb, "Rain chance", numberColor, text(p.PrecipProb))
		if p.PrecipRange.Valid {
			field(&sb, "Rain amount", numberColor, p.PrecipRange.String)
		}
		if p.Text.Valid {
			field(&sb, "Forecast", valueColor, p.Text.String)
		}
	}
	return sb.String()
}
