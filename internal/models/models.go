package models

import (
	"database/sql"
	"time"
)

// Jurisdictions are the state and territory codes the Bureau partitions its
// listing pages by, in scrape order.
var Jurisdictions = []string{"ant", "nsw", "nt", "qld", "tas", "vic", "wa"}

// Station is an observation site with a published observation feed.
type Station struct {
	SiteID     string
	SiteName   string
	Lat        float64
	Lon        float64
	State      string // upper case as published in the station table, e.g. "QLD"
	WMO        string
	ObsProduct string
}

func (s Station) Coordinates() (float64, float64) { return s.Lat, s.Lon }

// ForecastLocation is a forecast town positioned at its matched station.
type ForecastLocation struct {
	SiteName string // town slug, e.g. "redcliffe"
	Product  string
	Lat      float64
	Lon      float64
	State    string // lower case jurisdiction code, e.g. "qld"
}

func (f ForecastLocation) Coordinates() (float64, float64) { return f.Lat, f.Lon }

// TownProduct maps a forecast town slug to its forecast product.
type TownProduct struct {
	Town    string `json:"town"`
	Product string `json:"product"`
	State   string `json:"state"`
}

type Observation struct {
	WMO            int
	Name           string
	HistoryProduct string
	LocalTime      time.Time // station local wall clock, no zone information
	UTCTime        time.Time
	Lat            float64
	Lon            float64
	ApparentTemp   sql.NullFloat64
	Cloud          sql.NullString
	CloudBase      sql.NullFloat64 // metres
	CloudOktas     sql.NullFloat64
	CloudType      sql.NullString
	DeltaT         sql.NullFloat64
	GustKmh        sql.NullFloat64
	GustKt         sql.NullFloat64
	AirTemp        sql.NullFloat64
	Dewpoint       sql.NullFloat64
	Pressure       sql.NullFloat64
	PressureMSL    sql.NullFloat64
	PressureQNH    sql.NullFloat64
	RainTrace      sql.NullFloat64
	RelHumidity    sql.NullFloat64
	VisibilityKm   sql.NullFloat64
	Weather        sql.NullString
	WindDir        sql.NullString
	WindSpeedKmh   sql.NullFloat64
	WindSpeedKt    sql.NullFloat64
}

// ForecastPeriod covers [Start, End) in UTC. Values are kept as published.
type ForecastPeriod struct {
	Index       int
	Start       time.Time
	End         time.Time
	Icon        sql.NullString
	Text        sql.NullString
	TempMin     sql.NullString
	TempMax     sql.NullString
	Precis      sql.NullString
	PrecipProb  sql.NullString // e.g. "40%"
	PrecipRange sql.NullString // e.g. "0 to 2 mm"
}

type Forecast struct {
	Product   string
	AAC       string
	Name      string
	IssueTime time.Time
	Periods   []ForecastPeriod
}
