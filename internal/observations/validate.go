package observations

import (
	"slices"

	"github.com/lox/bomweather/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedNegative  = "wind_speed_negative"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagRainNegative       = "rain_negative"
)

// CompassPoints are the sixteen wind directions the feed reports.
var CompassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Validate returns quality flags for readings outside physically plausible
// ranges. Absent readings are never flagged.
func Validate(obs *models.Observation) []string {
	var flags []string

	if obs.AirTemp.Valid {
		if obs.AirTemp.Float64 < -30 || obs.AirTemp.Float64 > 55 {
			flags = append(flags, FlagTempOutOfRange)
		}
	}

	if obs.RelHumidity.Valid {
		if obs.RelHumidity.Float64 < 0 || obs.RelHumidity.Float64 > 100 {
			flags = append(flags, FlagHumidityInvalid)
		}
	}

	if obs.WindDir.Valid {
		if obs.WindDir.String != "CALM" && !slices.Contains(CompassPoints, obs.WindDir.String) {
			flags = append(flags, FlagWindDirInvalid)
		}
	}

	if (obs.WindSpeedKmh.Valid && obs.WindSpeedKmh.Float64 < 0) || (obs.GustKmh.Valid && obs.GustKmh.Float64 < 0) {
		flags = append(flags, FlagWindSpeedNegative)
	}

	for _, p := range []struct {
		valid bool
		value float64
	}{
		{obs.Pressure.Valid, obs.Pressure.Float64},
		{obs.PressureMSL.Valid, obs.PressureMSL.Float64},
		{obs.PressureQNH.Valid, obs.PressureQNH.Float64},
	} {
		if p.valid && (p.value < 900 || p.value > 1100) {
			flags = append(flags, FlagPressureOutOfRange)
			break
		}
	}

	if obs.RainTrace.Valid && obs.RainTrace.Float64 < 0 {
		flags = append(flags, FlagRainNegative)
	}

	return flags
}
