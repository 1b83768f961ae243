package forecast

import (
	"strconv"
	"strings"

	"github.com/lox/bomweather/internal/models"
)

// WeatherCondition is a coarse category for a forecast period.
type WeatherCondition string

const (
	ConditionUnknown      WeatherCondition = "unknown"
	ConditionClearWarm    WeatherCondition = "clear_warm"
	ConditionClearCool    WeatherCondition = "clear_cool"
	ConditionPartlyCloudy WeatherCondition = "partly_cloudy"
	ConditionMostlyCloudy WeatherCondition = "mostly_cloudy"
	ConditionLightRain    WeatherCondition = "light_rain"
	ConditionHeavyRain    WeatherCondition = "heavy_rain"
	ConditionStorm        WeatherCondition = "storm"
	ConditionFog          WeatherCondition = "fog"
	ConditionHot          WeatherCondition = "hot"
	ConditionFrost        WeatherCondition = "frost"
	ConditionSnow         WeatherCondition = "snow"
	ConditionWindy        WeatherCondition = "windy"
	ConditionDust         WeatherCondition = "dust"
	ConditionCyclone      WeatherCondition = "cyclone"
)

// iconConditions maps the Bureau's forecast_icon_code values.
var iconConditions = map[int]WeatherCondition{
	1:  ConditionClearWarm, // sunny
	2:  ConditionClearCool, // clear
	3:  ConditionPartlyCloudy,
	4:  ConditionMostlyCloudy,
	6:  ConditionFog, // haze
	8:  ConditionLightRain,
	9:  ConditionWindy,
	10: ConditionFog,
	11: ConditionLightRain, // shower
	12: ConditionHeavyRain, // rain
	13: ConditionDust,
	14: ConditionFrost,
	15: ConditionSnow,
	16: ConditionStorm,
	17: ConditionLightRain,
	18: ConditionHeavyRain,
	19: ConditionCyclone,
}

// Condition categorises a period by its icon code, falling back to the precis
// or narrative text when the code is absent or unknown.
func Condition(p models.ForecastPeriod) WeatherCondition {
	if p.Icon.Valid {
		if code, err := strconv.Atoi(p.Icon.String); err == nil {
			if c, ok := iconConditions[code]; ok {
				return c
			}
		}
	}

	narrative := p.Precis.String
	if !p.Precis.Valid {
		narrative = p.Text.String
	}
	tempMax, hasMax := parseTemp(p.TempMax.String, p.TempMax.Valid)
	tempMin, hasMin := parseTemp(p.TempMin.String, p.TempMin.Valid)
	if narrative == "" && !hasMax && !hasMin {
		return ConditionUnknown
	}
	return ExtractCondition(narrative, tempMax, hasMax, tempMin, hasMin)
}

func parseTemp(s string, valid bool) (float64, bool) {
	if !valid {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

// ExtractCondition determines the weather condition category from a narrative
// and whichever temperature bounds are known.
func ExtractCondition(narrative string, tempMax float64, hasMax bool, tempMin float64, hasMin bool) WeatherCondition {
	lower := strings.ToLower(narrative)

	// Temperature extremes take priority
	if hasMax && tempMax >= 35 {
		return ConditionHot
	}
	if hasMin && tempMin <= 2 {
		return ConditionFrost
	}

	if strings.Contains(lower, "thunder") || strings.Contains(lower, "storm") {
		return ConditionStorm
	}

	if strings.Contains(lower, "heavy rain") {
		return ConditionHeavyRain
	}
	if strings.Contains(lower, "rain") || strings.Contains(lower, "shower") ||
		strings.Contains(lower, "drizzle") {
		return ConditionLightRain
	}

	if strings.Contains(lower, "snow") {
		return ConditionSnow
	}

	if strings.Contains(lower, "fog") || strings.Contains(lower, "mist") ||
		strings.Contains(lower, "haze") {
		return ConditionFog
	}

	if strings.Contains(lower, "windy") {
		return ConditionWindy
	}

	if strings.Contains(lower, "mostly cloudy") || strings.Contains(lower, "overcast") ||
		strings.Contains(lower, "cloudy") {
		if strings.Contains(lower, "partly cloudy") {
			return ConditionPartlyCloudy
		}
		return ConditionMostlyCloudy
	}
	if strings.Contains(lower, "mix of") || strings.Contains(lower, "mostly sunny") {
		return ConditionPartlyCloudy
	}

	if hasMax && tempMax >= 25 {
		return ConditionClearWarm
	}
	return ConditionClearCool
}
