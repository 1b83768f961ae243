package forecast

import (
	"database/sql"
	"testing"

	"github.com/lox/bomweather/internal/models"
)

func TestExtractCondition(t *testing.T) {
	tests := []struct {
		name      string
		narrative string
		tempMax   float64
		tempMin   float64
		want      WeatherCondition
	}{
		{
			name:      "hot day overrides narrative",
			narrative: "Partly cloudy",
			tempMax:   38,
			tempMin:   22,
			want:      ConditionHot,
		},
		{
			name:      "frost overrides narrative",
			narrative: "Clear skies",
			tempMax:   8,
			tempMin:   -2,
			want:      ConditionFrost,
		},
		{
			name:      "thunderstorm detection",
			narrative: "Thunderstorms developing in the afternoon",
			tempMax:   28,
			tempMin:   18,
			want:      ConditionStorm,
		},
		{
			name:      "storm detection",
			narrative: "Severe storms possible",
			tempMax:   30,
			tempMin:   20,
			want:      ConditionStorm,
		},
		{
			name:      "heavy rain",
			narrative: "Heavy rain expected",
			tempMax:   20,
			tempMin:   15,
			want:      ConditionHeavyRain,
		},
		{
			name:      "light rain - showers",
			narrative: "Scattered showers",
			tempMax:   22,
			tempMin:   14,
			want:      ConditionLightRain,
		},
		{
			name:      "light rain - drizzle",
			narrative: "Light drizzle in the morning",
			tempMax:   18,
			tempMin:   12,
			want:      ConditionLightRain,
		},
		{
			name:      "fog",
			narrative: "Morning fog clearing",
			tempMax:   20,
			tempMin:   10,
			want:      ConditionFog,
		},
		{
			name:      "mist",
			narrative: "Mist and low cloud",
			tempMax:   18,
			tempMin:   12,
			want:      ConditionFog,
		},
		{
			name:      "mostly cloudy",
			narrative: "Mostly cloudy with little sun",
			tempMax:   22,
			tempMin:   14,
			want:      ConditionMostlyCloudy,
		},
		{
			name:      "overcast",
			narrative: "Overcast skies",
			tempMax:   20,
			tempMin:   12,
			want:      ConditionMostlyCloudy,
		},
		{
			name:      "partly cloudy",
			narrative: "Partly cloudy",
			tempMax:   26,
			tempMin:   16,
			want:      ConditionPartlyCloudy,
		},
		{
			name:      "mix of sun and clouds",
			narrative: "A mix of sun and clouds",
			tempMax:   24,
			tempMin:   14,
			want:      ConditionPartlyCloudy,
		},
		{
			name:      "clear warm - sunny warm day",
			narrative: "Sunny and pleasant",
			tempMax:   28,
			tempMin:   18,
			want:      ConditionClearWarm,
		},
		{
			name:      "clear cool - sunny cool day",
			narrative: "Sunny",
			tempMax:   18,
			tempMin:   8,
			want:      ConditionClearCool,
		},
		{
			name:      "snow",
			narrative: "Snow falling above 1200 metres",
			tempMax:   6,
			tempMin:   3,
			want:      ConditionSnow,
		},
		{
			name:      "precis with full stop",
			narrative: "Mostly sunny.",
			tempMax:   24,
			tempMin:   14,
			want:      ConditionPartlyCloudy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCondition(tt.narrative, tt.tempMax, true, tt.tempMin, true)
			if got != tt.want {
				t.Errorf("ExtractCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractCondition_UnknownTemperatures(t *testing.T) {
	// A missing minimum of zero must not read as frost.
	if got := ExtractCondition("Sunny.", 0, false, 0, false); got != ConditionClearCool {
		t.Errorf("ExtractCondition() = %v, want %v", got, ConditionClearCool)
	}
	if got := ExtractCondition("Sunny.", 30, true, 0, false); got != ConditionClearWarm {
		t.Errorf("ExtractCondition() = %v, want %v", got, ConditionClearWarm)
	}
}

func TestCondition(t *testing.T) {
	str := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

	tests := []struct {
		name   string
		period models.ForecastPeriod
		want   WeatherCondition
	}{
		{
			name:   "icon code wins over narrative",
			period: models.ForecastPeriod{Icon: str("16"), Precis: str("Sunny.")},
			want:   ConditionStorm,
		},
		{
			name:   "shower icon",
			period: models.ForecastPeriod{Icon: str("11")},
			want:   ConditionLightRain,
		},
		{
			name:   "unknown icon falls back to precis",
			period: models.ForecastPeriod{Icon: str("99"), Precis: str("Fog then sunny.")},
			want:   ConditionFog,
		},
		{
			name:   "narrative used when precis absent",
			period: models.ForecastPeriod{Text: str("Cloudy. High chance of showers.")},
			want:   ConditionLightRain,
		},
		{
			name:   "temperatures as published",
			period: models.ForecastPeriod{Precis: str("Sunny."), TempMax: str("37")},
			want:   ConditionHot,
		},
		{
			name:   "nothing to go on",
			period: models.ForecastPeriod{},
			want:   ConditionUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Condition(tt.period); got != tt.want {
				t.Errorf("Condition() = %v, want %v", got, tt.want)
			}
		})
	}
}
