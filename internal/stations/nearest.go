package stations

import (
	"fmt"
	"math"

	"github.com/lox/bomweather/internal/bomerr"
)

// Located is anything with a latitude and longitude.
type Located interface {
	Coordinates() (lat, lon float64)
}

// Distance returns the great-circle distance in kilometres between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	const p = math.Pi / 180
	a := 0.5 - math.Cos((lat2-lat1)*p)/2 +
		math.Cos(lat1*p)*math.Cos(lat2*p)*(1-math.Cos((lon2-lon1)*p))/2
	// Rounding can push a a hair outside [0, 1] for coincident or antipodal points.
	a = math.Min(1, math.Max(0, a))
	return 12742 * math.Asin(math.Sqrt(a))
}

// CheckCoordinates rejects a latitude outside [-90, 90], a longitude outside
// [-180, 180], and non-finite values.
func CheckCoordinates(lat, lon float64) error {
	finite := !math.IsNaN(lat) && !math.IsNaN(lon) && !math.IsInf(lat, 0) && !math.IsInf(lon, 0)
	if !finite || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return fmt.Errorf("%w: lat %v, lon %v", bomerr.ErrInvalidCoordinates, lat, lon)
	}
	return nil
}

// Closest returns the entry nearest to lat, lon. Ties go to the entry seen first.
func Closest[T Located](idx *Index[T], lat, lon float64) (T, error) {
	var best T
	if err := CheckCoordinates(lat, lon); err != nil {
		return best, err
	}
	if idx == nil || idx.Len() == 0 {
		return best, bomerr.ErrEmptyIndex
	}

	bestDist := math.Inf(1)
	for _, v := range idx.All() {
		vlat, vlon := v.Coordinates()
		if d := Distance(lat, lon, vlat, vlon); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best, nil
}
