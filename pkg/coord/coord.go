// Package coord reprojects geographic coordinates from WGS84 (EPSG:4326)
// to Web Mercator (EPSG:3857), the projection all occurrence locations
// are stored in.
package coord

import (
	"errors"
	"math"
)

// earthRadius is the WGS84 semi-major axis in meters, the sphere radius
// used by the Web Mercator definition.
const earthRadius = 6378137.0

// MaxLatitude is the latitude limit of the Web Mercator projection.
// Beyond it the projected y coordinate diverges.
const MaxLatitude = 85.05112877980659

var (
	ErrLatitudeOutOfRange  = errors.New("latitude out of Web Mercator range")
	ErrLongitudeOutOfRange = errors.New("longitude out of range")
)

// ToWebMercator converts a WGS84 latitude/longitude pair (degrees) to
// Web Mercator meters. Latitudes beyond MaxLatitude and longitudes
// outside [-180, 180] are rejected.
func ToWebMercator(lat, lon float64) (x, y float64, err error) {
	if math.IsNaN(lat) || math.Abs(lat) > MaxLatitude {
		return 0, 0, ErrLatitudeOutOfRange
	}
	if math.IsNaN(lon) || math.Abs(lon) > 180 {
		return 0, 0, ErrLongitudeOutOfRange
	}

	x = earthRadius * lon * math.Pi / 180
	y = earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y, nil
}
