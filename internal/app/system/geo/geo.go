// Package geo holds great-circle helpers for fare estimates and driver search.
package geo

import (
	"math"

	"github.com/dalemusser/ridehub/internal/domain/models"
)

const earthRadiusKm = 6371.0088

// ValidLatLng reports whether lat/lng are within WGS84 bounds.
func ValidLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lng)
}

// HaversineKm is the great-circle distance between two points in kilometres.
func HaversineKm(a, b models.GeoPoint) float64 {
	lat1, lat2 := rad(a.Lat()), rad(b.Lat())
	dLat := lat2 - lat1
	dLng := rad(b.Lng() - a.Lng())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
