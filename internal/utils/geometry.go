package utils

import "math"

// RadiusOfEarthInMeters is the mean Earth radius.
const RadiusOfEarthInMeters = 6371010.0

// CoordinateBounds is a latitude/longitude box.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b CoordinateBounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Distance returns the great-circle distance in meters. Points closer than
// about 0.2 degrees use the equirectangular approximation.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad, lat2Rad := toRadians(lat1), toRadians(lat2)
	dLat := lat2Rad - lat1Rad
	dLon := toRadians(lon2 - lon1)

	if math.Abs(lat2-lat1) < 0.2 && math.Abs(lon2-lon1) < 0.2 {
		x := dLon * math.Cos((lat1Rad+lat2Rad)/2)
		return RadiusOfEarthInMeters * math.Hypot(x, dLat)
	}

	y := math.Hypot(
		math.Cos(lat2Rad)*math.Sin(dLon),
		math.Cos(lat1Rad)*math.Sin(lat2Rad)-math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLon),
	)
	x := math.Sin(lat1Rad)*math.Sin(lat2Rad) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLon)
	return RadiusOfEarthInMeters * math.Atan2(y, x)
}

// CalculateBounds returns the box that encloses a circle of radius meters
// around (lat, lon).
func CalculateBounds(lat, lon, radius float64) CoordinateBounds {
	latOffset := radius / RadiusOfEarthInMeters * 180 / math.Pi
	lonOffset := radius / (math.Cos(toRadians(lat)) * RadiusOfEarthInMeters) * 180 / math.Pi
	return CoordinateBounds{
		MinLat: lat - latOffset,
		MaxLat: lat + latOffset,
		MinLon: lon - lonOffset,
		MaxLon: lon + lonOffset,
	}
}

// ValidCoordinate reports whether lat and lon are finite and in range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
