package discovery

import "math"

const earthRadiusKM = 6371

// Point is a geographic position (WGS84 degrees)
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HaversineKM computes the great-circle distance between two points in km
func HaversineKM(from, to Point) float64 {
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(from.Latitude*math.Pi/180)*math.Cos(to.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// RoundKM rounds a distance to one decimal place for display
func RoundKM(km float64) float64 {
	return math.Round(km*10) / 10
}
