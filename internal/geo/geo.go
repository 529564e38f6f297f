package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	EarthRadiusKm     = 6371.0
	EarthRadiusMeters = 6371000.0
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is inside the WGS84 range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// PathDistanceKm sums the great-circle segment lengths of an ordered path.
func PathDistanceKm(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1], points[i])
	}
	return total
}

// ValidRing reports whether the vertices form a usable polygon ring:
// at least 3 vertices, all inside the coordinate range.
func ValidRing(ring []Point) bool {
	if len(ring) < 3 {
		return false
	}
	for _, v := range ring {
		if !v.Valid() {
			return false
		}
	}
	return true
}

// PointInPolygon tests ring membership by ray casting. Degenerate rings
// (fewer than 3 vertices) are never hit.
func PointInPolygon(p Point, ring []Point) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lng > p.Lng) != (vj.Lng > p.Lng) {
			atLat := (vj.Lat-vi.Lat)*(p.Lng-vi.Lng)/(vj.Lng-vi.Lng) + vi.Lat
			if p.Lat < atLat {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Centroid returns the arithmetic centroid of the vertices.
func Centroid(ring []Point) Point {
	if len(ring) == 0 {
		return Point{}
	}
	var sumLat, sumLng float64
	for _, v := range ring {
		sumLat += v.Lat
		sumLng += v.Lng
	}
	n := float64(len(ring))
	return Point{Lat: sumLat / n, Lng: sumLng / n}
}

// PolygonAreaKm2 approximates the ring area via the shoelace formula on an
// equirectangular projection around the centroid. Accurate enough for zones
// a few kilometers across.
func PolygonAreaKm2(ring []Point) float64 {
	if len(ring) < 3 {
		return 0
	}
	c := Centroid(ring)
	cosLat := math.Cos(c.Lat * math.Pi / 180)
	kmPerDegLat := math.Pi * EarthRadiusKm / 180
	kmPerDegLng := kmPerDegLat * cosLat

	var area float64
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi := (ring[i].Lng - c.Lng) * kmPerDegLng
		yi := (ring[i].Lat - c.Lat) * kmPerDegLat
		xj := (ring[j].Lng - c.Lng) * kmPerDegLng
		yj := (ring[j].Lat - c.Lat) * kmPerDegLat
		area += xj*yi - xi*yj
		j = i
	}
	return math.Abs(area) / 2
}
