package service

import (
	"math"

	"github.com/forgo/fete/api/internal/model"
)

// GeoService handles geographic calculations
type GeoService struct{}

// NewGeoService creates a new geo service
func NewGeoService() *GeoService {
	return &GeoService{}
}

// EarthRadiusKm is the Earth's radius in kilometers
const EarthRadiusKm = 6371.0

// HaversineDistance calculates the distance between two points in kilometers
// using the Haversine formula (accounts for Earth's curvature)
func (s *GeoService) HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	// Convert to radians
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	// Haversine formula
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// DistanceBetween calculates the distance between two points, or -1 when
// either is unknown
func (s *GeoService) DistanceBetween(from, to *model.GeoPoint) float64 {
	if from == nil || to == nil {
		return -1
	}
	return s.HaversineDistance(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

// IsWithinRadius checks if a point is within a given radius of another point
func (s *GeoService) IsWithinRadius(centerLat, centerLng, pointLat, pointLng, radiusKm float64) bool {
	distance := s.HaversineDistance(centerLat, centerLng, pointLat, pointLng)
	return distance <= radiusKm
}

// BoundingBox calculates a rough bounding box for initial filtering
// before applying Haversine for accuracy (optimization for database queries)
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// GetBoundingBox returns a bounding box around a center point with given radius.
// The box is clamped to valid coordinates. Near a pole, or when the box would
// cross the antimeridian, longitude is left unbounded so no vendor inside the
// radius is ever excluded.
func (s *GeoService) GetBoundingBox(lat, lng, radiusKm float64) BoundingBox {
	// 1 degree latitude ≈ 111 km, longitude shrinks with cos(lat)
	latDelta := radiusKm / 111.0
	box := BoundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
		MinLng: -180,
		MaxLng: 180,
	}

	// Use the latitude farthest from the equator, where the circle is widest
	edgeLat := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	cosLat := math.Cos(edgeLat * math.Pi / 180)
	if box.MinLat <= -90 || box.MaxLat >= 90 || cosLat < 1e-6 {
		return box
	}

	lngDelta := radiusKm / (111.0 * cosLat)
	if lng-lngDelta < -180 || lng+lngDelta > 180 {
		return box
	}
	box.MinLng = lng - lngDelta
	box.MaxLng = lng + lngDelta
	return box
}

// Search radius limits
const (
	MaxSearchRadiusKm = 20000.0
)
