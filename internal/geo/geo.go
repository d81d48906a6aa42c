// Package geo computes great-circle distances and maps them onto the
// restaurant's delivery-fee tiers.
package geo

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const EarthRadiusKm = 6371.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a usable WGS-84 coordinate. The zero point is
// treated as "not provided".
func (p *Point) Valid() bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return false
	}
	return !(p.Lat == 0 && p.Lng == 0)
}

type Zone struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	MaxDistance    float64         `json:"max_distance"`
	Fee            decimal.Decimal `json:"delivery_fee"`
	EstimatedTime  int             `json:"estimated_time"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
}

// DistanceKm returns the haversine distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ResolveZone returns the first zone, by ascending MaxDistance, that covers
// distanceKm. ok is false when the distance is beyond every tier.
func ResolveZone(distanceKm float64, zones []Zone) (zone Zone, ok bool) {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		return Zone{}, false
	}
	for _, z := range SortZones(zones) {
		if z.MaxDistance >= distanceKm {
			return z, true
		}
	}
	return Zone{}, false
}

// SortZones returns a copy of zones ordered by ascending MaxDistance.
func SortZones(zones []Zone) []Zone {
	sorted := make([]Zone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MaxDistance < sorted[j].MaxDistance
	})
	return sorted
}

type Quote struct {
	DistanceKm float64         `json:"distance_km"`
	Fee        decimal.Decimal `json:"delivery_fee"`
	Zone       *Zone           `json:"zone,omitempty"`
	Available  bool            `json:"available"`
	// HasCoordinates is false when the destination was missing or malformed
	// and the zero-distance, zero-fee path was taken.
	HasCoordinates bool `json:"has_coordinates"`
}

// QuoteDelivery prices a delivery from origin to dest. A missing or invalid
// destination yields a zero quote that is still available.
func QuoteDelivery(origin Point, dest *Point, zones []Zone) Quote {
	if !dest.Valid() {
		return Quote{Fee: decimal.Zero, Available: true}
	}

	distance := round2(DistanceKm(origin.Lat, origin.Lng, dest.Lat, dest.Lng))
	q := Quote{DistanceKm: distance, Fee: decimal.Zero, HasCoordinates: true}

	zone, ok := ResolveZone(distance, zones)
	if !ok {
		return q
	}
	q.Zone = &zone
	q.Fee = zone.Fee
	q.Available = true
	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidateZones checks that a zone table is usable: positive distinct
// thresholds and fees that never decrease as distance grows.
func ValidateZones(zones []Zone) []string {
	var problems []string
	sorted := SortZones(zones)
	for i, z := range sorted {
		if z.MaxDistance <= 0 {
			problems = append(problems, "max_distance must be positive")
		}
		if z.Fee.IsNegative() {
			problems = append(problems, "delivery_fee cannot be negative")
		}
		if z.MinOrderAmount.IsNegative() {
			problems = append(problems, "min_order_amount cannot be negative")
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if z.MaxDistance == prev.MaxDistance {
			problems = append(problems, "max_distance values must be distinct")
		}
		if z.Fee.LessThan(prev.Fee) {
			problems = append(problems, "delivery_fee must not decrease as distance grows")
		}
	}
	return problems
}
