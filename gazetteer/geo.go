package gazetteer

import (
	"math"
	"sort"

	"property-feeds/models"
)

// earthRadiusKm is the IUGG mean Earth radius.
const earthRadiusKm = 6371.0088

// DefaultNearbyLimit is how many amenities Nearby returns.
const DefaultNearbyLimit = 6

// Haversine returns the great-circle distance in kilometres between two
// latitude/longitude points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Nearby ranks candidates by distance from (lat, lon), drops those outside
// their category radius and returns at most limit results. Distances are
// rounded to 0.1 km.
func Nearby(lat, lon float64, candidates []models.AmenityLocation, limit int) []models.AmenityDistance {
	out := make([]models.AmenityDistance, 0, len(candidates))
	for _, a := range candidates {
		d := Haversine(lat, lon, a.Latitude, a.Longitude)
		if max, ok := MaxRadiusKm[a.Category]; ok && d > max {
			continue
		}
		out = append(out, models.AmenityDistance{
			Name:       a.Name,
			Category:   a.Category,
			DistanceKm: math.Round(d*10) / 10,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Name < out[j].Name
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
