package gazetteer

import (
	"math"
	"testing"

	"property-feeds/models"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jávea / Xàbia", "javea xabia"},
		{"  L'Alfàs del Pi ", "l alfas del pi"},
		{"ORIHUELA-COSTA", "orihuela costa"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookupTown(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		region models.Region
	}{
		{"Torrevieja", "Torrevieja", models.RegionSouth},
		{"torrevieja, Alicante", "Torrevieja", models.RegionSouth},
		{"Xàbia", "Javea", models.RegionNorth},
		{"Calp", "Calpe", models.RegionNorth},
		{"Orihuela-Costa", "Orihuela Costa", models.RegionSouth},
		{"Villa area near Ciudad Quesada", "Ciudad Quesada", models.RegionSouth},
	}
	for _, tt := range tests {
		got, ok := LookupTown(tt.in)
		if !ok {
			t.Errorf("LookupTown(%q): not found", tt.in)
			continue
		}
		if got.Name != tt.want || got.Region != tt.region {
			t.Errorf("LookupTown(%q) = %s/%s; want %s/%s", tt.in, got.Name, got.Region, tt.want, tt.region)
		}
	}

	if _, ok := LookupTown("Madrid"); ok {
		t.Error("Madrid should not be in the gazetteer")
	}
}

func TestMatchGolf(t *testing.T) {
	if k, ok := MatchGolf("Algorfa", "Frontline La Finca Golf resort"); !ok || k != "la finca golf" {
		t.Errorf("expected la finca golf, got %q %v", k, ok)
	}
	if _, ok := MatchGolf("Villamartín"); !ok {
		t.Error("accented Villamartín should match")
	}
	if _, ok := MatchGolf("Torrevieja", "10 minutes from golf and beach"); ok {
		t.Error("bare 'golf' should not match")
	}
}

func TestMatchGolfIgnoresSpanishFinca(t *testing.T) {
	texts := []string{
		"La finca dispone de piscina y jardín",
		"Se vende la finca con vistas al mar",
		"Finca rústica en Jalón",
	}
	for _, text := range texts {
		if k, ok := MatchGolf("Jalón", text); ok {
			t.Errorf("%q matched golf keyword %q", text, k)
		}
	}
}

func TestHaversineZero(t *testing.T) {
	if d := Haversine(37.9787, -0.6822, 37.9787, -0.6822); d != 0 {
		t.Errorf("identical points: got %v, want 0", d)
	}
}

func TestHaversineKnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
	}{
		{"Madrid-Barcelona", 40.4168, -3.7038, 41.3874, 2.1686, 505},
		{"London-Paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.5},
		{"Alicante-Torrevieja", 38.3452, -0.4810, 37.9787, -0.6822, 44.3},
	}
	for _, tt := range tests {
		got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
		if math.Abs(got-tt.wantKm)/tt.wantKm > 0.02 {
			t.Errorf("%s: got %.1f km, want %.1f km ±2%%", tt.name, got, tt.wantKm)
		}
		back := Haversine(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
		if math.Abs(got-back) > 1e-9 {
			t.Errorf("%s: distance not symmetric (%v vs %v)", tt.name, got, back)
		}
	}
}

func TestNearbyFiltersSortsAndLimits(t *testing.T) {
	torre, _ := LookupTown("Torrevieja")
	got := Nearby(torre.Latitude, torre.Longitude, Amenities(models.RegionSouth), DefaultNearbyLimit)

	if len(got) != DefaultNearbyLimit {
		t.Fatalf("len: got %d, want %d", len(got), DefaultNearbyLimit)
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceKm < got[i-1].DistanceKm {
			t.Errorf("not sorted at %d: %v", i, got)
		}
	}
	for _, a := range got {
		if a.DistanceKm > MaxRadiusKm[a.Category] {
			t.Errorf("%s beyond radius: %.1f km", a.Name, a.DistanceKm)
		}
	}
	if got[0].Name != "Playa del Cura" {
		t.Errorf("nearest: got %s, want Playa del Cura", got[0].Name)
	}
}

func TestNearbyDropsOutOfRadius(t *testing.T) {
	far := []models.AmenityLocation{
		{Name: "Far Golf", Category: models.AmenityGolf, Latitude: 38.8176, Longitude: 0.0430},
		{Name: "Far Marina", Category: models.AmenityMarina, Latitude: 38.8430, Longitude: 0.1110},
	}
	torre, _ := LookupTown("Torrevieja")
	if got := Nearby(torre.Latitude, torre.Longitude, far, 6); len(got) != 0 {
		t.Errorf("expected nothing within radius, got %v", got)
	}
}

func TestAmenitiesRegionRestriction(t *testing.T) {
	for _, a := range Amenities(models.RegionSouth) {
		if a.Region == models.RegionNorth {
			t.Errorf("north amenity %s in south candidate set", a.Name)
		}
	}
	if len(Amenities("")) <= len(Amenities(models.RegionSouth)) {
		t.Error("unrestricted set should be larger than a regional one")
	}
}
