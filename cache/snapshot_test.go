package cache

import (
	"errors"
	"testing"
	"time"

	"property-feeds/models"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func sampleSnapshot() *Snapshot {
	props := []*models.Property{
		{Reference: "a:1", Town: "Jávea", PropertyType: "Villa", Bedrooms: intPtr(4), Region: models.RegionNorth},
		{Reference: "a:2", Town: "Torrevieja", PropertyType: "Apartment", Bedrooms: intPtr(2), Region: models.RegionSouth,
			NearbyAmenities: []models.AmenityDistance{{Name: "Playa del Cura", Category: models.AmenityBeach, DistanceKm: 0.3}}},
		{Reference: "b:3", Town: "Torrevieja", PropertyType: "Villa", Region: models.RegionSouth, NearGolf: true},
	}
	now := time.Now()
	return newSnapshot(props, nil, now, now)
}

func TestSnapshotFilter(t *testing.T) {
	s := sampleSnapshot()
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"everything", Filter{}, []string{"a:1", "a:2", "b:3"}},
		{"town folded", Filter{Town: "javea"}, []string{"a:1"}},
		{"town and type", Filter{Town: "TORREVIEJA", PropertyType: "villa"}, []string{"b:3"}},
		{"bedrooms", Filter{Bedrooms: intPtr(2)}, []string{"a:2"}},
		{"bedrooms excludes unknown", Filter{Bedrooms: intPtr(0)}, []string{}},
		{"region", Filter{Region: models.RegionSouth}, []string{"a:2", "b:3"}},
		{"golf", Filter{NearGolf: boolPtr(true)}, []string{"b:3"}},
	}
	for _, tt := range tests {
		got := s.Filter(tt.filter)
		if got == nil {
			t.Errorf("%s: result must not be nil", tt.name)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %d results, want %d", tt.name, len(got), len(tt.want))
			continue
		}
		for i, ref := range tt.want {
			if got[i].Reference != ref {
				t.Errorf("%s: [%d] got %s, want %s", tt.name, i, got[i].Reference, ref)
			}
		}
	}
}

func TestSnapshotLookups(t *testing.T) {
	s := sampleSnapshot()

	if p, ok := s.ByReference("a:2"); !ok || p.Town != "Torrevieja" {
		t.Errorf("ByReference: %v %v", p, ok)
	}
	if _, ok := s.ByReference("missing"); ok {
		t.Error("unknown reference should not be found")
	}

	near, ok := s.Nearby("a:2")
	if !ok || len(near) != 1 || near[0].Name != "Playa del Cura" {
		t.Errorf("Nearby: %v %v", near, ok)
	}
	near, ok = s.Nearby("b:3")
	if !ok || near == nil || len(near) != 0 {
		t.Errorf("Nearby without amenities should be an empty list: %v %v", near, ok)
	}
}

func TestSnapshotDegradedCopy(t *testing.T) {
	s := sampleSnapshot()
	d := s.degraded([]models.ProviderStatus{{Name: "p"}}, errors.New("boom"), s.CheckedAt.Add(time.Minute))

	if s.Degraded {
		t.Error("original snapshot must not be modified")
	}
	if !d.Degraded || d.LastError != "boom" || d.ID != s.ID {
		t.Errorf("degraded copy: %+v", d)
	}
	if len(d.All()) != len(s.All()) {
		t.Error("degraded copy should carry the same properties")
	}
}
