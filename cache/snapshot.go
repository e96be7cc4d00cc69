package cache

import (
	"time"

	"github.com/google/uuid"

	"property-feeds/gazetteer"
	"property-feeds/models"
)

// Snapshot is an immutable view of the unified collection. Readers share
// the same Property values and must not modify them.
type Snapshot struct {
	ID         string
	Properties []*models.Property
	FetchedAt  time.Time
	Degraded   bool
	Providers  []models.ProviderStatus
	LastError  string

	// CheckedAt is when the last refresh attempt that produced this value
	// started. Expiry is measured from it.
	CheckedAt time.Time

	byRef map[string]*models.Property
}

func newSnapshot(props []*models.Property, providers []models.ProviderStatus, fetchedAt, checkedAt time.Time) *Snapshot {
	s := &Snapshot{
		ID:         uuid.NewString(),
		Properties: props,
		FetchedAt:  fetchedAt,
		Providers:  providers,
		CheckedAt:  checkedAt,
		byRef:      make(map[string]*models.Property, len(props)),
	}
	if s.Properties == nil {
		s.Properties = []*models.Property{}
	}
	for _, p := range s.Properties {
		s.byRef[p.Reference] = p
	}
	return s
}

// degraded returns a copy flagged as degraded after a failed refresh. The
// properties and index are shared with s.
func (s *Snapshot) degraded(providers []models.ProviderStatus, err error, checkedAt time.Time) *Snapshot {
	c := *s
	c.Degraded = true
	c.CheckedAt = checkedAt
	if providers != nil {
		c.Providers = providers
	}
	if err != nil {
		c.LastError = err.Error()
	}
	return &c
}

// Age is how old the underlying data is.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// All returns every property, sorted by reference.
func (s *Snapshot) All() []*models.Property {
	return s.Properties
}

// ByReference looks up a single property.
func (s *Snapshot) ByReference(ref string) (*models.Property, bool) {
	p, ok := s.byRef[ref]
	return p, ok
}

// Nearby returns the precomputed amenities for a property.
func (s *Snapshot) Nearby(ref string) ([]models.AmenityDistance, bool) {
	p, ok := s.byRef[ref]
	if !ok {
		return nil, false
	}
	if p.NearbyAmenities == nil {
		return []models.AmenityDistance{}, true
	}
	return p.NearbyAmenities, true
}

// Filter narrows a listing query. Zero values match everything.
type Filter struct {
	Town         string
	PropertyType string
	Bedrooms     *int
	Region       models.Region
	NearGolf     *bool
}

// Filter returns the properties matching f in reference order. Town and
// type compare case- and accent-insensitively.
func (s *Snapshot) Filter(f Filter) []*models.Property {
	town := gazetteer.Fold(f.Town)
	typ := gazetteer.Fold(f.PropertyType)

	out := make([]*models.Property, 0)
	for _, p := range s.Properties {
		if town != "" && gazetteer.Fold(p.Town) != town {
			continue
		}
		if typ != "" && gazetteer.Fold(p.PropertyType) != typ {
			continue
		}
		if f.Bedrooms != nil && (p.Bedrooms == nil || *p.Bedrooms != *f.Bedrooms) {
			continue
		}
		if f.Region != "" && p.Region != f.Region {
			continue
		}
		if f.NearGolf != nil && p.NearGolf != *f.NearGolf {
			continue
		}
		out = append(out, p)
	}
	return out
}
