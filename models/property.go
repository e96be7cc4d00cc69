package models

import (
	"strings"
	"time"
)

// Region is the coarse half of the coast a town belongs to.
type Region string

const (
	RegionSouth Region = "South"
	RegionNorth Region = "North"
)

// ParseRegion maps a case-insensitive name to a Region.
func ParseRegion(s string) (Region, bool) {
	switch {
	case strings.EqualFold(s, string(RegionSouth)):
		return RegionSouth, true
	case strings.EqualFold(s, string(RegionNorth)):
		return RegionNorth, true
	}
	return "", false
}

// AmenityCategory classifies gazetteer entries.
type AmenityCategory string

const (
	AmenityBeach    AmenityCategory = "beach"
	AmenityGolf     AmenityCategory = "golf"
	AmenityAirport  AmenityCategory = "airport"
	AmenityShopping AmenityCategory = "shopping"
	AmenityMarina   AmenityCategory = "marina"
	AmenityHospital AmenityCategory = "hospital"
)

// AmenityLocation is a static gazetteer entry. An empty Region means the
// amenity serves both halves of the coast.
type AmenityLocation struct {
	Name      string          `json:"name"`
	Category  AmenityCategory `json:"category"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Region    Region          `json:"region,omitempty"`
}

// AmenityDistance is an amenity together with its great-circle distance from
// a property's town centre.
type AmenityDistance struct {
	Name       string          `json:"name"`
	Category   AmenityCategory `json:"category"`
	DistanceKm float64         `json:"distanceKm"`
}

// Property is the canonical, provider-independent listing. Numeric pointers
// are nil when the value is unknown; they never hold placeholder values.
type Property struct {
	Reference   string `json:"reference"`
	ProviderRef string `json:"providerRef"`
	RefScheme   string `json:"-"`

	PropertyType string   `json:"propertyType"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	BuiltArea    *float64 `json:"builtArea,omitempty"`
	PlotArea     *float64 `json:"plotArea,omitempty"`
	Price        *float64 `json:"price,omitempty"`

	Town           string `json:"town"`
	LocationDetail string `json:"locationDetail,omitempty"`
	Region         Region `json:"region"`

	HasPool    bool `json:"hasPool"`
	HasTerrace bool `json:"hasTerrace"`
	HasGarden  bool `json:"hasGarden"`
	HasSeaView bool `json:"hasSeaView"`
	HasParking bool `json:"hasParking"`
	NearGolf   bool `json:"nearGolf"`

	Images          []string          `json:"images"`
	DevelopmentName string            `json:"developmentName,omitempty"`
	Developer       string            `json:"developer,omitempty"`
	Descriptions    map[string]string `json:"descriptions,omitempty"`
	Title           string            `json:"title"`

	NearbyAmenities []AmenityDistance `json:"nearbyAmenities"`

	SourceProvider string    `json:"sourceProvider"`
	Sources        []string  `json:"sources"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

// Clone returns a deep copy so merged or enriched records never alias the
// inputs they were built from.
func (p *Property) Clone() *Property {
	c := *p
	c.Bedrooms = cloneInt(p.Bedrooms)
	c.Bathrooms = cloneInt(p.Bathrooms)
	c.BuiltArea = cloneFloat(p.BuiltArea)
	c.PlotArea = cloneFloat(p.PlotArea)
	c.Price = cloneFloat(p.Price)
	c.Images = cloneSlice(p.Images)
	c.Sources = cloneSlice(p.Sources)
	c.NearbyAmenities = cloneSlice(p.NearbyAmenities)
	if p.Descriptions != nil {
		c.Descriptions = make(map[string]string, len(p.Descriptions))
		for k, v := range p.Descriptions {
			c.Descriptions[k] = v
		}
	}
	return &c
}

// cloneSlice copies s, keeping an empty non-nil slice non-nil so it still
// encodes as [] rather than null.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// ProviderStatus records how one provider fared in a refresh cycle.
type ProviderStatus struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// InsightReport holds the computed analytics over a unified collection.
type InsightReport struct {
	TotalListings    int            `json:"totalListings"`
	PricedListings   int            `json:"pricedListings"`
	NearGolf         int            `json:"nearGolf"`
	AveragePrice     float64        `json:"averagePrice"`
	MinPrice         float64        `json:"minPrice"`
	MaxPrice         float64        `json:"maxPrice"`
	MostExpensive    *Property      `json:"mostExpensive,omitempty"`
	ListingsByRegion map[Region]int `json:"listingsByRegion"`
	ListingsByTown   map[string]int `json:"listingsByTown"`
	ListingsByType   map[string]int `json:"listingsByType"`
}
