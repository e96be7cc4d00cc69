package services

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"property-feeds/gazetteer"
	"property-feeds/models"
	"property-feeds/utils"
)

var titleAdjectives = []string{
	"Beautiful",
	"Bright",
	"Charming",
	"Elegant",
	"Modern",
	"Spacious",
	"Stunning",
	"Stylish",
}

// Enricher computes the attributes derived from static reference data:
// region, golf proximity, display title and nearby amenities.
type Enricher struct {
	defaultRegion models.Region
	nearbyLimit   int
	logger        *utils.Logger
}

// NewEnricher creates an Enricher. Towns missing from the gazetteer are
// assigned defaultRegion.
func NewEnricher(defaultRegion models.Region, logger *utils.Logger) *Enricher {
	if defaultRegion == "" {
		defaultRegion = models.RegionSouth
	}
	return &Enricher{
		defaultRegion: defaultRegion,
		nearbyLimit:   gazetteer.DefaultNearbyLimit,
		logger:        logger,
	}
}

// Enrich returns enriched copies of props; the inputs are left untouched.
func (e *Enricher) Enrich(props []*models.Property) []*models.Property {
	out := make([]*models.Property, len(props))
	for i, p := range props {
		out[i] = e.EnrichOne(p)
	}
	return out
}

// EnrichOne enriches a single property.
func (e *Enricher) EnrichOne(p *models.Property) *models.Property {
	c := p.Clone()

	town, known := gazetteer.LookupTown(c.Town)
	if known {
		c.Region = town.Region
		c.NearbyAmenities = gazetteer.Nearby(town.Latitude, town.Longitude,
			gazetteer.Amenities(town.Region), e.nearbyLimit)
	} else {
		e.logger.Debug("[enricher] %s: town %q not in gazetteer, region defaulted to %s",
			c.Reference, c.Town, e.defaultRegion)
		c.Region = e.defaultRegion
		c.NearbyAmenities = []models.AmenityDistance{}
	}

	texts := []string{c.Town, c.LocationDetail, c.DevelopmentName}
	for _, locale := range sortedLocales(c.Descriptions) {
		texts = append(texts, c.Descriptions[locale])
	}
	_, c.NearGolf = gazetteer.MatchGolf(texts...)

	c.Title = Title(c)
	return c
}

// Title builds "{Adjective} {N}-Bedroom {Type} with {Feature} in {Town}".
// Word choices are seeded by an FNV-1a hash of the reference, so a property
// keeps its title across runs. Segments with no data are left out.
func Title(p *models.Property) string {
	seed := referenceHash(p.Reference)

	var b strings.Builder
	b.WriteString(titleAdjectives[seed%uint64(len(titleAdjectives))])

	if p.Bedrooms != nil && *p.Bedrooms > 0 {
		fmt.Fprintf(&b, " %d-Bedroom", *p.Bedrooms)
	}
	b.WriteString(" " + p.PropertyType)

	if highlights := titleHighlights(p); len(highlights) > 0 {
		b.WriteString(" with " + highlights[(seed>>16)%uint64(len(highlights))])
	}

	b.WriteString(" in " + p.Town)
	return b.String()
}

// titleHighlights lists the property's true features in a fixed order.
func titleHighlights(p *models.Property) []string {
	var out []string
	if p.HasPool {
		out = append(out, "Pool")
	}
	if p.HasSeaView {
		out = append(out, "Sea Views")
	}
	if p.HasTerrace {
		out = append(out, "Terrace")
	}
	if p.HasGarden {
		out = append(out, "Garden")
	}
	if p.NearGolf {
		out = append(out, "Golf Nearby")
	}
	if p.HasParking {
		out = append(out, "Parking")
	}
	return out
}

func referenceHash(ref string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ref))
	return h.Sum64()
}

func sortedLocales(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
