package services

import (
	"fmt"
	"math"
	"sort"

	"property-feeds/gazetteer"
	"property-feeds/models"
	"property-feeds/utils"
)

// Deduplicator groups records describing the same physical listing and
// merges each group into one property.
//
// Two records match when they share a reference scheme and provider
// reference, or when they come from different providers and their composite
// keys (town|type|beds|baths|price/1000|built/5) are equal. Records missing
// any composite component are only ever matched by reference. A group never
// holds two different provider references of the same scheme, so units of
// one development with identical specs stay separate.
//
// Merge policy:
//   - the member with the most images supplies the image set (ties go to the
//     most recently fetched member)
//   - feature flags are OR'd
//   - every other scalar and each description locale takes the most recently
//     fetched member's non-absent value
//   - the lexicographically smallest Reference survives
type Deduplicator struct {
	logger *utils.Logger
}

func NewDeduplicator(logger *utils.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Merge returns the deduplicated collection sorted by Reference. Inputs are
// not modified.
func (d *Deduplicator) Merge(props []*models.Property) []*models.Property {
	ordered := make([]*models.Property, len(props))
	copy(ordered, props)
	sort.SliceStable(ordered, func(i, j int) bool {
		return olderFirst(ordered[i], ordered[j])
	})

	c := newClusters(ordered)
	byRef := make(map[string][]int, len(ordered))
	byScheme := make(map[string][]int, len(ordered))
	byComposite := make(map[string][]int, len(ordered))

	for i, p := range ordered {
		c.link(byRef, p.Reference, i, false)
		if p.ProviderRef != "" {
			c.link(byScheme, p.RefScheme+"\x00"+p.ProviderRef, i, false)
		}
		if key, ok := CompositeKey(p); ok {
			c.link(byComposite, key, i, true)
		}
	}

	groups := make(map[int][]*models.Property)
	var roots []int
	for i, p := range ordered {
		r := c.uf.find(i)
		if _, seen := groups[r]; !seen {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], p)
	}

	result := make([]*models.Property, 0, len(roots))
	merged := 0
	for _, r := range roots {
		members := groups[r]
		if len(members) > 1 {
			merged += len(members) - 1
			d.logger.Debug("[dedup] merging %d records into one listing", len(members))
		}
		result = append(result, mergeGroup(members))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Reference < result[j].Reference
	})

	d.logger.Info("[dedup] %d → %d properties (%d duplicates merged)",
		len(props), len(result), merged)
	return result
}

// CompositeKey returns the fuzzy match key, or false when any component is
// unknown.
func CompositeKey(p *models.Property) (string, bool) {
	if p.Bedrooms == nil || p.Bathrooms == nil || p.Price == nil || p.BuiltArea == nil {
		return "", false
	}
	town := gazetteer.Fold(p.Town)
	typ := gazetteer.Fold(p.PropertyType)
	if town == "" || typ == "" {
		return "", false
	}
	return fmt.Sprintf("%s|%s|%d|%d|%d|%d",
		town, typ, *p.Bedrooms, *p.Bathrooms,
		int64(math.Round(*p.Price/1000)),
		int64(math.Round(*p.BuiltArea/5)),
	), true
}

// clusters is a union-find that tracks, per group, the provider reference
// held for each scheme and the providers contributing to it.
type clusters struct {
	uf        *unionFind
	refs      []map[string]string
	providers []map[string]struct{}
}

func newClusters(props []*models.Property) *clusters {
	c := &clusters{
		uf:        newUnionFind(len(props)),
		refs:      make([]map[string]string, len(props)),
		providers: make([]map[string]struct{}, len(props)),
	}
	for i, p := range props {
		c.refs[i] = map[string]string{}
		if p.ProviderRef != "" {
			c.refs[i][p.RefScheme] = p.ProviderRef
		}
		c.providers[i] = map[string]struct{}{p.SourceProvider: {}}
	}
	return c
}

// link joins i with every earlier record indexed under key that it may
// share a group with.
func (c *clusters) link(index map[string][]int, key string, i int, crossProvider bool) {
	for _, j := range index[key] {
		c.join(j, i, crossProvider)
	}
	index[key] = append(index[key], i)
}

// join unions the groups of a and b unless that would put two different
// references of one scheme together or, with crossProvider, two records of
// the same provider.
func (c *clusters) join(a, b int, crossProvider bool) {
	ra, rb := c.uf.find(a), c.uf.find(b)
	if ra == rb {
		return
	}
	for scheme, ref := range c.refs[rb] {
		if other, ok := c.refs[ra][scheme]; ok && other != ref {
			return
		}
	}
	if crossProvider {
		for p := range c.providers[rb] {
			if _, ok := c.providers[ra][p]; ok {
				return
			}
		}
	}

	c.uf.union(ra, rb)
	root, other := ra, rb
	if c.uf.find(ra) == rb {
		root, other = rb, ra
	}
	for scheme, ref := range c.refs[other] {
		c.refs[root][scheme] = ref
	}
	for p := range c.providers[other] {
		c.providers[root][p] = struct{}{}
	}
	c.refs[other], c.providers[other] = nil, nil
}

// olderFirst orders by fetch time, then provider, then reference.
func olderFirst(a, b *models.Property) bool {
	if !a.FetchedAt.Equal(b.FetchedAt) {
		return a.FetchedAt.Before(b.FetchedAt)
	}
	if a.SourceProvider != b.SourceProvider {
		return a.SourceProvider < b.SourceProvider
	}
	return a.Reference < b.Reference
}

// mergeGroup folds members, ordered oldest first, into one property.
func mergeGroup(members []*models.Property) *models.Property {
	if len(members) == 1 {
		return members[0].Clone()
	}

	out := members[0].Clone()
	sources := map[string]struct{}{}
	richest := members[0]

	for _, m := range members {
		for _, s := range m.Sources {
			sources[s] = struct{}{}
		}
		if m.Reference < out.Reference {
			out.Reference = m.Reference
		}
		if len(m.Images) >= len(richest.Images) {
			richest = m
		}

		out.HasPool = out.HasPool || m.HasPool
		out.HasTerrace = out.HasTerrace || m.HasTerrace
		out.HasGarden = out.HasGarden || m.HasGarden
		out.HasSeaView = out.HasSeaView || m.HasSeaView
		out.HasParking = out.HasParking || m.HasParking
		out.NearGolf = out.NearGolf || m.NearGolf

		// later members are more recent and overwrite
		out.ProviderRef = m.ProviderRef
		out.RefScheme = m.RefScheme
		overrideString(&out.PropertyType, m.PropertyType)
		overrideString(&out.Town, m.Town)
		overrideString(&out.LocationDetail, m.LocationDetail)
		overrideString(&out.DevelopmentName, m.DevelopmentName)
		overrideString(&out.Developer, m.Developer)
		overrideString(&out.Title, m.Title)
		overrideInt(&out.Bedrooms, m.Bedrooms)
		overrideInt(&out.Bathrooms, m.Bathrooms)
		overrideFloat(&out.BuiltArea, m.BuiltArea)
		overrideFloat(&out.PlotArea, m.PlotArea)
		overrideFloat(&out.Price, m.Price)
		if m.Region != "" {
			out.Region = m.Region
		}
		for locale, text := range m.Descriptions {
			if out.Descriptions == nil {
				out.Descriptions = make(map[string]string)
			}
			out.Descriptions[locale] = text
		}
		out.SourceProvider = m.SourceProvider
		out.FetchedAt = m.FetchedAt
	}

	out.Images = append(make([]string, 0, len(richest.Images)), richest.Images...)
	out.Sources = make([]string, 0, len(sources))
	for s := range sources {
		out.Sources = append(out.Sources, s)
	}
	sort.Strings(out.Sources)
	return out
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst **int, v *int) {
	if v != nil {
		n := *v
		*dst = &n
	}
}

func overrideFloat(dst **float64, v *float64) {
	if v != nil {
		n := *v
		*dst = &n
	}
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
