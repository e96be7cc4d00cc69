package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/scraper/feed"
)

// stubFetcher serves a canned body through the real decoder.
type stubFetcher struct {
	provider config.Provider
	body     string
	err      error
	delay    time.Duration
}

func (s *stubFetcher) Name() string { return s.provider.Name }

func (s *stubFetcher) Fetch(ctx context.Context) (*feed.Document, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return feed.Decode(s.provider, []byte(s.body), fetchedAt)
}

func stub(name, body string) *stubFetcher {
	return &stubFetcher{
		provider: config.Provider{Name: name, Format: config.FormatJSON, RefScheme: name},
		body:     body,
	}
}

func newTestAggregator(fetchers ...feed.Fetcher) *Aggregator {
	return NewAggregator(fetchers, AggregatorOptions{
		OverallTimeout: 2 * time.Second,
	}, NewEnricher(models.RegionSouth, newTestLogger()), newTestLogger())
}

const richTorrevieja = `{"properties": [{
	"reference": "TV-1",
	"content": {"metaTitle": "Villa", "description": "Villa near the salt lakes"},
	"property": {"type": "Villa", "bedrooms": 3, "bathrooms": 2, "builtArea": 120, "price": 315000},
	"location": {"town": "Torrevieja"},
	"images": ["https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg", "https://a/4.jpg", "https://a/5.jpg"]
}]}`

const sparseTorrevieja = `[{
	"ref": "99812", "type": "detached villa", "town": "Torrevieja (Alicante)",
	"beds": 3, "baths": 2, "built": "122", "price": "315.200 €", "pool": true,
	"images": ["https://b/1.jpg", "https://b/2.jpg"]
}]`

func TestAggregateMergesAcrossProviders(t *testing.T) {
	res, err := newTestAggregator(stub("costa", richTorrevieja), stub("blanca", sparseTorrevieja)).
		Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Properties) != 1 {
		t.Fatalf("expected a single merged property, got %d", len(res.Properties))
	}

	p := res.Properties[0]
	if len(p.Images) != 5 {
		t.Errorf("images: got %d, want the richer set of 5", len(p.Images))
	}
	if p.Region != models.RegionSouth {
		t.Errorf("region: got %s, want South", p.Region)
	}
	if !p.HasPool {
		t.Error("pool flag from the sparse feed should survive the merge")
	}
	if p.Reference != "blanca:99812" {
		t.Errorf("reference: got %s", p.Reference)
	}
	if p.Title == "" || len(p.NearbyAmenities) == 0 {
		t.Errorf("merged property was not enriched: %+v", p)
	}
	for _, s := range res.Providers {
		if !s.OK || s.Records != 1 {
			t.Errorf("provider status: %+v", s)
		}
	}
}

func TestAggregateIsolatesProviderFailures(t *testing.T) {
	good1 := stub("one", `[{"ref": "1", "type": "Villa", "town": "Calpe", "beds": 4, "baths": 3, "price": 900000, "built": 300}]`)
	broken := stub("two", `{"properties": [{"ref": "2", "town": `)
	good2 := stub("three", `[{"ref": "3", "type": "Apartment", "town": "Benidorm"}]`)

	res, err := newTestAggregator(good1, broken, good2).Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Properties) != 2 {
		t.Errorf("properties: got %d, want 2", len(res.Properties))
	}

	status := res.Providers[1]
	if status.OK || status.Name != "two" || status.Error == "" {
		t.Errorf("broken provider status: %+v", status)
	}
	if !res.Providers[0].OK || !res.Providers[2].OK {
		t.Errorf("healthy providers should be OK: %+v", res.Providers)
	}
}

func TestAggregateOverallTimeout(t *testing.T) {
	slow := stub("slow", `[]`)
	slow.delay = time.Minute
	fast := stub("fast", `[{"ref": "1", "type": "Villa", "town": "Calpe"}]`)

	agg := NewAggregator([]feed.Fetcher{slow, fast}, AggregatorOptions{
		OverallTimeout: 100 * time.Millisecond,
	}, NewEnricher(models.RegionSouth, newTestLogger()), newTestLogger())

	start := time.Now()
	res, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("aggregate ignored the overall timeout: %v", elapsed)
	}
	if res.Providers[0].OK {
		t.Error("slow provider should be reported as failed")
	}
	if len(res.Properties) != 1 {
		t.Errorf("properties: got %d, want 1", len(res.Properties))
	}
}

func TestAggregateAllFailed(t *testing.T) {
	a := stub("a", "")
	a.err = &models.FetchError{Provider: "a", StatusCode: 503}
	b := stub("b", "not json")

	res, err := newTestAggregator(a, b).Aggregate(context.Background())
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
	if res == nil || len(res.Providers) != 2 {
		t.Fatalf("statuses should be reported even on failure: %+v", res)
	}
	if !strings.Contains(res.Providers[0].Error, "503") {
		t.Errorf("status error: %q", res.Providers[0].Error)
	}
}

func TestAggregateDropsRecordsWithoutFailingProvider(t *testing.T) {
	body := `[{"ref": "1", "type": "Villa", "town": "Calpe"}, {"ref": "2", "type": "Villa"}, "junk"]`
	res, err := newTestAggregator(stub("p", body)).Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Properties) != 1 || !res.Providers[0].OK {
		t.Errorf("got %d properties, status %+v", len(res.Properties), res.Providers[0])
	}
}

func TestAggregateSlowProvidersDoNotHoldOthersBack(t *testing.T) {
	var fetchers []feed.Fetcher
	for _, name := range []string{"slow1", "slow2", "slow3"} {
		s := stub(name, `[]`)
		s.delay = time.Minute
		fetchers = append(fetchers, s)
	}
	fetchers = append(fetchers, stub("fast", `[{"ref": "1", "type": "Villa", "town": "Calpe"}]`))

	agg := NewAggregator(fetchers, AggregatorOptions{
		OverallTimeout: 200 * time.Millisecond,
	}, NewEnricher(models.RegionSouth, newTestLogger()), newTestLogger())

	res, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if st := res.Providers[3]; !st.OK || st.Records != 1 {
		t.Errorf("fast provider should settle despite the slow ones: %+v", st)
	}
	for _, st := range res.Providers[:3] {
		if st.OK {
			t.Errorf("%s should be reported as failed", st.Name)
		}
	}
}

func TestAggregateListsNeverNull(t *testing.T) {
	agg := newTestAggregator(stub("plain", `[{"ref": "1", "type": "Villa", "town": "Calpe"}]`))

	res, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Properties) != 1 {
		t.Fatalf("properties: got %d, want 1", len(res.Properties))
	}
	p := res.Properties[0]
	if p.Images == nil || p.NearbyAmenities == nil || p.Sources == nil {
		t.Errorf("lists must be empty, not nil: %+v", p)
	}
}
