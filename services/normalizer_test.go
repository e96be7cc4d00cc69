package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/scraper/feed"
	"property-feeds/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

var fetchedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// decodeOne runs a single JSON record through the feed decoder.
func decodeOne(t *testing.T, provider, raw string) *models.RawListing {
	t.Helper()
	p := config.Provider{Name: provider, Format: config.FormatJSON, RefScheme: provider}
	doc, err := feed.DecodeJSON(p, []byte("["+raw+"]"), fetchedAt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Listings) != 1 {
		t.Fatalf("decode: got %d listings, dropped %v", len(doc.Listings), doc.Dropped)
	}
	return doc.Listings[0]
}

const structuredVilla = `{
	"id": 1,
	"reference": "CB-101",
	"content": {
		"metaTitle": "Villa in Algorfa",
		"description": {
			"text": "<p>Bright villa</p><p>close to <b>La Finca</b> golf &amp; beach</p>",
			"keyPoints": ["Private pool", "Sea views"]
		}
	},
	"property": {"type": "Detached Villa", "bedrooms": 3, "bathrooms": "2", "builtArea": "120 m2", "plotArea": null, "price": "€ 349.000"},
	"location": {"town": "algorfa", "area": "La Finca Golf"},
	"features": {"terrace": true, "garden": "no"},
	"images": ["https://img.example/1.jpg", {"url": "https://img.example/2.jpg"}, "https://img.example/1.jpg"],
	"translations": {"ES": {"description": {"intro": "Chalet luminoso"}}}
}`

func TestNormalizeStructured(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	p, err := n.NormalizeOne(decodeOne(t, "costa", structuredVilla))
	if err != nil {
		t.Fatalf("NormalizeOne: %v", err)
	}

	if p.Reference != "costa:CB-101" || p.ProviderRef != "CB-101" {
		t.Errorf("reference: %q / %q", p.Reference, p.ProviderRef)
	}
	if p.PropertyType != "Villa" {
		t.Errorf("type: got %q, want Villa", p.PropertyType)
	}
	if p.Town != "Algorfa" || p.LocationDetail != "La Finca Golf" {
		t.Errorf("location: %q / %q", p.Town, p.LocationDetail)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 3 || p.Bathrooms == nil || *p.Bathrooms != 2 {
		t.Errorf("rooms: %v / %v", p.Bedrooms, p.Bathrooms)
	}
	if p.BuiltArea == nil || *p.BuiltArea != 120 {
		t.Errorf("built area: %v", p.BuiltArea)
	}
	if p.PlotArea != nil {
		t.Errorf("plot area should be absent, got %v", *p.PlotArea)
	}
	if p.Price == nil || *p.Price != 349000 {
		t.Errorf("price: %v", p.Price)
	}
	if !p.HasPool || !p.HasSeaView || !p.HasTerrace || p.HasGarden || p.HasParking {
		t.Errorf("flags: pool=%v sea=%v terrace=%v garden=%v parking=%v",
			p.HasPool, p.HasSeaView, p.HasTerrace, p.HasGarden, p.HasParking)
	}
	if len(p.Images) != 2 {
		t.Errorf("images should be de-duplicated, got %v", p.Images)
	}
	if got := p.Descriptions["en"]; got != "Bright villa close to La Finca golf & beach" {
		t.Errorf("en description: %q", got)
	}
	if got := p.Descriptions["es"]; got != "Chalet luminoso" {
		t.Errorf("es description: %q", got)
	}
}

func TestNormalizeFlatAliases(t *testing.T) {
	raw := `{"ref": "F-9", "property_type": "piso", "city": "Torrevieja, Alicante", "area": "Playa del Cura",
		"beds": "2", "baths": 1, "price": 0, "built": "75", "pool": "yes",
		"features": ["Communal garden", "Garaje"], "descriptions": {"EN": "Near the beach"}}`

	p, err := NewNormalizer(newTestLogger()).NormalizeOne(decodeOne(t, "blanca", raw))
	if err != nil {
		t.Fatalf("NormalizeOne: %v", err)
	}
	if p.PropertyType != "Apartment" || p.Town != "Torrevieja" || p.LocationDetail != "Playa del Cura" {
		t.Errorf("got type %q town %q detail %q", p.PropertyType, p.Town, p.LocationDetail)
	}
	if p.Price != nil {
		t.Errorf("zero price must be absent, got %v", *p.Price)
	}
	if !p.HasPool || !p.HasGarden || !p.HasParking {
		t.Errorf("flags: pool=%v garden=%v parking=%v", p.HasPool, p.HasGarden, p.HasParking)
	}
	if p.Descriptions["en"] != "Near the beach" {
		t.Errorf("descriptions: %v", p.Descriptions)
	}
}

func TestNormalizeExplicitFlagBeatsKeyword(t *testing.T) {
	raw := `{"ref": "F-1", "type": "Villa", "town": "Calpe", "pool": false, "features": ["Private pool"]}`
	p, err := NewNormalizer(newTestLogger()).NormalizeOne(decodeOne(t, "blanca", raw))
	if err != nil {
		t.Fatal(err)
	}
	if p.HasPool {
		t.Error("explicit pool=false should win over keyword match")
	}
}

func TestNormalizeDropsMissingRequired(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	tests := map[string]string{
		"missing town": `{"ref": "1", "type": "Villa"}`,
		"missing type": `{"ref": "2", "town": "Calpe"}`,
		"blank town":   `{"ref": "3", "type": "Villa", "town": "   "}`,
	}
	for reason, raw := range tests {
		_, err := n.NormalizeOne(decodeOne(t, "p", raw))
		var dropped *models.RecordDropped
		if !errors.As(err, &dropped) {
			t.Errorf("%s: expected RecordDropped, got %v", reason, err)
			continue
		}
		if dropped.Provider != "p" || dropped.Key == "" {
			t.Errorf("%s: drop should carry provider and key: %+v", reason, dropped)
		}
	}

	raws := []*models.RawListing{
		decodeOne(t, "p", `{"ref": "1", "type": "Villa"}`),
		decodeOne(t, "p", `{"ref": "2", "type": "Villa", "town": "Calpe"}`),
	}
	if got := n.Normalize(raws); len(got) != 1 {
		t.Errorf("Normalize should keep 1 record, got %d", len(got))
	}
}

func TestNormalizeKyero(t *testing.T) {
	rec := &models.KyeroRecord{
		ID:       "77",
		Ref:      "KY-1",
		Price:    "199.000",
		Town:     "Xàbia",
		Beds:     "3",
		Baths:    "2",
		Pool:     "1",
		Features: []string{"Terraza", "Vistas al mar"},
		Images:   []models.KyeroImage{{ID: "1", URL: "https://img.example/a.jpg"}},
	}
	rec.Type.Text = "Townhouse"
	rec.SurfaceArea.Built = "110"

	raw := &models.RawListing{Provider: "kx", RefScheme: "kx", Key: "KY-1", Schema: models.SchemaKyero, FetchedAt: fetchedAt, Kyero: rec}
	p, err := NewNormalizer(newTestLogger()).NormalizeOne(raw)
	if err != nil {
		t.Fatalf("NormalizeOne: %v", err)
	}
	if p.Town != "Javea" || p.PropertyType != "Townhouse" {
		t.Errorf("town %q type %q", p.Town, p.PropertyType)
	}
	if p.Price == nil || *p.Price != 199000 {
		t.Errorf("price: %v", p.Price)
	}
	if !p.HasPool || !p.HasTerrace || !p.HasSeaView {
		t.Errorf("flags: pool=%v terrace=%v sea=%v", p.HasPool, p.HasTerrace, p.HasSeaView)
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	e := NewEnricher(models.RegionSouth, newTestLogger())

	render := func() []byte {
		p, err := n.NormalizeOne(decodeOne(t, "costa", structuredVilla))
		if err != nil {
			t.Fatal(err)
		}
		out, err := json.Marshal(e.EnrichOne(p))
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	first := render()
	for i := 0; i < 5; i++ {
		if again := render(); !bytes.Equal(first, again) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
}

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"apartment", "Apartment"},
		{"Ground floor apartment", "Apartment"},
		{"Ático", "Penthouse"},
		{"Semi-detached villa", "Villa"},
		{"quad house", "Quad House"},
		{"boathouse", "Boathouse"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := canonicalType(tt.in); got != tt.want {
			t.Errorf("canonicalType(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain   text\n here", "plain text here"},
		{"<p>One</p><p>Two</p>", "One Two"},
		{"line<br>break", "line break"},
		{"Fish &amp; chips", "Fish & chips"},
		{"<ul><li>a</li><li>b</li></ul><script>x()</script>", "a b"},
	}
	for _, tt := range tests {
		if got := htmlToText(tt.in); got != tt.want {
			t.Errorf("htmlToText(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLocaleCollisionIsDeterministic(t *testing.T) {
	raw := `{"ref": "L-1", "type": "Villa", "town": "Calpe",
		"descriptions": {"EN": "Upper", "en": "Lower", "De": "Deutsch"}}`

	n := NewNormalizer(newTestLogger())
	for i := 0; i < 100; i++ {
		p, err := n.NormalizeOne(decodeOne(t, "blanca", raw))
		if err != nil {
			t.Fatalf("NormalizeOne: %v", err)
		}
		if p.Descriptions["en"] != "Lower" || p.Descriptions["de"] != "Deutsch" {
			t.Fatalf("run %d: descriptions %v", i, p.Descriptions)
		}
	}
}
