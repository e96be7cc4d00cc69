package services

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"property-feeds/gazetteer"
	"property-feeds/models"
	"property-feeds/utils"
)

const defaultLocale = "en"

// typeSynonyms maps folded provider spellings to canonical property types.
var typeSynonyms = map[string]string{
	"apartment":       "Apartment",
	"apartamento":     "Apartment",
	"flat":            "Apartment",
	"piso":            "Apartment",
	"ground floor":    "Apartment",
	"penthouse":       "Penthouse",
	"atico":           "Penthouse",
	"villa":           "Villa",
	"detached villa":  "Villa",
	"detached house":  "Villa",
	"chalet":          "Villa",
	"townhouse":       "Townhouse",
	"town house":      "Townhouse",
	"terraced house":  "Townhouse",
	"adosado":         "Townhouse",
	"bungalow":        "Bungalow",
	"duplex":          "Duplex",
	"quad house":      "Quad House",
	"quad":            "Quad House",
	"country house":   "Country House",
	"finca":           "Country House",
	"cortijo":         "Country House",
	"studio":          "Studio",
	"estudio":         "Studio",
	"plot":            "Plot",
	"land":            "Plot",
	"parcela":         "Plot",
	"commercial":      "Commercial",
	"local comercial": "Commercial",
}

// typePhrases is typeSynonyms' keys, longest first, for substring matching
// in a fixed order.
var typePhrases = func() []string {
	keys := make([]string, 0, len(typeSynonyms))
	for k := range typeSynonyms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// Folded feature keywords matched against feature labels and key points.
var (
	poolKeywords    = []string{"pool", "piscina"}
	terraceKeywords = []string{"terrace", "terraza", "solarium"}
	gardenKeywords  = []string{"garden", "jardin"}
	seaViewKeywords = []string{"sea view", "sea views", "vistas al mar"}
	parkingKeywords = []string{"parking", "garage", "garaje", "aparcamiento"}
)

// Normalizer maps decoded provider records onto the canonical Property
// model.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts raw listings, skipping (and logging) any record that
// lacks a town or property type.
func (n *Normalizer) Normalize(raw []*models.RawListing) []*models.Property {
	result := make([]*models.Property, 0, len(raw))
	for _, r := range raw {
		p, err := n.NormalizeOne(r)
		if err != nil {
			n.logger.Warn("[normalizer] %v", err)
			continue
		}
		result = append(result, p)
	}

	n.logger.Info("[normalizer] Normalized %d → %d properties (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// NormalizeOne converts a single record. The returned error is always a
// *models.RecordDropped.
func (n *Normalizer) NormalizeOne(r *models.RawListing) (*models.Property, error) {
	var f fields
	switch r.Schema {
	case models.SchemaStructured:
		f = structuredFields(r.Structured)
	case models.SchemaFlat:
		f = flatFields(r.Flat)
	case models.SchemaKyero:
		f = kyeroFields(r.Kyero)
	default:
		return nil, &models.RecordDropped{Provider: r.Provider, Key: r.Key, Reason: "unknown schema"}
	}

	ref := normaliseText(f.ref)
	if ref == "" {
		ref = r.Key
	}

	town := canonicalTown(f.town)
	if town == "" {
		return nil, &models.RecordDropped{Provider: r.Provider, Key: r.Key, Reason: "missing town"}
	}
	propType := canonicalType(f.propType)
	if propType == "" {
		return nil, &models.RecordDropped{Provider: r.Provider, Key: r.Key, Reason: "missing property type"}
	}

	labels := foldAll(f.labels)

	p := &models.Property{
		Reference:   r.Provider + ":" + ref,
		ProviderRef: ref,
		RefScheme:   r.RefScheme,

		PropertyType: propType,
		Bedrooms:     count(f.beds),
		Bathrooms:    count(f.baths),
		BuiltArea:    positive(f.built),
		PlotArea:     positive(f.plot),
		Price:        positive(f.price),

		Town:           town,
		LocationDetail: normaliseText(f.locationDetail),

		HasPool:    feature(f.pool, labels, poolKeywords),
		HasTerrace: feature(f.terrace, labels, terraceKeywords),
		HasGarden:  feature(f.garden, labels, gardenKeywords),
		HasSeaView: feature(f.seaView, labels, seaViewKeywords),
		HasParking: feature(f.parking, labels, parkingKeywords),

		Images:          dedupeImages(f.images),
		DevelopmentName: normaliseText(f.development),
		Developer:       normaliseText(f.developer),
		Descriptions:    cleanDescriptions(f.descriptions),

		SourceProvider: r.Provider,
		Sources:        []string{r.Provider},
		FetchedAt:      r.FetchedAt,
	}
	return p, nil
}

// fields is the schema-independent intermediate every record is mapped to
// before canonicalisation.
type fields struct {
	ref            string
	propType       string
	town           string
	locationDetail string

	beds, baths, built, plot, price models.Number

	pool, terrace, garden, seaView, parking models.Flag

	labels       []string
	images       []string
	development  string
	developer    string
	descriptions map[string]string
}

func structuredFields(s *models.StructuredRecord) fields {
	f := fields{
		ref:            firstText(s.Reference, s.ID),
		propType:       s.Property.Type.String(),
		town:           s.Location.Town.String(),
		locationDetail: s.Location.Area.String(),
		beds:           s.Property.Bedrooms,
		baths:          s.Property.Bathrooms,
		built:          s.Property.BuiltArea,
		plot:           s.Property.PlotArea,
		price:          s.Property.Price,
		images:         s.Images,
		development:    s.Development.Name.String(),
		developer:      s.Development.Developer.String(),
		descriptions:   map[string]string{},
	}
	f.pool, f.terrace, f.garden, f.seaView, f.parking = featureFlags(s.Features)

	f.labels = append(f.labels, s.Features.Labels...)
	f.labels = append(f.labels, s.Content.KeyPoints...)

	if d := s.Content.Description.String(); d != "" {
		f.descriptions[defaultLocale] = d
	}
	for _, locale := range models.CaseFoldOrder(s.Translations) {
		if d := s.Translations[locale].Description.String(); d != "" {
			f.descriptions[strings.ToLower(locale)] = d
		}
	}
	return f
}

func flatFields(r *models.FlatRecord) fields {
	town := firstText(r.Town, r.City, r.Location)
	detail := r.Area.String()
	if town == "" {
		town = detail
		detail = ""
	}

	f := fields{
		ref:            firstText(r.Reference, r.Ref, r.ID),
		propType:       firstText(r.Type, r.PropertyType),
		town:           town,
		locationDetail: detail,
		beds:           firstNumber(r.Bedrooms, r.Beds),
		baths:          firstNumber(r.Bathrooms, r.Baths),
		built:          firstNumber(r.BuiltArea, r.Built),
		plot:           firstNumber(r.PlotArea, r.Plot),
		price:          r.Price,
		labels:         r.Features.Labels,
		images:         r.Images,
		development:    r.Development.String(),
		developer:      r.Developer.String(),
		descriptions:   map[string]string{},
	}

	pool, terrace, garden, seaView, parking := featureFlags(r.Features)
	f.pool = firstFlag(r.Pool, pool)
	f.terrace = firstFlag(r.Terrace, terrace)
	f.garden = firstFlag(r.Garden, garden)
	f.seaView = firstFlag(r.SeaView, seaView)
	f.parking = firstFlag(r.Parking, parking)

	if d := r.Description.String(); d != "" {
		f.descriptions[defaultLocale] = d
	}
	for _, locale := range models.CaseFoldOrder(r.Descriptions) {
		if s := r.Descriptions[locale].String(); s != "" {
			f.descriptions[strings.ToLower(locale)] = s
		}
	}
	return f
}

func kyeroFields(k *models.KyeroRecord) fields {
	f := fields{
		ref:            firstString(k.Ref, k.ID),
		propType:       k.Type.Get(defaultLocale),
		town:           k.Town,
		locationDetail: k.LocationDetail,
		beds:           parseNumber(k.Beds),
		baths:          parseNumber(k.Baths),
		built:          parseNumber(k.SurfaceArea.Built),
		plot:           parseNumber(k.SurfaceArea.Plot),
		price:          parseNumber(k.Price),
		labels:         k.Features,
		development:    k.Development,
		developer:      k.Developer,
		descriptions:   map[string]string{},
	}
	if v, ok := models.ParseFlag(k.Pool); ok {
		f.pool = models.Flag{Value: v, Set: true}
	}
	for _, img := range k.Images {
		f.images = append(f.images, img.URL)
	}

	if len(k.Desc.Locales) == 0 {
		if d := strings.TrimSpace(k.Desc.Text); d != "" {
			f.descriptions[defaultLocale] = d
		}
	}
	for _, el := range k.Desc.Locales {
		if d := strings.TrimSpace(el.Value); d != "" {
			f.descriptions[strings.ToLower(el.XMLName.Local)] = d
		}
	}
	return f
}

func featureFlags(fs models.FeatureSet) (pool, terrace, garden, seaView, parking models.Flag) {
	get := func(aliases ...string) models.Flag {
		v, ok := fs.Flag(aliases...)
		return models.Flag{Value: v, Set: ok}
	}
	return get("pool", "swimming_pool", "private_pool", "swimmingpool"),
		get("terrace", "terraza", "solarium"),
		get("garden", "jardin"),
		get("sea_view", "seaview", "sea_views", "seaviews"),
		get("parking", "garage")
}

// feature prefers an explicit flag and falls back to keyword matching.
func feature(explicit models.Flag, foldedLabels []string, keywords []string) bool {
	if explicit.Set {
		return explicit.Value
	}
	for _, l := range foldedLabels {
		for _, k := range keywords {
			if hasPhrase(l, k) {
				return true
			}
		}
	}
	return false
}

// canonicalTown returns the gazetteer spelling for a known town and the
// cleaned input otherwise.
func canonicalTown(s string) string {
	s = normaliseText(s)
	if s == "" {
		return ""
	}
	if t, ok := gazetteer.LookupTown(s); ok {
		return t.Name
	}
	return s
}

func canonicalType(s string) string {
	s = normaliseText(s)
	if s == "" {
		return ""
	}
	folded := gazetteer.Fold(s)
	if t, ok := typeSynonyms[folded]; ok {
		return t
	}
	for _, k := range typePhrases {
		if hasPhrase(folded, k) {
			return typeSynonyms[k]
		}
	}
	return cases.Title(language.Und).String(strings.ToLower(s))
}

// count converts a Number to a non-negative integer pointer.
func count(n models.Number) *int {
	if !n.Valid || n.Value < 0 || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return nil
	}
	v := int(math.Round(n.Value))
	return &v
}

// positive returns nil for absent, zero or negative values.
func positive(n models.Number) *float64 {
	if !n.Valid || n.Value <= 0 || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return nil
	}
	v := n.Value
	return &v
}

func dedupeImages(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, img := range in {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if _, dup := seen[img]; dup {
			continue
		}
		seen[img] = struct{}{}
		out = append(out, img)
	}
	return out
}

func cleanDescriptions(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for locale, d := range in {
		if text := htmlToText(d); text != "" {
			out[locale] = text
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// htmlToText strips markup from provider copy, keeping block elements
// separated by a space.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return normaliseText(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return normaliseText(s)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr").AppendHtml(" ")
	return normaliseText(doc.Text())
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func hasPhrase(folded, phrase string) bool {
	return strings.Contains(" "+folded+" ", " "+phrase+" ")
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := gazetteer.Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func firstText(vals ...models.Text) string {
	for _, v := range vals {
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(vals ...models.Number) models.Number {
	for _, v := range vals {
		if v.Valid {
			return v
		}
	}
	return models.Number{}
}

func firstFlag(vals ...models.Flag) models.Flag {
	for _, v := range vals {
		if v.Set {
			return v
		}
	}
	return models.Flag{}
}

func parseNumber(s string) models.Number {
	v, ok := models.ParseNumber(s)
	return models.Number{Value: v, Valid: ok}
}
