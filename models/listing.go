package models

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"sort"
	"strings"
	"time"
)

// SchemaKind tags which provider document shape a RawListing was decoded from.
type SchemaKind int

const (
	SchemaUnknown SchemaKind = iota
	// SchemaStructured is the CMS-style shape with a nested content.metaTitle object.
	SchemaStructured
	// SchemaFlat is a flat root object keyed by reference/ref/id.
	SchemaFlat
	// SchemaKyero is a <property> element of a Kyero v3 XML feed.
	SchemaKyero
)

func (k SchemaKind) String() string {
	switch k {
	case SchemaStructured:
		return "structured"
	case SchemaFlat:
		return "flat"
	case SchemaKyero:
		return "kyero"
	}
	return "unknown"
}

// RawListing holds one provider record exactly as decoded, before any
// normalization. Exactly one of Structured, Flat or Kyero is set, matching
// Schema.
type RawListing struct {
	Provider  string
	RefScheme string
	Key       string
	Schema    SchemaKind
	FetchedAt time.Time

	Structured *StructuredRecord
	Flat       *FlatRecord
	Kyero      *KyeroRecord
}

// StructuredRecord is the nested CMS-style provider document.
type StructuredRecord struct {
	ID           Text                         `json:"id"`
	Reference    Text                         `json:"reference"`
	Content      StructuredContent            `json:"content"`
	Property     StructuredSpecs              `json:"property"`
	Location     StructuredLocation           `json:"location"`
	Features     FeatureSet                   `json:"features"`
	Images       ImageList                    `json:"images"`
	Development  StructuredDevelopment        `json:"development"`
	Translations map[string]StructuredContent `json:"translations"`
}

// StructuredContent carries the copy of a structured record. KeyPoints is
// lifted out of a {text, keyPoints} description wrapper when present.
type StructuredContent struct {
	MetaTitle   Text `json:"metaTitle"`
	Title       Text `json:"title"`
	Description Text `json:"description"`
	KeyPoints   []string
}

func (c *StructuredContent) UnmarshalJSON(b []byte) error {
	type alias struct {
		MetaTitle   Text            `json:"metaTitle"`
		Title       Text            `json:"title"`
		Description json.RawMessage `json:"description"`
	}
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	var desc Text
	_ = desc.UnmarshalJSON(a.Description)
	*c = StructuredContent{
		MetaTitle:   a.MetaTitle,
		Title:       a.Title,
		Description: desc,
		KeyPoints:   KeyPoints(a.Description),
	}
	return nil
}

type StructuredSpecs struct {
	Type      Text   `json:"type"`
	Bedrooms  Number `json:"bedrooms"`
	Bathrooms Number `json:"bathrooms"`
	BuiltArea Number `json:"builtArea"`
	PlotArea  Number `json:"plotArea"`
	Price     Number `json:"price"`
}

type StructuredLocation struct {
	Town     Text `json:"town"`
	Area     Text `json:"area"`
	Province Text `json:"province"`
}

type StructuredDevelopment struct {
	Name      Text `json:"name"`
	Developer Text `json:"developer"`
}

// FlatRecord is the flat provider document. Providers disagree on key
// spelling, so common aliases are all accepted.
type FlatRecord struct {
	Reference    Text            `json:"reference"`
	Ref          Text            `json:"ref"`
	ID           Text            `json:"id"`
	Type         Text            `json:"type"`
	PropertyType Text            `json:"property_type"`
	Town         Text            `json:"town"`
	City         Text            `json:"city"`
	Location     Text            `json:"location"`
	Area         Text            `json:"area"`
	Bedrooms     Number          `json:"bedrooms"`
	Beds         Number          `json:"beds"`
	Bathrooms    Number          `json:"bathrooms"`
	Baths        Number          `json:"baths"`
	Price        Number          `json:"price"`
	BuiltArea    Number          `json:"built_area"`
	Built        Number          `json:"built"`
	PlotArea     Number          `json:"plot_area"`
	Plot         Number          `json:"plot"`
	Pool         Flag            `json:"pool"`
	Terrace      Flag            `json:"terrace"`
	Garden       Flag            `json:"garden"`
	SeaView      Flag            `json:"sea_view"`
	Parking      Flag            `json:"parking"`
	Features     FeatureSet      `json:"features"`
	Images       ImageList       `json:"images"`
	Description  Text            `json:"description"`
	Descriptions map[string]Text `json:"descriptions"`
	Development  Text            `json:"development"`
	Developer    Text            `json:"developer"`
}

// FeatureSet accepts either an object of flags ({"pool": true}) or a list of
// free-text labels (["Private pool", "Sea views"]).
type FeatureSet struct {
	Flags  map[string]bool
	Labels []string
}

func (f *FeatureSet) UnmarshalJSON(b []byte) error {
	*f = FeatureSet{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '{':
		var obj map[string]Flag
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil
		}
		f.Flags = make(map[string]bool, len(obj))
		for _, k := range CaseFoldOrder(obj) {
			if v := obj[k]; v.Set {
				f.Flags[strings.ToLower(k)] = v.Value
			}
		}
	case '[':
		var items []Text
		if err := json.Unmarshal(b, &items); err != nil {
			return nil
		}
		for _, it := range items {
			if s := it.String(); s != "" {
				f.Labels = append(f.Labels, s)
			}
		}
	}
	return nil
}

// CaseFoldOrder returns the keys of m in the order they should be applied
// when stored under their lowercased names: keys that are already lowercase
// come last so they win a collision, and the rest follow byte order.
func CaseFoldOrder[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li := keys[i] == strings.ToLower(keys[i])
		lj := keys[j] == strings.ToLower(keys[j])
		if li != lj {
			return lj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Flag reports the value of a named flag, trying each alias in order.
func (f FeatureSet) Flag(aliases ...string) (bool, bool) {
	for _, a := range aliases {
		if v, ok := f.Flags[a]; ok {
			return v, true
		}
	}
	return false, false
}

// ImageList accepts image entries as bare URLs or objects with url/src/href.
type ImageList []string

func (l *ImageList) UnmarshalJSON(b []byte) error {
	*l = nil
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	for _, raw := range items {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		if raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
				*l = append(*l, strings.TrimSpace(s))
			}
			continue
		}
		var obj struct {
			URL  string `json:"url"`
			Src  string `json:"src"`
			Href string `json:"href"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		for _, s := range []string{obj.URL, obj.Src, obj.Href} {
			if s = strings.TrimSpace(s); s != "" {
				*l = append(*l, s)
				break
			}
		}
	}
	return nil
}

// KyeroRecord is one <property> element of a Kyero v3 feed.
type KyeroRecord struct {
	ID             string         `xml:"id"`
	Ref            string         `xml:"ref"`
	Price          string         `xml:"price"`
	Type           KyeroLocalized `xml:"type"`
	Town           string         `xml:"town"`
	Province       string         `xml:"province"`
	LocationDetail string         `xml:"location_detail"`
	Beds           string         `xml:"beds"`
	Baths          string         `xml:"baths"`
	Pool           string         `xml:"pool"`
	SurfaceArea    struct {
		Built string `xml:"built"`
		Plot  string `xml:"plot"`
	} `xml:"surface_area"`
	Features    []string       `xml:"features>feature"`
	Images      []KyeroImage   `xml:"images>image"`
	Desc        KyeroLocalized `xml:"desc"`
	Development string         `xml:"development_name"`
	Developer   string         `xml:"developer"`
}

type KyeroImage struct {
	ID  string `xml:"id,attr"`
	URL string `xml:"url"`
}

// KyeroLocalized is an element that is either plain character data or a set
// of per-locale children (<en>..</en><es>..</es>).
type KyeroLocalized struct {
	Text    string          `xml:",chardata"`
	Locales []KyeroLocaleEl `xml:",any"`
}

type KyeroLocaleEl struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Get returns the value for locale, falling back to the element's own text.
func (l KyeroLocalized) Get(locale string) string {
	for _, el := range l.Locales {
		if strings.EqualFold(el.XMLName.Local, locale) {
			return strings.TrimSpace(el.Value)
		}
	}
	return strings.TrimSpace(l.Text)
}
