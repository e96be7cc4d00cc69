package feed

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html/charset"

	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/utils"
)

// wrapperKeys are the object keys providers nest their listing array under.
var wrapperKeys = []string{"properties", "listings", "items", "data", "results"}

// Document is one decoded provider payload.
type Document struct {
	Listings []*models.RawListing
	Dropped  []*models.RecordDropped
}

// Decode parses body according to the provider's configured format.
func Decode(p config.Provider, body []byte, fetchedAt time.Time) (*Document, error) {
	if p.Format == config.FormatKyero {
		return DecodeKyero(p, bytes.NewReader(body), fetchedAt)
	}
	return DecodeJSON(p, body, fetchedAt)
}

// DecodeJSON decodes a JSON document holding either a bare array of records
// or an object wrapping one. Individual records that match no known schema
// are dropped; the call only fails when the document itself is unreadable.
func DecodeJSON(p config.Provider, body []byte, fetchedAt time.Time) (*Document, error) {
	items, err := jsonItems(body)
	if err != nil {
		return nil, &models.ParseError{Provider: p.Name, Format: config.FormatJSON, Err: err}
	}

	doc := &Document{Listings: make([]*models.RawListing, 0, len(items))}
	seen := utils.NewKeySet()

	for i, raw := range items {
		rec, err := DecodeRecord(raw)
		if err != nil {
			doc.drop(p.Name, fmt.Sprintf("#%d", i), err.Error())
			continue
		}
		if !seen.Add(rec.Key) {
			doc.drop(p.Name, rec.Key, "duplicate reference in document")
			continue
		}
		rec.Provider = p.Name
		rec.RefScheme = p.RefScheme
		rec.FetchedAt = fetchedAt
		doc.Listings = append(doc.Listings, rec)
	}
	return doc, nil
}

func jsonItems(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if len(body) == 0 {
		return nil, eris.New("empty document")
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, eris.Wrap(err, "decode array")
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, eris.Wrap(err, "decode object")
		}
		for _, k := range wrapperKeys {
			v, ok := obj[k]
			if !ok {
				continue
			}
			if err := json.Unmarshal(v, &items); err == nil {
				return items, nil
			}
		}
		return nil, eris.Errorf("no listing array under any of %s", strings.Join(wrapperKeys, ", "))
	}
	return nil, eris.New("document is neither an array nor an object")
}

// DecodeRecord identifies which schema a single JSON record follows and
// decodes it. A record with a content object carrying metaTitle is
// structured; otherwise any of reference, ref or id makes it flat.
func DecodeRecord(raw json.RawMessage) (*models.RawListing, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, eris.New("entry is not a JSON object")
	}

	if isStructured(top) {
		var rec models.StructuredRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrap(err, "structured record")
		}
		key := firstNonEmpty(rec.Reference.String(), rec.ID.String())
		if key == "" {
			return nil, eris.New("structured record has no reference")
		}
		return &models.RawListing{Schema: models.SchemaStructured, Key: key, Structured: &rec}, nil
	}

	if hasAny(top, "reference", "ref", "id") {
		var rec models.FlatRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrap(err, "flat record")
		}
		key := firstNonEmpty(rec.Reference.String(), rec.Ref.String(), rec.ID.String())
		if key == "" {
			return nil, eris.New("flat record has an empty reference")
		}
		return &models.RawListing{Schema: models.SchemaFlat, Key: key, Flat: &rec}, nil
	}

	return nil, eris.New("no known schema matched")
}

func isStructured(top map[string]json.RawMessage) bool {
	c, ok := top["content"]
	if !ok {
		return false
	}
	var content map[string]json.RawMessage
	if err := json.Unmarshal(c, &content); err != nil {
		return false
	}
	_, ok = content["metaTitle"]
	return ok
}

func hasAny(top map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if v, ok := top[k]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return true
		}
	}
	return false
}

// DecodeKyero streams a Kyero XML feed, decoding each <property> element.
// Non-UTF-8 encodings declared in the prolog are converted on the fly.
func DecodeKyero(p config.Provider, r io.Reader, fetchedAt time.Time) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	doc := &Document{}
	seen := utils.NewKeySet()
	sawRoot := false
	idx := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &models.ParseError{Provider: p.Name, Format: config.FormatKyero, Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if se.Name.Local != "property" {
			continue
		}

		idx++
		var rec models.KyeroRecord
		if err := dec.DecodeElement(&rec, &se); err != nil {
			return nil, &models.ParseError{Provider: p.Name, Format: config.FormatKyero, Err: err}
		}

		key := firstNonEmpty(rec.Ref, rec.ID)
		if key == "" {
			doc.drop(p.Name, fmt.Sprintf("#%d", idx), "kyero property has no ref or id")
			continue
		}
		if !seen.Add(key) {
			doc.drop(p.Name, key, "duplicate reference in document")
			continue
		}
		doc.Listings = append(doc.Listings, &models.RawListing{
			Provider:  p.Name,
			RefScheme: p.RefScheme,
			Key:       key,
			Schema:    models.SchemaKyero,
			FetchedAt: fetchedAt,
			Kyero:     &rec,
		})
	}

	if !sawRoot {
		return nil, &models.ParseError{Provider: p.Name, Format: config.FormatKyero, Err: eris.New("no root element")}
	}
	return doc, nil
}

func (d *Document) drop(provider, key, reason string) {
	d.Dropped = append(d.Dropped, &models.RecordDropped{Provider: provider, Key: key, Reason: reason})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
