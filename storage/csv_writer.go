package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"property-feeds/models"
)

var csvHeader = []string{
	"reference", "title", "property_type", "town", "location_detail", "region",
	"bedrooms", "bathrooms", "built_area", "plot_area", "price",
	"pool", "terrace", "garden", "sea_view", "parking", "near_golf",
	"images", "sources", "fetched_at",
}

// CSVWriter exports the canonical collection to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, eris.Wrap(err, "csv: create output dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: create file %q", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "csv: write header")
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per property. Unknown numeric values are left empty.
func (c *CSVWriter) Write(ctx context.Context, props []*models.Property) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range props {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			p.Reference,
			p.Title,
			p.PropertyType,
			p.Town,
			p.LocationDetail,
			string(p.Region),
			formatInt(p.Bedrooms),
			formatInt(p.Bathrooms),
			formatFloat(p.BuiltArea),
			formatFloat(p.PlotArea),
			formatFloat(p.Price),
			strconv.FormatBool(p.HasPool),
			strconv.FormatBool(p.HasTerrace),
			strconv.FormatBool(p.HasGarden),
			strconv.FormatBool(p.HasSeaView),
			strconv.FormatBool(p.HasParking),
			strconv.FormatBool(p.NearGolf),
			strings.Join(p.Images, " "),
			strings.Join(p.Sources, ";"),
			p.FetchedAt.UTC().Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
