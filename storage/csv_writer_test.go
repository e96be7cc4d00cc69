package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"property-feeds/models"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func sampleProperties() []*models.Property {
	fetched := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []*models.Property{
		{
			Reference:    "blanca:99812",
			ProviderRef:  "99812",
			Title:        "Stunning 3-Bedroom Villa with Pool in Torrevieja",
			PropertyType: "Villa",
			Town:         "Torrevieja",
			Region:       models.RegionSouth,
			Bedrooms:     intPtr(3),
			Bathrooms:    intPtr(2),
			BuiltArea:    floatPtr(120),
			Price:        floatPtr(349000),
			HasPool:      true,
			Images:       []string{"https://img/1.jpg", "https://img/2.jpg"},
			Descriptions: map[string]string{"en": "Villa, close to the beach"},
			NearbyAmenities: []models.AmenityDistance{
				{Name: "Playa del Cura", Category: models.AmenityBeach, DistanceKm: 0.4},
			},
			SourceProvider: "blanca",
			Sources:        []string{"blanca", "costa"},
			FetchedAt:      fetched,
		},
		{
			Reference:      "costa:A-7",
			ProviderRef:    "A-7",
			PropertyType:   "Apartment",
			Town:           "Calpe",
			Region:         models.RegionNorth,
			SourceProvider: "costa",
			Sources:        []string{"costa"},
			FetchedAt:      fetched,
		},
	}
}

func TestCSVWriterWritesAllRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "properties.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := w.Write(context.Background(), sampleProperties()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv back: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "reference" || len(records[0]) != len(csvHeader) {
		t.Errorf("unexpected header: %v", records[0])
	}

	first := records[1]
	checks := map[int]string{
		0:  "blanca:99812",
		6:  "3",
		10: "349000",
		11: "true",
		17: "https://img/1.jpg https://img/2.jpg",
		18: "blanca;costa",
		19: "2024-05-01T10:00:00Z",
	}
	for col, want := range checks {
		if first[col] != want {
			t.Errorf("column %s: got %q, want %q", csvHeader[col], first[col], want)
		}
	}

	second := records[2]
	for _, col := range []int{6, 7, 8, 9, 10} {
		if second[col] != "" {
			t.Errorf("unknown %s should be empty, got %q", csvHeader[col], second[col])
		}
	}
}

func TestCSVWriterStopsOnCancelledContext(t *testing.T) {
	w, err := NewCSVWriter(filepath.Join(t.TempDir(), "p.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Write(ctx, sampleProperties()); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
