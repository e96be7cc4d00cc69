package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestPropertyRowConversion(t *testing.T) {
	in := sampleProperties()

	row, err := toRow(in[0], "snap-1")
	if err != nil {
		t.Fatalf("toRow: %v", err)
	}
	if row.SnapshotID != "snap-1" || !row.Price.Valid || row.PlotArea.Valid {
		t.Errorf("unexpected row: %+v", row)
	}
	if row.Images != `["https://img/1.jpg","https://img/2.jpg"]` {
		t.Errorf("images column: %s", row.Images)
	}

	out, err := row.toProperty()
	if err != nil {
		t.Fatalf("toProperty: %v", err)
	}
	if *out.Bedrooms != 3 || *out.Price != 349000 || out.PlotArea != nil {
		t.Errorf("numeric fields not preserved: %+v", out)
	}
	if out.Descriptions["en"] != "Villa, close to the beach" {
		t.Errorf("descriptions not preserved: %v", out.Descriptions)
	}
	if len(out.NearbyAmenities) != 1 || out.NearbyAmenities[0].DistanceKm != 0.4 {
		t.Errorf("amenities not preserved: %v", out.NearbyAmenities)
	}
}

func TestPropertyRowEmptyCollections(t *testing.T) {
	row, err := toRow(sampleProperties()[1], "")
	if err != nil {
		t.Fatal(err)
	}
	if row.Images != "[]" || row.Descriptions != "{}" || row.NearbyAmenities != "[]" {
		t.Errorf("nil collections should be stored as empty JSON: %q %q %q",
			row.Images, row.Descriptions, row.NearbyAmenities)
	}
	if row.Bedrooms.Valid || row.Price.Valid {
		t.Errorf("unknown numbers should be NULL: %+v", row)
	}

	out, err := row.toProperty()
	if err != nil {
		t.Fatal(err)
	}
	if out.Bedrooms != nil || out.Descriptions != nil || len(out.Images) != 0 {
		t.Errorf("unexpected property: %+v", out)
	}
}

// TestPostgresArchiveRoundTrip needs a live database and runs only when
// POSTGRES_TEST_DSN is set.
func TestPostgresArchiveRoundTrip(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pw, err := NewPostgresWriter(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresWriter: %v", err)
	}
	defer pw.Close()

	props := sampleProperties()
	if err := pw.ArchiveSnapshot(ctx, "snap-1", props[0].FetchedAt, props); err != nil {
		t.Fatalf("ArchiveSnapshot: %v", err)
	}
	if err := pw.ArchiveSnapshot(ctx, "snap-2", props[0].FetchedAt, props[:1]); err != nil {
		t.Fatalf("second ArchiveSnapshot: %v", err)
	}

	got, err := pw.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 1 || got[0].Reference != "blanca:99812" {
		t.Fatalf("archive should hold only the latest snapshot, got %d rows", len(got))
	}
	if len(got[0].Sources) != 2 || !got[0].HasPool {
		t.Errorf("unexpected archived property: %+v", got[0])
	}
}
