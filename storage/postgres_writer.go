package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rotisserie/eris"

	"property-feeds/models"
)

const insertProperty = `
	INSERT INTO properties (
		reference, snapshot_id, provider_ref, property_type,
		bedrooms, bathrooms, built_area, plot_area, price,
		town, location_detail, region,
		has_pool, has_terrace, has_garden, has_sea_view, has_parking, near_golf,
		title, development_name, developer,
		images, descriptions, nearby_amenities,
		source_provider, sources, fetched_at
	) VALUES (
		:reference, :snapshot_id, :provider_ref, :property_type,
		:bedrooms, :bathrooms, :built_area, :plot_area, :price,
		:town, :location_detail, :region,
		:has_pool, :has_terrace, :has_garden, :has_sea_view, :has_parking, :near_golf,
		:title, :development_name, :developer,
		:images, :descriptions, :nearby_amenities,
		:source_provider, :sources, :fetched_at
	)
	ON CONFLICT (reference) DO NOTHING
`

// PostgresWriter archives the unified collection in PostgreSQL.
type PostgresWriter struct {
	db *sqlx.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, eris.Wrap(ctx.Err(), "postgres: waiting for database")
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "postgres: ping failed after retries")
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "postgres: migrate")
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS properties (
			reference        TEXT          PRIMARY KEY,
			snapshot_id      TEXT          NOT NULL DEFAULT '',
			provider_ref     TEXT          NOT NULL DEFAULT '',
			property_type    TEXT          NOT NULL,
			bedrooms         INTEGER,
			bathrooms        INTEGER,
			built_area       NUMERIC(12,2),
			plot_area        NUMERIC(12,2),
			price            NUMERIC(14,2),
			town             TEXT          NOT NULL,
			location_detail  TEXT          NOT NULL DEFAULT '',
			region           VARCHAR(10)   NOT NULL,
			has_pool         BOOLEAN       NOT NULL DEFAULT FALSE,
			has_terrace      BOOLEAN       NOT NULL DEFAULT FALSE,
			has_garden       BOOLEAN       NOT NULL DEFAULT FALSE,
			has_sea_view     BOOLEAN       NOT NULL DEFAULT FALSE,
			has_parking      BOOLEAN       NOT NULL DEFAULT FALSE,
			near_golf        BOOLEAN       NOT NULL DEFAULT FALSE,
			title            TEXT          NOT NULL DEFAULT '',
			development_name TEXT          NOT NULL DEFAULT '',
			developer        TEXT          NOT NULL DEFAULT '',
			images           JSONB         NOT NULL DEFAULT '[]',
			descriptions     JSONB         NOT NULL DEFAULT '{}',
			nearby_amenities JSONB         NOT NULL DEFAULT '[]',
			source_provider  TEXT          NOT NULL,
			sources          TEXT[]        NOT NULL,
			fetched_at       TIMESTAMPTZ   NOT NULL,
			archived_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_properties_town   ON properties(town);
		CREATE INDEX IF NOT EXISTS idx_properties_region ON properties(region);
		CREATE INDEX IF NOT EXISTS idx_properties_price  ON properties(price);
	`)
	return err
}

// Write replaces the archived collection with props.
func (pw *PostgresWriter) Write(ctx context.Context, props []*models.Property) error {
	return pw.replace(ctx, "", props)
}

// ArchiveSnapshot replaces the archived collection with a snapshot's
// properties, tagging every row with the snapshot id.
func (pw *PostgresWriter) ArchiveSnapshot(ctx context.Context, id string, _ time.Time, props []*models.Property) error {
	return pw.replace(ctx, id, props)
}

func (pw *PostgresWriter) replace(ctx context.Context, snapshotID string, props []*models.Property) error {
	rows := make([]propertyRow, 0, len(props))
	for _, p := range props {
		r, err := toRow(p, snapshotID)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}

	tx, err := pw.db.BeginTxx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM properties"); err != nil {
		return eris.Wrap(err, "postgres: clear")
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, insertProperty, rows[i:end]); err != nil {
			return eris.Wrapf(err, "postgres: insert batch at %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	return nil
}

// FetchAll retrieves the archived collection, used by the report mode.
func (pw *PostgresWriter) FetchAll(ctx context.Context) ([]*models.Property, error) {
	var rows []propertyRow
	if err := pw.db.SelectContext(ctx, &rows, `
		SELECT reference, snapshot_id, provider_ref, property_type,
		       bedrooms, bathrooms, built_area, plot_area, price,
		       town, location_detail, region,
		       has_pool, has_terrace, has_garden, has_sea_view, has_parking, near_golf,
		       title, development_name, developer,
		       images, descriptions, nearby_amenities,
		       source_provider, sources, fetched_at
		FROM properties
		ORDER BY reference
	`); err != nil {
		return nil, eris.Wrap(err, "postgres: fetch all")
	}

	out := make([]*models.Property, 0, len(rows))
	for _, r := range rows {
		p, err := r.toProperty()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// propertyRow is the table layout of a Property.
type propertyRow struct {
	Reference       string          `db:"reference"`
	SnapshotID      string          `db:"snapshot_id"`
	ProviderRef     string          `db:"provider_ref"`
	PropertyType    string          `db:"property_type"`
	Bedrooms        sql.NullInt64   `db:"bedrooms"`
	Bathrooms       sql.NullInt64   `db:"bathrooms"`
	BuiltArea       sql.NullFloat64 `db:"built_area"`
	PlotArea        sql.NullFloat64 `db:"plot_area"`
	Price           sql.NullFloat64 `db:"price"`
	Town            string          `db:"town"`
	LocationDetail  string          `db:"location_detail"`
	Region          string          `db:"region"`
	HasPool         bool            `db:"has_pool"`
	HasTerrace      bool            `db:"has_terrace"`
	HasGarden       bool            `db:"has_garden"`
	HasSeaView      bool            `db:"has_sea_view"`
	HasParking      bool            `db:"has_parking"`
	NearGolf        bool            `db:"near_golf"`
	Title           string          `db:"title"`
	DevelopmentName string          `db:"development_name"`
	Developer       string          `db:"developer"`
	Images          string          `db:"images"`
	Descriptions    string          `db:"descriptions"`
	NearbyAmenities string          `db:"nearby_amenities"`
	SourceProvider  string          `db:"source_provider"`
	Sources         pq.StringArray  `db:"sources"`
	FetchedAt       time.Time       `db:"fetched_at"`
}

func toRow(p *models.Property, snapshotID string) (propertyRow, error) {
	images, err := marshalJSON(p.Images, "[]")
	if err != nil {
		return propertyRow{}, eris.Wrapf(err, "postgres: encode images of %s", p.Reference)
	}
	descriptions, err := marshalJSON(p.Descriptions, "{}")
	if err != nil {
		return propertyRow{}, eris.Wrapf(err, "postgres: encode descriptions of %s", p.Reference)
	}
	amenities, err := marshalJSON(p.NearbyAmenities, "[]")
	if err != nil {
		return propertyRow{}, eris.Wrapf(err, "postgres: encode amenities of %s", p.Reference)
	}

	return propertyRow{
		Reference:       p.Reference,
		SnapshotID:      snapshotID,
		ProviderRef:     p.ProviderRef,
		PropertyType:    p.PropertyType,
		Bedrooms:        nullInt(p.Bedrooms),
		Bathrooms:       nullInt(p.Bathrooms),
		BuiltArea:       nullFloat(p.BuiltArea),
		PlotArea:        nullFloat(p.PlotArea),
		Price:           nullFloat(p.Price),
		Town:            p.Town,
		LocationDetail:  p.LocationDetail,
		Region:          string(p.Region),
		HasPool:         p.HasPool,
		HasTerrace:      p.HasTerrace,
		HasGarden:       p.HasGarden,
		HasSeaView:      p.HasSeaView,
		HasParking:      p.HasParking,
		NearGolf:        p.NearGolf,
		Title:           p.Title,
		DevelopmentName: p.DevelopmentName,
		Developer:       p.Developer,
		Images:          images,
		Descriptions:    descriptions,
		NearbyAmenities: amenities,
		SourceProvider:  p.SourceProvider,
		Sources:         pq.StringArray(append([]string{}, p.Sources...)),
		FetchedAt:       p.FetchedAt,
	}, nil
}

func (r propertyRow) toProperty() (*models.Property, error) {
	p := &models.Property{
		Reference:       r.Reference,
		ProviderRef:     r.ProviderRef,
		PropertyType:    r.PropertyType,
		Bedrooms:        intFromNull(r.Bedrooms),
		Bathrooms:       intFromNull(r.Bathrooms),
		BuiltArea:       floatFromNull(r.BuiltArea),
		PlotArea:        floatFromNull(r.PlotArea),
		Price:           floatFromNull(r.Price),
		Town:            r.Town,
		LocationDetail:  r.LocationDetail,
		Region:          models.Region(r.Region),
		HasPool:         r.HasPool,
		HasTerrace:      r.HasTerrace,
		HasGarden:       r.HasGarden,
		HasSeaView:      r.HasSeaView,
		HasParking:      r.HasParking,
		NearGolf:        r.NearGolf,
		Title:           r.Title,
		DevelopmentName: r.DevelopmentName,
		Developer:       r.Developer,
		SourceProvider:  r.SourceProvider,
		Sources:         []string(r.Sources),
		FetchedAt:       r.FetchedAt,
	}
	if err := json.Unmarshal([]byte(r.Images), &p.Images); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode images of %s", r.Reference)
	}
	if err := json.Unmarshal([]byte(r.Descriptions), &p.Descriptions); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode descriptions of %s", r.Reference)
	}
	if err := json.Unmarshal([]byte(r.NearbyAmenities), &p.NearbyAmenities); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode amenities of %s", r.Reference)
	}
	if len(p.Descriptions) == 0 {
		p.Descriptions = nil
	}
	return p, nil
}

func marshalJSON(v interface{}, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatFromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
