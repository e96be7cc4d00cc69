package storage

import (
	"context"

	"property-feeds/models"
)

// PropertyWriter is the interface any storage backend must satisfy.
type PropertyWriter interface {
	Write(ctx context.Context, props []*models.Property) error
	Close() error
}

// PropertyReader reads an archived collection back.
type PropertyReader interface {
	FetchAll(ctx context.Context) ([]*models.Property, error)
}

var (
	_ PropertyWriter = (*CSVWriter)(nil)
	_ PropertyWriter = (*PostgresWriter)(nil)
	_ PropertyReader = (*PostgresWriter)(nil)
)
