package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
)

// SourceFilter narrows source listings. Zero-valued fields are ignored.
type SourceFilter struct {
	Status *domain.SourceStatus
	Type   *domain.SourceType
	Tag    string
}

// SourceStore defines the interface for source persistence.
type SourceStore interface {
	// Create saves a new source along with its tag associations.
	// Returns ErrExternalIDExists if a source with the same external ID
	// was already imported.
	Create(ctx context.Context, source *domain.Source) error

	// GetByID retrieves a source with its tags.
	// Returns ErrSourceNotFound if the source does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error)

	// GetByExternalID looks a source up by its deduplication key.
	// Returns ErrSourceNotFound if no such source exists.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Source, error)

	// Update persists a source's mutable fields and replaces its tag
	// associations. Returns ErrSourceNotFound if the source does not exist.
	Update(ctx context.Context, source *domain.Source) error

	// Delete removes a source and, via the database cascade, its cards.
	// Returns ErrSourceNotFound if the source does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns a page of sources matching the filter, newest first,
	// together with the total match count.
	List(ctx context.Context, filter SourceFilter, page Page) ([]*domain.Source, int, error)

	// CountCards returns the number of cards generated from a source.
	CountCards(ctx context.Context, sourceID uuid.UUID) (int, error)

	// WithTx returns a SourceStore bound to the given transaction.
	WithTx(tx *sql.Tx) SourceStore
}
