package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
)

// TagStore defines the interface for tag persistence.
type TagStore interface {
	// GetOrCreate resolves tag names to tag rows, creating any that do
	// not exist yet. Names are normalized; empty names are skipped.
	GetOrCreate(ctx context.Context, names []string) ([]*domain.Tag, error)

	// List returns all tags ordered by name.
	List(ctx context.Context) ([]*domain.Tag, error)

	// Delete removes a tag and its associations.
	// Returns ErrTagNotFound if the tag does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a TagStore bound to the given transaction.
	WithTx(tx *sql.Tx) TagStore
}
