package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
)

// ReviewLogStore defines the interface for review log persistence.
// Logs are append-only: they are created during a review transaction and
// only ever removed by the card-delete cascade.
type ReviewLogStore interface {
	// Create saves a review log entry.
	Create(ctx context.Context, log *domain.ReviewLog) error

	// ListByCard returns a card's review history, newest first.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error)

	// WithTx returns a ReviewLogStore bound to the given transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
