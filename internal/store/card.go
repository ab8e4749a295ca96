package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
)

// CardFilter narrows card listings. Zero-valued fields are ignored.
type CardFilter struct {
	Status   *domain.CardStatus
	Tag      string
	SourceID *uuid.UUID
}

// Page describes offset pagination. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// CardStore defines the interface for card persistence.
type CardStore interface {
	// Create saves a new card along with its tag associations.
	// Returns validation errors if the card data is invalid.
	Create(ctx context.Context, card *domain.Card) error

	// CreateMultiple saves multiple cards. It MUST be run within a
	// transaction for atomicity; use WithTx together with
	// store.RunInTransaction.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card with its tags.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// Update persists a card's mutable fields (content, status, review
	// state) and replaces its tag associations.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// Delete removes a card. Review logs are removed by the database's
	// cascade rule. Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns a page of cards matching the filter, newest first,
	// together with the total match count.
	List(ctx context.Context, filter CardFilter, page Page) ([]*domain.Card, int, error)

	// ListDue returns up to limit active cards due at now, ordered by
	// next review time ascending with never-reviewed cards first, plus
	// the total number of due cards.
	ListDue(ctx context.Context, now time.Time, tag string, limit int) ([]*domain.Card, int, error)

	// WithTx returns a CardStore bound to the given transaction.
	WithTx(tx *sql.Tx) CardStore
}
