package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
)

// Generator creates flashcards from source text.
//
// Implementations call an external LLM, so every method accepts a context
// for cancellation and may return any of the sentinel errors in errors.go.
// Generated cards reference the given source and start in draft status;
// callers decide when they become reviewable.
type Generator interface {
	GenerateCards(ctx context.Context, sourceText string, sourceID uuid.UUID) ([]*domain.Card, error)
}
