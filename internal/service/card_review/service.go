// Package card_review orchestrates the review workflow: fetching due
// cards, applying the scheduling engine to a submitted rating, and
// recording the transition in the review log.
package card_review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
)

// ReviewAnswer represents a user's answer to a flashcard review.
type ReviewAnswer struct {
	// Rating is the recall-quality signal (again, hard, good, easy).
	Rating domain.ReviewRating `json:"rating"`

	// ResponseTimeMs is the optional answer latency measured by the client.
	ResponseTimeMs *int `json:"response_time_ms,omitempty"`
}

// DueCards is a page of cards ready for review.
type DueCards struct {
	Cards    []*domain.Card `json:"cards"`
	TotalDue int            `json:"total_due"`
}

// CardReviewService provides methods for reviewing flashcards using the
// spaced repetition scheduler.
type CardReviewService interface {
	// GetDueCards returns up to limit active cards due at now, optionally
	// filtered by tag, together with the total due count.
	GetDueCards(ctx context.Context, now time.Time, tag string, limit int) (*DueCards, error)

	// SubmitAnswer applies a review rating to a card. Within a single
	// transaction it advances the card's scheduling state and appends a
	// review log entry capturing the transition.
	//
	// Returns ErrCardNotFound if the card does not exist,
	// ErrCardNotReviewable if the card is not active, and ErrInvalidAnswer
	// if the rating is outside the four defined values.
	SubmitAnswer(ctx context.Context, cardID uuid.UUID, answer ReviewAnswer) (*domain.Card, error)

	// GetReviewHistory returns a card's review log, newest first.
	// Returns ErrCardNotFound if the card does not exist.
	GetReviewHistory(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error)
}

// Common error types for CardReviewService
var (
	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrCardNotReviewable indicates the card is not in the active status.
	// Draft, suspended, and mastered cards do not participate in review.
	ErrCardNotReviewable = errors.New("card is not reviewable")

	// ErrInvalidAnswer indicates an invalid rating was provided.
	ErrInvalidAnswer = errors.New("invalid answer")
)

// ServiceError wraps errors from the card review service with additional
// context so consumers can differentiate failures with errors.As instead
// of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
