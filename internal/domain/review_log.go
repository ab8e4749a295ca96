package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewRating is the user's recall-quality signal for a review, ordered
// by increasing recall quality: Again < Hard < Good < Easy.
type ReviewRating int

// Possible review rating values
const (
	// ReviewRatingAgain means complete failure; progress is reset.
	ReviewRatingAgain ReviewRating = 0

	// ReviewRatingHard means significant difficulty; the interval grows
	// slowly and the card gets harder to grow.
	ReviewRatingHard ReviewRating = 1

	// ReviewRatingGood means correct with some effort.
	ReviewRatingGood ReviewRating = 2

	// ReviewRatingEasy means effortless recall; the interval is boosted.
	ReviewRatingEasy ReviewRating = 3
)

// IsValid reports whether r is one of the four defined ratings.
func (r ReviewRating) IsValid() bool {
	switch r {
	case ReviewRatingAgain, ReviewRatingHard, ReviewRatingGood, ReviewRatingEasy:
		return true
	default:
		return false
	}
}

// String returns the lowercase name of the rating, or "unknown" for
// values outside the enum.
func (r ReviewRating) String() string {
	switch r {
	case ReviewRatingAgain:
		return "again"
	case ReviewRatingHard:
		return "hard"
	case ReviewRatingGood:
		return "good"
	case ReviewRatingEasy:
		return "easy"
	default:
		return "unknown"
	}
}

// Common validation errors for ReviewLog
var (
	ErrReviewLogIDEmpty     = errors.New("review log ID cannot be empty")
	ErrReviewLogCardIDEmpty = errors.New("review log card ID cannot be empty")
	ErrInvalidReviewRating  = errors.New("invalid review rating")
)

// ReviewLog is the immutable audit record of a single review transition,
// kept for analytics and algorithm tuning. The scheduler produces one per
// review; logs are never mutated afterwards.
type ReviewLog struct {
	ID     uuid.UUID    `json:"id"`
	CardID uuid.UUID    `json:"card_id"`
	Rating ReviewRating `json:"rating"`

	// Scheduling state captured on either side of the transition.
	EaseFactorBefore float64 `json:"ease_factor_before"`
	IntervalBefore   int     `json:"interval_before"`
	EaseFactorAfter  float64 `json:"ease_factor_after"`
	IntervalAfter    int     `json:"interval_after"`

	// ResponseTimeMs is how long the user took to answer, when the client
	// measured it. Stored opaquely; the scheduler never reads it.
	ResponseTimeMs *int `json:"response_time_ms,omitempty"`

	ReviewedAt time.Time `json:"reviewed_at"`
}

// NewReviewLog creates a review log entry for a card.
// Returns an error if validation fails.
func NewReviewLog(
	cardID uuid.UUID,
	rating ReviewRating,
	easeBefore float64,
	intervalBefore int,
	easeAfter float64,
	intervalAfter int,
	responseTimeMs *int,
	reviewedAt time.Time,
) (*ReviewLog, error) {
	log := &ReviewLog{
		ID:               uuid.New(),
		CardID:           cardID,
		Rating:           rating,
		EaseFactorBefore: easeBefore,
		IntervalBefore:   intervalBefore,
		EaseFactorAfter:  easeAfter,
		IntervalAfter:    intervalAfter,
		ResponseTimeMs:   responseTimeMs,
		ReviewedAt:       reviewedAt,
	}

	if err := log.Validate(); err != nil {
		return nil, err
	}

	return log, nil
}

// Validate checks if the ReviewLog has valid data.
func (l *ReviewLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrReviewLogIDEmpty
	}

	if l.CardID == uuid.Nil {
		return ErrReviewLogCardIDEmpty
	}

	if !l.Rating.IsValid() {
		return ErrInvalidReviewRating
	}

	return nil
}
