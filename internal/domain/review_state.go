package domain

import "time"

// ReviewState holds the spaced-repetition scheduling data embedded in a
// Card. It is the only state the SRS scheduler reads or writes.
type ReviewState struct {
	// EaseFactor is the multiplier controlling how fast the interval grows
	// on successful recall. Always within [1.3, 3.0] after a transition.
	EaseFactor float64 `json:"ease_factor"`

	// IntervalDays is the number of days until the next scheduled review.
	// Zero before the first review, within [1, 365] afterwards.
	IntervalDays int `json:"interval_days"`

	// Repetitions counts consecutive non-failing reviews. Reset to zero
	// when a review is rated Again.
	Repetitions int `json:"repetitions"`

	// NextReview is when the card should next be reviewed. Nil means the
	// card has never been reviewed and is due immediately.
	NextReview *time.Time `json:"next_review,omitempty"`

	// LastReviewed is the time of the most recent review, nil before the
	// first one.
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
}

// IsDue reports whether the card is due for review at the given time.
// A card that has never been reviewed is always due.
func (s ReviewState) IsDue(now time.Time) bool {
	if s.NextReview == nil {
		return true
	}
	return !now.Before(*s.NextReview)
}
