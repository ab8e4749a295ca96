// Package srs implements the spaced-repetition scheduling engine, a
// simplified SM-2 variant.
//
// Each card carries an ease factor (how quickly its interval grows on
// success), an interval in days, and a count of consecutive non-failing
// reviews. A review rated Again resets progress; Hard, Good, and Easy
// advance it, with fixed graduation intervals for the first two successes
// and multiplicative growth from the third onward.
//
// The engine is pure: it takes the current time as an argument, performs
// no I/O, and owns no state beyond its Params.
package srs

import (
	"errors"
	"time"

	"github.com/retainapp/retain-api/internal/domain"
)

// ErrInvalidRating is returned when ProcessReview is called with a rating
// outside the four defined variants. This is a caller contract violation;
// ratings are expected to be validated at the API boundary.
var ErrInvalidRating = errors.New("invalid review rating")

// Review snapshots a single review transition: the rating, the scheduling
// state on either side of it, and the optional response latency. The review
// service turns it into a persisted domain.ReviewLog.
type Review struct {
	Rating           domain.ReviewRating
	EaseFactorBefore float64
	IntervalBefore   int
	EaseFactorAfter  float64
	IntervalAfter    int
	ResponseTimeMs   *int
	ReviewedAt       time.Time
}

// Scheduler evolves a card's ReviewState in response to review ratings.
// The zero value is not usable; construct one with NewScheduler.
type Scheduler struct {
	params *Params
}

// NewScheduler creates a Scheduler with the default parameters.
func NewScheduler() *Scheduler {
	return &Scheduler{params: NewDefaultParams()}
}

// NewSchedulerWithParams creates a Scheduler with custom parameters.
func NewSchedulerWithParams(params *Params) *Scheduler {
	return &Scheduler{params: params}
}

// Initialize returns the review state for a brand-new card: default ease,
// no interval, no repetitions, due immediately.
func (s *Scheduler) Initialize(now time.Time) domain.ReviewState {
	return domain.ReviewState{
		EaseFactor:   s.params.InitialEaseFactor,
		IntervalDays: 0,
		Repetitions:  0,
		NextReview:   &now,
		LastReviewed: nil,
	}
}

// IsDue reports whether a card with the given state is due at now. A card
// that has never been reviewed (nil NextReview) is always due; otherwise
// the boundary is inclusive.
func (s *Scheduler) IsDue(state domain.ReviewState, now time.Time) bool {
	return state.IsDue(now)
}

// ProcessReview computes the next review state from the current one and a
// rating, and returns it together with a Review snapshot of the transition.
// The input state is not modified.
//
// The new ease factor and repetition count are computed first; the new
// interval then uses the post-increment repetition count (fixed graduation
// steps for the first two successes) and, for Easy, the already-clamped new
// ease factor. Multiplicative growth truncates toward zero. Both the ease
// factor and the interval are clamped on every call, so the invariants
// hold for any prior state that satisfied them.
func (s *Scheduler) ProcessReview(
	state domain.ReviewState,
	rating domain.ReviewRating,
	responseTimeMs *int,
	now time.Time,
) (domain.ReviewState, Review, error) {
	if !rating.IsValid() {
		return domain.ReviewState{}, Review{}, ErrInvalidRating
	}

	next := state
	next.EaseFactor = s.nextEaseFactor(state.EaseFactor, rating)

	if rating == domain.ReviewRatingAgain {
		next.Repetitions = 0
	} else {
		next.Repetitions = state.Repetitions + 1
	}

	next.IntervalDays = s.nextInterval(state.IntervalDays, next.Repetitions, next.EaseFactor, rating)
	next.IntervalDays = clampInt(next.IntervalDays, s.params.MinIntervalDays, s.params.MaxIntervalDays)

	next.LastReviewed = &now
	nextReview := now.AddDate(0, 0, next.IntervalDays)
	next.NextReview = &nextReview

	review := Review{
		Rating:           rating,
		EaseFactorBefore: state.EaseFactor,
		IntervalBefore:   state.IntervalDays,
		EaseFactorAfter:  next.EaseFactor,
		IntervalAfter:    next.IntervalDays,
		ResponseTimeMs:   responseTimeMs,
		ReviewedAt:       now,
	}

	return next, review, nil
}

// nextEaseFactor applies the rating's additive adjustment and clamps the
// result to the configured bounds. Each rating maps to a single fixed
// step, so clamping here is equivalent to clamping after the branch.
func (s *Scheduler) nextEaseFactor(current float64, rating domain.ReviewRating) float64 {
	ef := current + s.params.EaseAdjustment[rating]

	if ef < s.params.MinEaseFactor {
		ef = s.params.MinEaseFactor
	}
	if ef > s.params.MaxEaseFactor {
		ef = s.params.MaxEaseFactor
	}

	return ef
}

// nextInterval determines the new interval in days before the final clamp.
// repetitions is the post-increment count: the ==1 and ==2 guards are the
// fixed graduation steps for a card's first two consecutive successes.
func (s *Scheduler) nextInterval(
	currentInterval int,
	repetitions int,
	easeFactor float64,
	rating domain.ReviewRating,
) int {
	// Failed review: back to the minimum interval.
	if rating == domain.ReviewRatingAgain {
		return s.params.MinIntervalDays
	}

	if repetitions == 1 {
		return s.params.FirstInterval[rating]
	}
	if repetitions == 2 {
		return s.params.SecondInterval[rating]
	}

	// Third consecutive success onward: multiplicative growth, truncated.
	var modifier float64
	if rating == domain.ReviewRatingGood {
		modifier = easeFactor
	} else {
		modifier = s.params.IntervalModifier[rating]
		if rating == domain.ReviewRatingEasy {
			modifier *= easeFactor
		}
	}

	return int(float64(currentInterval) * modifier)
}

// clampInt limits v to the inclusive range [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
