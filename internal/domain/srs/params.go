package srs

import (
	"github.com/retainapp/retain-api/internal/domain"
)

// Default algorithm constants. These are deliberately named values rather
// than hidden state so the scheduler stays pure and testable.
const (
	DefaultMinEaseFactor     = 1.3
	DefaultMaxEaseFactor     = 3.0
	DefaultInitialEaseFactor = 2.5

	// Interval bounds in days: one day minimum, one year maximum.
	DefaultMinIntervalDays = 1
	DefaultMaxIntervalDays = 365
)

// Params defines all configurable parameters for the SRS algorithm.
type Params struct {
	// Core limits
	MinEaseFactor     float64
	MaxEaseFactor     float64
	InitialEaseFactor float64
	MinIntervalDays   int
	MaxIntervalDays   int

	// Additive ease factor adjustment per rating
	EaseAdjustment map[domain.ReviewRating]float64

	// Multiplier applied to the current interval per rating. A zero entry
	// means "use the ease factor directly" (the Good case); the Easy entry
	// is multiplied by the ease factor on top.
	IntervalModifier map[domain.ReviewRating]float64

	// Fixed graduation intervals for the first and second consecutive
	// successful reviews, keyed by rating. These bypass the multiplicative
	// formula so early repetitions do not compound a low interval.
	FirstInterval  map[domain.ReviewRating]int
	SecondInterval map[domain.ReviewRating]int
}

// NewDefaultParams creates a Params instance with the standard values.
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:     DefaultMinEaseFactor,
		MaxEaseFactor:     DefaultMaxEaseFactor,
		InitialEaseFactor: DefaultInitialEaseFactor,
		MinIntervalDays:   DefaultMinIntervalDays,
		MaxIntervalDays:   DefaultMaxIntervalDays,

		EaseAdjustment: map[domain.ReviewRating]float64{
			domain.ReviewRatingAgain: -0.20,
			domain.ReviewRatingHard:  -0.15,
			domain.ReviewRatingGood:  0.0,
			domain.ReviewRatingEasy:  0.15,
		},

		IntervalModifier: map[domain.ReviewRating]float64{
			domain.ReviewRatingHard: 1.2, // Slight increase, ease not applied
			domain.ReviewRatingGood: 0.0, // Use ease factor directly
			domain.ReviewRatingEasy: 1.3, // Boost on top of ease factor
		},

		FirstInterval: map[domain.ReviewRating]int{
			domain.ReviewRatingHard: 1,
			domain.ReviewRatingGood: 1,
			domain.ReviewRatingEasy: 4,
		},

		SecondInterval: map[domain.ReviewRating]int{
			domain.ReviewRatingHard: 4,
			domain.ReviewRatingGood: 6,
			domain.ReviewRatingEasy: 10,
		},
	}
}
