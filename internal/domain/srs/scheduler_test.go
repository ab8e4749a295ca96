package srs

import (
	"testing"
	"time"

	"github.com/retainapp/retain-api/internal/domain"
)

func intPtr(v int) *int { return &v }

func stateWith(ease float64, interval, reps int) domain.ReviewState {
	return domain.ReviewState{
		EaseFactor:   ease,
		IntervalDays: interval,
		Repetitions:  reps,
	}
}

func TestInitialize(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	state := s.Initialize(now)

	if state.EaseFactor != 2.5 {
		t.Errorf("expected ease factor 2.5, got %v", state.EaseFactor)
	}
	if state.IntervalDays != 0 {
		t.Errorf("expected interval 0, got %d", state.IntervalDays)
	}
	if state.Repetitions != 0 {
		t.Errorf("expected repetitions 0, got %d", state.Repetitions)
	}
	if state.NextReview == nil || !state.NextReview.Equal(now) {
		t.Errorf("expected next review %v, got %v", now, state.NextReview)
	}
	if state.LastReviewed != nil {
		t.Errorf("expected nil last reviewed, got %v", state.LastReviewed)
	}
	if !s.IsDue(state, now) {
		t.Error("freshly initialized state should be due immediately")
	}
}

func TestProcessReviewTransitions(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		state        domain.ReviewState
		rating       domain.ReviewRating
		wantEase     float64
		wantInterval int
		wantReps     int
	}{
		{
			name:         "Again resets repetitions and interval",
			state:        stateWith(2.5, 15, 3),
			rating:       domain.ReviewRatingAgain,
			wantEase:     2.3, // 2.5 - 0.2
			wantInterval: 1,
			wantReps:     0,
		},
		{
			name:         "Again clamps ease factor at minimum",
			state:        stateWith(1.35, 20, 4),
			rating:       domain.ReviewRatingAgain,
			wantEase:     1.3,
			wantInterval: 1,
			wantReps:     0,
		},
		{
			name:         "Hard first success uses one-day graduation step",
			state:        stateWith(2.5, 0, 0),
			rating:       domain.ReviewRatingHard,
			wantEase:     2.35,
			wantInterval: 1,
			wantReps:     1,
		},
		{
			name:         "Hard second success uses four-day graduation step",
			state:        stateWith(2.35, 1, 1),
			rating:       domain.ReviewRatingHard,
			wantEase:     2.2,
			wantInterval: 4,
			wantReps:     2,
		},
		{
			name:         "Hard third success multiplies by 1.2",
			state:        stateWith(2.2, 4, 2),
			rating:       domain.ReviewRatingHard,
			wantEase:     2.05,
			wantInterval: 4, // int(4 * 1.2) = 4, truncation
			wantReps:     3,
		},
		{
			name:         "Hard clamps ease at minimum",
			state:        stateWith(1.35, 10, 3),
			rating:       domain.ReviewRatingHard,
			wantEase:     1.3,
			wantInterval: 12, // int(10 * 1.2)
			wantReps:     4,
		},
		{
			name:         "Good first success uses one-day graduation step",
			state:        stateWith(2.5, 0, 0),
			rating:       domain.ReviewRatingGood,
			wantEase:     2.5,
			wantInterval: 1,
			wantReps:     1,
		},
		{
			name:         "Good second success uses six-day graduation step",
			state:        stateWith(2.5, 1, 1),
			rating:       domain.ReviewRatingGood,
			wantEase:     2.5,
			wantInterval: 6,
			wantReps:     2,
		},
		{
			name:         "Good third success multiplies by ease factor",
			state:        stateWith(2.5, 6, 2),
			rating:       domain.ReviewRatingGood,
			wantEase:     2.5,
			wantInterval: 15, // int(6 * 2.5)
			wantReps:     3,
		},
		{
			name:         "Easy first success uses four-day graduation step",
			state:        stateWith(2.5, 0, 0),
			rating:       domain.ReviewRatingEasy,
			wantEase:     2.65,
			wantInterval: 4,
			wantReps:     1,
		},
		{
			name:         "Easy second success uses ten-day graduation step",
			state:        stateWith(2.65, 4, 1),
			rating:       domain.ReviewRatingEasy,
			wantEase:     2.8,
			wantInterval: 10,
			wantReps:     2,
		},
		{
			name:         "Easy third success multiplies by clamped ease and 1.3",
			state:        stateWith(2.9, 50, 5),
			rating:       domain.ReviewRatingEasy,
			wantEase:     3.0,  // clamped from 3.05
			wantInterval: 195, // int(50 * 3.0 * 1.3), uses the clamped ease
			wantReps:     6,
		},
		{
			name:         "interval clamps at the one-year maximum",
			state:        stateWith(3.0, 300, 10),
			rating:       domain.ReviewRatingEasy,
			wantEase:     3.0,
			wantInterval: 365, // int(300 * 3.0 * 1.3) = 1170, clamped
			wantReps:     11,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, review, err := s.ProcessReview(tc.state, tc.rating, nil, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !almostEqual(next.EaseFactor, tc.wantEase) {
				t.Errorf("ease factor: expected %v, got %v", tc.wantEase, next.EaseFactor)
			}
			if next.IntervalDays != tc.wantInterval {
				t.Errorf("interval: expected %d, got %d", tc.wantInterval, next.IntervalDays)
			}
			if next.Repetitions != tc.wantReps {
				t.Errorf("repetitions: expected %d, got %d", tc.wantReps, next.Repetitions)
			}

			// Review snapshot must capture both sides of the transition.
			if !almostEqual(review.EaseFactorBefore, tc.state.EaseFactor) {
				t.Errorf("snapshot ease before: expected %v, got %v",
					tc.state.EaseFactor, review.EaseFactorBefore)
			}
			if review.IntervalBefore != tc.state.IntervalDays {
				t.Errorf("snapshot interval before: expected %d, got %d",
					tc.state.IntervalDays, review.IntervalBefore)
			}
			if !almostEqual(review.EaseFactorAfter, tc.wantEase) {
				t.Errorf("snapshot ease after: expected %v, got %v", tc.wantEase, review.EaseFactorAfter)
			}
			if review.IntervalAfter != tc.wantInterval {
				t.Errorf("snapshot interval after: expected %d, got %d",
					tc.wantInterval, review.IntervalAfter)
			}
			if review.Rating != tc.rating {
				t.Errorf("snapshot rating: expected %v, got %v", tc.rating, review.Rating)
			}
			if !review.ReviewedAt.Equal(now) {
				t.Errorf("snapshot reviewed at: expected %v, got %v", now, review.ReviewedAt)
			}

			// Timestamps: last reviewed is the call time, next review is
			// exactly the interval later.
			if next.LastReviewed == nil || !next.LastReviewed.Equal(now) {
				t.Errorf("last reviewed: expected %v, got %v", now, next.LastReviewed)
			}
			wantNext := now.AddDate(0, 0, tc.wantInterval)
			if next.NextReview == nil || !next.NextReview.Equal(wantNext) {
				t.Errorf("next review: expected %v, got %v", wantNext, next.NextReview)
			}
		})
	}
}

// TestProcessReviewScenarioChain walks the documented three-good-reviews
// progression from a fresh card: 1 day, 6 days, then 6 * 2.5 = 15 days.
func TestProcessReviewScenarioChain(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	state := s.Initialize(now)

	expected := []struct {
		reps     int
		interval int
	}{
		{1, 1},
		{2, 6},
		{3, 15},
	}

	for i, want := range expected {
		var err error
		state, _, err = s.ProcessReview(state, domain.ReviewRatingGood, nil, now)
		if err != nil {
			t.Fatalf("review %d: unexpected error: %v", i+1, err)
		}
		if state.Repetitions != want.reps {
			t.Errorf("review %d: expected repetitions %d, got %d", i+1, want.reps, state.Repetitions)
		}
		if state.IntervalDays != want.interval {
			t.Errorf("review %d: expected interval %d, got %d", i+1, want.interval, state.IntervalDays)
		}
		if !almostEqual(state.EaseFactor, 2.5) {
			t.Errorf("review %d: ease factor should stay 2.5, got %v", i+1, state.EaseFactor)
		}
	}

	// A failure after the chain resets progress but keeps the card scheduled.
	state, _, err := s.ProcessReview(state, domain.ReviewRatingAgain, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Repetitions != 0 || state.IntervalDays != 1 {
		t.Errorf("after Again: expected reps 0 interval 1, got reps %d interval %d",
			state.Repetitions, state.IntervalDays)
	}
	if !almostEqual(state.EaseFactor, 2.3) {
		t.Errorf("after Again: expected ease 2.3, got %v", state.EaseFactor)
	}
}

// TestProcessReviewInvariants sweeps ratings across a range of prior states
// and checks the bounds hold after every transition.
func TestProcessReviewInvariants(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ratings := []domain.ReviewRating{
		domain.ReviewRatingAgain,
		domain.ReviewRatingHard,
		domain.ReviewRatingGood,
		domain.ReviewRatingEasy,
	}
	eases := []float64{1.3, 1.35, 2.0, 2.5, 2.95, 3.0}
	intervals := []int{0, 1, 2, 6, 50, 200, 365}
	reps := []int{0, 1, 2, 3, 10}

	for _, rating := range ratings {
		for _, ease := range eases {
			for _, interval := range intervals {
				for _, rep := range reps {
					next, _, err := s.ProcessReview(stateWith(ease, interval, rep), rating, nil, now)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}

					if next.EaseFactor < 1.3 || next.EaseFactor > 3.0 {
						t.Errorf("ease factor %v out of bounds after %v on (%v, %d, %d)",
							next.EaseFactor, rating, ease, interval, rep)
					}
					if next.IntervalDays < 1 || next.IntervalDays > 365 {
						t.Errorf("interval %d out of bounds after %v on (%v, %d, %d)",
							next.IntervalDays, rating, ease, interval, rep)
					}

					if rating == domain.ReviewRatingAgain {
						if next.Repetitions != 0 {
							t.Errorf("Again should reset repetitions, got %d", next.Repetitions)
						}
						if next.IntervalDays != 1 {
							t.Errorf("Again should set interval to 1, got %d", next.IntervalDays)
						}
					} else if next.Repetitions != rep+1 {
						t.Errorf("%v should increment repetitions from %d, got %d",
							rating, rep, next.Repetitions)
					}

					wantNext := now.AddDate(0, 0, next.IntervalDays)
					if !next.NextReview.Equal(wantNext) {
						t.Errorf("next review should be last reviewed plus interval, got %v want %v",
							next.NextReview, wantNext)
					}
				}
			}
		}
	}
}

func TestProcessReviewInvalidRating(t *testing.T) {
	t.Parallel()
	s := NewScheduler()

	_, _, err := s.ProcessReview(stateWith(2.5, 5, 2), domain.ReviewRating(7), nil, time.Now().UTC())
	if err != ErrInvalidRating {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}
}

func TestProcessReviewDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Now().UTC()

	original := stateWith(2.5, 6, 2)
	_, _, err := s.ProcessReview(original, domain.ReviewRatingGood, intPtr(1200), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if original.EaseFactor != 2.5 || original.IntervalDays != 6 || original.Repetitions != 2 {
		t.Error("input state was mutated")
	}
}

func TestProcessReviewCarriesResponseTime(t *testing.T) {
	t.Parallel()
	s := NewScheduler()

	rt := intPtr(850)
	_, review, err := s.ProcessReview(stateWith(2.5, 6, 2), domain.ReviewRatingGood, rt, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.ResponseTimeMs == nil || *review.ResponseTimeMs != 850 {
		t.Errorf("expected response time 850, got %v", review.ResponseTimeMs)
	}
}

func TestIsDue(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	testCases := []struct {
		name       string
		nextReview *time.Time
		want       bool
	}{
		{"never reviewed is due", nil, true},
		{"past next review is due", &past, true},
		{"exact boundary is due", &now, true},
		{"future next review is not due", &future, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state := domain.ReviewState{NextReview: tc.nextReview}
			if got := s.IsDue(state, now); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

// almostEqual compares floats with a tolerance wide enough for the fixed
// additive ease steps used by the algorithm.
func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
