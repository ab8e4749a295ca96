package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainapp/retain-api/internal/domain"
)

func TestReviewRating(t *testing.T) {
	t.Parallel()

	for rating, name := range map[domain.ReviewRating]string{
		domain.ReviewRatingAgain: "again",
		domain.ReviewRatingHard:  "hard",
		domain.ReviewRatingGood:  "good",
		domain.ReviewRatingEasy:  "easy",
	} {
		assert.True(t, rating.IsValid())
		assert.Equal(t, name, rating.String())
	}

	assert.False(t, domain.ReviewRating(-1).IsValid())
	assert.False(t, domain.ReviewRating(4).IsValid())
	assert.Equal(t, "unknown", domain.ReviewRating(4).String())
}

func TestNewReviewLog(t *testing.T) {
	t.Parallel()

	cardID := uuid.New()
	now := time.Now().UTC()
	rt := 1200

	log, err := domain.NewReviewLog(cardID, domain.ReviewRatingGood, 2.5, 6, 2.5, 15, &rt, now)
	require.NoError(t, err)

	assert.Equal(t, cardID, log.CardID)
	assert.Equal(t, 2.5, log.EaseFactorBefore)
	assert.Equal(t, 6, log.IntervalBefore)
	assert.Equal(t, 15, log.IntervalAfter)
	assert.Equal(t, &rt, log.ResponseTimeMs)
	assert.Equal(t, now, log.ReviewedAt)

	_, err = domain.NewReviewLog(uuid.Nil, domain.ReviewRatingGood, 2.5, 6, 2.5, 15, nil, now)
	assert.ErrorIs(t, err, domain.ErrReviewLogCardIDEmpty)

	_, err = domain.NewReviewLog(cardID, domain.ReviewRating(9), 2.5, 6, 2.5, 15, nil, now)
	assert.ErrorIs(t, err, domain.ErrInvalidReviewRating)
}
