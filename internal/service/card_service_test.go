package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/domain/srs"
	"github.com/retainapp/retain-api/internal/store"
)

func newTestCardService(cards *fakeCardStore, tags *fakeTagStore) *cardServiceImpl {
	return &cardServiceImpl{
		cards:     cards,
		tags:      tags,
		scheduler: srs.NewScheduler(),
		runInTx:   passthroughTx,
		timeFunc:  func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
		logger:    testLogger(),
	}
}

func TestCreateCardActiveGetsSchedule(t *testing.T) {
	t.Parallel()

	cards := newFakeCardStore()
	svc := newTestCardService(cards, newFakeTagStore())

	card, err := svc.CreateCard(context.Background(), CreateCardParams{
		Front: "What is the capital of France?",
		Back:  "Paris",
		Tags:  []string{"Geography", "geography", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CardStatusActive, card.Status)
	assert.InDelta(t, 2.5, card.EaseFactor, 1e-9)
	assert.Equal(t, 0, card.IntervalDays)
	require.NotNil(t, card.NextReview, "active card must be due immediately")
	assert.Nil(t, card.LastReviewed)

	// Duplicate and empty tag names collapse to one tag.
	require.Len(t, card.Tags, 1)
	assert.Equal(t, "geography", card.Tags[0].Name)
}

func TestCreateCardDraftHasNoSchedule(t *testing.T) {
	t.Parallel()

	svc := newTestCardService(newFakeCardStore(), newFakeTagStore())

	card, err := svc.CreateCard(context.Background(), CreateCardParams{
		Front:  "front",
		Back:   "back",
		Status: domain.CardStatusDraft,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CardStatusDraft, card.Status)
	assert.Nil(t, card.NextReview)
}

func TestCreateCardValidationFailure(t *testing.T) {
	t.Parallel()

	svc := newTestCardService(newFakeCardStore(), newFakeTagStore())

	_, err := svc.CreateCard(context.Background(), CreateCardParams{Front: "", Back: "back"})
	require.Error(t, err)

	var svcErr *CardServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.ErrorIs(t, err, domain.ErrCardFrontEmpty)
}

func TestUpdateCardActivationInitializesSchedule(t *testing.T) {
	t.Parallel()

	cards := newFakeCardStore()
	svc := newTestCardService(cards, newFakeTagStore())

	draft, err := svc.CreateCard(context.Background(), CreateCardParams{
		Front:  "front",
		Back:   "back",
		Status: domain.CardStatusDraft,
	})
	require.NoError(t, err)

	active := domain.CardStatusActive
	updated, err := svc.UpdateCard(context.Background(), draft.ID, UpdateCardParams{Status: &active})
	require.NoError(t, err)

	assert.Equal(t, domain.CardStatusActive, updated.Status)
	require.NotNil(t, updated.NextReview)
	assert.Equal(t, 0, updated.IntervalDays)
}

func TestUpdateCardSuspendKeepsSchedule(t *testing.T) {
	t.Parallel()

	cards := newFakeCardStore()
	svc := newTestCardService(cards, newFakeTagStore())

	card, err := svc.CreateCard(context.Background(), CreateCardParams{Front: "f", Back: "b"})
	require.NoError(t, err)

	// Simulate review progress.
	stored := cards.cards[card.ID]
	stored.IntervalDays = 15
	stored.Repetitions = 3
	reviewed := time.Now().UTC()
	stored.LastReviewed = &reviewed

	suspended := domain.CardStatusSuspended
	updated, err := svc.UpdateCard(context.Background(), card.ID, UpdateCardParams{Status: &suspended})
	require.NoError(t, err)

	assert.Equal(t, domain.CardStatusSuspended, updated.Status)
	assert.Equal(t, 15, updated.IntervalDays, "suspension must not reset progress")
	assert.Equal(t, 3, updated.Repetitions)
}

func TestUpdateCardNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestCardService(newFakeCardStore(), newFakeTagStore())

	front := "new front"
	_, err := svc.UpdateCard(context.Background(), uuid.New(), UpdateCardParams{Front: &front})
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCreateCardsResolvesTagsOnce(t *testing.T) {
	t.Parallel()

	cards := newFakeCardStore()
	tags := newFakeTagStore()
	svc := newTestCardService(cards, tags)

	sourceID := uuid.New()
	tag, err := domain.NewTag("reading")
	require.NoError(t, err)

	var batch []*domain.Card
	for i := 0; i < 3; i++ {
		card, err := domain.NewCard("front", "back", "", &sourceID, domain.CardStatusDraft)
		require.NoError(t, err)
		card.Tags = []*domain.Tag{tag}
		batch = append(batch, card)
	}

	require.NoError(t, svc.CreateCards(context.Background(), batch))
	assert.Len(t, cards.cards, 3)
	assert.Len(t, tags.tags, 1)
}

func TestCreateCardsEmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	svc := newTestCardService(newFakeCardStore(), newFakeTagStore())
	assert.NoError(t, svc.CreateCards(context.Background(), nil))
}

func TestGetAndDeleteCard(t *testing.T) {
	t.Parallel()

	cards := newFakeCardStore()
	svc := newTestCardService(cards, newFakeTagStore())

	card, err := svc.CreateCard(context.Background(), CreateCardParams{Front: "f", Back: "b"})
	require.NoError(t, err)

	got, err := svc.GetCard(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)

	require.NoError(t, svc.DeleteCard(context.Background(), card.ID))
	_, err = svc.GetCard(context.Background(), card.ID)
	assert.ErrorIs(t, err, ErrCardNotFound)

	assert.ErrorIs(t, svc.DeleteCard(context.Background(), card.ID), ErrCardNotFound)
}

func TestListCardsEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestCardService(newFakeCardStore(), newFakeTagStore())

	list, err := svc.ListCards(context.Background(), store.CardFilter{}, store.Page{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.NotNil(t, list.Cards)
	assert.Zero(t, list.Total)
}
