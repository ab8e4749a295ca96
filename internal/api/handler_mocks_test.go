package api

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/service"
	"github.com/retainapp/retain-api/internal/service/card_review"
	"github.com/retainapp/retain-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCardService backs the card handler tests with an in-memory map.
type fakeCardService struct {
	cards     map[uuid.UUID]*domain.Card
	createErr error
}

func newFakeCardService() *fakeCardService {
	return &fakeCardService{cards: make(map[uuid.UUID]*domain.Card)}
}

func (f *fakeCardService) CreateCard(ctx context.Context, params service.CreateCardParams) (*domain.Card, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	status := params.Status
	if status == "" {
		status = domain.CardStatusActive
	}
	card, err := domain.NewCard(params.Front, params.Back, params.Hint, params.SourceID, status)
	if err != nil {
		return nil, service.NewCardServiceError("create_card", "invalid card", err)
	}
	f.cards[card.ID] = card
	return card, nil
}

func (f *fakeCardService) CreateCards(ctx context.Context, cards []*domain.Card) error {
	for _, c := range cards {
		f.cards[c.ID] = c
	}
	return nil
}

func (f *fakeCardService) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, ok := f.cards[id]
	if !ok {
		return nil, service.ErrCardNotFound
	}
	return card, nil
}

func (f *fakeCardService) ListCards(ctx context.Context, filter store.CardFilter, page store.Page) (*service.CardList, error) {
	out := []*domain.Card{}
	for _, c := range f.cards {
		out = append(out, c)
	}
	return &service.CardList{Cards: out, Total: len(out)}, nil
}

func (f *fakeCardService) UpdateCard(ctx context.Context, id uuid.UUID, params service.UpdateCardParams) (*domain.Card, error) {
	card, ok := f.cards[id]
	if !ok {
		return nil, service.ErrCardNotFound
	}
	if params.Front != nil {
		card.Front = *params.Front
	}
	if params.Back != nil {
		card.Back = *params.Back
	}
	if params.Status != nil {
		card.Status = *params.Status
	}
	return card, nil
}

func (f *fakeCardService) DeleteCard(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.cards[id]; !ok {
		return service.ErrCardNotFound
	}
	delete(f.cards, id)
	return nil
}

// fakeReviewService records submitted answers.
type fakeReviewService struct {
	cards     map[uuid.UUID]*domain.Card
	history   map[uuid.UUID][]*domain.ReviewLog
	submitted []card_review.ReviewAnswer
	submitErr error
}

func newFakeReviewService() *fakeReviewService {
	return &fakeReviewService{
		cards:   make(map[uuid.UUID]*domain.Card),
		history: make(map[uuid.UUID][]*domain.ReviewLog),
	}
}

func (f *fakeReviewService) GetDueCards(ctx context.Context, now time.Time, tag string, limit int) (*card_review.DueCards, error) {
	out := []*domain.Card{}
	for _, c := range f.cards {
		if c.Status == domain.CardStatusActive && c.IsDue(now) {
			out = append(out, c)
		}
	}
	return &card_review.DueCards{Cards: out, TotalDue: len(out)}, nil
}

func (f *fakeReviewService) SubmitAnswer(ctx context.Context, cardID uuid.UUID, answer card_review.ReviewAnswer) (*domain.Card, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	card, ok := f.cards[cardID]
	if !ok {
		return nil, card_review.ErrCardNotFound
	}
	if card.Status != domain.CardStatusActive {
		return nil, card_review.ErrCardNotReviewable
	}
	f.submitted = append(f.submitted, answer)
	return card, nil
}

func (f *fakeReviewService) GetReviewHistory(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error) {
	if _, ok := f.cards[cardID]; !ok {
		return nil, card_review.ErrCardNotFound
	}
	logs := f.history[cardID]
	if logs == nil {
		logs = []*domain.ReviewLog{}
	}
	return logs, nil
}

// fakeSourceService backs the source handler tests.
type fakeSourceService struct {
	sources   map[uuid.UUID]*domain.Source
	byExtID   map[string]uuid.UUID
	cardCount int
	genErr    error
	generated []uuid.UUID
}

func newFakeSourceService() *fakeSourceService {
	return &fakeSourceService{
		sources: make(map[uuid.UUID]*domain.Source),
		byExtID: make(map[string]uuid.UUID),
	}
}

func (f *fakeSourceService) CreateSource(ctx context.Context, params service.CreateSourceParams) (*domain.Source, error) {
	if params.ExternalID != "" {
		if _, ok := f.byExtID[params.ExternalID]; ok {
			return nil, service.ErrSourceExists
		}
	}
	source, err := domain.NewSource(params.Text, params.Type)
	if err != nil {
		return nil, service.NewSourceServiceError("create_source", "invalid source", err)
	}
	source.URL = params.URL
	source.Title = params.Title
	source.ExternalID = params.ExternalID
	source.HighlightColor = params.HighlightColor
	f.sources[source.ID] = source
	if params.ExternalID != "" {
		f.byExtID[params.ExternalID] = source.ID
	}
	return source, nil
}

func (f *fakeSourceService) GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	source, ok := f.sources[id]
	if !ok {
		return nil, service.ErrSourceNotFound
	}
	return source, nil
}

func (f *fakeSourceService) ListSources(ctx context.Context, filter store.SourceFilter, page store.Page) (*service.SourceList, error) {
	out := []*domain.Source{}
	for _, s := range f.sources {
		out = append(out, s)
	}
	return &service.SourceList{Sources: out, Total: len(out)}, nil
}

func (f *fakeSourceService) UpdateSource(ctx context.Context, id uuid.UUID, params service.UpdateSourceParams) (*domain.Source, error) {
	source, ok := f.sources[id]
	if !ok {
		return nil, service.ErrSourceNotFound
	}
	if params.Text != nil {
		source.Text = *params.Text
	}
	if params.Status != nil {
		source.Status = *params.Status
	}
	return source, nil
}

func (f *fakeSourceService) UpdateSourceStatus(ctx context.Context, id uuid.UUID, status domain.SourceStatus) error {
	_, err := f.UpdateSource(ctx, id, service.UpdateSourceParams{Status: &status})
	return err
}

func (f *fakeSourceService) DeleteSource(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.sources[id]; !ok {
		return service.ErrSourceNotFound
	}
	delete(f.sources, id)
	return nil
}

func (f *fakeSourceService) GenerateCards(ctx context.Context, id uuid.UUID) error {
	if f.genErr != nil {
		return f.genErr
	}
	if _, ok := f.sources[id]; !ok {
		return service.ErrSourceNotFound
	}
	f.generated = append(f.generated, id)
	return nil
}

func (f *fakeSourceService) ApproveSource(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	source, ok := f.sources[id]
	if !ok {
		return nil, service.ErrSourceNotFound
	}
	source.Status = domain.SourceStatusApproved
	return source, nil
}

func (f *fakeSourceService) CountCards(ctx context.Context, id uuid.UUID) (int, error) {
	return f.cardCount, nil
}
