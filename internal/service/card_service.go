package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/domain/srs"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/store"
)

// CardServiceError is a custom error type for card service errors.
type CardServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CardServiceError.
func (e *CardServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("card service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("card service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CardServiceError) Unwrap() error {
	return e.Err
}

// NewCardServiceError creates a new CardServiceError.
func NewCardServiceError(operation, message string, err error) *CardServiceError {
	return &CardServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// CreateCardParams carries the fields for manual card creation.
type CreateCardParams struct {
	Front    string
	Back     string
	Hint     string
	SourceID *uuid.UUID
	Status   domain.CardStatus
	Tags     []string
}

// UpdateCardParams carries a partial card update. Nil fields are left
// unchanged.
type UpdateCardParams struct {
	Front  *string
	Back   *string
	Hint   *string
	Status *domain.CardStatus
	Tags   *[]string
}

// CardList is a page of cards with the total match count.
type CardList struct {
	Cards []*domain.Card `json:"cards"`
	Total int            `json:"total"`
}

// CardService provides card-related operations
type CardService interface {
	// CreateCard creates a single card. A card created directly in the
	// active status gets an initialized review schedule and is due
	// immediately.
	CreateCard(ctx context.Context, params CreateCardParams) (*domain.Card, error)

	// CreateCards creates multiple cards and their tag associations in a
	// single transaction. Used by the generation task.
	CreateCards(ctx context.Context, cards []*domain.Card) error

	// GetCard retrieves a card by its ID
	GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)

	// ListCards returns a page of cards matching the filter.
	ListCards(ctx context.Context, filter store.CardFilter, page store.Page) (*CardList, error)

	// UpdateCard applies a partial update. Moving a card into the active
	// status for the first time initializes its review schedule.
	UpdateCard(ctx context.Context, cardID uuid.UUID, params UpdateCardParams) (*domain.Card, error)

	// DeleteCard removes a card and, via database cascades, its review
	// history and tag associations.
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
}

// cardServiceImpl implements the CardService interface
type cardServiceImpl struct {
	cards     store.CardStore
	tags      store.TagStore
	scheduler *srs.Scheduler
	runInTx   func(ctx context.Context, fn store.TxFn) error
	timeFunc  func() time.Time // Injectable for testing
	logger    *slog.Logger
}

// NewCardService creates a new CardService.
func NewCardService(
	db *sql.DB,
	cards store.CardStore,
	tags store.TagStore,
	scheduler *srs.Scheduler,
	logger *slog.Logger,
) CardService {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if tags == nil {
		panic("tags cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &cardServiceImpl{
		cards:     cards,
		tags:      tags,
		scheduler: scheduler,
		runInTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
		timeFunc: func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "card_service")),
	}
}

// CreateCard implements CardService.CreateCard.
func (s *cardServiceImpl) CreateCard(ctx context.Context, params CreateCardParams) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	status := params.Status
	if status == "" {
		status = domain.CardStatusActive
	}

	card, err := domain.NewCard(params.Front, params.Back, params.Hint, params.SourceID, status)
	if err != nil {
		return nil, NewCardServiceError("create_card", "invalid card", err)
	}

	if card.Status == domain.CardStatusActive {
		card.ReviewState = s.scheduler.Initialize(s.timeFunc())
	}

	err = s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		resolved, err := s.tags.WithTx(tx).GetOrCreate(ctx, params.Tags)
		if err != nil {
			return fmt.Errorf("failed to resolve tags: %w", err)
		}
		card.Tags = resolved

		return s.cards.WithTx(tx).Create(ctx, card)
	})
	if err != nil {
		log.Error("failed to create card", slog.String("error", err.Error()))
		return nil, NewCardServiceError("create_card", "failed to save card", err)
	}

	log.Info("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("status", string(card.Status)))
	return card, nil
}

// CreateCards implements CardService.CreateCards.
// The cards' Tags are resolved to existing tag rows (creating missing ones)
// before the batch insert; everything runs in one transaction.
func (s *cardServiceImpl) CreateCards(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		log.Debug("no cards to create")
		return nil
	}

	return s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTags := s.tags.WithTx(tx)

		for _, card := range cards {
			if len(card.Tags) == 0 {
				continue
			}
			names := make([]string, 0, len(card.Tags))
			for _, tag := range card.Tags {
				names = append(names, tag.Name)
			}
			resolved, err := txTags.GetOrCreate(ctx, names)
			if err != nil {
				return NewCardServiceError("create_cards", "failed to resolve tags", err)
			}
			card.Tags = resolved
		}

		if err := s.cards.WithTx(tx).CreateMultiple(ctx, cards); err != nil {
			return NewCardServiceError("create_cards", "failed to save cards", err)
		}

		log.Info("cards created in transaction", slog.Int("card_count", len(cards)))
		return nil
	})
}

// GetCard implements CardService.GetCard.
func (s *cardServiceImpl) GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrCardNotFound
		}
		return nil, NewCardServiceError("get_card", "failed to retrieve card", err)
	}
	return card, nil
}

// ListCards implements CardService.ListCards.
func (s *cardServiceImpl) ListCards(ctx context.Context, filter store.CardFilter, page store.Page) (*CardList, error) {
	cards, total, err := s.cards.List(ctx, filter, page)
	if err != nil {
		return nil, NewCardServiceError("list_cards", "failed to list cards", err)
	}
	if cards == nil {
		cards = []*domain.Card{}
	}
	return &CardList{Cards: cards, Total: total}, nil
}

// UpdateCard implements CardService.UpdateCard.
func (s *cardServiceImpl) UpdateCard(ctx context.Context, cardID uuid.UUID, params UpdateCardParams) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Card
	err := s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txCards := s.cards.WithTx(tx)

		card, err := txCards.GetByID(ctx, cardID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrCardNotFound
			}
			return fmt.Errorf("failed to get card: %w", err)
		}

		if params.Front != nil {
			card.Front = *params.Front
		}
		if params.Back != nil {
			card.Back = *params.Back
		}
		if params.Hint != nil {
			card.Hint = *params.Hint
		}
		if params.Status != nil && *params.Status != card.Status {
			if err := card.UpdateStatus(*params.Status); err != nil {
				return NewCardServiceError("update_card", "invalid status", err)
			}
			// First activation starts the review schedule.
			if card.Status == domain.CardStatusActive && card.LastReviewed == nil && card.NextReview == nil {
				card.ReviewState = s.scheduler.Initialize(s.timeFunc())
			}
		}
		if params.Tags != nil {
			resolved, err := s.tags.WithTx(tx).GetOrCreate(ctx, *params.Tags)
			if err != nil {
				return fmt.Errorf("failed to resolve tags: %w", err)
			}
			card.Tags = resolved
		}

		card.UpdatedAt = s.timeFunc()
		if err := card.Validate(); err != nil {
			return NewCardServiceError("update_card", "invalid card", err)
		}

		if err := txCards.Update(ctx, card); err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}

		updated = card
		return nil
	})
	if err != nil {
		var svcErr *CardServiceError
		if errors.Is(err, ErrCardNotFound) || errors.As(err, &svcErr) {
			return nil, err
		}
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, NewCardServiceError("update_card", "transaction failed", err)
	}

	return updated, nil
}

// DeleteCard implements CardService.DeleteCard.
func (s *cardServiceImpl) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	if err := s.cards.Delete(ctx, cardID); err != nil {
		if store.IsNotFoundError(err) {
			return ErrCardNotFound
		}
		return NewCardServiceError("delete_card", "failed to delete card", err)
	}
	return nil
}
