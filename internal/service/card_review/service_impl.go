package card_review

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

// Verify interface compliance at compile time
var _ CardReviewService = (*cardReviewServiceImpl)(nil)

// cardReviewServiceImpl implements the CardReviewService interface.
type cardReviewServiceImpl struct {
	cards     store.CardStore
	logs      store.ReviewLogStore
	scheduler *srs.Scheduler
	runInTx   func(ctx context.Context, fn store.TxFn) error // Injectable for testing
	timeFunc  func() time.Time                               // Injectable for testing
	logger    *slog.Logger
}

// NewCardReviewService creates a new CardReviewService implementation.
func NewCardReviewService(
	db *sql.DB,
	cards store.CardStore,
	logs store.ReviewLogStore,
	scheduler *srs.Scheduler,
	logger *slog.Logger,
) CardReviewService {
	if db == nil {
		panic("db cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if logs == nil {
		panic("logs cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &cardReviewServiceImpl{
		cards:     cards,
		logs:      logs,
		scheduler: scheduler,
		runInTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
		timeFunc: func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "card_review_service")),
	}
}

// GetDueCards implements CardReviewService.GetDueCards.
func (s *cardReviewServiceImpl) GetDueCards(ctx context.Context, now time.Time, tag string, limit int) (*DueCards, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards, total, err := s.cards.ListDue(ctx, now, tag, limit)
	if err != nil {
		log.Error("failed to list due cards", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list due cards: %w", err)
	}

	if cards == nil {
		cards = []*domain.Card{}
	}

	log.Debug("listed due cards",
		slog.Int("returned", len(cards)),
		slog.Int("total_due", total))
	return &DueCards{Cards: cards, TotalDue: total}, nil
}

// SubmitAnswer implements CardReviewService.SubmitAnswer.
// The state transition and the review log entry are written in one
// transaction so the history never diverges from the card.
func (s *cardReviewServiceImpl) SubmitAnswer(ctx context.Context, cardID uuid.UUID, answer ReviewAnswer) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !answer.Rating.IsValid() {
		log.Warn("invalid review rating",
			slog.String("card_id", cardID.String()),
			slog.Int("rating", int(answer.Rating)))
		return nil, ErrInvalidAnswer
	}

	now := s.timeFunc()
	var reviewed *domain.Card

	err := s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)
		logs := s.logs.WithTx(tx)

		card, err := cards.GetByID(ctx, cardID)
		if err != nil {
			if errors.Is(err, store.ErrCardNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("failed to get card: %w", err)
		}

		if card.Status != domain.CardStatusActive {
			log.Warn("card not reviewable",
				slog.String("card_id", cardID.String()),
				slog.String("status", string(card.Status)))
			return ErrCardNotReviewable
		}

		nextState, review, err := s.scheduler.ProcessReview(card.ReviewState, answer.Rating, answer.ResponseTimeMs, now)
		if err != nil {
			if errors.Is(err, srs.ErrInvalidRating) {
				return ErrInvalidAnswer
			}
			return fmt.Errorf("failed to process review: %w", err)
		}

		card.ReviewState = nextState
		card.UpdatedAt = now
		if err := cards.Update(ctx, card); err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}

		entry, err := domain.NewReviewLog(
			card.ID,
			review.Rating,
			review.EaseFactorBefore,
			review.IntervalBefore,
			review.EaseFactorAfter,
			review.IntervalAfter,
			review.ResponseTimeMs,
			review.ReviewedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to build review log: %w", err)
		}

		if err := logs.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to save review log: %w", err)
		}

		reviewed = card
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) ||
			errors.Is(err, ErrCardNotReviewable) ||
			errors.Is(err, ErrInvalidAnswer) {
			return nil, err
		}

		log.Error("failed to submit answer",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, &ServiceError{Operation: "submit_answer", Message: "transaction failed", Err: err}
	}

	log.Debug("processed review answer",
		slog.String("card_id", cardID.String()),
		slog.String("rating", answer.Rating.String()),
		slog.Float64("ease_factor", reviewed.EaseFactor),
		slog.Int("interval_days", reviewed.IntervalDays))

	return reviewed, nil
}

// GetReviewHistory implements CardReviewService.GetReviewHistory.
func (s *cardReviewServiceImpl) GetReviewHistory(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.cards.GetByID(ctx, cardID); err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	history, err := s.logs.ListByCard(ctx, cardID)
	if err != nil {
		log.Error("failed to list review history",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, fmt.Errorf("failed to list review history: %w", err)
	}

	return history, nil
}
