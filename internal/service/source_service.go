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
	"github.com/retainapp/retain-api/internal/task"
)

// SourceServiceError is a custom error type for source service errors.
type SourceServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for SourceServiceError.
func (e *SourceServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("source service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *SourceServiceError) Unwrap() error {
	return e.Err
}

// NewSourceServiceError creates a new SourceServiceError.
func NewSourceServiceError(operation, message string, err error) *SourceServiceError {
	return &SourceServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// TaskSubmitter enqueues background tasks for processing.
type TaskSubmitter interface {
	Submit(ctx context.Context, t task.Task) error
}

// GenerationTaskFactory builds card generation tasks for a source.
type GenerationTaskFactory interface {
	NewTask(sourceID uuid.UUID) (task.Task, error)
}

// CreateSourceParams carries the fields for source capture.
type CreateSourceParams struct {
	Text           string
	Type           domain.SourceType
	URL            string
	Title          string
	ExternalID     string
	HighlightColor string
	Tags           []string

	// GenerateCards enqueues a card generation task right after capture.
	GenerateCards bool
}

// UpdateSourceParams carries a partial source update. Nil fields are left
// unchanged.
type UpdateSourceParams struct {
	Text   *string
	Title  *string
	Status *domain.SourceStatus
	Tags   *[]string
}

// SourceList is a page of sources with the total match count.
type SourceList struct {
	Sources []*domain.Source `json:"sources"`
	Total   int              `json:"total"`
}

// SourceService provides operations on captured sources.
type SourceService interface {
	// CreateSource captures a new source. A non-empty external ID that was
	// already imported returns ErrSourceExists.
	CreateSource(ctx context.Context, params CreateSourceParams) (*domain.Source, error)

	// GetSource retrieves a source by its ID.
	GetSource(ctx context.Context, sourceID uuid.UUID) (*domain.Source, error)

	// ListSources returns a page of sources matching the filter.
	ListSources(ctx context.Context, filter store.SourceFilter, page store.Page) (*SourceList, error)

	// UpdateSource applies a partial update.
	UpdateSource(ctx context.Context, sourceID uuid.UUID, params UpdateSourceParams) (*domain.Source, error)

	// UpdateSourceStatus updates only the lifecycle status. Also used by
	// the card generation task.
	UpdateSourceStatus(ctx context.Context, sourceID uuid.UUID, status domain.SourceStatus) error

	// DeleteSource removes a source; cards generated from it survive with
	// their source reference cleared.
	DeleteSource(ctx context.Context, sourceID uuid.UUID) error

	// GenerateCards enqueues a card generation task for the source.
	// Returns ErrGenerationDisabled when no generator is configured.
	GenerateCards(ctx context.Context, sourceID uuid.UUID) error

	// ApproveSource marks a source approved and activates its draft cards,
	// scheduling them for immediate review.
	ApproveSource(ctx context.Context, sourceID uuid.UUID) (*domain.Source, error)

	// CountCards returns the number of cards generated from the source.
	CountCards(ctx context.Context, sourceID uuid.UUID) (int, error)
}

// Ensure the service satisfies the generation task's source dependency.
var _ task.SourceReader = (SourceService)(nil)

// sourceServiceImpl implements the SourceService interface.
type sourceServiceImpl struct {
	sources   store.SourceStore
	cards     store.CardStore
	tags      store.TagStore
	scheduler *srs.Scheduler
	submitter TaskSubmitter
	factory   GenerationTaskFactory
	runInTx   func(ctx context.Context, fn store.TxFn) error
	timeFunc  func() time.Time // Injectable for testing
	logger    *slog.Logger
}

// NewSourceService creates a new SourceService.
// submitter and factory may be nil when generation is not configured;
// GenerateCards then returns ErrGenerationDisabled.
func NewSourceService(
	db *sql.DB,
	sources store.SourceStore,
	cards store.CardStore,
	tags store.TagStore,
	scheduler *srs.Scheduler,
	submitter TaskSubmitter,
	factory GenerationTaskFactory,
	logger *slog.Logger,
) SourceService {
	if sources == nil {
		panic("sources cannot be nil")
	}
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

	return &sourceServiceImpl{
		sources:   sources,
		cards:     cards,
		tags:      tags,
		scheduler: scheduler,
		submitter: submitter,
		factory:   factory,
		runInTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
		timeFunc: func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "source_service")),
	}
}

// CreateSource implements SourceService.CreateSource.
func (s *sourceServiceImpl) CreateSource(ctx context.Context, params CreateSourceParams) (*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if params.ExternalID != "" {
		existing, err := s.sources.GetByExternalID(ctx, params.ExternalID)
		if err != nil && !store.IsNotFoundError(err) {
			return nil, NewSourceServiceError("create_source", "failed to check external ID", err)
		}
		if existing != nil {
			return nil, ErrSourceExists
		}
	}

	source, err := domain.NewSource(params.Text, params.Type)
	if err != nil {
		return nil, NewSourceServiceError("create_source", "invalid source", err)
	}
	source.URL = params.URL
	source.Title = params.Title
	source.ExternalID = params.ExternalID
	source.HighlightColor = params.HighlightColor

	err = s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		resolved, err := s.tags.WithTx(tx).GetOrCreate(ctx, params.Tags)
		if err != nil {
			return fmt.Errorf("failed to resolve tags: %w", err)
		}
		source.Tags = resolved

		if err := s.sources.WithTx(tx).Create(ctx, source); err != nil {
			if store.IsDuplicateError(err) {
				return ErrSourceExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSourceExists) {
			return nil, ErrSourceExists
		}
		log.Error("failed to create source", slog.String("error", err.Error()))
		return nil, NewSourceServiceError("create_source", "failed to save source", err)
	}

	if params.GenerateCards {
		if err := s.GenerateCards(ctx, source.ID); err != nil {
			// The source is captured; generation can be retried later.
			log.Warn("failed to enqueue card generation",
				slog.String("error", err.Error()),
				slog.String("source_id", source.ID.String()))
		}
	}

	return source, nil
}

// GetSource implements SourceService.GetSource.
func (s *sourceServiceImpl) GetSource(ctx context.Context, sourceID uuid.UUID) (*domain.Source, error) {
	source, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrSourceNotFound
		}
		return nil, NewSourceServiceError("get_source", "failed to retrieve source", err)
	}
	return source, nil
}

// ListSources implements SourceService.ListSources.
func (s *sourceServiceImpl) ListSources(ctx context.Context, filter store.SourceFilter, page store.Page) (*SourceList, error) {
	sources, total, err := s.sources.List(ctx, filter, page)
	if err != nil {
		return nil, NewSourceServiceError("list_sources", "failed to list sources", err)
	}
	if sources == nil {
		sources = []*domain.Source{}
	}
	return &SourceList{Sources: sources, Total: total}, nil
}

// UpdateSource implements SourceService.UpdateSource.
func (s *sourceServiceImpl) UpdateSource(ctx context.Context, sourceID uuid.UUID, params UpdateSourceParams) (*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Source
	err := s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txSources := s.sources.WithTx(tx)

		source, err := txSources.GetByID(ctx, sourceID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrSourceNotFound
			}
			return fmt.Errorf("failed to get source: %w", err)
		}

		if params.Text != nil {
			source.Text = *params.Text
		}
		if params.Title != nil {
			source.Title = *params.Title
		}
		if params.Status != nil {
			if err := source.UpdateStatus(*params.Status); err != nil {
				return NewSourceServiceError("update_source", "invalid status", err)
			}
		}
		if params.Tags != nil {
			resolved, err := s.tags.WithTx(tx).GetOrCreate(ctx, *params.Tags)
			if err != nil {
				return fmt.Errorf("failed to resolve tags: %w", err)
			}
			source.Tags = resolved
		}

		source.UpdatedAt = s.timeFunc()
		if err := source.Validate(); err != nil {
			return NewSourceServiceError("update_source", "invalid source", err)
		}

		if err := txSources.Update(ctx, source); err != nil {
			return fmt.Errorf("failed to update source: %w", err)
		}

		updated = source
		return nil
	})
	if err != nil {
		var svcErr *SourceServiceError
		if errors.Is(err, ErrSourceNotFound) || errors.As(err, &svcErr) {
			return nil, err
		}
		log.Error("failed to update source",
			slog.String("error", err.Error()),
			slog.String("source_id", sourceID.String()))
		return nil, NewSourceServiceError("update_source", "transaction failed", err)
	}

	return updated, nil
}

// UpdateSourceStatus implements SourceService.UpdateSourceStatus.
func (s *sourceServiceImpl) UpdateSourceStatus(ctx context.Context, sourceID uuid.UUID, status domain.SourceStatus) error {
	_, err := s.UpdateSource(ctx, sourceID, UpdateSourceParams{Status: &status})
	return err
}

// DeleteSource implements SourceService.DeleteSource.
func (s *sourceServiceImpl) DeleteSource(ctx context.Context, sourceID uuid.UUID) error {
	if err := s.sources.Delete(ctx, sourceID); err != nil {
		if store.IsNotFoundError(err) {
			return ErrSourceNotFound
		}
		return NewSourceServiceError("delete_source", "failed to delete source", err)
	}
	return nil
}

// GenerateCards implements SourceService.GenerateCards.
func (s *sourceServiceImpl) GenerateCards(ctx context.Context, sourceID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.submitter == nil || s.factory == nil {
		return ErrGenerationDisabled
	}

	if _, err := s.GetSource(ctx, sourceID); err != nil {
		return err
	}

	t, err := s.factory.NewTask(sourceID)
	if err != nil {
		return NewSourceServiceError("generate_cards", "failed to build task", err)
	}

	if err := s.submitter.Submit(ctx, t); err != nil {
		return NewSourceServiceError("generate_cards", "failed to enqueue task", err)
	}

	log.Info("card generation enqueued",
		slog.String("source_id", sourceID.String()),
		slog.String("task_id", t.ID().String()))
	return nil
}

// ApproveSource implements SourceService.ApproveSource.
// Draft cards flip to active with a fresh review schedule; cards in other
// statuses are left alone.
func (s *sourceServiceImpl) ApproveSource(ctx context.Context, sourceID uuid.UUID) (*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.timeFunc()

	var approved *domain.Source
	err := s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txSources := s.sources.WithTx(tx)
		txCards := s.cards.WithTx(tx)

		source, err := txSources.GetByID(ctx, sourceID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrSourceNotFound
			}
			return fmt.Errorf("failed to get source: %w", err)
		}

		if err := source.UpdateStatus(domain.SourceStatusApproved); err != nil {
			return fmt.Errorf("failed to approve source: %w", err)
		}
		if err := txSources.Update(ctx, source); err != nil {
			return fmt.Errorf("failed to update source: %w", err)
		}

		draft := domain.CardStatusDraft
		cards, _, err := txCards.List(ctx, store.CardFilter{Status: &draft, SourceID: &sourceID}, store.Page{Number: 1, Size: 1000})
		if err != nil {
			return fmt.Errorf("failed to list draft cards: %w", err)
		}

		for _, card := range cards {
			if err := card.UpdateStatus(domain.CardStatusActive); err != nil {
				return fmt.Errorf("failed to activate card: %w", err)
			}
			card.ReviewState = s.scheduler.Initialize(now)
			if err := txCards.Update(ctx, card); err != nil {
				return fmt.Errorf("failed to update card: %w", err)
			}
		}

		log.Info("source approved",
			slog.String("source_id", sourceID.String()),
			slog.Int("cards_activated", len(cards)))

		approved = source
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			return nil, err
		}
		return nil, NewSourceServiceError("approve_source", "transaction failed", err)
	}

	return approved, nil
}

// CountCards implements SourceService.CountCards.
func (s *sourceServiceImpl) CountCards(ctx context.Context, sourceID uuid.UUID) (int, error) {
	count, err := s.sources.CountCards(ctx, sourceID)
	if err != nil {
		return 0, NewSourceServiceError("count_cards", "failed to count cards", err)
	}
	return count, nil
}
