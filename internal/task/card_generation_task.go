package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/generation"
)

// Common errors
var (
	ErrNilSourceService = errors.New("source service cannot be nil")
	ErrNilGenerator     = errors.New("generator cannot be nil")
	ErrNilCardService   = errors.New("card service cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")
	ErrEmptySourceID    = errors.New("source ID cannot be empty")
	ErrUnknownTaskType  = errors.New("unknown task type")
)

// SourceReader provides the source operations the generation task needs.
type SourceReader interface {
	// GetSource retrieves a source by its ID
	GetSource(ctx context.Context, sourceID uuid.UUID) (*domain.Source, error)

	// UpdateSourceStatus updates a source's lifecycle status
	UpdateSourceStatus(ctx context.Context, sourceID uuid.UUID, status domain.SourceStatus) error
}

// CardWriter persists generated cards.
type CardWriter interface {
	// CreateCards creates multiple cards atomically
	CreateCards(ctx context.Context, cards []*domain.Card) error
}

// cardGenerationPayload represents the serialized data stored in the task
type cardGenerationPayload struct {
	SourceID uuid.UUID `json:"source_id"`
}

// CardGenerationTask implements the Task interface for generating
// flashcards from a source's text.
type CardGenerationTask struct {
	id        uuid.UUID
	sourceID  uuid.UUID
	sources   SourceReader
	generator generation.Generator
	cards     CardWriter
	logger    *slog.Logger
	status    TaskStatus
}

// NewCardGenerationTask creates a new card generation task for a source.
func NewCardGenerationTask(
	sourceID uuid.UUID,
	sources SourceReader,
	generator generation.Generator,
	cards CardWriter,
	logger *slog.Logger,
) (*CardGenerationTask, error) {
	if sources == nil {
		return nil, ErrNilSourceService
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if cards == nil {
		return nil, ErrNilCardService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if sourceID == uuid.Nil {
		return nil, ErrEmptySourceID
	}

	return &CardGenerationTask{
		id:        uuid.New(),
		sourceID:  sourceID,
		sources:   sources,
		generator: generator,
		cards:     cards,
		logger:    logger.With(slog.String("task_type", TaskTypeCardGeneration), slog.String("source_id", sourceID.String())),
		status:    TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *CardGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *CardGenerationTask) Type() string {
	return TaskTypeCardGeneration
}

// Payload returns the task data as a byte slice
func (t *CardGenerationTask) Payload() []byte {
	data, err := json.Marshal(cardGenerationPayload{SourceID: t.sourceID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", slog.String("error", err.Error()))
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *CardGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute generates draft cards from the source text and saves them.
// Generated cards inherit the source's tags. On success the source moves
// to cards_generated; on failure it keeps its current status so the user
// can retry.
func (t *CardGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting card generation task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	source, err := t.sources.GetSource(ctx, t.sourceID)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to retrieve source", slog.String("error", err.Error()))
		return fmt.Errorf("failed to retrieve source: %w", err)
	}

	cards, err := t.generator.GenerateCards(ctx, source.Text, source.ID)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to generate cards", slog.String("error", err.Error()))
		return fmt.Errorf("failed to generate cards: %w", err)
	}

	for _, card := range cards {
		card.Tags = source.Tags
	}

	if len(cards) > 0 {
		if err := t.cards.CreateCards(ctx, cards); err != nil {
			t.status = TaskStatusFailed
			t.logger.Error("failed to save generated cards", slog.String("error", err.Error()))
			return fmt.Errorf("failed to save generated cards: %w", err)
		}
	} else {
		t.logger.Warn("no cards were generated for this source")
	}

	if err := t.sources.UpdateSourceStatus(ctx, t.sourceID, domain.SourceStatusCardsGenerated); err != nil {
		// The cards are saved; log the status failure rather than undoing
		// the useful work.
		t.logger.Error("failed to update source status after generation",
			slog.String("error", err.Error()),
			slog.Int("cards_generated", len(cards)))
	}

	t.status = TaskStatusCompleted
	t.logger.Info("card generation task completed", slog.Int("cards_generated", len(cards)))
	return nil
}

// CardGenerationTaskFactory builds card generation tasks with their
// dependencies wired in. It also serves as the runner's hydrator for
// tasks recovered from the database.
type CardGenerationTaskFactory struct {
	sources   SourceReader
	generator generation.Generator
	cards     CardWriter
	logger    *slog.Logger
}

// NewCardGenerationTaskFactory creates a factory for card generation tasks.
func NewCardGenerationTaskFactory(
	sources SourceReader,
	generator generation.Generator,
	cards CardWriter,
	logger *slog.Logger,
) *CardGenerationTaskFactory {
	return &CardGenerationTaskFactory{
		sources:   sources,
		generator: generator,
		cards:     cards,
		logger:    logger,
	}
}

// NewTask creates a fresh card generation task for a source.
func (f *CardGenerationTaskFactory) NewTask(sourceID uuid.UUID) (Task, error) {
	return NewCardGenerationTask(sourceID, f.sources, f.generator, f.cards, f.logger)
}

// Hydrate implements HydrateFunc for the card generation task type.
func (f *CardGenerationTaskFactory) Hydrate(taskType string, id uuid.UUID, payload []byte) (Task, error) {
	if taskType != TaskTypeCardGeneration {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}

	var p cardGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card generation payload: %w", err)
	}

	t, err := NewCardGenerationTask(p.SourceID, f.sources, f.generator, f.cards, f.logger)
	if err != nil {
		return nil, err
	}

	// Keep the persisted identity so status updates hit the original row.
	t.id = id
	return t, nil
}
