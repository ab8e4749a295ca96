package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/store"
)

// TagService provides tag-related operations.
type TagService interface {
	// ListTags returns all tags ordered by name.
	ListTags(ctx context.Context) ([]*domain.Tag, error)

	// CreateTags resolves the given names to tags, creating missing ones.
	CreateTags(ctx context.Context, names []string) ([]*domain.Tag, error)

	// DeleteTag removes a tag; its card and source associations go with it.
	DeleteTag(ctx context.Context, tagID uuid.UUID) error
}

// tagServiceImpl implements the TagService interface.
type tagServiceImpl struct {
	tags   store.TagStore
	logger *slog.Logger
}

// NewTagService creates a new TagService.
func NewTagService(tags store.TagStore, logger *slog.Logger) TagService {
	if tags == nil {
		panic("tags cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &tagServiceImpl{
		tags:   tags,
		logger: logger.With(slog.String("component", "tag_service")),
	}
}

// ListTags implements TagService.ListTags.
func (s *tagServiceImpl) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

// CreateTags implements TagService.CreateTags.
func (s *tagServiceImpl) CreateTags(ctx context.Context, names []string) ([]*domain.Tag, error) {
	return s.tags.GetOrCreate(ctx, names)
}

// DeleteTag implements TagService.DeleteTag.
func (s *tagServiceImpl) DeleteTag(ctx context.Context, tagID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.tags.Delete(ctx, tagID); err != nil {
		if store.IsNotFoundError(err) {
			return ErrTagNotFound
		}
		log.Error("failed to delete tag",
			slog.String("error", err.Error()),
			slog.String("tag_id", tagID.String()))
		return err
	}
	return nil
}
