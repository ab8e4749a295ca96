package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainapp/retain-api/internal/domain"
)

func TestCreateTagsResolvesExisting(t *testing.T) {
	t.Parallel()

	tags := newFakeTagStore()
	svc := NewTagService(tags, testLogger())

	first, err := svc.CreateTags(context.Background(), []string{"reading", "go"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Re-creating by name must return the same tags, not duplicates.
	second, err := svc.CreateTags(context.Background(), []string{"go"})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, tagID(first, "go"), second[0].ID)
}

func TestListTagsEmpty(t *testing.T) {
	t.Parallel()

	svc := NewTagService(newFakeTagStore(), testLogger())

	tags, err := svc.ListTags(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestDeleteTagNotFound(t *testing.T) {
	t.Parallel()

	svc := NewTagService(newFakeTagStore(), testLogger())

	err := svc.DeleteTag(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestDeleteTag(t *testing.T) {
	t.Parallel()

	tags := newFakeTagStore()
	svc := NewTagService(tags, testLogger())

	created, err := svc.CreateTags(context.Background(), []string{"reading"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTag(context.Background(), created[0].ID))

	remaining, err := svc.ListTags(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func tagID(tags []*domain.Tag, name string) uuid.UUID {
	for _, tag := range tags {
		if tag.Name == name {
			return tag.ID
		}
	}
	return uuid.Nil
}
