package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tag-specific validation errors
var (
	ErrTagIDEmpty   = errors.New("tag ID cannot be empty")
	ErrTagNameEmpty = errors.New("tag name cannot be empty")
)

// Tag labels sources and cards for filtering. Names are unique and stored
// lowercased.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTag creates a new Tag with a normalized name.
// Returns an error if validation fails.
func NewTag(name string) (*Tag, error) {
	tag := &Tag{
		ID:        uuid.New(),
		Name:      NormalizeTagName(name),
		CreatedAt: time.Now().UTC(),
	}

	if err := tag.Validate(); err != nil {
		return nil, err
	}

	return tag, nil
}

// Validate checks if the Tag has valid data.
func (t *Tag) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTagIDEmpty
	}

	if t.Name == "" {
		return ErrTagNameEmpty
	}

	return nil
}

// NormalizeTagName lowercases and trims a tag name so lookups and
// uniqueness checks agree regardless of how the caller spelled it.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
