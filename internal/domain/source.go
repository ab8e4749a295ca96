package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies where a captured snippet came from.
type SourceType string

// Possible source type values
const (
	SourceTypeRaindrop        SourceType = "raindrop"
	SourceTypeReadwise        SourceType = "readwise"
	SourceTypeChromeExtension SourceType = "chrome_extension"
	SourceTypeManual          SourceType = "manual"
	SourceTypeAlfred          SourceType = "alfred"
	SourceTypeIOSShortcut     SourceType = "ios_shortcut"
)

// SourceStatus represents the processing state of a source.
type SourceStatus string

// Possible source status values
const (
	// SourceStatusPendingReview marks a freshly captured source with no
	// cards generated yet.
	SourceStatusPendingReview SourceStatus = "pending_review"

	// SourceStatusCardsGenerated marks a source whose cards exist as
	// drafts awaiting approval.
	SourceStatusCardsGenerated SourceStatus = "cards_generated"

	// SourceStatusApproved marks a source whose cards are active.
	SourceStatusApproved SourceStatus = "approved"

	// SourceStatusArchived marks a dismissed source.
	SourceStatusArchived SourceStatus = "archived"
)

// Common validation errors for Source
var (
	ErrSourceIDEmpty       = errors.New("source ID cannot be empty")
	ErrSourceTextEmpty     = errors.New("source text cannot be empty")
	ErrInvalidSourceType   = errors.New("invalid source type")
	ErrInvalidSourceStatus = errors.New("invalid source status")
)

// Source represents a captured snippet of text (a highlight, fact, or
// concept) that flashcards can be generated from.
type Source struct {
	ID   uuid.UUID  `json:"id"`
	Text string     `json:"text"`
	Type SourceType `json:"source_type"`

	URL   string `json:"source_url,omitempty"`
	Title string `json:"source_title,omitempty"`

	// ExternalID deduplicates imports from external systems, e.g. a
	// Raindrop highlight ID.
	ExternalID string `json:"external_id,omitempty"`

	// HighlightColor is carried for Raindrop imports, where the color
	// decides whether cards are generated automatically.
	HighlightColor string `json:"highlight_color,omitempty"`

	Status    SourceStatus `json:"status"`
	Tags      []*Tag       `json:"tags"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSource creates a new Source in the pending_review status.
// Returns an error if validation fails.
func NewSource(text string, sourceType SourceType) (*Source, error) {
	now := time.Now().UTC()
	source := &Source{
		ID:        uuid.New(),
		Text:      text,
		Type:      sourceType,
		Status:    SourceStatusPendingReview,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := source.Validate(); err != nil {
		return nil, err
	}

	return source, nil
}

// Validate checks if the Source has valid data.
// Returns an error if any field fails validation.
func (s *Source) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSourceIDEmpty
	}

	if s.Text == "" {
		return ErrSourceTextEmpty
	}

	if !isValidSourceType(s.Type) {
		return ErrInvalidSourceType
	}

	if !isValidSourceStatus(s.Status) {
		return ErrInvalidSourceStatus
	}

	return nil
}

// UpdateStatus changes the source's processing status and bumps the
// UpdatedAt timestamp. Returns an error if the new status is invalid.
func (s *Source) UpdateStatus(status SourceStatus) error {
	if !isValidSourceStatus(status) {
		return ErrInvalidSourceStatus
	}

	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidSourceType checks if the given type is a valid SourceType.
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeRaindrop, SourceTypeReadwise, SourceTypeChromeExtension,
		SourceTypeManual, SourceTypeAlfred, SourceTypeIOSShortcut:
		return true
	default:
		return false
	}
}

// isValidSourceStatus checks if the given status is a valid SourceStatus.
func isValidSourceStatus(status SourceStatus) bool {
	switch status {
	case SourceStatusPendingReview, SourceStatusCardsGenerated,
		SourceStatusApproved, SourceStatusArchived:
		return true
	default:
		return false
	}
}
