package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardStatus represents where a card is in its lifecycle.
type CardStatus string

// Possible card status values
const (
	// CardStatusDraft marks a generated card awaiting user approval.
	CardStatusDraft CardStatus = "draft"

	// CardStatusActive marks a card in the review rotation. Only active
	// cards may be reviewed.
	CardStatusActive CardStatus = "active"

	// CardStatusSuspended marks a card temporarily removed from rotation.
	CardStatusSuspended CardStatus = "suspended"

	// CardStatusMastered marks a card the user knows well.
	CardStatusMastered CardStatus = "mastered"
)

// Card-specific validation errors
var (
	ErrCardIDEmpty       = errors.New("card ID cannot be empty")
	ErrCardFrontEmpty    = errors.New("card front cannot be empty")
	ErrCardBackEmpty     = errors.New("card back cannot be empty")
	ErrInvalidCardStatus = errors.New("invalid card status")
)

// Card represents a flashcard, either created manually or generated from a
// source. The embedded ReviewState carries its spaced-repetition schedule.
type Card struct {
	ID       uuid.UUID  `json:"id"`
	Front    string     `json:"front"`
	Back     string     `json:"back"`
	Hint     string     `json:"hint,omitempty"`
	SourceID *uuid.UUID `json:"source_id,omitempty"`
	Status   CardStatus `json:"status"`

	ReviewState

	Tags      []*Tag    `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCard creates a new Card with the given content. The card starts in
// the given status with an uninitialized review state; callers that want
// the card reviewable must run the scheduler's Initialize on it.
// Returns an error if validation fails.
func NewCard(front, back, hint string, sourceID *uuid.UUID, status CardStatus) (*Card, error) {
	now := time.Now().UTC()
	card := &Card{
		ID:        uuid.New(),
		Front:     front,
		Back:      back,
		Hint:      hint,
		SourceID:  sourceID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.Front == "" {
		return ErrCardFrontEmpty
	}

	if c.Back == "" {
		return ErrCardBackEmpty
	}

	if !isValidCardStatus(c.Status) {
		return ErrInvalidCardStatus
	}

	return nil
}

// UpdateStatus changes the card's lifecycle status and bumps the UpdatedAt
// timestamp. Returns an error if the new status is invalid.
func (c *Card) UpdateStatus(status CardStatus) error {
	if !isValidCardStatus(status) {
		return ErrInvalidCardStatus
	}

	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidCardStatus checks if the given status is a valid CardStatus.
func isValidCardStatus(status CardStatus) bool {
	switch status {
	case CardStatusDraft, CardStatusActive, CardStatusSuspended, CardStatusMastered:
		return true
	default:
		return false
	}
}
