package api

import (
	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
)

// Request and response structures shared by the handlers.

// TokenRequest is the payload for exchanging the API key for tokens.
type TokenRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// AuthResponse carries a freshly issued token pair.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires.
	ExpiresAt string `json:"expires_at"`
}

// RefreshTokenRequest is the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateCardRequest is the payload for manual card creation.
type CreateCardRequest struct {
	Front    string            `json:"front" validate:"required"`
	Back     string            `json:"back" validate:"required"`
	Hint     string            `json:"hint,omitempty"`
	SourceID *uuid.UUID        `json:"source_id,omitempty"`
	Status   domain.CardStatus `json:"status,omitempty" validate:"omitempty,oneof=draft active suspended mastered"`
	Tags     []string          `json:"tags,omitempty"`
}

// UpdateCardRequest is the payload for a partial card update. Absent
// fields are left unchanged.
type UpdateCardRequest struct {
	Front  *string            `json:"front,omitempty"`
	Back   *string            `json:"back,omitempty"`
	Hint   *string            `json:"hint,omitempty"`
	Status *domain.CardStatus `json:"status,omitempty" validate:"omitempty,oneof=draft active suspended mastered"`
	Tags   *[]string          `json:"tags,omitempty"`
}

// ReviewRequest is the payload for submitting a card review.
// Rating: 0 = again, 1 = hard, 2 = good, 3 = easy.
type ReviewRequest struct {
	Rating         *int `json:"rating" validate:"required,gte=0,lte=3"`
	ResponseTimeMs *int `json:"response_time_ms,omitempty" validate:"omitempty,gte=0"`
}

// ReviewHistoryResponse lists a card's review logs, newest first.
type ReviewHistoryResponse struct {
	CardID       uuid.UUID           `json:"card_id"`
	TotalReviews int                 `json:"total_reviews"`
	Reviews      []*domain.ReviewLog `json:"reviews"`
}

// CreateSourceRequest is the payload for source capture.
type CreateSourceRequest struct {
	Text           string            `json:"text" validate:"required"`
	SourceType     domain.SourceType `json:"source_type,omitempty" validate:"omitempty,oneof=raindrop readwise chrome_extension manual alfred ios_shortcut"`
	URL            string            `json:"source_url,omitempty"`
	Title          string            `json:"source_title,omitempty"`
	ExternalID     string            `json:"external_id,omitempty"`
	HighlightColor string            `json:"highlight_color,omitempty"`
	Tags           []string          `json:"tags,omitempty"`

	// GenerateCards queues card generation right after capture.
	GenerateCards bool `json:"generate_cards,omitempty"`
}

// UpdateSourceRequest is the payload for a partial source update.
type UpdateSourceRequest struct {
	Text   *string              `json:"text,omitempty"`
	Title  *string              `json:"source_title,omitempty"`
	Status *domain.SourceStatus `json:"status,omitempty" validate:"omitempty,oneof=pending_review cards_generated approved archived"`
	Tags   *[]string            `json:"tags,omitempty"`
}

// SourceResponse decorates a source with its generated card count.
type SourceResponse struct {
	*domain.Source
	CardCount int `json:"card_count"`
}

// GenerateCardsResponse acknowledges a queued generation task.
type GenerateCardsResponse struct {
	SourceID uuid.UUID `json:"source_id"`
	Status   string    `json:"status"`
}

// ApproveSourceResponse reports the outcome of a source approval.
type ApproveSourceResponse struct {
	SourceID uuid.UUID           `json:"source_id"`
	Status   domain.SourceStatus `json:"status"`
}

// CreateTagsRequest is the payload for tag creation.
type CreateTagsRequest struct {
	Names []string `json:"names" validate:"required,min=1"`
}
