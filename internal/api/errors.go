package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/retainapp/retain-api/internal/service"
	"github.com/retainapp/retain-api/internal/service/auth"
	"github.com/retainapp/retain-api/internal/service/card_review"
	"github.com/retainapp/retain-api/internal/service/export"
	"github.com/retainapp/retain-api/internal/service/raindrop"
	"github.com/retainapp/retain-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidAPIKey),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrSourceNotFound),
		errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, card_review.ErrCardNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrSourceExists):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, card_review.ErrCardNotReviewable),
		errors.Is(err, card_review.ErrInvalidAnswer),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, export.ErrNotConfigured),
		errors.Is(err, export.ErrVaultNotFound):
		return http.StatusBadRequest

	// Disabled integrations
	case errors.Is(err, service.ErrGenerationDisabled),
		errors.Is(err, raindrop.ErrTokenNotConfigured),
		errors.Is(err, raindrop.ErrInvalidToken):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for an
// error. Internal details never reach the client.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidAPIKey):
		return "Invalid API key"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken):
		return "Invalid refresh token"

	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, card_review.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, service.ErrSourceNotFound):
		return "Source not found"

	case errors.Is(err, service.ErrTagNotFound):
		return "Tag not found"

	case errors.Is(err, service.ErrSourceExists):
		return "Source already imported"

	case errors.Is(err, card_review.ErrCardNotReviewable):
		return "Card is not active"

	case errors.Is(err, card_review.ErrInvalidAnswer):
		return "Invalid answer"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, service.ErrGenerationDisabled):
		return "Card generation is not configured"

	case errors.Is(err, export.ErrNotConfigured):
		return "Obsidian export is not configured"

	case errors.Is(err, export.ErrVaultNotFound):
		return "Obsidian vault not found"

	case errors.Is(err, raindrop.ErrTokenNotConfigured):
		return "Raindrop integration is not configured"

	case errors.Is(err, raindrop.ErrInvalidToken):
		return "Raindrop rejected the configured token"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError reduces a validator error to a user-friendly
// message naming the offending field without echoing its value.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Format: "Key: 'Req.Front' Error:Field validation for 'Front' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// validationTagMessage maps validation tags to readable fragments.
func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}
