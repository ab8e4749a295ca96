// Package api provides HTTP handlers for the API.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/config"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/redact"
	"github.com/retainapp/retain-api/internal/service/auth"
)

// AuthHandler handles authentication requests. The API serves a single
// owner who exchanges the configured API key for a JWT token pair.
type AuthHandler struct {
	jwtService     auth.JWTService
	apiKeyVerifier auth.APIKeyVerifier
	authConfig     *config.AuthConfig
	timeFunc       func() time.Time // Injectable for testing
	logger         *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	jwtService auth.JWTService,
	apiKeyVerifier auth.APIKeyVerifier,
	authConfig *config.AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	if jwtService == nil {
		panic("jwtService cannot be nil")
	}
	if apiKeyVerifier == nil {
		panic("apiKeyVerifier cannot be nil")
	}
	if authConfig == nil {
		panic("authConfig cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		jwtService:     jwtService,
		apiKeyVerifier: apiKeyVerifier,
		authConfig:     authConfig,
		timeFunc:       func() time.Time { return time.Now().UTC() },
		logger:         logger.With(slog.String("component", "auth_handler")),
	}
}

// Token handles POST /auth/token. It verifies the API key against the
// configured hash and issues an access/refresh token pair.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req TokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if err := h.apiKeyVerifier.Verify(req.APIKey); err != nil {
		if errors.Is(err, auth.ErrInvalidAPIKey) {
			log.Warn("rejected token request with invalid API key")
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid API key")
			return
		}
		log.Error("API key verification failed", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
		return
	}

	h.respondWithTokenPair(w, r, log)
}

// Refresh handles POST /auth/refresh. A valid refresh token yields a new
// token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if _, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken); err != nil {
		statusCode := MapErrorToStatusCode(err)
		shared.RespondWithErrorAndLog(w, r, statusCode, GetSafeErrorMessage(err), err)
		return
	}

	h.respondWithTokenPair(w, r, log)
}

// respondWithTokenPair issues and writes a fresh access/refresh pair.
func (h *AuthHandler) respondWithTokenPair(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	accessToken, err := h.jwtService.GenerateToken(r.Context())
	if err != nil {
		log.Error("failed to generate access token", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context())
	if err != nil {
		log.Error("failed to generate refresh token", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	expiresAt := h.timeFunc().
		Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute).
		Format(time.RFC3339)

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
}
