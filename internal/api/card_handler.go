package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/redact"
	"github.com/retainapp/retain-api/internal/service"
	"github.com/retainapp/retain-api/internal/service/card_review"
	"github.com/retainapp/retain-api/internal/store"
)

// defaultPageSize bounds list endpoints when no per_page is given.
const defaultPageSize = 20

// maxPageSize is the per_page/limit ceiling for list endpoints.
const maxPageSize = 100

// CardHandler handles card-related HTTP requests.
type CardHandler struct {
	cardService       service.CardService
	cardReviewService card_review.CardReviewService
	timeFunc          func() time.Time // Injectable for testing
	logger            *slog.Logger
}

// NewCardHandler creates a CardHandler.
func NewCardHandler(
	cardService service.CardService,
	cardReviewService card_review.CardReviewService,
	logger *slog.Logger,
) *CardHandler {
	if cardService == nil {
		panic("cardService cannot be nil")
	}
	if cardReviewService == nil {
		panic("cardReviewService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CardHandler{
		cardService:       cardService,
		cardReviewService: cardReviewService,
		timeFunc:          func() time.Time { return time.Now().UTC() },
		logger:            logger.With(slog.String("component", "card_handler")),
	}
}

// CreateCard handles POST /cards.
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	card, err := h.cardService.CreateCard(r.Context(), service.CreateCardParams{
		Front:    req.Front,
		Back:     req.Back,
		Hint:     req.Hint,
		SourceID: req.SourceID,
		Status:   req.Status,
		Tags:     req.Tags,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, card)
}

// ListCards handles GET /cards with status/tag/source_id filters.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	filter := store.CardFilter{Tag: r.URL.Query().Get("tag")}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.CardStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("source_id"); raw != "" {
		sourceID, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid source ID format")
			return
		}
		filter.SourceID = &sourceID
	}

	page := parsePage(r)
	list, err := h.cardService.ListCards(r.Context(), filter, page)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list cards", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, list)
}

// GetDueCards handles GET /cards/due.
func (h *CardHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	due, err := h.cardReviewService.GetDueCards(r.Context(), h.timeFunc(), r.URL.Query().Get("tag"), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to get due cards", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, due)
}

// GetCard handles GET /cards/{id}.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := parseIDParam(w, r, "Card")
	if !ok {
		return
	}

	card, err := h.cardService.GetCard(r.Context(), cardID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// UpdateCard handles PATCH /cards/{id}.
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := parseIDParam(w, r, "Card")
	if !ok {
		return
	}

	var req UpdateCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	card, err := h.cardService.UpdateCard(r.Context(), cardID, service.UpdateCardParams{
		Front:  req.Front,
		Back:   req.Back,
		Hint:   req.Hint,
		Status: req.Status,
		Tags:   req.Tags,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// DeleteCard handles DELETE /cards/{id}.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := parseIDParam(w, r, "Card")
	if !ok {
		return
	}

	if err := h.cardService.DeleteCard(r.Context(), cardID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("card deleted", slog.String("card_id", cardID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// ReviewCard handles POST /cards/{id}/review. It records the review and
// returns the card with its updated schedule.
func (h *CardHandler) ReviewCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := parseIDParam(w, r, "Card")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid review request format",
			slog.String("error", redact.Error(err)),
			slog.String("card_id", cardID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	card, err := h.cardReviewService.SubmitAnswer(r.Context(), cardID, card_review.ReviewAnswer{
		Rating:         domain.ReviewRating(*req.Rating),
		ResponseTimeMs: req.ResponseTimeMs,
	})
	if err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		if statusCode == http.StatusInternalServerError {
			safeMessage = "Failed to submit review"
		}
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	log.Debug("review submitted",
		slog.String("card_id", cardID.String()),
		slog.String("rating", domain.ReviewRating(*req.Rating).String()))
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// GetReviewHistory handles GET /cards/{id}/history.
func (h *CardHandler) GetReviewHistory(w http.ResponseWriter, r *http.Request) {
	cardID, ok := parseIDParam(w, r, "Card")
	if !ok {
		return
	}

	logs, err := h.cardReviewService.GetReviewHistory(r.Context(), cardID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewHistoryResponse{
		CardID:       cardID,
		TotalReviews: len(logs),
		Reviews:      logs,
	})
}

// parseIDParam extracts and parses the {id} URL parameter. On failure it
// writes the error response and returns false.
func parseIDParam(w http.ResponseWriter, r *http.Request, entity string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, entity+" ID is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+entity+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// parsePage reads page/per_page query parameters with defaults.
func parsePage(r *http.Request) store.Page {
	page := store.Page{Number: 1, Size: defaultPageSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 {
			page.Number = parsed
		}
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 && parsed <= maxPageSize {
			page.Size = parsed
		}
	}
	return page
}
