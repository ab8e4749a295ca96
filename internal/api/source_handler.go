package api

import (
	"log/slog"
	"net/http"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/service"
	"github.com/retainapp/retain-api/internal/store"
)

// SourceHandler handles source-related HTTP requests.
type SourceHandler struct {
	sourceService service.SourceService
	logger        *slog.Logger
}

// NewSourceHandler creates a SourceHandler.
func NewSourceHandler(sourceService service.SourceService, logger *slog.Logger) *SourceHandler {
	if sourceService == nil {
		panic("sourceService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SourceHandler{
		sourceService: sourceService,
		logger:        logger.With(slog.String("component", "source_handler")),
	}
}

// CreateSource handles POST /sources.
func (h *SourceHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateSourceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = domain.SourceTypeManual
	}

	source, err := h.sourceService.CreateSource(r.Context(), service.CreateSourceParams{
		Text:           req.Text,
		Type:           sourceType,
		URL:            req.URL,
		Title:          req.Title,
		ExternalID:     req.ExternalID,
		HighlightColor: req.HighlightColor,
		Tags:           req.Tags,
		GenerateCards:  req.GenerateCards,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("source created", slog.String("source_id", source.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, SourceResponse{Source: source})
}

// ListSources handles GET /sources with status/source_type/tag filters.
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	filter := store.SourceFilter{Tag: r.URL.Query().Get("tag")}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.SourceStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("source_type"); raw != "" {
		sourceType := domain.SourceType(raw)
		filter.Type = &sourceType
	}

	list, err := h.sourceService.ListSources(r.Context(), filter, parsePage(r))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list sources", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, list)
}

// GetSource handles GET /sources/{id}.
func (h *SourceHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := parseIDParam(w, r, "Source")
	if !ok {
		return
	}

	source, err := h.sourceService.GetSource(r.Context(), sourceID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	count, err := h.sourceService.CountCards(r.Context(), sourceID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to count cards", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SourceResponse{Source: source, CardCount: count})
}

// UpdateSource handles PATCH /sources/{id}.
func (h *SourceHandler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := parseIDParam(w, r, "Source")
	if !ok {
		return
	}

	var req UpdateSourceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	source, err := h.sourceService.UpdateSource(r.Context(), sourceID, service.UpdateSourceParams{
		Text:   req.Text,
		Title:  req.Title,
		Status: req.Status,
		Tags:   req.Tags,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SourceResponse{Source: source})
}

// DeleteSource handles DELETE /sources/{id}.
func (h *SourceHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sourceID, ok := parseIDParam(w, r, "Source")
	if !ok {
		return
	}

	if err := h.sourceService.DeleteSource(r.Context(), sourceID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("source deleted", slog.String("source_id", sourceID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// GenerateCards handles POST /sources/{id}/generate-cards. Generation is
// asynchronous; the response only acknowledges the queued task.
func (h *SourceHandler) GenerateCards(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := parseIDParam(w, r, "Source")
	if !ok {
		return
	}

	if err := h.sourceService.GenerateCards(r.Context(), sourceID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerateCardsResponse{
		SourceID: sourceID,
		Status:   "queued",
	})
}

// ApproveSource handles POST /sources/{id}/approve.
func (h *SourceHandler) ApproveSource(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := parseIDParam(w, r, "Source")
	if !ok {
		return
	}

	source, err := h.sourceService.ApproveSource(r.Context(), sourceID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ApproveSourceResponse{
		SourceID: source.ID,
		Status:   source.Status,
	})
}
