package api

import (
	"log/slog"
	"net/http"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/service"
)

// TagHandler handles tag-related HTTP requests.
type TagHandler struct {
	tagService service.TagService
	logger     *slog.Logger
}

// NewTagHandler creates a TagHandler.
func NewTagHandler(tagService service.TagService, logger *slog.Logger) *TagHandler {
	if tagService == nil {
		panic("tagService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TagHandler{
		tagService: tagService,
		logger:     logger.With(slog.String("component", "tag_handler")),
	}
}

// ListTags handles GET /tags.
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagService.ListTags(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list tags", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tags)
}

// CreateTags handles POST /tags, resolving names to tags and creating
// missing ones.
func (h *TagHandler) CreateTags(w http.ResponseWriter, r *http.Request) {
	var req CreateTagsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	tags, err := h.tagService.CreateTags(r.Context(), req.Names)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to create tags", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, tags)
}

// DeleteTag handles DELETE /tags/{id}.
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	tagID, ok := parseIDParam(w, r, "Tag")
	if !ok {
		return
	}

	if err := h.tagService.DeleteTag(r.Context(), tagID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
