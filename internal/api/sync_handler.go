package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/service/raindrop"
)

// SyncHandler handles the Raindrop import endpoints. A nil sync service
// means the integration is not configured.
type SyncHandler struct {
	syncService *raindrop.SyncService
	logger      *slog.Logger
}

// NewSyncHandler creates a SyncHandler. syncService may be nil when no
// Raindrop token is configured.
func NewSyncHandler(syncService *raindrop.SyncService, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncHandler{
		syncService: syncService,
		logger:      logger.With(slog.String("component", "sync_handler")),
	}
}

// SyncRaindrop handles POST /sync/raindrop. An optional RFC 3339 "since"
// query parameter limits the import to newer highlights.
func (h *SyncHandler) SyncRaindrop(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if h.syncService == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Raindrop integration is not configured")
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid since timestamp, expected RFC 3339")
			return
		}
		since = &parsed
	}

	result, err := h.syncService.Sync(r.Context(), since)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("raindrop sync requested",
		slog.Int("synced", result.Synced),
		slog.Int("skipped", result.SkippedDuplicates))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// RaindropStatus handles GET /sync/raindrop/status.
func (h *SyncHandler) RaindropStatus(w http.ResponseWriter, r *http.Request) {
	if h.syncService == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, raindrop.ConnectionStatus{
			Connected: false,
			Message:   "raindrop token not configured",
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.syncService.Status(r.Context()))
}
