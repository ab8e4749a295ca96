package api

import (
	"log/slog"
	"net/http"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/service/export"
)

// ExportHandler handles the Obsidian export endpoints.
type ExportHandler struct {
	exporter *export.ObsidianExporter
	logger   *slog.Logger
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(exporter *export.ObsidianExporter, logger *slog.Logger) *ExportHandler {
	if exporter == nil {
		panic("exporter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExportHandler{
		exporter: exporter,
		logger:   logger.With(slog.String("component", "export_handler")),
	}
}

// ExportObsidian handles POST /export/obsidian.
func (h *ExportHandler) ExportObsidian(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	result, err := h.exporter.ExportAll(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("obsidian export requested",
		slog.Int("sources", result.SourcesExported),
		slog.Int("cards", result.CardsExported))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ObsidianStatus handles GET /export/obsidian/status.
func (h *ExportHandler) ObsidianStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.exporter.Status())
}
