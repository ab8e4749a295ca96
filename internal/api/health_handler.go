package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/service/raindrop"
)

// Pinger reports database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and the state of external dependencies.
type HealthHandler struct {
	db          Pinger
	syncService *raindrop.SyncService
	logger      *slog.Logger
}

// NewHealthHandler creates a HealthHandler. syncService may be nil when
// the Raindrop integration is not configured.
func NewHealthHandler(db Pinger, syncService *raindrop.SyncService, logger *slog.Logger) *HealthHandler {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthHandler{
		db:          db,
		syncService: syncService,
		logger:      logger.With(slog.String("component", "health_handler")),
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// serviceState is the per-dependency fragment of the services report.
type serviceState struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Services handles GET /health/services, probing the database and the
// Raindrop API.
func (h *HealthHandler) Services(w http.ResponseWriter, r *http.Request) {
	report := make(map[string]serviceState)

	if err := h.db.PingContext(r.Context()); err != nil {
		report["database"] = serviceState{OK: false, Message: "unreachable"}
	} else {
		report["database"] = serviceState{OK: true, Message: "connected"}
	}

	if h.syncService == nil {
		report["raindrop"] = serviceState{OK: false, Message: "not configured"}
	} else {
		status := h.syncService.Status(r.Context())
		report["raindrop"] = serviceState{OK: status.Connected, Message: status.Message}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}
