package raindrop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/service"
)

// flashcardColor is the highlight color that triggers automatic card
// generation for the imported source.
const flashcardColor = "orange"

// API is the subset of the Raindrop client the sync service uses.
type API interface {
	ListHighlights(ctx context.Context, page int) ([]Highlight, error)
	TestConnection(ctx context.Context) (string, error)
}

// Ensure the concrete client satisfies the interface.
var _ API = (*Client)(nil)

// SourceImporter is the subset of the source service the sync needs.
type SourceImporter interface {
	CreateSource(ctx context.Context, params service.CreateSourceParams) (*domain.Source, error)
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Synced            int `json:"synced"`
	SkippedDuplicates int `json:"skipped_duplicates"`
	FlashcardReady    int `json:"flashcard_ready"`
	TotalHighlights   int `json:"total_highlights"`
}

// ConnectionStatus reports whether the Raindrop API is reachable with the
// configured token.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

// SyncService imports Raindrop highlights as sources.
type SyncService struct {
	api     API
	sources SourceImporter
	logger  *slog.Logger

	mu       sync.Mutex
	lastSync *time.Time
}

// NewSyncService creates a SyncService.
func NewSyncService(api API, sources SourceImporter, logger *slog.Logger) *SyncService {
	if api == nil {
		panic("api cannot be nil")
	}
	if sources == nil {
		panic("sources cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncService{
		api:     api,
		sources: sources,
		logger:  logger.With(slog.String("component", "raindrop_sync")),
	}
}

// Status checks the API connection.
func (s *SyncService) Status(ctx context.Context) ConnectionStatus {
	email, err := s.api.TestConnection(ctx)
	if err != nil {
		return ConnectionStatus{Connected: false, Message: err.Error()}
	}
	return ConnectionStatus{Connected: true, Message: fmt.Sprintf("connected as %s", email)}
}

// Sync fetches all highlights created after since (all highlights when
// since is nil) and imports the new ones as sources. Highlights already
// imported are counted as skipped. Highlights in the flashcard color are
// queued for card generation.
func (s *SyncService) Sync(ctx context.Context, since *time.Time) (*SyncResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result := &SyncResult{}
	for page := 0; ; page++ {
		batch, err := s.api.ListHighlights(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch highlights: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, h := range batch {
			if since != nil && !h.Created.After(*since) {
				continue
			}
			result.TotalHighlights++

			if err := s.importHighlight(ctx, h, result); err != nil {
				return nil, err
			}
		}

		if len(batch) < defaultPageSize {
			break
		}
	}

	s.mu.Lock()
	now := time.Now().UTC()
	s.lastSync = &now
	s.mu.Unlock()

	log.Info("raindrop sync finished",
		slog.Int("synced", result.Synced),
		slog.Int("skipped", result.SkippedDuplicates),
		slog.Int("flashcard_ready", result.FlashcardReady))
	return result, nil
}

// importHighlight creates a source for one highlight, skipping duplicates.
func (s *SyncService) importHighlight(ctx context.Context, h Highlight, result *SyncResult) error {
	color := h.Color
	if color == "" {
		color = "yellow"
	}
	generate := h.Color == flashcardColor

	_, err := s.sources.CreateSource(ctx, service.CreateSourceParams{
		Text:           h.Text,
		Type:           domain.SourceTypeRaindrop,
		URL:            h.Link,
		Title:          h.Title,
		ExternalID:     h.ExternalID(),
		HighlightColor: color,
		GenerateCards:  generate,
	})
	if err != nil {
		if errors.Is(err, service.ErrSourceExists) {
			result.SkippedDuplicates++
			return nil
		}
		return fmt.Errorf("failed to import highlight %s: %w", h.ExternalID(), err)
	}

	result.Synced++
	if generate {
		result.FlashcardReady++
	}
	return nil
}

// Run polls for new highlights until the context is cancelled. Each run
// after the first only considers highlights created since the previous
// successful sync. Sync failures are logged and retried on the next tick.
func (s *SyncService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			since := s.lastSync
			s.mu.Unlock()

			if _, err := s.Sync(ctx, since); err != nil {
				s.logger.Warn("scheduled raindrop sync failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
