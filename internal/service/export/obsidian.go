// Package export renders sources and cards as markdown files in an
// Obsidian vault. The export doubles as a git-friendly backup of the
// learning data.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/retainapp/retain-api/internal/config"
	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/service"
	"github.com/retainapp/retain-api/internal/store"
)

// Export errors.
var (
	// ErrNotConfigured indicates no vault path is set.
	ErrNotConfigured = errors.New("obsidian vault path not configured")

	// ErrVaultNotFound indicates the configured vault path does not exist.
	ErrVaultNotFound = errors.New("obsidian vault not found")
)

// defaultLearningsFolder is used when no folder is configured.
const defaultLearningsFolder = "learnings"

// listPageSize bounds how many records each listing round trip fetches.
const listPageSize = 500

// indexRecentSources caps the recent-sources section of the index file.
const indexRecentSources = 20

// SourceLister is the subset of the source service the export uses.
type SourceLister interface {
	ListSources(ctx context.Context, filter store.SourceFilter, page store.Page) (*service.SourceList, error)
}

// CardLister is the subset of the card service the export uses.
type CardLister interface {
	ListCards(ctx context.Context, filter store.CardFilter, page store.Page) (*service.CardList, error)
}

// Result summarizes one export run.
type Result struct {
	SourcesExported int    `json:"sources_exported"`
	CardsExported   int    `json:"cards_exported"`
	ExportPath      string `json:"export_path"`
}

// Status reports the export configuration state.
type Status struct {
	Configured bool   `json:"configured"`
	Path       string `json:"path,omitempty"`
	Exists     bool   `json:"exists"`
	Message    string `json:"message"`
}

// ObsidianExporter writes approved sources and active cards to markdown
// files under <vault>/<learnings folder>/.
type ObsidianExporter struct {
	vaultPath       string
	learningsFolder string
	sources         SourceLister
	cards           CardLister
	timeFunc        func() time.Time // Injectable for testing
	logger          *slog.Logger
}

// NewObsidianExporter creates an ObsidianExporter. An empty vault path is
// allowed; ExportAll then fails with ErrNotConfigured.
func NewObsidianExporter(cfg config.ExportConfig, sources SourceLister, cards CardLister, logger *slog.Logger) *ObsidianExporter {
	if sources == nil {
		panic("sources cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	folder := cfg.LearningsFolder
	if folder == "" {
		folder = defaultLearningsFolder
	}

	return &ObsidianExporter{
		vaultPath:       cfg.VaultPath,
		learningsFolder: folder,
		sources:         sources,
		cards:           cards,
		timeFunc:        func() time.Time { return time.Now().UTC() },
		logger:          logger.With(slog.String("component", "obsidian_export")),
	}
}

// basePath is the learnings directory inside the vault.
func (e *ObsidianExporter) basePath() string {
	return filepath.Join(e.vaultPath, e.learningsFolder)
}

// Status reports whether the export is configured and the vault exists.
func (e *ObsidianExporter) Status() Status {
	if e.vaultPath == "" {
		return Status{Configured: false, Message: "vault path not configured"}
	}
	if _, err := os.Stat(e.vaultPath); err != nil {
		return Status{
			Configured: true,
			Path:       e.vaultPath,
			Exists:     false,
			Message:    fmt.Sprintf("vault path does not exist: %s", e.vaultPath),
		}
	}
	return Status{Configured: true, Path: e.vaultPath, Exists: true, Message: "ready to export"}
}

// ExportAll writes every approved source and every active card to the
// vault, plus an index file linking them.
func (e *ObsidianExporter) ExportAll(ctx context.Context) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if e.vaultPath == "" {
		return nil, ErrNotConfigured
	}
	if _, err := os.Stat(e.vaultPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, e.vaultPath)
	}

	for _, dir := range []string{"sources", "cards"} {
		if err := os.MkdirAll(filepath.Join(e.basePath(), dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	sources, err := e.listApprovedSources(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := e.listActiveCards(ctx)
	if err != nil {
		return nil, err
	}

	// Group cards by source so each source file can link its cards.
	cardsBySource := make(map[string][]*domain.Card)
	for _, card := range cards {
		if card.SourceID != nil {
			key := card.SourceID.String()
			cardsBySource[key] = append(cardsBySource[key], card)
		}
	}

	for _, source := range sources {
		path := filepath.Join(e.basePath(), "sources", sourceFilename(source))
		content := sourceMarkdown(source, cardsBySource[source.ID.String()])
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write source file: %w", err)
		}
	}

	for _, card := range cards {
		path := filepath.Join(e.basePath(), "cards", cardFilename(card))
		if err := os.WriteFile(path, []byte(cardMarkdown(card)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write card file: %w", err)
		}
	}

	if err := e.writeIndex(sources, cards); err != nil {
		return nil, err
	}

	log.Info("obsidian export finished",
		slog.Int("sources", len(sources)),
		slog.Int("cards", len(cards)),
		slog.String("path", e.basePath()))

	return &Result{
		SourcesExported: len(sources),
		CardsExported:   len(cards),
		ExportPath:      e.basePath(),
	}, nil
}

// listApprovedSources pages through all approved sources.
func (e *ObsidianExporter) listApprovedSources(ctx context.Context) ([]*domain.Source, error) {
	approved := domain.SourceStatusApproved
	var out []*domain.Source
	for page := 1; ; page++ {
		list, err := e.sources.ListSources(ctx, store.SourceFilter{Status: &approved}, store.Page{Number: page, Size: listPageSize})
		if err != nil {
			return nil, fmt.Errorf("failed to list sources: %w", err)
		}
		out = append(out, list.Sources...)
		if len(out) >= list.Total || len(list.Sources) == 0 {
			return out, nil
		}
	}
}

// listActiveCards pages through all active cards.
func (e *ObsidianExporter) listActiveCards(ctx context.Context) ([]*domain.Card, error) {
	active := domain.CardStatusActive
	var out []*domain.Card
	for page := 1; ; page++ {
		list, err := e.cards.ListCards(ctx, store.CardFilter{Status: &active}, store.Page{Number: page, Size: listPageSize})
		if err != nil {
			return nil, fmt.Errorf("failed to list cards: %w", err)
		}
		out = append(out, list.Cards...)
		if len(out) >= list.Total || len(list.Cards) == 0 {
			return out, nil
		}
	}
}

// writeIndex creates the index.md linking recent sources and listing tags.
func (e *ObsidianExporter) writeIndex(sources []*domain.Source, cards []*domain.Card) error {
	var b strings.Builder
	fmt.Fprintf(&b, "---\nupdated: %s\n---\n\n", e.timeFunc().Format(time.RFC3339))
	b.WriteString("# Learnings Index\n\n")
	fmt.Fprintf(&b, "**%d** sources | **%d** cards\n\n", len(sources), len(cards))
	b.WriteString("## Recent Sources\n\n")

	recent := make([]*domain.Source, len(sources))
	copy(recent, sources)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > indexRecentSources {
		recent = recent[:indexRecentSources]
	}
	for _, source := range recent {
		title := sourceTitle(source)
		name := strings.TrimSuffix(sourceFilename(source), ".md")
		fmt.Fprintf(&b, "- [[sources/%s|%s]]\n", name, title)
	}

	b.WriteString("\n## Tags\n\n")
	tagSet := make(map[string]struct{})
	for _, source := range sources {
		for _, tag := range source.Tags {
			tagSet[tag.Name] = struct{}{}
		}
	}
	for _, card := range cards {
		for _, tag := range card.Tags {
			tagSet[tag.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(tagSet))
	for name := range tagSet {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "- #%s\n", name)
	}

	path := filepath.Join(e.basePath(), "index.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// sourceTitle picks a display title for a source.
func sourceTitle(source *domain.Source) string {
	if source.Title != "" {
		return source.Title
	}
	return truncate(source.Text, 50)
}

// sourceFilename builds the markdown filename for a source.
func sourceFilename(source *domain.Source) string {
	base := source.Title
	if base == "" {
		base = truncate(source.Text, 30)
	}
	return fmt.Sprintf("%s-%s.md", source.ID, slugify(base, 50))
}

// cardFilename builds the markdown filename for a card. Cards generated
// from a source are prefixed with the source ID so they group together.
func cardFilename(card *domain.Card) string {
	prefix := ""
	if card.SourceID != nil {
		prefix = card.SourceID.String() + "-"
	}
	return fmt.Sprintf("%s%s-%s.md", prefix, card.ID, slugify(truncate(card.Front, 30), 50))
}

// sourceMarkdown renders a source with frontmatter, its highlight text, and
// links to its exported cards.
func sourceMarkdown(source *domain.Source, cards []*domain.Card) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", source.ID)
	b.WriteString("type: source\n")
	fmt.Fprintf(&b, "source_type: %s\n", source.Type)
	fmt.Fprintf(&b, "status: %s\n", source.Status)
	fmt.Fprintf(&b, "created: %s\n", source.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "updated: %s\n", source.UpdatedAt.Format(time.RFC3339))
	if len(source.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", joinTagNames(source.Tags))
	}
	if source.URL != "" {
		fmt.Fprintf(&b, "url: %q\n", source.URL)
	}
	b.WriteString("---\n\n")

	title := source.Title
	if title == "" {
		title = "Source"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if source.URL != "" {
		fmt.Fprintf(&b, "[Original Source](%s)\n\n", source.URL)
	}
	fmt.Fprintf(&b, "## Highlight\n\n> %s\n", source.Text)

	if len(cards) > 0 {
		b.WriteString("\n## Generated Cards\n\n")
		for _, card := range cards {
			name := strings.TrimSuffix(cardFilename(card), ".md")
			fmt.Fprintf(&b, "- [[cards/%s|%s]]\n", name, truncate(card.Front, 50))
		}
	}
	return b.String()
}

// cardMarkdown renders a card with its schedule in the frontmatter.
func cardMarkdown(card *domain.Card) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", card.ID)
	b.WriteString("type: card\n")
	fmt.Fprintf(&b, "status: %s\n", card.Status)
	fmt.Fprintf(&b, "ease_factor: %.2f\n", card.EaseFactor)
	fmt.Fprintf(&b, "interval_days: %d\n", card.IntervalDays)
	fmt.Fprintf(&b, "repetitions: %d\n", card.Repetitions)
	fmt.Fprintf(&b, "created: %s\n", card.CreatedAt.Format(time.RFC3339))
	if card.NextReview != nil {
		fmt.Fprintf(&b, "next_review: %s\n", card.NextReview.Format(time.RFC3339))
	}
	if len(card.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", joinTagNames(card.Tags))
	}
	if card.SourceID != nil {
		fmt.Fprintf(&b, "source_id: %s\n", card.SourceID)
	}
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "## Question\n\n%s\n\n", card.Front)
	fmt.Fprintf(&b, "## Answer\n\n%s\n", card.Back)
	if card.Hint != "" {
		fmt.Fprintf(&b, "\n## Hint\n\n%s\n", card.Hint)
	}
	if card.SourceID != nil {
		fmt.Fprintf(&b, "\n## Source\n\n![[sources/%s]]\n", card.SourceID)
	}
	return b.String()
}

// joinTagNames renders tag names for frontmatter.
func joinTagNames(tags []*domain.Tag) string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return strings.Join(names, ", ")
}

// slugify turns free text into a safe markdown filename fragment.
func slugify(text string, maxLength int) string {
	slug := strings.ToLower(text)
	slug = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '#', '[', ']', ' ':
			return '-'
		}
		return r
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	slug = strings.Trim(truncate(slug, maxLength), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// truncate cuts a string to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
