package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/store"
)

const sourceColumns = `id, text, type, url, title, external_id,
	highlight_color, status, created_at, updated_at`

// PostgresSourceStore implements the store.SourceStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSourceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSourceStore creates a new PostgreSQL implementation of the
// SourceStore interface. If logger is nil, a default logger will be used.
func NewPostgresSourceStore(db store.DBTX, logger *slog.Logger) *PostgresSourceStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSourceStore{
		db:     db,
		logger: logger.With(slog.String("component", "source_store")),
	}
}

// Ensure PostgresSourceStore implements store.SourceStore interface
var _ store.SourceStore = (*PostgresSourceStore)(nil)

// Create implements store.SourceStore.Create.
// A duplicate external ID maps to store.ErrExternalIDExists so callers can
// treat re-synced highlights as conflicts rather than failures.
func (s *PostgresSourceStore) Create(ctx context.Context, source *domain.Source) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := source.Validate(); err != nil {
		log.Warn("source validation failed during create",
			slog.String("error", err.Error()),
			slog.String("source_id", source.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO sources (` + sourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		source.ID,
		source.Text,
		source.Type,
		nullString(source.URL),
		nullString(source.Title),
		nullString(source.ExternalID),
		nullString(source.HighlightColor),
		source.Status,
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: external_id %q", store.ErrExternalIDExists, source.ExternalID)
		}
		log.Error("failed to insert source",
			slog.String("error", err.Error()),
			slog.String("source_id", source.ID.String()))
		return fmt.Errorf("failed to insert source: %w", err)
	}

	if err := replaceTagsFor(ctx, s.db, "source_tags", "source_id", source.ID, source.Tags); err != nil {
		return err
	}

	log.Info("source created",
		slog.String("source_id", source.ID.String()),
		slog.String("type", string(source.Type)))
	return nil
}

// GetByID implements store.SourceStore.GetByID.
func (s *PostgresSourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)

	source, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSourceNotFound
		}
		log.Error("failed to get source",
			slog.String("error", err.Error()),
			slog.String("source_id", id.String()))
		return nil, err
	}

	source.Tags, err = loadTagsFor(ctx, s.db, "source_tags", "source_id", source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source tags: %w", err)
	}

	return source, nil
}

// GetByExternalID implements store.SourceStore.GetByExternalID.
func (s *PostgresSourceStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE external_id = $1`, externalID)

	source, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSourceNotFound
		}
		return nil, err
	}

	source.Tags, err = loadTagsFor(ctx, s.db, "source_tags", "source_id", source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source tags: %w", err)
	}

	return source, nil
}

// Update implements store.SourceStore.Update.
func (s *PostgresSourceStore) Update(ctx context.Context, source *domain.Source) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := source.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE sources
		SET text = $1, type = $2, url = $3, title = $4,
			highlight_color = $5, status = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		source.Text,
		source.Type,
		nullString(source.URL),
		nullString(source.Title),
		nullString(source.HighlightColor),
		source.Status,
		source.UpdatedAt,
		source.ID,
	)
	if err != nil {
		log.Error("failed to update source",
			slog.String("error", err.Error()),
			slog.String("source_id", source.ID.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrSourceNotFound
	}

	return replaceTagsFor(ctx, s.db, "source_tags", "source_id", source.ID, source.Tags)
}

// Delete implements store.SourceStore.Delete.
// Cards created from the source keep their rows; the database sets their
// source_id to NULL.
func (s *PostgresSourceStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete source",
			slog.String("error", err.Error()),
			slog.String("source_id", id.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrSourceNotFound
	}

	log.Info("source deleted", slog.String("source_id", id.String()))
	return nil
}

// List implements store.SourceStore.List.
func (s *PostgresSourceStore) List(ctx context.Context, filter store.SourceFilter, page store.Page) ([]*domain.Source, int, error) {
	where := ""
	var args []any

	addCondition := func(cond string, value any) {
		args = append(args, value)
		clause := fmt.Sprintf(cond, len(args))
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}

	join := ""
	if filter.Status != nil {
		addCondition("s.status = $%d", *filter.Status)
	}
	if filter.Type != nil {
		addCondition("s.type = $%d", *filter.Type)
	}
	if filter.Tag != "" {
		join = ` JOIN source_tags st ON st.source_id = s.id
			JOIN tags t ON t.id = st.tag_id`
		addCondition("t.name = $%d", domain.NormalizeTagName(filter.Tag))
	}

	countQuery := `SELECT COUNT(DISTINCT s.id) FROM sources s` + join + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sources: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT DISTINCT s.id, s.text, s.type, s.url, s.title, s.external_id,
			s.highlight_color, s.status, s.created_at, s.updated_at
		FROM sources s%s%s
		ORDER BY s.created_at DESC
		LIMIT $%d OFFSET $%d
	`, join, where, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []*domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, 0, err
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, source := range sources {
		source.Tags, err = loadTagsFor(ctx, s.db, "source_tags", "source_id", source.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load source tags: %w", err)
		}
	}

	return sources, total, nil
}

// CountCards implements store.SourceStore.CountCards.
func (s *PostgresSourceStore) CountCards(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE source_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards for source: %w", err)
	}
	return count, nil
}

// WithTx implements store.SourceStore.WithTx.
func (s *PostgresSourceStore) WithTx(tx *sql.Tx) store.SourceStore {
	return &PostgresSourceStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanSource reads one source row.
func scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	var url, title, externalID, highlightColor sql.NullString

	err := row.Scan(
		&source.ID,
		&source.Text,
		&source.Type,
		&url,
		&title,
		&externalID,
		&highlightColor,
		&source.Status,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	source.URL = url.String
	source.Title = title.String
	source.ExternalID = externalID.String
	source.HighlightColor = highlightColor.String

	return &source, nil
}
