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

// PostgresTagStore implements the store.TagStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTagStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTagStore creates a new PostgreSQL implementation of the
// TagStore interface. If logger is nil, a default logger will be used.
func NewPostgresTagStore(db store.DBTX, logger *slog.Logger) *PostgresTagStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTagStore{
		db:     db,
		logger: logger.With(slog.String("component", "tag_store")),
	}
}

// Ensure PostgresTagStore implements store.TagStore interface
var _ store.TagStore = (*PostgresTagStore)(nil)

// GetOrCreate implements store.TagStore.GetOrCreate.
// Names are normalized before lookup; empty names are skipped.
func (s *PostgresTagStore) GetOrCreate(ctx context.Context, names []string) ([]*domain.Tag, error) {
	return getOrCreateTags(ctx, s.db, names)
}

// List implements store.TagStore.List.
func (s *PostgresTagStore) List(ctx context.Context) ([]*domain.Tag, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, color, created_at
		FROM tags
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tags []*domain.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// Delete implements store.TagStore.Delete.
// Junction rows are removed by the database cascade.
func (s *PostgresTagStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete tag",
			slog.String("error", err.Error()),
			slog.String("tag_id", id.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrTagNotFound
	}

	log.Info("tag deleted", slog.String("tag_id", id.String()))
	return nil
}

// WithTx implements store.TagStore.WithTx.
func (s *PostgresTagStore) WithTx(tx *sql.Tx) store.TagStore {
	return &PostgresTagStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTag reads one tag row.
func scanTag(row rowScanner) (*domain.Tag, error) {
	var tag domain.Tag
	var color sql.NullString

	if err := row.Scan(&tag.ID, &tag.Name, &color, &tag.CreatedAt); err != nil {
		return nil, err
	}

	tag.Color = color.String
	return &tag, nil
}

// getOrCreateTags resolves tag names to rows, inserting missing ones.
// Concurrent inserts of the same name are resolved by retrying the lookup
// after a unique violation.
func getOrCreateTags(ctx context.Context, db store.DBTX, names []string) ([]*domain.Tag, error) {
	var tags []*domain.Tag
	seen := make(map[string]bool)

	for _, raw := range names {
		name := domain.NormalizeTagName(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := findTagByName(ctx, db, name)
		if err == nil {
			tags = append(tags, tag)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up tag %q: %w", name, err)
		}

		created, err := domain.NewTag(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		_, err = db.ExecContext(ctx,
			`INSERT INTO tags (id, name, color, created_at) VALUES ($1, $2, $3, $4)`,
			created.ID, created.Name, nullString(created.Color), created.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				// Lost a race with another writer; the row exists now.
				tag, err = findTagByName(ctx, db, name)
				if err != nil {
					return nil, fmt.Errorf("failed to re-read tag %q: %w", name, err)
				}
				tags = append(tags, tag)
				continue
			}
			return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
		}

		tags = append(tags, created)
	}

	return tags, nil
}

// findTagByName returns the tag row for a normalized name.
func findTagByName(ctx context.Context, db store.DBTX, name string) (*domain.Tag, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM tags WHERE name = $1`, name)
	return scanTag(row)
}

// loadTagsFor returns the tags associated with an entity through the given
// junction table ("card_tags"/"source_tags") and owner column.
func loadTagsFor(ctx context.Context, db store.DBTX, junction, ownerColumn string, ownerID uuid.UUID) ([]*domain.Tag, error) {
	query := fmt.Sprintf(`
		SELECT t.id, t.name, t.color, t.created_at
		FROM tags t
		JOIN %s j ON j.tag_id = t.id
		WHERE j.%s = $1
		ORDER BY t.name
	`, junction, ownerColumn)

	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tags := []*domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// replaceTagsFor rewrites an entity's junction rows to exactly the given
// tag set.
func replaceTagsFor(ctx context.Context, db store.DBTX, junction, ownerColumn string, ownerID uuid.UUID, tags []*domain.Tag) error {
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, junction, ownerColumn)
	if _, err := db.ExecContext(ctx, deleteQuery, ownerID); err != nil {
		return fmt.Errorf("failed to clear tag associations: %w", err)
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO %s (%s, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		junction, ownerColumn)
	for _, tag := range tags {
		if _, err := db.ExecContext(ctx, insertQuery, ownerID, tag.ID); err != nil {
			return fmt.Errorf("failed to associate tag %q: %w", tag.Name, err)
		}
	}

	return nil
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
