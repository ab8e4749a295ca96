package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/store"
)

const cardColumns = `id, front, back, hint, source_id, status,
	ease_factor, interval_days, repetitions, next_review, last_reviewed,
	created_at, updated_at`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the
// CardStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// Create implements store.CardStore.Create.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if err := s.insert(ctx, card); err != nil {
		return err
	}

	log.Info("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("status", string(card.Status)))
	return nil
}

// CreateMultiple implements store.CardStore.CreateMultiple.
// The caller is responsible for wrapping this in a transaction so the
// batch is atomic.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	for _, card := range cards {
		if err := s.insert(ctx, card); err != nil {
			return err
		}
	}

	log.Info("cards created", slog.Int("count", len(cards)))
	return nil
}

// insert writes one card row plus its tag associations.
func (s *PostgresCardStore) insert(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.Front,
		card.Back,
		nullString(card.Hint),
		card.SourceID,
		card.Status,
		card.EaseFactor,
		card.IntervalDays,
		card.Repetitions,
		card.NextReview,
		card.LastReviewed,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: source %v not found", store.ErrInvalidEntity, card.SourceID)
		}
		return fmt.Errorf("failed to insert card: %w", err)
	}

	return replaceTagsFor(ctx, s.db, "card_tags", "card_id", card.ID, card.Tags)
}

// GetByID implements store.CardStore.GetByID.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, err
	}

	card.Tags, err = loadTagsFor(ctx, s.db, "card_tags", "card_id", card.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load card tags: %w", err)
	}

	return card, nil
}

// Update implements store.CardStore.Update.
// It persists content, status, and the full review state, and replaces
// the card's tag associations.
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE cards
		SET front = $1, back = $2, hint = $3, status = $4,
			ease_factor = $5, interval_days = $6, repetitions = $7,
			next_review = $8, last_reviewed = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := s.db.ExecContext(ctx, query,
		card.Front,
		card.Back,
		nullString(card.Hint),
		card.Status,
		card.EaseFactor,
		card.IntervalDays,
		card.Repetitions,
		card.NextReview,
		card.LastReviewed,
		card.UpdatedAt,
		card.ID,
	)
	if err != nil {
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrCardNotFound
	}

	return replaceTagsFor(ctx, s.db, "card_tags", "card_id", card.ID, card.Tags)
}

// Delete implements store.CardStore.Delete.
// Review logs and tag associations are removed by the database cascade.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrCardNotFound
	}

	log.Info("card deleted", slog.String("card_id", id.String()))
	return nil
}

// List implements store.CardStore.List.
func (s *PostgresCardStore) List(ctx context.Context, filter store.CardFilter, page store.Page) ([]*domain.Card, int, error) {
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
		addCondition("c.status = $%d", *filter.Status)
	}
	if filter.SourceID != nil {
		addCondition("c.source_id = $%d", *filter.SourceID)
	}
	if filter.Tag != "" {
		join = ` JOIN card_tags ct ON ct.card_id = c.id
			JOIN tags t ON t.id = ct.tag_id`
		addCondition("t.name = $%d", domain.NormalizeTagName(filter.Tag))
	}

	countQuery := `SELECT COUNT(DISTINCT c.id) FROM cards c` + join + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT DISTINCT c.id, c.front, c.back, c.hint, c.source_id, c.status,
			c.ease_factor, c.interval_days, c.repetitions, c.next_review, c.last_reviewed,
			c.created_at, c.updated_at
		FROM cards c%s%s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d
	`, join, where, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	return s.queryCards(ctx, listQuery, args, total)
}

// ListDue implements store.CardStore.ListDue.
// Only active cards participate in review; a null next_review means the
// card has never been reviewed and sorts first.
func (s *PostgresCardStore) ListDue(ctx context.Context, now time.Time, tag string, limit int) ([]*domain.Card, int, error) {
	join := ""
	args := []any{domain.CardStatusActive, now}
	if tag != "" {
		join = ` JOIN card_tags ct ON ct.card_id = c.id
			JOIN tags t ON t.id = ct.tag_id`
		args = append(args, domain.NormalizeTagName(tag))
	}

	where := ` WHERE c.status = $1 AND (c.next_review IS NULL OR c.next_review <= $2)`
	if tag != "" {
		where += ` AND t.name = $3`
	}

	countQuery := `SELECT COUNT(DISTINCT c.id) FROM cards c` + join + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count due cards: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT DISTINCT c.id, c.front, c.back, c.hint, c.source_id, c.status,
			c.ease_factor, c.interval_days, c.repetitions, c.next_review, c.last_reviewed,
			c.created_at, c.updated_at
		FROM cards c%s%s
		ORDER BY c.next_review ASC NULLS FIRST
		LIMIT $%d
	`, join, where, len(args)+1)
	args = append(args, limit)

	return s.queryCards(ctx, listQuery, args, total)
}

// WithTx implements store.CardStore.WithTx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}

// queryCards runs a multi-row card query and loads each card's tags.
func (s *PostgresCardStore) queryCards(ctx context.Context, query string, args []any, total int) ([]*domain.Card, int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, card := range cards {
		card.Tags, err = loadTagsFor(ctx, s.db, "card_tags", "card_id", card.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load card tags: %w", err)
		}
	}

	return cards, total, nil
}

// scanCard reads one card row.
func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var hint sql.NullString
	var nextReview, lastReviewed sql.NullTime

	err := row.Scan(
		&card.ID,
		&card.Front,
		&card.Back,
		&hint,
		&card.SourceID,
		&card.Status,
		&card.EaseFactor,
		&card.IntervalDays,
		&card.Repetitions,
		&nextReview,
		&lastReviewed,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.Hint = hint.String
	if nextReview.Valid {
		t := nextReview.Time.UTC()
		card.NextReview = &t
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time.UTC()
		card.LastReviewed = &t
	}

	return &card, nil
}
