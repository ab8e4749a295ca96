package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/store"
)

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the
// ReviewLogStore interface. If logger is nil, a default logger will be used.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore interface
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// Create implements store.ReviewLogStore.Create.
func (s *PostgresReviewLogStore) Create(ctx context.Context, reviewLog *domain.ReviewLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := reviewLog.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_logs (id, card_id, rating,
			ease_factor_before, interval_before, ease_factor_after, interval_after,
			response_time_ms, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		reviewLog.ID,
		reviewLog.CardID,
		int(reviewLog.Rating),
		reviewLog.EaseFactorBefore,
		reviewLog.IntervalBefore,
		reviewLog.EaseFactorAfter,
		reviewLog.IntervalAfter,
		reviewLog.ResponseTimeMs,
		reviewLog.ReviewedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: card %s not found", store.ErrInvalidEntity, reviewLog.CardID)
		}
		log.Error("failed to insert review log",
			slog.String("error", err.Error()),
			slog.String("card_id", reviewLog.CardID.String()))
		return fmt.Errorf("failed to insert review log: %w", err)
	}

	log.Debug("review log created",
		slog.String("card_id", reviewLog.CardID.String()),
		slog.String("rating", reviewLog.Rating.String()))
	return nil
}

// ListByCard implements store.ReviewLogStore.ListByCard.
func (s *PostgresReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, card_id, rating,
			ease_factor_before, interval_before, ease_factor_after, interval_after,
			response_time_ms, reviewed_at
		FROM review_logs
		WHERE card_id = $1
		ORDER BY reviewed_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, cardID)
	if err != nil {
		log.Error("failed to list review logs",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	logs := []*domain.ReviewLog{}
	for rows.Next() {
		var entry domain.ReviewLog
		var rating int
		var responseTimeMs sql.NullInt64

		err := rows.Scan(
			&entry.ID,
			&entry.CardID,
			&rating,
			&entry.EaseFactorBefore,
			&entry.IntervalBefore,
			&entry.EaseFactorAfter,
			&entry.IntervalAfter,
			&responseTimeMs,
			&entry.ReviewedAt,
		)
		if err != nil {
			return nil, err
		}

		entry.Rating = domain.ReviewRating(rating)
		if responseTimeMs.Valid {
			ms := int(responseTimeMs.Int64)
			entry.ResponseTimeMs = &ms
		}

		logs = append(logs, &entry)
	}

	return logs, rows.Err()
}

// WithTx implements store.ReviewLogStore.WithTx.
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{
		db:     tx,
		logger: s.logger,
	}
}
