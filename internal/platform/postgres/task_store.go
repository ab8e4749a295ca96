package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/platform/logger"
	"github.com/retainapp/retain-api/internal/store"
	"github.com/retainapp/retain-api/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using
// PostgreSQL. Tasks loaded from the database are re-hydrated into
// executable tasks through the configured hydrate function.
type PostgresTaskStore struct {
	db      store.DBTX
	hydrate task.HydrateFunc
	logger  *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
// The hydrate function rebuilds executable tasks during recovery; it may
// be nil in tests that never load tasks back.
func NewPostgresTaskStore(db store.DBTX, hydrate task.HydrateFunc, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:      db,
		hydrate: hydrate,
		logger:  logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements task.TaskStore interface
var _ task.TaskStore = (*PostgresTaskStore)(nil)

// SaveTask implements task.TaskStore.SaveTask.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID(), t.Type(), t.Payload(), t.Status(), now, now)
	if err != nil {
		log.Error("failed to save task",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to save task: %w", err)
	}

	return nil
}

// UpdateTaskStatus implements task.TaskStore.UpdateTaskStatus.
// Updating an unknown task is a no-op rather than an error; the row may
// have been cleaned up while the task was in flight.
func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, status, nullString(errorMsg), time.Now().UTC(), taskID)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update task status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		log.Warn("no task found to update", slog.String("task_id", taskID.String()))
	}

	return nil
}

// GetPendingTasks implements task.TaskStore.GetPendingTasks.
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks implements task.TaskStore.GetProcessingTasks.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

// WithTx implements task.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{
		db:      tx,
		hydrate: s.hydrate,
		logger:  s.logger,
	}
}

// getTasksByStatus loads tasks in a given status, optionally filtered to
// rows that have not been touched for olderThan.
func (s *PostgresTaskStore) getTasksByStatus(ctx context.Context, status task.TaskStatus, olderThan time.Duration) ([]task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, type, payload
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{status}
	if olderThan > 0 {
		query = `
			SELECT id, type, payload
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		var id uuid.UUID
		var taskType string
		var payload []byte

		if err := rows.Scan(&id, &taskType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		if s.hydrate == nil {
			return nil, fmt.Errorf("cannot hydrate task %s: no hydrate function configured", id)
		}

		t, err := s.hydrate(taskType, id, payload)
		if err != nil {
			// A task we cannot rebuild should not wedge recovery of the rest.
			log.Error("failed to hydrate task, skipping",
				slog.String("task_id", id.String()),
				slog.String("task_type", taskType),
				slog.String("error", err.Error()))
			continue
		}

		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}
