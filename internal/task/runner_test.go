package task

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTask is a controllable Task implementation for runner tests.
type fakeTask struct {
	id       uuid.UUID
	taskType string
	execErr  error
	executed chan struct{}
}

func newFakeTask(execErr error) *fakeTask {
	return &fakeTask{
		id:       uuid.New(),
		taskType: "fake",
		execErr:  execErr,
		executed: make(chan struct{}),
	}
}

func (t *fakeTask) ID() uuid.UUID      { return t.id }
func (t *fakeTask) Type() string       { return t.taskType }
func (t *fakeTask) Payload() []byte    { return []byte(`{}`) }
func (t *fakeTask) Status() TaskStatus { return TaskStatusPending }

func (t *fakeTask) Execute(ctx context.Context) error {
	close(t.executed)
	return t.execErr
}

// memoryTaskStore records task state transitions in memory.
type memoryTaskStore struct {
	mu         sync.Mutex
	saved      []Task
	statuses   map[uuid.UUID][]TaskStatus
	pending    []Task
	processing []Task
	saveErr    error
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{statuses: make(map[uuid.UUID][]TaskStatus)}
}

func (s *memoryTaskStore) SaveTask(ctx context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, t)
	return nil
}

func (s *memoryTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[taskID] = append(s.statuses[taskID], status)
	return nil
}

func (s *memoryTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, nil
}

func (s *memoryTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing, nil
}

func (s *memoryTaskStore) WithTx(tx *sql.Tx) TaskStore { return s }

func (s *memoryTaskStore) statusHistory(id uuid.UUID) []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]TaskStatus, len(s.statuses[id]))
	copy(history, s.statuses[id])
	return history
}

func waitForExecution(t *testing.T, ft *fakeTask) {
	t.Helper()
	select {
	case <-ft.executed:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed in time")
	}
}

func waitForStatus(t *testing.T, store *memoryTaskStore, id uuid.UUID, want TaskStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, st := range store.statusHistory(id) {
			if st == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %s (history: %v)", id, want, store.statusHistory(id))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunnerExecutesSubmittedTask(t *testing.T) {
	t.Parallel()

	store := newMemoryTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	ft := newFakeTask(nil)
	require.NoError(t, runner.Submit(context.Background(), ft))

	waitForExecution(t, ft)
	waitForStatus(t, store, ft.id, TaskStatusCompleted)

	history := store.statusHistory(ft.id)
	assert.Equal(t, TaskStatusProcessing, history[0])
	assert.Equal(t, TaskStatusCompleted, history[len(history)-1])
}

func TestRunnerMarksFailedTask(t *testing.T) {
	t.Parallel()

	store := newMemoryTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	ft := newFakeTask(errors.New("boom"))
	require.NoError(t, runner.Submit(context.Background(), ft))

	waitForExecution(t, ft)
	waitForStatus(t, store, ft.id, TaskStatusFailed)
}

func TestRunnerSubmitFailsWhenSaveFails(t *testing.T) {
	t.Parallel()

	store := newMemoryTaskStore()
	store.saveErr = errors.New("db down")
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), testLogger())

	err := runner.Submit(context.Background(), newFakeTask(nil))
	assert.Error(t, err)
}

func TestRunnerRecoversPendingAndProcessingTasks(t *testing.T) {
	t.Parallel()

	pending := newFakeTask(nil)
	interrupted := newFakeTask(nil)

	store := newMemoryTaskStore()
	store.pending = []Task{pending}
	store.processing = []Task{interrupted}

	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	waitForExecution(t, pending)
	waitForExecution(t, interrupted)

	// The interrupted task must be reset to pending before it runs again.
	waitForStatus(t, store, interrupted.id, TaskStatusPending)
	waitForStatus(t, store, interrupted.id, TaskStatusCompleted)
}

func TestRunnerSubmitRejectsWhenQueueFull(t *testing.T) {
	t.Parallel()

	store := newMemoryTaskStore()
	cfg := DefaultTaskRunnerConfig()
	cfg.QueueSize = 1
	runner := NewTaskRunner(store, cfg, testLogger())
	// Runner not started: nothing drains the queue.

	require.NoError(t, runner.Submit(context.Background(), newFakeTask(nil)))
	err := runner.Submit(context.Background(), newFakeTask(nil))
	assert.Error(t, err)
}
