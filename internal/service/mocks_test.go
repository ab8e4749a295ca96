package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/store"
	"github.com/retainapp/retain-api/internal/task"
)

// In-memory store fakes shared by the service tests. They ignore the
// transaction handle; the tests inject a pass-through runInTx.

type fakeCardStore struct {
	cards     map[uuid.UUID]*domain.Card
	createErr error
	updateErr error
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

func (f *fakeCardStore) Create(ctx context.Context, card *domain.Card) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.cards[card.ID] = card
	return nil
}

func (f *fakeCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, c := range cards {
		f.cards[c.ID] = c
	}
	return nil
}

func (f *fakeCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, ok := f.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (f *fakeCardStore) Update(ctx context.Context, card *domain.Card) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.cards[card.ID]; !ok {
		return store.ErrCardNotFound
	}
	f.cards[card.ID] = card
	return nil
}

func (f *fakeCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.cards[id]; !ok {
		return store.ErrCardNotFound
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeCardStore) List(ctx context.Context, filter store.CardFilter, page store.Page) ([]*domain.Card, int, error) {
	var out []*domain.Card
	for _, c := range f.cards {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.SourceID != nil && (c.SourceID == nil || *c.SourceID != *filter.SourceID) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeCardStore) ListDue(ctx context.Context, now time.Time, tag string, limit int) ([]*domain.Card, int, error) {
	return nil, 0, nil
}

func (f *fakeCardStore) WithTx(tx *sql.Tx) store.CardStore { return f }

type fakeSourceStore struct {
	sources   map[uuid.UUID]*domain.Source
	byExtID   map[string]*domain.Source
	cardCount int
	createErr error
}

func newFakeSourceStore() *fakeSourceStore {
	return &fakeSourceStore{
		sources: make(map[uuid.UUID]*domain.Source),
		byExtID: make(map[string]*domain.Source),
	}
}

func (f *fakeSourceStore) Create(ctx context.Context, source *domain.Source) error {
	if f.createErr != nil {
		return f.createErr
	}
	if source.ExternalID != "" {
		if _, ok := f.byExtID[source.ExternalID]; ok {
			return store.ErrExternalIDExists
		}
		f.byExtID[source.ExternalID] = source
	}
	f.sources[source.ID] = source
	return nil
}

func (f *fakeSourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	source, ok := f.sources[id]
	if !ok {
		return nil, store.ErrSourceNotFound
	}
	copied := *source
	return &copied, nil
}

func (f *fakeSourceStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Source, error) {
	source, ok := f.byExtID[externalID]
	if !ok {
		return nil, store.ErrSourceNotFound
	}
	copied := *source
	return &copied, nil
}

func (f *fakeSourceStore) Update(ctx context.Context, source *domain.Source) error {
	if _, ok := f.sources[source.ID]; !ok {
		return store.ErrSourceNotFound
	}
	f.sources[source.ID] = source
	return nil
}

func (f *fakeSourceStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.sources[id]; !ok {
		return store.ErrSourceNotFound
	}
	delete(f.sources, id)
	return nil
}

func (f *fakeSourceStore) List(ctx context.Context, filter store.SourceFilter, page store.Page) ([]*domain.Source, int, error) {
	var out []*domain.Source
	for _, s := range f.sources {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeSourceStore) CountCards(ctx context.Context, sourceID uuid.UUID) (int, error) {
	return f.cardCount, nil
}

func (f *fakeSourceStore) WithTx(tx *sql.Tx) store.SourceStore { return f }

type fakeTagStore struct {
	tags map[string]*domain.Tag
}

func newFakeTagStore() *fakeTagStore {
	return &fakeTagStore{tags: make(map[string]*domain.Tag)}
}

func (f *fakeTagStore) GetOrCreate(ctx context.Context, names []string) ([]*domain.Tag, error) {
	var out []*domain.Tag
	seen := make(map[string]bool)
	for _, raw := range names {
		name := domain.NormalizeTagName(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if tag, ok := f.tags[name]; ok {
			out = append(out, tag)
			continue
		}
		tag, err := domain.NewTag(name)
		if err != nil {
			return nil, err
		}
		f.tags[name] = tag
		out = append(out, tag)
	}
	return out, nil
}

func (f *fakeTagStore) List(ctx context.Context) ([]*domain.Tag, error) {
	var out []*domain.Tag
	for _, tag := range f.tags {
		out = append(out, tag)
	}
	return out, nil
}

func (f *fakeTagStore) Delete(ctx context.Context, id uuid.UUID) error {
	for name, tag := range f.tags {
		if tag.ID == id {
			delete(f.tags, name)
			return nil
		}
	}
	return store.ErrTagNotFound
}

func (f *fakeTagStore) WithTx(tx *sql.Tx) store.TagStore { return f }

// fakeSubmitter records submitted tasks.
type fakeSubmitter struct {
	submitted []task.Task
	err       error
}

func (f *fakeSubmitter) Submit(ctx context.Context, t task.Task) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, t)
	return nil
}

// fakeTaskFactory builds no-op tasks.
type fakeTaskFactory struct{}

type noopTask struct{ id uuid.UUID }

func (t *noopTask) ID() uuid.UUID                    { return t.id }
func (t *noopTask) Type() string                     { return "noop" }
func (t *noopTask) Payload() []byte                  { return []byte(`{}`) }
func (t *noopTask) Status() task.TaskStatus          { return task.TaskStatusPending }
func (t *noopTask) Execute(ctx context.Context) error { return nil }

func (f *fakeTaskFactory) NewTask(sourceID uuid.UUID) (task.Task, error) {
	return &noopTask{id: uuid.New()}, nil
}

func passthroughTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
