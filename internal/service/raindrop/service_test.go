package raindrop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/service"
)

// fakeAPI serves highlight pages from memory.
type fakeAPI struct {
	pages   [][]Highlight
	listErr error
	connErr error
}

func (f *fakeAPI) ListHighlights(ctx context.Context, page int) ([]Highlight, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

func (f *fakeAPI) TestConnection(ctx context.Context) (string, error) {
	if f.connErr != nil {
		return "", f.connErr
	}
	return "owner@example.com", nil
}

// fakeImporter records created sources and flags known external IDs as
// duplicates.
type fakeImporter struct {
	created  []service.CreateSourceParams
	existing map[string]bool
}

func (f *fakeImporter) CreateSource(ctx context.Context, params service.CreateSourceParams) (*domain.Source, error) {
	if f.existing[params.ExternalID] {
		return nil, service.ErrSourceExists
	}
	f.created = append(f.created, params)
	source, err := domain.NewSource(params.Text, params.Type)
	if err != nil {
		return nil, err
	}
	return source, nil
}

func highlight(id, text, color string, created time.Time) Highlight {
	return Highlight{ID: id, Text: text, Color: color, Created: created}
}

func TestSyncImportsHighlights(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]Highlight{{
		highlight("h1", "orange highlight", "orange", created),
		highlight("h2", "yellow highlight", "yellow", created),
		highlight("h3", "uncolored highlight", "", created),
	}}}
	importer := &fakeImporter{existing: map[string]bool{}}

	svc := NewSyncService(api, importer, testLogger())

	result, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 3, result.TotalHighlights)
	assert.Equal(t, 1, result.FlashcardReady)
	assert.Zero(t, result.SkippedDuplicates)

	require.Len(t, importer.created, 3)
	orange := importer.created[0]
	assert.Equal(t, domain.SourceTypeRaindrop, orange.Type)
	assert.Equal(t, "raindrop_highlight_h1", orange.ExternalID)
	assert.True(t, orange.GenerateCards, "orange highlight must queue generation")
	assert.False(t, importer.created[1].GenerateCards)

	// Uncolored highlights default to yellow.
	assert.Equal(t, "yellow", importer.created[2].HighlightColor)
}

func TestSyncSkipsDuplicates(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]Highlight{{
		highlight("old", "already imported", "yellow", created),
		highlight("new", "fresh highlight", "yellow", created),
	}}}
	importer := &fakeImporter{existing: map[string]bool{
		"raindrop_highlight_old": true,
	}}

	svc := NewSyncService(api, importer, testLogger())

	result, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.SkippedDuplicates)
	require.Len(t, importer.created, 1)
	assert.Equal(t, "raindrop_highlight_new", importer.created[0].ExternalID)
}

func TestSyncHonorsSince(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{pages: [][]Highlight{{
		highlight("h1", "before cutoff", "yellow", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		highlight("h2", "after cutoff", "yellow", time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)),
	}}}
	importer := &fakeImporter{existing: map[string]bool{}}

	svc := NewSyncService(api, importer, testLogger())

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Sync(context.Background(), &since)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.TotalHighlights)
	require.Len(t, importer.created, 1)
	assert.Equal(t, "after cutoff", importer.created[0].Text)
}

func TestSyncPaginates(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// A full first page forces a second fetch.
	var fullPage []Highlight
	for i := 0; i < defaultPageSize; i++ {
		fullPage = append(fullPage, highlight(string(rune('a'+i%26))+string(rune('0'+i/26)), "text", "yellow", created))
	}
	api := &fakeAPI{pages: [][]Highlight{
		fullPage,
		{highlight("last", "tail", "yellow", created)},
	}}
	importer := &fakeImporter{existing: map[string]bool{}}

	svc := NewSyncService(api, importer, testLogger())

	result, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize+1, result.TotalHighlights)
}

func TestSyncFetchFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{listErr: ErrInvalidToken}
	svc := NewSyncService(api, &fakeImporter{existing: map[string]bool{}}, testLogger())

	_, err := svc.Sync(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	svc := NewSyncService(&fakeAPI{}, &fakeImporter{}, testLogger())
	status := svc.Status(context.Background())
	assert.True(t, status.Connected)
	assert.Contains(t, status.Message, "owner@example.com")

	down := NewSyncService(&fakeAPI{connErr: errors.New("boom")}, &fakeImporter{}, testLogger())
	status = down.Status(context.Background())
	assert.False(t, status.Connected)
	assert.Equal(t, "boom", status.Message)
}
