package badgercache

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCorpus() *core.Corpus {
	return &core.Corpus{
		Chunks: []core.Chunk{
			{
				ID:          "aa00bb11cc22dd33",
				Title:       "Expressions",
				Content:     "Expressions let workflow fields reference data from earlier nodes.",
				Category:    "Guides",
				Subcategory: "expressions",
				SourceFile:  "guides_expressions.json",
				Tags:        []string{"guides", "expressions"},
				Metadata:    map[string]string{"url": "https://example.com/guides/expressions"},
			},
		},
		CategoryCounts: map[string]int{"Guides": 1},
		ProcessedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	corpus := testCorpus()
	fp := &core.Fingerprint{
		UnitCount: 1,
		TotalSize: 512,
		Hash:      "cafebabecafebabe",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	processed := map[string]core.ProcessedRecord{
		"guides_expressions.json": {
			ModTime:     time.Now().UTC().Truncate(time.Microsecond),
			ProcessedAt: time.Now().UTC().Truncate(time.Microsecond),
		},
	}

	require.NoError(t, store.Save(ctx, corpus, fp, processed))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, corpus, loaded)

	meta, err := store.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.SchemaVersion, meta.SchemaVersion)
	assert.Equal(t, *fp, meta.Fingerprint)
	assert.Equal(t, processed, meta.Processed)
}

func TestLoad_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	_, err = store.Meta(ctx)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestSave_NilCorpus(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, storage.ErrNilCorpus)
}

func TestSave_OverwritesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCorpus(), nil, nil))

	second := &core.Corpus{
		ProcessedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.Save(ctx, second, nil, nil))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func TestInvalidate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCorpus(), nil, nil))
	require.NoError(t, store.Invalidate(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
	_, err = store.Meta(ctx)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	assert.NoError(t, store.Invalidate(ctx))
}

func TestClosedStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Close())

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, store.Save(ctx, testCorpus(), nil, nil), storage.ErrStorageClosed)
	assert.ErrorIs(t, store.Invalidate(ctx), storage.ErrStorageClosed)
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir, false)
	require.NoError(t, err)

	corpus := testCorpus()
	require.NoError(t, store.Save(ctx, corpus, nil, nil))
	require.NoError(t, store.Close())

	// Reopen and confirm the corpus survived.
	store, err = Open(dir, false)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, corpus, loaded)
}
