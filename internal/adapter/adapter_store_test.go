package adapter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "lasso.dev/pkg/lasso/internal/model"
)

func newStore(t *testing.T) *AdapterStore {
	t.Helper()

	store, err := OpenAdapterStore(AdapterStoreConfig{InMemory: true})
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestAdapterStore_Fingerprints(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.WriteAdapters(ctx, []m.Report{
		sampleReport("p1/Stack", 2, "aaa"),
		sampleReport("p1/Stack", 0, "zzz"),
		sampleReport("p1/Stack", 1, "mmm"),
		sampleReport("p1/Stack@mut-1", 0, "other"),
	}))

	fps, err := store.Fingerprints(ctx, "p1/Stack")
	require.NoError(t, err)
	assert.Equal(t, []string{"zzz", "mmm", "aaa"}, fps, "fingerprints come back in rank order")

	variant, err := store.Fingerprints(ctx, "p1/Stack@mut-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, variant)

	none, err := store.Fingerprints(ctx, "p9/Nothing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAdapterStore_WriteAdaptersReplacesCUT(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.WriteAdapters(ctx, []m.Report{
		sampleReport("p1/Stack", 0, "old-a"),
		sampleReport("p1/Stack", 1, "old-b"),
		sampleReport("p2/Deque", 0, "keep"),
	}))
	require.NoError(t, store.WriteAdapters(ctx, []m.Report{sampleReport("p1/Stack", 0, "new")}))

	fps, err := store.Fingerprints(ctx, "p1/Stack")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, fps)

	kept, err := store.Fingerprints(ctx, "p2/Deque")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, kept)
}

func TestAdapterStore_ClearAdapters(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.WriteAdapters(ctx, []m.Report{
		sampleReport("p1/Stack", 0, "stale"),
		sampleReport("p2/Deque", 0, "keep"),
	}))
	require.NoError(t, store.ClearAdapters(ctx, "p1/Stack"))
	require.NoError(t, store.ClearAdapters(ctx, "p9/Nothing"))

	fps, err := store.Fingerprints(ctx, "p1/Stack")
	require.NoError(t, err)
	assert.Empty(t, fps)

	kept, err := store.Fingerprints(ctx, "p2/Deque")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, kept)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, store.ClearAdapters(cancelled, "p2/Deque"), context.Canceled)
}

func TestAdapterStore_WriteObservations(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	report := sampleReport("p1/Stack", 0, "fp")
	require.NoError(t, store.WriteAdapters(ctx, []m.Report{report}))
	require.NoError(t, store.WriteExecutedSequence(ctx, report, sampleRecord("s1", true)))

	report.Sequences = []m.SequenceRecord{sampleRecord("s1", true), sampleRecord("s2", false)}
	require.NoError(t, store.WriteObservations(ctx, report))

	late := sampleReport("p1/Stack", 3, "unseen")
	late.Sequences = []m.SequenceRecord{sampleRecord("s1", true)}
	require.NoError(t, store.WriteObservations(ctx, late))

	entries, err := store.Adapters(ctx, "p1/Stack")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, StoredAdapter{
		CUT:         "p1/Stack",
		Fingerprint: "fp",
		Rank:        0,
		RunID:       "run-1",
		ClassName:   "Stack",
		Members:     []string{"push -> Push", "pop -> Pop"},
		Sequences:   2,
		Passed:      1,
	}, entries[0])
	assert.Equal(t, "unseen", entries[1].Fingerprint)
	assert.Equal(t, 1, entries[1].Passed)
}

func TestAdapterStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "adapters")

	store, err := OpenAdapterStore(AdapterStoreConfig{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, store.WriteAdapters(ctx, []m.Report{sampleReport("p1/Stack", 0, "fp")}))
	require.NoError(t, store.Close())

	reopened, err := OpenAdapterStore(AdapterStoreConfig{Path: dir})
	require.NoError(t, err)

	defer reopened.Close()

	fps, err := reopened.Fingerprints(ctx, "p1/Stack")
	require.NoError(t, err)
	assert.Equal(t, []string{"fp"}, fps)
}

func TestOpenAdapterStore_RequiresPath(t *testing.T) {
	_, err := OpenAdapterStore(AdapterStoreConfig{})
	require.Error(t, err)
}
