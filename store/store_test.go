package store

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/metric"
	"github.com/c360/archivegraph/types/resource"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(Dependencies{Logger: testLogger()})
	require.NoError(t, err)
	return st
}

func TestNew(t *testing.T) {
	t.Run("logger required", func(t *testing.T) {
		_, err := New(Dependencies{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("metrics optional", func(t *testing.T) {
		st, err := New(Dependencies{Logger: testLogger()})
		require.NoError(t, err)
		assert.NotNil(t, st.Snapshot())
	})

	t.Run("with metrics registry", func(t *testing.T) {
		registry := metric.NewRegistry()
		_, err := New(Dependencies{
			Logger:      testLogger(),
			Metrics:     registry,
			ServiceName: "teststore",
		})
		require.NoError(t, err)

		// A second store under the same service name collides.
		_, err = New(Dependencies{
			Logger:      testLogger(),
			Metrics:     registry,
			ServiceName: "teststore",
		})
		assert.Error(t, err)
	})
}

func TestStoreLoad(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Load(archiveDoc()))
	assert.Equal(t, 5, st.Snapshot().Len())

	t.Run("rejected load keeps the previous snapshot", func(t *testing.T) {
		before := st.Snapshot()
		err := st.Load(&resource.Node{
			ID:   "man:X",
			Kind: resource.KindManifest,
			Items: []*resource.Node{
				{ID: "man:Y", Kind: resource.KindManifest},
			},
		})
		require.Error(t, err)
		assert.Same(t, before, st.Snapshot())
	})
}

func TestStoreMutations(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Load(archiveDoc()))

	require.NoError(t, st.AddEntity("man:M",
		&resource.Entity{ID: "cvs:p3", Kind: resource.KindCanvas}, AppendChild))
	m, _ := st.Snapshot().Entity("man:M")
	assert.Equal(t, []string{"cvs:p1", "cvs:p2", "cvs:p3"}, m.OwnedChildren)

	require.NoError(t, st.ReorderChildren("man:M", []string{"cvs:p3", "cvs:p1"}))
	m, _ = st.Snapshot().Entity("man:M")
	assert.Equal(t, []string{"cvs:p3", "cvs:p1", "cvs:p2"}, m.OwnedChildren)

	require.NoError(t, st.RemoveEntity("cvs:p3"))
	_, ok := st.Snapshot().Entity("cvs:p3")
	assert.False(t, ok)

	require.NoError(t, st.AddEntity("",
		&resource.Entity{ID: "col:B", Kind: resource.KindCollection}, AppendChild))
	require.NoError(t, st.AddToCollection("col:B", "man:M"))
	assert.Equal(t, []string{"col:A", "col:B"}, st.Snapshot().CollectionsContaining("man:M"))
	require.NoError(t, st.RemoveFromCollection("col:B", "man:M"))
	assert.Equal(t, []string{"col:A"}, st.Snapshot().CollectionsContaining("man:M"))
}

func TestStoreListeners(t *testing.T) {
	st := newTestStore(t)

	var commits []*Snapshot
	st.Subscribe(func(s *Snapshot) { commits = append(commits, s) })

	require.NoError(t, st.Load(archiveDoc()))
	require.Len(t, commits, 1)
	assert.Same(t, st.Snapshot(), commits[0])

	// Rejected mutations never reach listeners.
	err := st.RemoveEntity("ghost")
	require.Error(t, err)
	assert.Len(t, commits, 1)

	require.NoError(t, st.RemoveEntity("cvs:p2"))
	require.Len(t, commits, 2)
	assert.Equal(t, 4, commits[1].Len())
}

func TestStoreListenerCommitOrder(t *testing.T) {
	st := newTestStore(t)

	var mu sync.Mutex
	var sizes []int
	st.Subscribe(func(s *Snapshot) {
		mu.Lock()
		sizes = append(sizes, s.Len())
		mu.Unlock()
	})

	// Each commit adds exactly one entity, so the listener must observe the
	// live size counting up monotonically even under concurrent writers.
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("man:%d-%d", w, i)
				assert.NoError(t, st.AddEntity("",
					&resource.Entity{ID: id, Kind: resource.KindManifest}, AppendChild))
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, sizes, 2*perWriter)
	for i, size := range sizes {
		require.Equal(t, i+1, size, "snapshots delivered out of commit order")
	}
}

func TestStoreExtractReinsert(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Load(archiveDoc()))

	removed, parentID, err := st.Extract("cvs:p1")
	require.NoError(t, err)
	assert.Equal(t, "man:M", parentID)
	require.Len(t, removed, 2)
	_, live := st.Snapshot().Entity("cvs:p1")
	assert.False(t, live)

	require.NoError(t, st.Reinsert(removed, parentID, AppendChild))
	restored, live := st.Snapshot().Entity("cvs:p1")
	require.True(t, live)
	assert.Equal(t, []string{"ann:a1"}, restored.OwnedChildren)

	t.Run("failed extract returns nothing", func(t *testing.T) {
		removed, parentID, err := st.Extract("ghost")
		require.Error(t, err)
		assert.Nil(t, removed)
		assert.Empty(t, parentID)
	})
}

func TestStoreScrubReferences(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Load(archiveDoc()))

	_, _, err := st.Extract("man:M")
	require.NoError(t, err)
	a, _ := st.Snapshot().Entity("col:A")
	require.Equal(t, []string{"man:M"}, a.ReferencedIDs, "dangling until scrubbed")

	require.NoError(t, st.ScrubReferences([]string{"man:M"}))
	a, _ = st.Snapshot().Entity("col:A")
	assert.Empty(t, a.ReferencedIDs)
}
