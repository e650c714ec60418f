package trash

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/store"
	"github.com/c360/archivegraph/types/resource"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clock is a settable test clock.
type clock struct {
	current time.Time
}

func newClock() *clock {
	return &clock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time { return c.current }

func (c *clock) advance(d time.Duration) { c.current = c.current.Add(d) }

// archiveDoc: collection A references manifest M which owns two canvases.
func archiveDoc() *resource.Node {
	return &resource.Node{
		ID:   "col:A",
		Kind: resource.KindCollection,
		Items: []*resource.Node{
			{
				ID:         "man:M",
				Kind:       resource.KindManifest,
				Attributes: map[string]any{"label": "Field Recordings"},
				Items: []*resource.Node{
					{ID: "cvs:p1", Kind: resource.KindCanvas,
						Attributes: map[string]any{"label": "page 1"}},
					{ID: "cvs:p2", Kind: resource.KindCanvas},
				},
			},
		},
	}
}

func newFixture(t *testing.T, cfg Config) (*store.Store, *Bin, *clock) {
	t.Helper()
	st, err := store.New(store.Dependencies{Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, st.Load(archiveDoc()))

	clk := newClock()
	bin, err := NewBin(Dependencies{
		Store:  st,
		Logger: testLogger(),
		Config: cfg,
		Now:    clk.now,
	})
	require.NoError(t, err)
	return st, bin, clk
}

func TestNewBin(t *testing.T) {
	t.Run("store and logger required", func(t *testing.T) {
		_, err := NewBin(Dependencies{Logger: testLogger()})
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)

		st, err := store.New(store.Dependencies{Logger: testLogger()})
		require.NoError(t, err)
		_, err = NewBin(Dependencies{Store: st})
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("zero config selects defaults", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		assert.Equal(t, DefaultConfig().MaxItems, bin.config.MaxItems)
	})
}

func TestMoveToTrash(t *testing.T) {
	t.Run("subtree leaves the live store as one record", func(t *testing.T) {
		st, bin, clk := newFixture(t, Config{})

		require.NoError(t, bin.MoveToTrash("man:M"))

		snap := st.Snapshot()
		for _, id := range []string{"man:M", "cvs:p1", "cvs:p2"} {
			_, live := snap.Entity(id)
			assert.False(t, live, id)
		}
		// The referencing collection stays live with its entry dangling.
		a, live := snap.Entity("col:A")
		require.True(t, live)
		assert.Equal(t, []string{"man:M"}, a.ReferencedIDs)

		record, ok := bin.Record("man:M")
		require.True(t, ok)
		assert.Equal(t, clk.current.UnixMilli(), record.TrashedAt)
		assert.Empty(t, record.OriginalParentID)
		require.Len(t, record.Entities, 3)
		assert.Equal(t, "man:M", record.Entities[0].ID)
		assert.Positive(t, record.SizeBytes)
	})

	t.Run("owned entity records its parent", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		require.NoError(t, bin.MoveToTrash("cvs:p1"))
		record, ok := bin.Record("cvs:p1")
		require.True(t, ok)
		assert.Equal(t, "man:M", record.OriginalParentID)
	})

	t.Run("already trashed rejected", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		require.NoError(t, bin.MoveToTrash("cvs:p1"))
		err := bin.MoveToTrash("cvs:p1")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrAlreadyTrashed)
		assert.True(t, errors.IsTrash(err))
	})

	t.Run("limit enforced before removal", func(t *testing.T) {
		st, bin, _ := newFixture(t, Config{MaxItems: 1, Retention: time.Hour, ExpiringSoonWindow: time.Minute})
		require.NoError(t, bin.MoveToTrash("cvs:p1"))

		err := bin.MoveToTrash("cvs:p2")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrTrashFull)
		_, live := st.Snapshot().Entity("cvs:p2")
		assert.True(t, live, "rejected trashing removes nothing")
	})

	t.Run("unknown id rejected", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		err := bin.MoveToTrash("ghost")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrNotFound)
		assert.False(t, bin.IsTrashed("ghost"))
	})
}

func TestRestoreFromTrash(t *testing.T) {
	t.Run("trash then restore is the identity", func(t *testing.T) {
		st, bin, _ := newFixture(t, Config{})
		before, _ := st.Snapshot().Entity("man:M")
		beforeClone := before.Clone()

		require.NoError(t, bin.MoveToTrash("man:M"))
		require.NoError(t, bin.RestoreFromTrash("man:M", DefaultRestoreOptions()))

		after, live := st.Snapshot().Entity("man:M")
		require.True(t, live)
		assert.True(t, beforeClone.ContentEquals(after), "content survives the round trip")
		assert.Equal(t, beforeClone.OwnedChildren, after.OwnedChildren)

		// The dangling collection entry is live again, exactly once.
		a, _ := st.Snapshot().Entity("col:A")
		assert.Equal(t, []string{"man:M"}, a.ReferencedIDs)
		assert.Equal(t, []string{"col:A"}, st.Snapshot().CollectionsContaining("man:M"))

		assert.False(t, bin.IsTrashed("man:M"))
	})

	t.Run("restore under an explicit parent", func(t *testing.T) {
		st, bin, _ := newFixture(t, Config{})
		require.NoError(t, st.AddEntity("",
			&resource.Entity{ID: "col:B", Kind: resource.KindCollection}, store.AppendChild))

		require.NoError(t, bin.MoveToTrash("man:M"))
		require.NoError(t, bin.RestoreFromTrash("man:M", RestoreOptions{
			ParentID: "col:B",
			Index:    store.AppendChild,
		}))

		b, _ := st.Snapshot().Entity("col:B")
		assert.Equal(t, []string{"man:M"}, b.ReferencedIDs)
	})

	t.Run("missing original parent fails recoverably", func(t *testing.T) {
		st, bin, _ := newFixture(t, Config{})
		require.NoError(t, bin.MoveToTrash("cvs:p1"))
		require.NoError(t, bin.MoveToTrash("man:M"))

		err := bin.RestoreFromTrash("cvs:p1", DefaultRestoreOptions())
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMissingParent)
		assert.True(t, bin.IsTrashed("cvs:p1"), "failed restore keeps the record")

		// Restoring the manifest first makes the canvas restorable again.
		require.NoError(t, bin.RestoreFromTrash("man:M", DefaultRestoreOptions()))
		require.NoError(t, bin.RestoreFromTrash("cvs:p1", DefaultRestoreOptions()))
		_, live := st.Snapshot().Entity("cvs:p1")
		assert.True(t, live)
	})

	t.Run("not trashed rejected", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		err := bin.RestoreFromTrash("man:M", DefaultRestoreOptions())
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrNotTrashed)
	})

	t.Run("restore under a parent the trashed entity references rejected", func(t *testing.T) {
		st, bin, _ := newFixture(t, Config{})
		require.NoError(t, st.AddEntity("",
			&resource.Entity{ID: "col:B", Kind: resource.KindCollection}, store.AppendChild))
		require.NoError(t, st.AddToCollection("col:A", "col:B"))

		require.NoError(t, bin.MoveToTrash("col:A"))

		// col:A references col:B, so attaching it under col:B would close a
		// reference cycle.
		err := bin.RestoreFromTrash("col:A", RestoreOptions{
			ParentID: "col:B",
			Index:    store.AppendChild,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrCycleDetected)
		assert.True(t, bin.IsTrashed("col:A"), "failed restore keeps the record")
		_, live := st.Snapshot().Entity("col:A")
		assert.False(t, live, "rejected restore commits nothing")

		// Restoring standalone still works and relinks both references.
		require.NoError(t, bin.RestoreFromTrash("col:A", DefaultRestoreOptions()))
		a, live := st.Snapshot().Entity("col:A")
		require.True(t, live)
		assert.Equal(t, []string{"man:M", "col:B"}, a.ReferencedIDs)
	})
}

func TestEmptyTrash(t *testing.T) {
	st, bin, _ := newFixture(t, Config{})
	require.NoError(t, bin.MoveToTrash("man:M"))

	count, err := bin.EmptyTrash()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, bin.TrashedIDs())

	// Hard deletion scrubs the dangling entry.
	a, _ := st.Snapshot().Entity("col:A")
	assert.Empty(t, a.ReferencedIDs)

	err = bin.RestoreFromTrash("man:M", DefaultRestoreOptions())
	assert.ErrorIs(t, err, errors.ErrNotTrashed, "emptied records are unrecoverable")

	t.Run("empty bin is a no-op", func(t *testing.T) {
		count, err := bin.EmptyTrash()
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestAutoCleanup(t *testing.T) {
	retention := 30 * 24 * time.Hour
	st, bin, clk := newFixture(t, Config{
		MaxItems: 10, Retention: retention, ExpiringSoonWindow: 3 * 24 * time.Hour,
	})

	require.NoError(t, bin.MoveToTrash("cvs:p1"))
	clk.advance(10 * 24 * time.Hour)
	require.NoError(t, bin.MoveToTrash("man:M"))

	t.Run("nothing expires inside retention", func(t *testing.T) {
		expired, err := bin.AutoCleanup(retention)
		require.NoError(t, err)
		assert.Empty(t, expired)
	})

	t.Run("only aged-out records expire", func(t *testing.T) {
		clk.advance(21 * 24 * time.Hour) // cvs:p1 is now 31 days old, man:M 21
		expired, err := bin.AutoCleanup(retention)
		require.NoError(t, err)
		assert.Equal(t, []string{"cvs:p1"}, expired)
		assert.True(t, bin.IsTrashed("man:M"))
	})

	t.Run("idempotent until more records age out", func(t *testing.T) {
		expired, err := bin.AutoCleanup(retention)
		require.NoError(t, err)
		assert.Empty(t, expired)
	})

	t.Run("expiry scrubs dangling references", func(t *testing.T) {
		clk.advance(10 * 24 * time.Hour)
		expired, err := bin.AutoCleanup(retention)
		require.NoError(t, err)
		assert.Equal(t, []string{"man:M"}, expired)

		a, _ := st.Snapshot().Entity("col:A")
		assert.Empty(t, a.ReferencedIDs)
	})
}

func TestRecordCopying(t *testing.T) {
	_, bin, _ := newFixture(t, Config{})
	require.NoError(t, bin.MoveToTrash("man:M"))

	record, ok := bin.Record("man:M")
	require.True(t, ok)
	record.Entities[0].Attributes["label"] = "tampered"

	fresh, _ := bin.Record("man:M")
	assert.Equal(t, "Field Recordings", fresh.Entities[0].Attributes["label"],
		"returned records are copies")

	_, ok = bin.Record("ghost")
	assert.False(t, ok)
}

func TestTrashedIDs(t *testing.T) {
	_, bin, _ := newFixture(t, Config{})
	assert.Empty(t, bin.TrashedIDs())

	require.NoError(t, bin.MoveToTrash("cvs:p2"))
	require.NoError(t, bin.MoveToTrash("cvs:p1"))
	assert.Equal(t, []string{"cvs:p1", "cvs:p2"}, bin.TrashedIDs())
}
