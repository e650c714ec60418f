package trash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchMoveToTrash(t *testing.T) {
	t.Run("all succeed", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		result := bin.BatchMoveToTrash([]string{"cvs:p1", "cvs:p2"})

		assert.True(t, result.Success)
		assert.Equal(t, []string{"cvs:p1", "cvs:p2"}, result.Succeeded)
		assert.Empty(t, result.Failed)
	})

	t.Run("continues past failures", func(t *testing.T) {
		st, bin, _ := newFixture(t, Config{})
		result := bin.BatchMoveToTrash([]string{"cvs:p1", "ghost", "cvs:p2"})

		assert.False(t, result.Success)
		assert.Equal(t, []string{"cvs:p1", "cvs:p2"}, result.Succeeded)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, "ghost", result.Failed[0].ID)
		assert.NotEmpty(t, result.Failed[0].Reason)

		// The successful sub-operations stay applied.
		_, live := st.Snapshot().Entity("cvs:p1")
		assert.False(t, live)
	})

	t.Run("empty batch succeeds vacuously", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		result := bin.BatchMoveToTrash(nil)
		assert.True(t, result.Success)
		assert.Empty(t, result.Succeeded)
	})
}

func TestBatchRestore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		st, bin, _ := newFixture(t, Config{})
		require.True(t, bin.BatchMoveToTrash([]string{"cvs:p1", "cvs:p2"}).Success)

		result := bin.BatchRestore([]string{"cvs:p1", "cvs:p2"}, DefaultRestoreOptions())
		assert.True(t, result.Success)
		assert.Len(t, result.Succeeded, 2)

		m, _ := st.Snapshot().Entity("man:M")
		assert.ElementsMatch(t, []string{"cvs:p1", "cvs:p2"}, m.OwnedChildren)
	})

	t.Run("partial failure leaves records intact", func(t *testing.T) {
		_, bin, _ := newFixture(t, Config{})
		require.NoError(t, bin.MoveToTrash("cvs:p1"))

		result := bin.BatchRestore([]string{"cvs:p1", "never-trashed"}, DefaultRestoreOptions())
		assert.False(t, result.Success)
		assert.Equal(t, []string{"cvs:p1"}, result.Succeeded)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, "never-trashed", result.Failed[0].ID)
	})
}
