package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/types/resource"
)

func TestParse(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		data := []byte(`{
			"id": "col:A",
			"kind": "collection",
			"items": [
				{
					"id": "man:M",
					"kind": "manifest",
					"behaviors": ["paged"],
					"attributes": {"label": "Field Recordings"},
					"items": [
						{"id": "cvs:p1", "kind": "canvas"}
					]
				}
			]
		}`)

		root, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, "col:A", root.ID)
		assert.Equal(t, resource.KindCollection, root.Kind)
		require.Len(t, root.Items, 1)
		assert.Equal(t, []string{"paged"}, root.Items[0].Behaviors)
		assert.Equal(t, "Field Recordings", root.Items[0].Attributes["label"])
	})

	t.Run("inline node without id gets one minted", func(t *testing.T) {
		data := []byte(`{
			"kind": "manifest",
			"items": [
				{"kind": "canvas", "attributes": {"label": "page"}}
			]
		}`)

		root, err := Parse(data)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(root.ID, "urn:uuid:"))
		assert.True(t, strings.HasPrefix(root.Items[0].ID, "urn:uuid:"))
	})

	t.Run("reference stub without id rejected", func(t *testing.T) {
		data := []byte(`{
			"id": "col:A",
			"kind": "collection",
			"items": [
				{"kind": "manifest"}
			]
		}`)

		_, err := Parse(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("missing kind rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"id": "col:A"}`))
		require.Error(t, err)
		assert.True(t, errors.IsStructural(err))
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"id": "x", "kind": "folder"}`))
		assert.Error(t, err)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"id": "x", "kind": "manifest", "color": "red"}`))
		assert.Error(t, err)
	})

	t.Run("all violations reported together", func(t *testing.T) {
		data := []byte(`{
			"id": "col:A",
			"kind": "collection",
			"items": [
				{"id": "a", "kind": "folder"},
				{"id": "b", "kind": "box"}
			]
		}`)

		_, err := Parse(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ";", "multiple violations joined in one error")
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"id": "x",`))
		assert.Error(t, err)
	})
}
