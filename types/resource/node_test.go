package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	for _, kind := range AllKinds() {
		assert.True(t, kind.IsValid(), kind.String())
	}
	assert.False(t, Kind("folder").IsValid())
	assert.False(t, Kind("").IsValid())

	t.Run("json round trip", func(t *testing.T) {
		data, err := json.Marshal(KindManifest)
		require.NoError(t, err)
		assert.Equal(t, `"manifest"`, string(data))

		var kind Kind
		require.NoError(t, json.Unmarshal([]byte(`"canvas"`), &kind))
		assert.Equal(t, KindCanvas, kind)
	})
}

func TestNodeIsStub(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"id only", &Node{ID: "x"}, true},
		{"id and kind", &Node{ID: "x", Kind: KindManifest}, true},
		{"with items", &Node{ID: "x", Items: []*Node{{ID: "y"}}}, false},
		{"with behaviors", &Node{ID: "x", Behaviors: []string{"paged"}}, false},
		{"with attributes", &Node{ID: "x", Attributes: map[string]any{"label": "l"}}, false},
		{"truncation marker", &Node{ID: "x", Truncated: true}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.IsStub())
		})
	}
}

func TestNodeClone(t *testing.T) {
	original := &Node{
		ID:         "man:M",
		Kind:       KindManifest,
		Behaviors:  []string{"paged"},
		Attributes: map[string]any{"label": "one"},
		Items: []*Node{
			{ID: "cvs:p1", Kind: KindCanvas},
		},
	}

	clone := original.Clone()
	clone.Items[0].ID = "cvs:other"
	clone.Behaviors[0] = "continuous"
	clone.Attributes["label"] = "two"

	assert.Equal(t, "cvs:p1", original.Items[0].ID)
	assert.Equal(t, "paged", original.Behaviors[0])
	assert.Equal(t, "one", original.Attributes["label"])
}

func TestNodeEntity(t *testing.T) {
	node := &Node{
		ID:         "man:M",
		Kind:       KindManifest,
		Behaviors:  []string{"paged"},
		Attributes: map[string]any{"label": "l"},
		Items: []*Node{
			{ID: "cvs:p1", Kind: KindCanvas},
		},
	}

	e := node.Entity()
	assert.Equal(t, "man:M", e.ID)
	assert.Equal(t, KindManifest, e.Kind)
	assert.Equal(t, []string{"paged"}, e.Behaviors)
	assert.Empty(t, e.OwnedChildren, "relations are normalization's job")
	assert.Empty(t, e.ReferencedIDs)

	var nilNode *Node
	assert.Nil(t, nilNode.Entity())
}

func TestMarshalIndent(t *testing.T) {
	node := &Node{ID: "col:A", Kind: KindCollection}
	data, err := node.MarshalIndent()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "col:A"`)

	var decoded Node
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, node.ID, decoded.ID)
}
