package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/archivegraph/types/resource"
)

func TestRelationshipTypeFor(t *testing.T) {
	tests := []struct {
		name       string
		parentKind resource.Kind
		childKind  resource.Kind
		want       RelationshipType
	}{
		{
			name:       "no parent means no containment",
			parentKind: "",
			childKind:  resource.KindManifest,
			want:       None,
		},
		{
			name:       "collection holds manifest by reference",
			parentKind: resource.KindCollection,
			childKind:  resource.KindManifest,
			want:       Reference,
		},
		{
			name:       "collection holds collection by reference",
			parentKind: resource.KindCollection,
			childKind:  resource.KindCollection,
			want:       Reference,
		},
		{
			name:       "manifest owns canvas",
			parentKind: resource.KindManifest,
			childKind:  resource.KindCanvas,
			want:       Ownership,
		},
		{
			name:       "manifest owns range",
			parentKind: resource.KindManifest,
			childKind:  resource.KindRange,
			want:       Ownership,
		},
		{
			name:       "range holds canvas by reference",
			parentKind: resource.KindRange,
			childKind:  resource.KindCanvas,
			want:       Reference,
		},
		{
			name:       "canvas owns annotation",
			parentKind: resource.KindCanvas,
			childKind:  resource.KindAnnotation,
			want:       Ownership,
		},
		{
			name:       "unknown pair fails closed into ownership",
			parentKind: resource.Kind("unknown"),
			childKind:  resource.Kind("mystery"),
			want:       Ownership,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelationshipTypeFor(tt.parentKind, tt.childKind)
			assert.Equal(t, tt.want, got)
			// Pure and order-independent: a second call yields the same result.
			assert.Equal(t, got, RelationshipTypeFor(tt.parentKind, tt.childKind))
		})
	}
}

func TestValidChildKinds(t *testing.T) {
	assert.Equal(t,
		[]resource.Kind{resource.KindCollection, resource.KindManifest},
		ValidChildKinds(resource.KindCollection))
	assert.Equal(t,
		[]resource.Kind{resource.KindCanvas, resource.KindRange},
		ValidChildKinds(resource.KindManifest))
	assert.Empty(t, ValidChildKinds(resource.KindAnnotation))
	assert.Nil(t, ValidChildKinds(resource.Kind("unknown")))
}

func TestIsValidChild(t *testing.T) {
	assert.True(t, IsValidChild(resource.KindCollection, resource.KindManifest))
	assert.True(t, IsValidChild(resource.KindRange, resource.KindRange))
	assert.False(t, IsValidChild(resource.KindManifest, resource.KindManifest))
	assert.False(t, IsValidChild(resource.KindCanvas, resource.KindCanvas))
	assert.False(t, IsValidChild(resource.KindAnnotation, resource.KindCanvas))
}

func TestCanHaveMultipleParents(t *testing.T) {
	assert.True(t, CanHaveMultipleParents(resource.KindManifest))
	assert.True(t, CanHaveMultipleParents(resource.KindCanvas))
	assert.False(t, CanHaveMultipleParents(resource.KindCollection))
	assert.False(t, CanHaveMultipleParents(resource.KindRange))
	assert.False(t, CanHaveMultipleParents(resource.KindAnnotation))
}

func TestIsStandalone(t *testing.T) {
	assert.True(t, IsStandalone(resource.KindManifest))
	assert.True(t, IsStandalone(resource.KindCollection))
	assert.False(t, IsStandalone(resource.KindCanvas))
	assert.False(t, IsStandalone(resource.KindRange))
	assert.False(t, IsStandalone(resource.KindAnnotation))
}
