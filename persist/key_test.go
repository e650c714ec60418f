package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVKey(t *testing.T) {
	ids := []string{
		"urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"https://example.org/manifest/m1",
		"col:A",
		"id with spaces and * wildcards >",
	}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			key := kvKey(id)
			// JetStream keys cannot carry separators or wildcard characters.
			assert.NotContains(t, key, ".")
			assert.NotContains(t, key, "*")
			assert.NotContains(t, key, ">")
			assert.NotContains(t, key, " ")
			assert.NotContains(t, key, "/")

			decoded, err := DecodeKey(key)
			require.NoError(t, err)
			assert.Equal(t, id, decoded)
		})
	}

	t.Run("garbage key rejected", func(t *testing.T) {
		_, err := DecodeKey("not!base32")
		assert.Error(t, err)
	})
}
