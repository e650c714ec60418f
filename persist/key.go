package persist

import "encoding/base32"

// kvKeyEncoding maps URI-shaped entity ids onto the restricted character set
// JetStream KV allows in keys.
var kvKeyEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

func kvKey(id string) string {
	return kvKeyEncoding.EncodeToString([]byte(id))
}

// DecodeKey recovers the entity id from a bucket key. Exposed for
// inspection tooling reading the bucket directly.
func DecodeKey(key string) (string, error) {
	raw, err := kvKeyEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
