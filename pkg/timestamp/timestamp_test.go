package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversions(t *testing.T) {
	moment := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	ms := ToUnixMs(moment)

	assert.Equal(t, moment.UnixMilli(), ms)
	assert.True(t, FromUnixMs(ms).Equal(moment))

	t.Run("zero values", func(t *testing.T) {
		assert.Zero(t, ToUnixMs(time.Time{}))
		assert.True(t, FromUnixMs(0).IsZero())
		assert.Empty(t, Format(0))
		assert.Zero(t, Age(0, moment))
	})
}

func TestFormat(t *testing.T) {
	moment := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-01T12:30:00Z", Format(ToUnixMs(moment)))
}

func TestAge(t *testing.T) {
	moment := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := moment.Add(90 * time.Minute)
	assert.Equal(t, 90*time.Minute, Age(ToUnixMs(moment), later))
}

func TestNow(t *testing.T) {
	before := time.Now().UnixMilli()
	got := Now()
	after := time.Now().UnixMilli()
	assert.GreaterOrEqual(t, got, before)
	assert.LessOrEqual(t, got, after)
}
