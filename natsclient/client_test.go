package natsclient

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/archivegraph/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	t.Run("url required", func(t *testing.T) {
		_, err := New(Options{}, testLogger())
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("logger required", func(t *testing.T) {
		_, err := New(DefaultOptions("nats://127.0.0.1:4222"), nil)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("defaults", func(t *testing.T) {
		opts := DefaultOptions("nats://127.0.0.1:4222")
		assert.Equal(t, "archivegraph", opts.ClientName)
		assert.Equal(t, 5*time.Second, opts.Timeout)
		assert.Equal(t, -1, opts.MaxReconnects)
	})
}

func TestUnconnectedClient(t *testing.T) {
	client, err := New(DefaultOptions("nats://127.0.0.1:4222"), testLogger())
	require.NoError(t, err)

	assert.False(t, client.IsConnected())

	_, err = client.EnsureKV(context.Background(), "bucket")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	// Close before connect is safe.
	client.Close()
}
