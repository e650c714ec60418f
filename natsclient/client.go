// Package natsclient manages the NATS connection and JetStream handles used
// by the persistence layer. It owns connection lifecycle (connect, reconnect
// callbacks, drain on close) so the rest of the system only sees a ready
// jetstream.KeyValue bucket.
package natsclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/archivegraph/errors"
)

const component = "NATSClient"

// Options configures the connection.
type Options struct {
	URL           string
	ClientName    string
	Timeout       time.Duration
	ReconnectWait time.Duration
	MaxReconnects int // negative means unlimited
	DrainTimeout  time.Duration
}

// DefaultOptions returns connection settings suitable for a local or
// single-tenant NATS server.
func DefaultOptions(url string) Options {
	return Options{
		URL:           url,
		ClientName:    "archivegraph",
		Timeout:       5 * time.Second,
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
		DrainTimeout:  10 * time.Second,
	}
}

// Client wraps one NATS connection and its JetStream context.
type Client struct {
	mu      sync.Mutex
	opts    Options
	conn    *nats.Conn
	js      jetstream.JetStream
	logger  *slog.Logger
	started bool
}

// New creates an unconnected client.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.WrapStructural(errors.ErrInvalidConfig, component, "New", "url is required")
	}
	if logger == nil {
		return nil, errors.WrapStructural(errors.ErrInvalidConfig, component, "New", "logger is required")
	}
	return &Client{
		opts:   opts,
		logger: logger.With("component", "natsclient"),
	}, nil
}

// Connect dials the server and initializes JetStream.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.WrapStructural(errors.ErrInvalidConfig, component, "Connect", "already connected")
	}

	natsOpts := []nats.Option{
		nats.Name(c.opts.ClientName),
		nats.Timeout(c.opts.Timeout),
		nats.ReconnectWait(c.opts.ReconnectWait),
		nats.MaxReconnects(c.opts.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.logger.Info("nats reconnected", "url", conn.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			c.logger.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(c.opts.URL, natsOpts...)
	if err != nil {
		return errors.Wrap(err, component, "Connect", fmt.Sprintf("dial %s", c.opts.URL))
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, component, "Connect", "initialize jetstream")
	}

	c.conn = conn
	c.js = js
	c.started = true
	c.logger.Info("nats connected", "url", conn.ConnectedUrl())

	// Respect a context cancelled mid-dial by the caller.
	select {
	case <-ctx.Done():
		c.closeLocked()
		return ctx.Err()
	default:
	}
	return nil
}

// EnsureKV creates the named KV bucket if it does not exist and returns a
// handle to it.
func (c *Client) EnsureKV(ctx context.Context, bucket string) (jetstream.KeyValue, error) {
	c.mu.Lock()
	js := c.js
	c.mu.Unlock()
	if js == nil {
		return nil, errors.WrapStructural(errors.ErrInvalidConfig, component, "EnsureKV", "not connected")
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "archivegraph entity mirror",
		History:     1,
	})
	if err != nil {
		return nil, errors.Wrap(err, component, "EnsureKV", fmt.Sprintf("provision bucket %s", bucket))
	}
	return kv, nil
}

// Close drains the connection, waiting up to DrainTimeout for pending
// operations.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.conn == nil {
		return
	}
	done := make(chan struct{})
	c.conn.SetClosedHandler(func(*nats.Conn) { close(done) })
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed, closing hard", "error", err)
		c.conn.Close()
	} else {
		select {
		case <-done:
		case <-time.After(c.opts.DrainTimeout):
			c.logger.Warn("nats drain timed out, closing hard")
			c.conn.Close()
		}
	}
	c.conn = nil
	c.js = nil
	c.started = false
}

// IsConnected reports whether the client currently holds a live connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.IsConnected()
}
