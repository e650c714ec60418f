// Package persist mirrors committed store snapshots into a NATS JetStream
// key-value bucket. Persistence is the only asynchronous boundary of the
// core: a mutation is committed in memory immediately, and persistence
// failures are reported asynchronously without unwinding the in-memory
// commit. Callers must treat the bucket as eventually consistent, not
// transactional.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/metric"
	"github.com/c360/archivegraph/pkg/timestamp"
	"github.com/c360/archivegraph/store"
)

const component = "Persister"

// Ack reports the asynchronous outcome of persisting one snapshot.
type Ack struct {
	Generation uint64
	Err        error
	Finished   int64 // unix ms
}

// Config bounds the persister.
type Config struct {
	// QueueSize is the pending-snapshot buffer. When full, the oldest
	// pending snapshot is dropped: only the newest state matters, every
	// snapshot is a full mirror.
	QueueSize int `yaml:"queue_size"`
	// WriteTimeout bounds one KV write pass.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns sensible persister defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:    64,
		WriteTimeout: 10 * time.Second,
	}
}

// Dependencies defines all dependencies needed by the Persister.
type Dependencies struct {
	KVBucket jetstream.KeyValue // NATS KV bucket for persistence
	Logger   *slog.Logger
	Metrics  *metric.Registry // optional
	Config   Config
	// Acks receives one Ack per processed snapshot when non-nil. Sends are
	// non-blocking; a slow consumer misses acks, never blocks persistence.
	Acks chan<- Ack
}

// Persister subscribes to store commits and mirrors each snapshot into the
// KV bucket in the background.
type Persister struct {
	kvBucket jetstream.KeyValue
	logger   *slog.Logger
	config   Config
	acks     chan<- Ack

	queue      chan *store.Snapshot
	generation uint64
	mu         sync.Mutex
	started    bool
	cancel     context.CancelFunc
	done       chan struct{}

	metrics *persistMetrics
}

type persistMetrics struct {
	queueDepth prometheus.Gauge
	persisted  prometheus.Counter
	failed     prometheus.Counter
	dropped    prometheus.Counter
}

// New creates a persister.
func New(deps Dependencies) (*Persister, error) {
	if deps.KVBucket == nil {
		return nil, errors.WrapStructural(errors.ErrInvalidConfig, component, "New", "kvBucket is required")
	}
	if deps.Logger == nil {
		return nil, errors.WrapStructural(errors.ErrInvalidConfig, component, "New", "logger is required")
	}
	cfg := deps.Config
	if cfg.QueueSize <= 0 {
		cfg = DefaultConfig()
	}

	p := &Persister{
		kvBucket: deps.KVBucket,
		logger:   deps.Logger,
		config:   cfg,
		acks:     deps.Acks,
		queue:    make(chan *store.Snapshot, cfg.QueueSize),
		done:     make(chan struct{}),
	}

	if deps.Metrics != nil {
		m := &persistMetrics{
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "persist_queue_depth",
				Help: "Snapshots waiting to be mirrored",
			}),
			persisted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "persist_snapshots_total",
				Help: "Snapshots mirrored to the KV bucket",
			}),
			failed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "persist_failures_total",
				Help: "Snapshot mirror passes that failed",
			}),
			dropped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "persist_dropped_total",
				Help: "Pending snapshots dropped in favor of newer ones",
			}),
		}
		for name, collector := range map[string]prometheus.Collector{
			"queue_depth":     m.queueDepth,
			"snapshots_total": m.persisted,
			"failures_total":  m.failed,
			"dropped_total":   m.dropped,
		} {
			if err := deps.Metrics.Register("persist", name, collector); err != nil {
				return nil, err
			}
		}
		p.metrics = m
	}

	return p, nil
}

// Start launches the background writer. The persister subscribes itself to
// the given store.
func (p *Persister) Start(ctx context.Context, st *store.Store) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.WrapStructural(errors.ErrInvalidConfig, component, "Start", "already started")
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	st.Subscribe(p.enqueue)
	go p.run(runCtx)

	p.logger.Info("persister started", "queue_size", p.config.QueueSize)
	return nil
}

// Stop cancels the background writer and waits for it to drain.
func (p *Persister) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()
	if !started || cancel == nil {
		return
	}
	cancel()
	<-p.done
}

// enqueue hands a committed snapshot to the writer without blocking the
// commit path. A full queue sheds the oldest pending snapshot.
func (p *Persister) enqueue(snapshot *store.Snapshot) {
	for {
		select {
		case p.queue <- snapshot:
			if p.metrics != nil {
				p.metrics.queueDepth.Set(float64(len(p.queue)))
			}
			return
		default:
		}
		select {
		case <-p.queue:
			if p.metrics != nil {
				p.metrics.dropped.Inc()
			}
		default:
		}
	}
}

func (p *Persister) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			// Final drain: mirror the newest pending snapshot, if any.
			if snapshot := p.newestPending(); snapshot != nil {
				p.write(context.Background(), snapshot)
			}
			return
		case snapshot := <-p.queue:
			// Coalesce: skip straight to the newest pending snapshot.
			if newer := p.newestPending(); newer != nil {
				snapshot = newer
			}
			p.write(ctx, snapshot)
		}
	}
}

func (p *Persister) newestPending() *store.Snapshot {
	var newest *store.Snapshot
	for {
		select {
		case snapshot := <-p.queue:
			if newest != nil && p.metrics != nil {
				p.metrics.dropped.Inc()
			}
			newest = snapshot
		default:
			if p.metrics != nil {
				p.metrics.queueDepth.Set(float64(len(p.queue)))
			}
			return newest
		}
	}
}

// write mirrors one snapshot: every live entity is put under its id, and
// keys for ids no longer live are deleted.
func (p *Persister) write(ctx context.Context, snapshot *store.Snapshot) {
	p.mu.Lock()
	p.generation++
	generation := p.generation
	p.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, p.config.WriteTimeout)
	defer cancel()

	err := p.mirror(writeCtx, snapshot)
	if err != nil {
		if p.metrics != nil {
			p.metrics.failed.Inc()
		}
		p.logger.Error("snapshot persistence failed", "generation", generation, "error", err)
	} else {
		if p.metrics != nil {
			p.metrics.persisted.Inc()
		}
		p.logger.Debug("snapshot persisted", "generation", generation, "entities", snapshot.Len())
	}

	if p.acks != nil {
		select {
		case p.acks <- Ack{Generation: generation, Err: err, Finished: timestamp.Now()}:
		default:
		}
	}
}

func (p *Persister) mirror(ctx context.Context, snapshot *store.Snapshot) error {
	live := make(map[string]bool)
	for _, id := range snapshot.IDs() {
		entity, ok := snapshot.Entity(id)
		if !ok {
			continue
		}
		live[kvKey(id)] = true
		data, err := json.Marshal(entity)
		if err != nil {
			return errors.Wrap(err, component, "mirror", "marshal entity")
		}
		if _, err := p.kvBucket.Put(ctx, kvKey(id), data); err != nil {
			return errors.Wrap(err, component, "mirror", "put entity")
		}
	}

	keys, err := p.kvBucket.Keys(ctx)
	if err != nil {
		// An empty bucket reports ErrNoKeysFound; nothing to prune then.
		if err == jetstream.ErrNoKeysFound {
			return nil
		}
		return errors.Wrap(err, component, "mirror", "list keys")
	}
	for _, key := range keys {
		if !live[key] {
			if err := p.kvBucket.Delete(ctx, key); err != nil {
				return errors.Wrap(err, component, "mirror", "delete stale key")
			}
		}
	}
	return nil
}
