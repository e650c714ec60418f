package store

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/metric"
	"github.com/c360/archivegraph/types/resource"
)

// CommitListener observes every committed snapshot. Listeners run
// synchronously under the commit lock, so each listener sees snapshots in
// commit order; a listener that needs to do real work (persistence, indexing)
// must hand off and return, and must not call back into the store.
type CommitListener func(*Snapshot)

// Dependencies holds everything a Store needs. The store is an explicit
// handle passed to every collaborator, so multiple stores (one per open
// document, or one live plus one staging) can coexist and be tested in
// isolation.
type Dependencies struct {
	Logger      *slog.Logger
	Metrics     *metric.Registry // optional
	MaxRefDepth int              // zero selects DefaultMaxRefDepth
	ServiceName string           // metric prefix; defaults to "store"
}

// Store owns the current snapshot and swaps it atomically on each committed
// mutation. All mutations are synchronous; a rejected mutation leaves the
// current snapshot untouched.
type Store struct {
	mu        sync.RWMutex
	snapshot  *Snapshot
	logger    *slog.Logger
	metrics   *storeMetrics
	listeners []CommitListener
}

type storeMetrics struct {
	mutations    *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	liveEntities prometheus.Gauge
}

// New creates a store with an empty snapshot.
func New(deps Dependencies) (*Store, error) {
	if deps.Logger == nil {
		return nil, errors.WrapStructural(errors.ErrInvalidConfig, component, "New", "logger is required")
	}

	st := &Store{
		snapshot: NewSnapshot(deps.MaxRefDepth),
		logger:   deps.Logger,
	}

	if deps.Metrics != nil {
		service := deps.ServiceName
		if service == "" {
			service = "store"
		}
		m := &storeMetrics{
			mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: service + "_mutations_total",
				Help: "Committed store mutations by operation",
			}, []string{"op"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: service + "_rejections_total",
				Help: "Rejected store mutations by operation",
			}, []string{"op"}),
			liveEntities: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: service + "_live_entities",
				Help: "Entities in the live snapshot",
			}),
		}
		for name, collector := range map[string]prometheus.Collector{
			"mutations_total":  m.mutations,
			"rejections_total": m.rejections,
			"live_entities":    m.liveEntities,
		} {
			if err := deps.Metrics.Register(service, name, collector); err != nil {
				return nil, err
			}
		}
		st.metrics = m
	}

	return st, nil
}

// Snapshot returns the current snapshot. Snapshots are immutable; the caller
// may query it freely while the store moves on.
func (st *Store) Snapshot() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snapshot
}

// Subscribe registers a listener for committed snapshots.
func (st *Store) Subscribe(listener CommitListener) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, listener)
}

// apply runs one mutation against the current snapshot and commits the
// result. Mutations of a single store serialize on its lock.
func (st *Store) apply(op string, mutate func(*Snapshot) (*Snapshot, error)) error {
	st.mu.Lock()
	next, err := mutate(st.snapshot)
	if err != nil {
		st.mu.Unlock()
		if st.metrics != nil {
			st.metrics.rejections.WithLabelValues(op).Inc()
		}
		st.logger.Debug("mutation rejected", "op", op, "error", err)
		return err
	}
	st.snapshot = next
	// Notify while still holding the lock: concurrent mutators must not be
	// able to deliver a newer snapshot to a listener before an older one.
	for _, listener := range st.listeners {
		listener(next)
	}
	st.mu.Unlock()

	if st.metrics != nil {
		st.metrics.mutations.WithLabelValues(op).Inc()
		st.metrics.liveEntities.Set(float64(next.Len()))
	}
	return nil
}

// Load replaces the store content with the normalized form of the document.
func (st *Store) Load(doc *resource.Node) error {
	return st.apply("load", func(s *Snapshot) (*Snapshot, error) {
		return Normalize(doc, s.maxDepth)
	})
}

// AddEntity inserts an entity under parentID. See Snapshot.AddEntity.
func (st *Store) AddEntity(parentID string, entity *resource.Entity, index int) error {
	return st.apply("add_entity", func(s *Snapshot) (*Snapshot, error) {
		return s.AddEntity(parentID, entity, index)
	})
}

// RemoveEntity hard-removes an entity and its owned descendants. Live
// deletion normally goes through the trash subsystem instead.
func (st *Store) RemoveEntity(id string) error {
	return st.apply("remove_entity", func(s *Snapshot) (*Snapshot, error) {
		return s.RemoveEntity(id)
	})
}

// MoveEntity atomically reparents an entity. See Snapshot.MoveEntity.
func (st *Store) MoveEntity(id, newParentID string, index int) error {
	return st.apply("move_entity", func(s *Snapshot) (*Snapshot, error) {
		return s.MoveEntity(id, newParentID, index)
	})
}

// ReorderChildren re-sequences the children of one parent. See
// Snapshot.ReorderChildren.
func (st *Store) ReorderChildren(parentID string, ordered []string) error {
	return st.apply("reorder_children", func(s *Snapshot) (*Snapshot, error) {
		return s.ReorderChildren(parentID, ordered)
	})
}

// AddToCollection records a collection reference. See
// Snapshot.AddToCollection.
func (st *Store) AddToCollection(collectionID, targetID string) error {
	return st.apply("add_to_collection", func(s *Snapshot) (*Snapshot, error) {
		return s.AddToCollection(collectionID, targetID)
	})
}

// RemoveFromCollection drops a collection reference. See
// Snapshot.RemoveFromCollection.
func (st *Store) RemoveFromCollection(collectionID, targetID string) error {
	return st.apply("remove_from_collection", func(s *Snapshot) (*Snapshot, error) {
		return s.RemoveFromCollection(collectionID, targetID)
	})
}

// Extract removes id with its owned descendants while leaving referrers'
// entries dangling, and returns the removed subtree for snapshotting. The
// trash subsystem's detach primitive.
func (st *Store) Extract(id string) ([]*resource.Entity, string, error) {
	var removed []*resource.Entity
	var parentID string
	err := st.apply("extract", func(s *Snapshot) (*Snapshot, error) {
		next, r, p, err := s.Extract(id)
		if err != nil {
			return s, err
		}
		removed, parentID = r, p
		return next, nil
	})
	return removed, parentID, err
}

// ScrubReferences removes the given ids from every live reference list. The
// trash subsystem's hard-delete companion: dangling entries only survive
// while the target is recoverable.
func (st *Store) ScrubReferences(ids []string) error {
	return st.apply("scrub_references", func(s *Snapshot) (*Snapshot, error) {
		return s.ScrubReferences(ids)
	})
}

// Reinsert restores a previously extracted subtree under parentID. The trash
// subsystem's restore primitive.
func (st *Store) Reinsert(entities []*resource.Entity, parentID string, index int) error {
	return st.apply("reinsert", func(s *Snapshot) (*Snapshot, error) {
		return s.Reinsert(entities, parentID, index)
	})
}
