// Package trash is the soft-delete layer on top of the entity store. A
// trashed entity moves, with its owned descendants, into a separate
// trashed-record map and out of the live snapshot; it can be restored to its
// original or a new parent, or hard-deleted by emptying the trash or by
// time-based expiry. Restoration and expiry of the same id serialize on the
// bin lock, so an in-flight restore can never race a concurrent expiry into
// resurrecting a hard-deleted record.
package trash

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/metric"
	"github.com/c360/archivegraph/pkg/timestamp"
	"github.com/c360/archivegraph/store"
	"github.com/c360/archivegraph/types/resource"
)

const component = "Trash"

// Record is the persisted layout of one trashed entity: the full entity
// content including owned descendants (root first, pre-order), the prior
// ownership parent, and the trashing time.
type Record struct {
	ID               string             `json:"id"`
	TrashedAt        int64              `json:"trashed_at"` // unix ms
	OriginalParentID string             `json:"original_parent_id,omitempty"`
	Entities         []*resource.Entity `json:"entity_snapshot"`
	SizeBytes        int64              `json:"size_bytes"`
}

// Config bounds the trash.
type Config struct {
	MaxItems           int           `yaml:"max_items"`
	Retention          time.Duration `yaml:"retention"`
	ExpiringSoonWindow time.Duration `yaml:"expiring_soon_window"`
}

// DefaultConfig returns sensible trash limits.
func DefaultConfig() Config {
	return Config{
		MaxItems:           200,
		Retention:          30 * 24 * time.Hour,
		ExpiringSoonWindow: 3 * 24 * time.Hour,
	}
}

// Dependencies holds everything a Bin needs.
type Dependencies struct {
	Store   *store.Store
	Logger  *slog.Logger
	Metrics *metric.Registry // optional
	Config  Config
	// Now is the clock; nil selects time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// Bin is one trash instance bound to one store.
type Bin struct {
	mu      sync.Mutex
	store   *store.Store
	items   map[string]*Record
	config  Config
	logger  *slog.Logger
	metrics *binMetrics
	now     func() time.Time
}

type binMetrics struct {
	items    prometheus.Gauge
	trashed  prometheus.Counter
	restored prometheus.Counter
	expired  prometheus.Counter
}

// NewBin creates a trash bin over the given store.
func NewBin(deps Dependencies) (*Bin, error) {
	if deps.Store == nil {
		return nil, errors.WrapTrash(errors.ErrInvalidConfig, component, "NewBin", "store is required")
	}
	if deps.Logger == nil {
		return nil, errors.WrapTrash(errors.ErrInvalidConfig, component, "NewBin", "logger is required")
	}
	cfg := deps.Config
	if cfg.MaxItems <= 0 {
		cfg = DefaultConfig()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	b := &Bin{
		store:  deps.Store,
		items:  make(map[string]*Record),
		config: cfg,
		logger: deps.Logger,
		now:    now,
	}

	if deps.Metrics != nil {
		m := &binMetrics{
			items: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "trash_items",
				Help: "Entities currently in the trash",
			}),
			trashed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "trash_moved_total",
				Help: "Entities moved to trash",
			}),
			restored: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "trash_restored_total",
				Help: "Entities restored from trash",
			}),
			expired: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "trash_expired_total",
				Help: "Trashed entities hard-deleted",
			}),
		}
		for name, collector := range map[string]prometheus.Collector{
			"items":          m.items,
			"moved_total":    m.trashed,
			"restored_total": m.restored,
			"expired_total":  m.expired,
		} {
			if err := deps.Metrics.Register("trash", name, collector); err != nil {
				return nil, err
			}
		}
		b.metrics = m
	}

	return b, nil
}

// MoveToTrash soft-deletes id: the entity and its owned descendants leave
// the live store as one trash record. Purely-referenced related entities
// stay live. Rejected when id is already trashed or the item limit is
// reached; the limit is enforced before anything is removed.
func (b *Bin) MoveToTrash(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, trashed := b.items[id]; trashed {
		return errors.WrapTrash(errors.ErrAlreadyTrashed, component, "MoveToTrash",
			fmt.Sprintf("trash %s", id))
	}
	if len(b.items) >= b.config.MaxItems {
		return errors.WrapTrash(errors.ErrTrashFull, component, "MoveToTrash",
			fmt.Sprintf("limit %d reached", b.config.MaxItems))
	}

	removed, parentID, err := b.store.Extract(id)
	if err != nil {
		return err
	}

	record := &Record{
		ID:               id,
		TrashedAt:        timestamp.ToUnixMs(b.now()),
		OriginalParentID: parentID,
		Entities:         removed,
	}
	if data, err := json.Marshal(record.Entities); err == nil {
		record.SizeBytes = int64(len(data))
	}
	b.items[id] = record

	if b.metrics != nil {
		b.metrics.trashed.Inc()
		b.metrics.items.Set(float64(len(b.items)))
	}
	b.logger.Info("entity trashed", "id", id, "descendants", len(removed)-1, "parent", parentID)
	return nil
}

// RestoreOptions steers restoration. A non-empty ParentID restores under
// that parent instead of the originally recorded one.
type RestoreOptions struct {
	ParentID string
	Index    int
}

// DefaultRestoreOptions appends under the originally recorded parent.
func DefaultRestoreOptions() RestoreOptions {
	return RestoreOptions{Index: store.AppendChild}
}

// RestoreFromTrash re-inserts a trashed entity into the live store,
// preferring opts.ParentID when supplied, otherwise the original parent. If
// that parent no longer exists the restore fails with a recoverable error
// rather than silently reparenting to root.
func (b *Bin) RestoreFromTrash(id string, opts RestoreOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, trashed := b.items[id]
	if !trashed {
		return errors.WrapTrash(errors.ErrNotTrashed, component, "RestoreFromTrash",
			fmt.Sprintf("restore %s", id))
	}

	parentID := record.OriginalParentID
	if opts.ParentID != "" {
		parentID = opts.ParentID
	}
	if parentID != "" {
		if _, ok := b.store.Snapshot().Entity(parentID); !ok {
			return errors.WrapTrash(errors.ErrMissingParent, component, "RestoreFromTrash",
				fmt.Sprintf("parent %s for %s", parentID, id))
		}
	}

	if err := b.store.Reinsert(record.Entities, parentID, opts.Index); err != nil {
		return err
	}
	delete(b.items, id)

	if b.metrics != nil {
		b.metrics.restored.Inc()
		b.metrics.items.Set(float64(len(b.items)))
	}
	b.logger.Info("entity restored", "id", id, "parent", parentID)
	return nil
}

// EmptyTrash hard-deletes every trashed record. Irreversible. Dangling
// reference entries pointing at the deleted ids are scrubbed from the live
// store.
func (b *Bin) EmptyTrash() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := len(b.items)
	if count == 0 {
		return 0, nil
	}

	var deleted []string
	for id, record := range b.items {
		for _, e := range record.Entities {
			deleted = append(deleted, e.ID)
		}
		delete(b.items, id)
	}
	if err := b.store.ScrubReferences(deleted); err != nil {
		return count, err
	}

	if b.metrics != nil {
		b.metrics.expired.Add(float64(count))
		b.metrics.items.Set(0)
	}
	b.logger.Info("trash emptied", "records", count)
	return count, nil
}

// AutoCleanup hard-deletes trashed records older than retention. It returns
// the expired ids and is idempotent: re-running it expires nothing new until
// more records age out.
func (b *Bin) AutoCleanup(retention time.Duration) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var expired []string
	var deleted []string
	for id, record := range b.items {
		if timestamp.Age(record.TrashedAt, now) > retention {
			expired = append(expired, id)
			for _, e := range record.Entities {
				deleted = append(deleted, e.ID)
			}
			delete(b.items, id)
		}
	}
	sort.Strings(expired)

	if len(deleted) > 0 {
		if err := b.store.ScrubReferences(deleted); err != nil {
			return expired, err
		}
	}

	if b.metrics != nil && len(expired) > 0 {
		b.metrics.expired.Add(float64(len(expired)))
		b.metrics.items.Set(float64(len(b.items)))
	}
	if len(expired) > 0 {
		b.logger.Info("trash expired", "count", len(expired), "ids", expired)
	}
	return expired, nil
}

// IsTrashed reports whether id currently sits in the trash.
func (b *Bin) IsTrashed(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.items[id]
	return ok
}

// TrashedIDs returns the trashed record ids, sorted for determinism.
func (b *Bin) TrashedIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.items))
	for id := range b.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Record returns a copy of the trash record for id.
func (b *Bin) Record(id string) (*Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	record, ok := b.items[id]
	if !ok {
		return nil, false
	}
	copied := *record
	copied.Entities = make([]*resource.Entity, len(record.Entities))
	for i, e := range record.Entities {
		copied.Entities[i] = e.Clone()
	}
	return &copied, true
}
