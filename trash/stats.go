package trash

import (
	"github.com/c360/archivegraph/pkg/timestamp"
	"github.com/c360/archivegraph/types/resource"
)

// Stats summarizes the trash contents.
type Stats struct {
	Items        int                   `json:"items"`
	TotalSize    int64                 `json:"total_size_bytes"` // approximate
	Oldest       int64                 `json:"oldest,omitempty"` // unix ms
	Newest       int64                 `json:"newest,omitempty"` // unix ms
	ByKind       map[resource.Kind]int `json:"by_kind,omitempty"`
	ExpiringSoon int                   `json:"expiring_soon"`
}

// Stats reports item count, approximate total size, oldest and newest
// trash timestamps, per-kind counts over every snapshotted entity, and how
// many records fall inside the expiring-soon horizon given the configured
// retention.
func (b *Bin) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Stats{
		Items:  len(b.items),
		ByKind: make(map[resource.Kind]int),
	}
	now := b.now()

	for _, record := range b.items {
		stats.TotalSize += record.SizeBytes
		if stats.Oldest == 0 || record.TrashedAt < stats.Oldest {
			stats.Oldest = record.TrashedAt
		}
		if record.TrashedAt > stats.Newest {
			stats.Newest = record.TrashedAt
		}
		for _, e := range record.Entities {
			stats.ByKind[e.Kind]++
		}
		remaining := b.config.Retention - timestamp.Age(record.TrashedAt, now)
		if remaining <= b.config.ExpiringSoonWindow {
			stats.ExpiringSoon++
		}
	}
	return stats
}
