// Package archivegraph is a consistency engine for hierarchical,
// cross-referencing descriptions of archival media resources: collections
// that reference other collections or manifests, manifests that exclusively
// own their canvases, and ranges that reference canvases without owning
// them.
//
// # Architecture
//
// The engine keeps a mutable tree-shaped-but-cross-referencing document
// consistent under arbitrary edits, reparenting, duplication, and deletion:
//
//	┌─────────────────────────────────────┐
//	│           Trash (trash)             │  Soft delete, restore,
//	│   records + retention + cleaner     │  retention expiry
//	└──────────────────┬──────────────────┘
//	                   │ extract / reinsert
//	┌──────────────────▼──────────────────┐
//	│        Entity Store (store)         │  Flat id→entity map,
//	│  snapshots, normalize/denormalize   │  parent + ref indices
//	└───────┬──────────────────┬──────────┘
//	        │ validates via    │ mirrors to
//	┌───────▼─────────┐  ┌─────▼──────────┐
//	│ Hierarchy rules │  │ Persist (NATS  │
//	│ (hierarchy,     │  │ JetStream KV,  │
//	│  grammar)       │  │ asynchronous)  │
//	└─────────────────┘  └────────────────┘
//
// Behavior tags on entities are validated separately by the behavior
// package, which always returns a result object so validation can run
// continuously while a document is edited.
//
// Every store mutation is a pure function from one immutable snapshot to the
// next; a rejected mutation returns the previous snapshot unchanged together
// with a classified error (package errors). Structural sharing keeps a
// single-field edit from copying the whole graph.
//
// The visual editor surface, ingest pattern detection, search indexing, and
// multi-device synchronization are external collaborators: they consume the
// store's entity API but do not participate in its consistency guarantees.
package archivegraph
