// Package transient holds the per-namespace in-memory state spec.md §3
// calls "Transient per-namespace state": a lazily computed index-key field
// set, a compiled index-spec cache, and a query-plan cache that goes stale
// after a burst of writes (§4.5). None of it is persisted; a process
// restart starts every namespace cold.
package transient

import (
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/singleflight"

	"nscat/pkg/fieldrange"
)

// writeClearThreshold is the number of writes to a collection after which
// its plan cache is unconditionally cleared (spec.md §4.5 Staleness /
// rollback), substituting for explicit cardinality statistics.
const writeClearThreshold = 100

// PlanCacheEntry is one previously recorded winning plan for a query
// pattern. Plan is opaque here (any) to avoid pkg/transient depending on
// pkg/queryplan; queryplan stores and retrieves its own *QueryPlan values.
type PlanCacheEntry struct {
	Plan     any
	NScanned int
}

// Namespace is the transient cache for one namespace.
type Namespace struct {
	ns string

	indexKeysOnce sync.Once
	indexKeys     map[string]struct{}

	specGroup singleflight.Group
	specs     sync.Map // compiled index-spec cache key -> compiled spec (any)

	planMu           sync.RWMutex
	plans            map[fieldrange.Pattern]PlanCacheEntry
	writesSinceClear int

	bitsMu   sync.RWMutex
	multiKey *roaring.Bitmap
}

func newNamespace(ns string) *Namespace {
	return &Namespace{ns: ns, multiKey: roaring.New()}
}

// NS returns the namespace this cache belongs to.
func (n *Namespace) NS() string { return n.ns }

// IndexKeys returns the namespace's set of fields covered by some index,
// computing it via compute on first call and memoizing the result for the
// lifetime of this Namespace (spec.md §3's "lazily computed set").
func (n *Namespace) IndexKeys(compute func() map[string]struct{}) map[string]struct{} {
	n.indexKeysOnce.Do(func() { n.indexKeys = compute() })
	return n.indexKeys
}

// InvalidateIndexKeys forces the next IndexKeys call to recompute, used
// after an index is added or dropped.
func (n *Namespace) InvalidateIndexKeys() {
	n.indexKeysOnce = sync.Once{}
	n.indexKeys = nil
}

// CompiledSpec returns the compiled index spec cached under key, computing
// it via compute on a cache miss. Concurrent misses for the same key
// collapse onto a single compute call via singleflight, implementing the
// double-checked lazy initialization spec.md §5 requires without a
// dedicated per-key mutex.
func (n *Namespace) CompiledSpec(key string, compute func() (any, error)) (any, error) {
	if v, ok := n.specs.Load(key); ok {
		return v, nil
	}
	v, err, _ := n.specGroup.Do(key, func() (any, error) {
		if v, ok := n.specs.Load(key); ok {
			return v, nil
		}
		spec, err := compute()
		if err != nil {
			return nil, err
		}
		n.specs.Store(key, spec)
		return spec, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// InvalidateSpec drops a compiled index spec from the cache, used when the
// underlying index descriptor changes.
func (n *Namespace) InvalidateSpec(key string) { n.specs.Delete(key) }

// LookupPlan returns the recorded plan for p, if any.
func (n *Namespace) LookupPlan(p fieldrange.Pattern) (PlanCacheEntry, bool) {
	n.planMu.RLock()
	defer n.planMu.RUnlock()
	e, ok := n.plans[p]
	return e, ok
}

// RegisterPlan records plan as the winner for query pattern p, along with
// the number of records it scanned to produce its result (registerSelf in
// spec.md §4.4).
func (n *Namespace) RegisterPlan(p fieldrange.Pattern, plan any, nScanned int) {
	n.planMu.Lock()
	defer n.planMu.Unlock()
	if n.plans == nil {
		n.plans = make(map[fieldrange.Pattern]PlanCacheEntry)
	}
	n.plans[p] = PlanCacheEntry{Plan: plan, NScanned: nScanned}
}

// ClearPlans drops every cached plan and resets the write counter.
// NoteWrite performs the same clear itself once the staleness threshold
// is reached.
func (n *Namespace) ClearPlans() {
	n.planMu.Lock()
	defer n.planMu.Unlock()
	n.plans = nil
	n.writesSinceClear = 0
}

// NoteWrite records one write against the namespace, clearing the plan
// cache once writeClearThreshold writes have accumulated since the last
// clear.
func (n *Namespace) NoteWrite() {
	n.planMu.Lock()
	defer n.planMu.Unlock()
	n.writesSinceClear++
	if n.writesSinceClear >= writeClearThreshold {
		n.plans = nil
		n.writesSinceClear = 0
	}
}

// SetMultiKey marks index slot idx as multi-key in the roaring-bitmap
// mirror of catalog.Record.MultiKeyIndexBits.
func (n *Namespace) SetMultiKey(idx int) {
	n.bitsMu.Lock()
	defer n.bitsMu.Unlock()
	n.multiKey.Add(uint32(idx))
}

// ClearMultiKey clears index slot idx's multi-key bit.
func (n *Namespace) ClearMultiKey(idx int) {
	n.bitsMu.Lock()
	defer n.bitsMu.Unlock()
	n.multiKey.Remove(uint32(idx))
}

// IsMultiKey reports whether index slot idx is marked multi-key in the
// mirror.
func (n *Namespace) IsMultiKey(idx int) bool {
	n.bitsMu.RLock()
	defer n.bitsMu.RUnlock()
	return n.multiKey.Contains(uint32(idx))
}

// SyncMultiKeyBits rebuilds the roaring-bitmap mirror from the namespace
// record's 64-bit MultiKeyIndexBits mask.
func (n *Namespace) SyncMultiKeyBits(bits uint64) {
	n.bitsMu.Lock()
	defer n.bitsMu.Unlock()
	n.multiKey.Clear()
	for i := 0; i < 64; i++ {
		if bits&(1<<uint(i)) != 0 {
			n.multiKey.Add(uint32(i))
		}
	}
}

// MultiKeyIndexes returns the slot indexes currently marked multi-key.
func (n *Namespace) MultiKeyIndexes() []int {
	n.bitsMu.RLock()
	defer n.bitsMu.RUnlock()
	out := make([]int, 0, int(n.multiKey.GetCardinality()))
	it := n.multiKey.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Registry holds one Namespace cache per live namespace for a database.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]*Namespace)}
}

// Get returns the Namespace cache for ns, creating it on first access.
func (r *Registry) Get(ns string) *Namespace {
	r.mu.RLock()
	n, ok := r.namespaces[ns]
	r.mu.RUnlock()
	if ok {
		return n
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.namespaces[ns]; ok {
		return n
	}
	n = newNamespace(ns)
	r.namespaces[ns] = n
	return n
}

// Drop discards ns's cache and that of every namespace sharing its prefix
// (e.g. ns's index sub-namespaces), e.g. after Catalog.Kill.
func (r *Registry) Drop(ns string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := ns + "."
	for name := range r.namespaces {
		if name == ns || strings.HasPrefix(name, prefix) {
			delete(r.namespaces, name)
		}
	}
}
