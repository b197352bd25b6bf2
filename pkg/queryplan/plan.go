// Package queryplan implements the query-plan candidate, the competitive
// racing runner, the $or decomposition scanner, and the multi-cursor
// façade (spec.md §4.4–§4.7), grounded on original_source/db/
// queryoptimizer.h's QueryPlan/QueryPlanSet/MultiPlanScanner/MultiCursor
// and on the teacher's pkg/optimizer/pkg/planner naming conventions for
// the surrounding Go doc-comment register.
package queryplan

// Direction is the natural scan direction a plan reads in.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// IndexBound is one bound over an index's key space, derived from a
// fieldrange.Interval during plan construction.
type IndexBound struct {
	Start, End                   any
	StartInclusive, EndInclusive bool
}

// CollectionScanIndexNo marks a QueryPlan as a full collection scan rather
// than an index-backed plan.
const CollectionScanIndexNo = -1

// QueryPlan captures the decision for one candidate: an index (or
// collection scan), a direction, start/end keys, index bounds, and a few
// derived flags the runner and planner use to shortcut work (spec.md
// §4.4).
type QueryPlan struct {
	NS         string
	IndexNo    int // CollectionScanIndexNo for a table scan
	KeyPattern []string
	Direction  Direction

	StartKey, EndKey any
	EndKeyInclusive  bool
	IndexBounds      []IndexBound
	Special          string

	optimal              bool
	exactKeyMatch        bool
	scanAndOrderRequired bool
	unhelpful            bool
}

// NewCollectionScanPlan returns the baseline full-scan candidate, always
// present in a PlanSet alongside any index candidates.
func NewCollectionScanPlan(ns string, dir Direction) *QueryPlan {
	return &QueryPlan{NS: ns, IndexNo: CollectionScanIndexNo, Direction: dir}
}

// NewIndexPlan returns a candidate backed by the index at slot indexNo
// with the given key pattern.
func NewIndexPlan(ns string, indexNo int, keyPattern []string, dir Direction) *QueryPlan {
	return &QueryPlan{NS: ns, IndexNo: indexNo, KeyPattern: keyPattern, Direction: dir}
}

// IsCollectionScan reports whether this plan is the full-scan baseline.
func (p *QueryPlan) IsCollectionScan() bool { return p.IndexNo == CollectionScanIndexNo }

// Optimal reports whether no other plan can do better, signaling the
// runner may terminate the race early once this plan completes.
func (p *QueryPlan) Optimal() bool { return p.optimal }

// SetOptimal marks the plan optimal.
func (p *QueryPlan) SetOptimal(v bool) { p.optimal = v }

// ExactKeyMatch reports whether the index alone resolves the query
// without fetching the document.
func (p *QueryPlan) ExactKeyMatch() bool { return p.exactKeyMatch }

// SetExactKeyMatch sets the exact-key-match flag, typically derived from
// fieldrange.Set.ExactKeyMatch against p.KeyPattern.
func (p *QueryPlan) SetExactKeyMatch(v bool) { p.exactKeyMatch = v }

// ScanAndOrderRequired reports whether the plan's natural order does not
// satisfy the requested sort, requiring an in-memory sort on top.
func (p *QueryPlan) ScanAndOrderRequired() bool { return p.scanAndOrderRequired }

// SetScanAndOrderRequired sets the scan-and-order flag.
func (p *QueryPlan) SetScanAndOrderRequired(v bool) { p.scanAndOrderRequired = v }

// Unhelpful reports whether the index neither narrows the scan
// meaningfully nor aids sort order.
func (p *QueryPlan) Unhelpful() bool { return p.unhelpful }

// SetUnhelpful sets the unhelpful flag.
func (p *QueryPlan) SetUnhelpful(v bool) { p.unhelpful = v }
