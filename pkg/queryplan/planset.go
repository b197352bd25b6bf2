package queryplan

import (
	"nscat/pkg/dberror"
	"nscat/pkg/fieldrange"
	"nscat/pkg/transient"
)

// IndexInfo is the slice of a catalog.IndexDescriptor the planner needs to
// decide whether an index is worth racing: its slot number, name, and key
// pattern. pkg/queryplan does not import pkg/catalog directly so that it
// can be tested against fakes without a real mapped catalog file.
type IndexInfo struct {
	No         int
	Name       string
	KeyPattern []string
}

// BuildParams is the input to BuildPlanSet: everything PlanSet construction
// (spec.md §4.5 steps 1-4) needs to know about one query.
type BuildParams struct {
	NS      string
	Hint    string // index name; empty if the caller gave no hint
	Min     any    // non-nil for an explicit $min/$max index plan
	Max     any
	Ranges  *fieldrange.Set
	Pattern fieldrange.Pattern
	Cache   *transient.Namespace // nil disables the plan cache lookup
	Indexes []IndexInfo
}

// PlanSet is the ordered list of candidate plans the Runner will race.
type PlanSet struct {
	NS                   string
	Plans                []*QueryPlan
	UsingPrerecordedPlan bool
}

// BuildPlanSet constructs a PlanSet following spec.md §4.5's precedence:
// an index hint short-circuits everything else; an explicit min/max pair
// forces a single bounded index plan; a non-stale cached winner for this
// query's pattern is raced alone against a collection-scan fallback;
// otherwise every index whose key pattern the query's field ranges touch
// is raced alongside the collection scan.
func BuildPlanSet(p BuildParams) (*PlanSet, error) {
	ps := &PlanSet{NS: p.NS}

	if p.Hint != "" {
		for _, idx := range p.Indexes {
			if idx.Name == p.Hint {
				ps.Plans = append(ps.Plans, NewIndexPlan(p.NS, idx.No, idx.KeyPattern, Forward))
				return ps, nil
			}
		}
		return nil, dberror.Userf("queryplan", "hint references unknown index: %s", p.Hint)
	}

	if p.Min != nil || p.Max != nil {
		plan := NewIndexPlan(p.NS, minMaxIndexNo(p), minMaxKeyPattern(p), Forward)
		plan.StartKey = p.Min
		plan.EndKey = p.Max
		plan.EndKeyInclusive = true
		plan.SetOptimal(true)
		ps.Plans = append(ps.Plans, plan)
		return ps, nil
	}

	if p.Cache != nil {
		if entry, ok := p.Cache.LookupPlan(p.Pattern); ok {
			if plan, ok := entry.Plan.(*QueryPlan); ok {
				ps.UsingPrerecordedPlan = true
				ps.Plans = append(ps.Plans, plan, NewCollectionScanPlan(p.NS, Forward))
				return ps, nil
			}
		}
	}

	for _, idx := range p.Indexes {
		if p.Ranges.Overlaps(idx.KeyPattern) {
			plan := NewIndexPlan(p.NS, idx.No, idx.KeyPattern, Forward)
			plan.SetExactKeyMatch(p.Ranges.ExactKeyMatch(idx.KeyPattern))
			ps.Plans = append(ps.Plans, plan)
		}
	}
	ps.Plans = append(ps.Plans, NewCollectionScanPlan(p.NS, Forward))
	return ps, nil
}

// RegisterWinner records plan's win in cache under pattern, implementing
// registerSelf (spec.md §4.4): the next query with the same shape will
// try this plan first via the plan-cache branch of BuildPlanSet.
func RegisterWinner(cache *transient.Namespace, pattern fieldrange.Pattern, plan *QueryPlan, nScanned int) {
	if cache == nil {
		return
	}
	cache.RegisterPlan(pattern, plan, nScanned)
}

func minMaxIndexNo(p BuildParams) int {
	if len(p.Indexes) > 0 {
		return p.Indexes[0].No
	}
	return CollectionScanIndexNo
}

func minMaxKeyPattern(p BuildParams) []string {
	if len(p.Indexes) > 0 {
		return p.Indexes[0].KeyPattern
	}
	return nil
}
