package queryplan

// ClauseQuery is one $or arm of a decomposed query, expressed as a plain
// field-to-condition map. This package treats query shapes opaquely: it
// merges and rewrites maps without interpreting their contents, leaving
// condition semantics to whatever fieldrange.Builder / matcher the caller
// supplies.
type ClauseQuery map[string]any

// OrQuery is a query containing a top-level $or, decomposed into its
// constituent clauses plus whatever conditions apply regardless of which
// clause matched.
type OrQuery struct {
	Or   []ClauseQuery
	Nor  []ClauseQuery
	Rest ClauseQuery
}

// ClauseResult is the outcome of racing one $or clause.
type ClauseResult struct {
	ClauseIndex int
	Winner      *QueryPlan
	Op          QueryOp
	Err         error
}

// ClauseRunner races the plans for one rewritten clause query and returns
// the winner, mirroring what a caller would get back from building a
// PlanSet and calling Runner.Run for that single clause.
type ClauseRunner func(query ClauseQuery) (*QueryPlan, QueryOp, error)

// MultiPlanScanner decomposes a top-level $or into a sequence of mutually
// exclusive clause queries per spec.md §4.6: clause i is run as Rest AND
// Or[i], AND NOT any of Or[0..i-1] or the query's own pre-existing $nor —
// so a document matching more than one $or arm is only ever produced by
// the first arm it satisfies, without a later cursor re-testing documents
// already returned by an earlier one.
type MultiPlanScanner struct {
	NS   string
	Base OrQuery
}

// NewMultiPlanScanner returns a scanner over q's $or clauses.
func NewMultiPlanScanner(ns string, q OrQuery) *MultiPlanScanner {
	return &MultiPlanScanner{NS: ns, Base: q}
}

// rewriteQuery builds the query for clause i: Rest's conditions, clause
// i's conditions, and a growing $nor covering the query's original $nor
// plus every earlier $or clause (spec.md §4.6's "growing $nor").
func (m *MultiPlanScanner) rewriteQuery(i int) ClauseQuery {
	q := make(ClauseQuery, len(m.Base.Rest)+len(m.Base.Or[i])+1)
	for k, v := range m.Base.Rest {
		q[k] = v
	}
	for k, v := range m.Base.Or[i] {
		q[k] = v
	}

	nor := make([]ClauseQuery, 0, len(m.Base.Nor)+i)
	nor = append(nor, m.Base.Nor...)
	nor = append(nor, m.Base.Or[:i]...)
	if len(nor) > 0 {
		q["$nor"] = nor
	}
	return q
}

// RunOpOnce rewrites and races clause i alone, using run to build and race
// that clause's PlanSet.
func (m *MultiPlanScanner) RunOpOnce(i int, run ClauseRunner) (*QueryPlan, QueryOp, error) {
	return run(m.rewriteQuery(i))
}

// RunOp races every clause in order, stopping and returning early the
// moment a clause errors, so the caller sees exactly how far the scan got.
func (m *MultiPlanScanner) RunOp(run ClauseRunner) ([]ClauseResult, error) {
	results := make([]ClauseResult, 0, len(m.Base.Or))
	for i := range m.Base.Or {
		plan, op, err := m.RunOpOnce(i, run)
		results = append(results, ClauseResult{ClauseIndex: i, Winner: plan, Op: op, Err: err})
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
