package queryplan

// QueryOp is one running instance of a candidate plan: the original's
// QueryOp, stripped to the handful of calls the Runner drives a clone
// through (spec.md §4.5). A concrete QueryOp (index scan, collection
// scan, count, distinct...) is supplied by the caller; this package only
// races whatever satisfies the interface.
type QueryOp interface {
	// Clone returns a fresh, unstarted QueryOp bound to the same
	// underlying operation as the receiver, so the Runner can create one
	// instance per candidate plan from a single prototype.
	Clone() QueryOp

	// Init prepares the op to run against plan — opening a cursor,
	// seeking to a start key, and so on. Init is called concurrently
	// across all cloned ops via errgroup; an Init failure retires that
	// op from the race without aborting the others.
	Init(plan *QueryPlan) error

	// Next advances the op by one unit of work. An error retires the op.
	Next() error

	// Complete reports whether the op has produced a usable result and
	// the race should stop, declaring this op's plan the winner.
	Complete() bool

	// QueryError returns the error that retired this op, if any it has
	// already retired on its own (e.g. during Init).
	QueryError() error

	// StopRequested reports whether an external signal (an optimal plan
	// winning, or a caller-side cancellation) asked this op to stop
	// early, without it being a win in its own right.
	StopRequested() bool
}
