package logging

import "go.uber.org/zap"

// WithNamespace scopes a logger to a single namespace, for catalog and
// allocator operations.
func WithNamespace(ns string) *zap.SugaredLogger {
	return Get().With("ns", ns)
}

// WithBucket scopes a logger to a free-list bucket within a namespace.
func WithBucket(ns string, bucket int) *zap.SugaredLogger {
	return Get().With("ns", ns, "bucket", bucket)
}

// WithPlan scopes a logger to one candidate query plan.
func WithPlan(ns string, idxNo int) *zap.SugaredLogger {
	return Get().With("ns", ns, "idx_no", idxNo)
}

// WithClause scopes a logger to one $or clause within a multi-plan scan.
func WithClause(ns string, clause int) *zap.SugaredLogger {
	return Get().With("ns", ns, "clause", clause)
}

// WithComponent scopes a logger to a subsystem name.
func WithComponent(component string) *zap.SugaredLogger {
	return Get().With("component", component)
}

// WithError scopes a logger to an error value.
func WithError(err error) *zap.SugaredLogger {
	return Get().With("error", err.Error())
}
