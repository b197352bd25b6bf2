// Package logging provides a process-wide structured logger for the
// namespace catalog engine.
//
// The package wraps [go.uber.org/zap] and exposes a single global logger
// instance that is initialized once and then retrieved via Get. All
// subsystems should obtain a logger through this package rather than
// constructing their own zap.Logger values, so that log level and output
// destination are controlled from a single place.
//
// # Initialisation
//
// Call Init (or InitDefault for sensible defaults) once at program startup,
// before any goroutines that might call Get are spawned:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug}); err != nil {
//	    log.Fatal(err)
//	}
//
// InitDefault writes INFO-level console logs to stderr.
//
// # Retrieving the logger
//
//	logging.Get().Infow("catalog opened", "path", dataDir)
//
// If Get is called before Init, a default stderr logger is created lazily
// (via sync.Once) so that packages that log during init are safe.
//
// # Context helpers
//
// Several helpers in context.go return child loggers pre-populated with
// structured fields, reducing repetition in hot paths:
//
//	log := logging.WithNamespace(ns)
//	log := logging.WithPlan(ns, idxNo)
//	log := logging.WithComponent("catalog")
package logging
