// Package logging assembles structured slog loggers and formatting helpers
// used across framed components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes shared attribute keys so the generator, recovery
// scanner, and cleanup sweeps tag log lines consistently. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
