// Package logging assembles structured slog loggers and formatting helpers used
// across meshbatch commands.
//
// It owns the console and JSON handlers, routes file output through a
// size-rotated log file, and exposes context-aware helpers so batch code can
// tag log lines with the run ID and command automatically. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every command emits
// records with the same shape.
package logging
