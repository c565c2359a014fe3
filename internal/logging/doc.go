// Package logging configures the process-wide structured logger. It wraps
// log/slog with a console handler for interactive use, a JSON handler for
// machine consumption, and a level var that can be raised or lowered at
// runtime through one thread-safe setter.
package logging
