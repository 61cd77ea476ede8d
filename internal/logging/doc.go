// Package logging wraps log/slog with the conventions used across scriber:
// component loggers, context-derived job/stage fields, and config-driven
// format and output selection.
package logging
