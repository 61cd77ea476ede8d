// Package services defines shared utilities consumed by the pipeline stages
// and external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation, external tool, subtitle format, invariant, timeout).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
