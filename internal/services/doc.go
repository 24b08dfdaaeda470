// Package services defines shared utilities consumed by the conversion
// pipeline and its runners.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, runner modes, and the source file
//     being converted for logging and history.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is and print a matching hint.
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform.
package services
