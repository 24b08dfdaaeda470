// Package config loads, normalizes, and validates qmunlock configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// QMUNLOCK_SCRIPT and QMUNLOCK_TARGET. The Config type centralizes every knob
// the CLI and runners need, including the ordered extension table that
// decides which files are eligible for conversion.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
