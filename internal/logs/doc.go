// Package logs reads the persistent qmunlock log file for the CLI: the last
// N lines, and optionally every line appended afterwards until cancelled.
package logs
