// Package main hosts the qmunlock CLI entrypoint and command graph.
//
// Running qmunlock with a single path (the shape a desktop drag-and-drop
// produces) converts that file next to itself. Subcommands cover directory
// batches, a directory watcher, process discovery, the conversion history,
// readiness checks, and configuration scaffolding. The package owns the
// instrumentation runtime for the lifetime of a command and hands it to the
// runner; everything else lives in internal packages.
package main
