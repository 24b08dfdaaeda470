// Package preflight provides readiness checks for the pieces a conversion
// run depends on: the collaborator script, the configured directories, the
// instrumentation runtime, and the running target application.
//
// The CLI "qmunlock check" command runs RunAll and renders one status line
// per Result. Runs themselves do not call preflight; they fail with a
// classified error at the first step that cannot proceed.
package preflight
