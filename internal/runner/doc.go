// Package runner drives conversion runs against the target application.
//
// A run holds the exclusive run lock, stamps a UUID run id into the context,
// locates the target process, attaches one instrumentation session, loads
// the collaborator script once, and then converts files sequentially on the
// calling goroutine. Three entry points share that lifecycle:
//
//   - RunFile converts one file next to itself and fails loudly on anything
//     it cannot convert.
//   - RunBatch converts every eligible file directly inside an input
//     directory, silently skipping the rest. The first failure aborts the
//     batch unless keep-going is enabled.
//   - Watch converts what is already present and then keeps converting new
//     files once they stop changing, until the context is cancelled.
package runner
