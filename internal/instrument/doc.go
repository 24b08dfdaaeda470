// Package instrument attaches to the target application and talks to the
// collaborator script loaded inside it.
//
// The Runtime interface is the only seam to the instrumentation engine.
// Package fridart implements it with frida-core; tests substitute a fake. A
// runtime is constructed explicitly by the caller and passed into the
// Locator and Attach, never reached through package state.
//
// Lifecycle for one run:
//
//	rt, _ := fridart.New()
//	proc, _ := instrument.NewLocator(rt, logger).FindTarget(ctx, "qqmusic")
//	sess, _ := instrument.Attach(ctx, rt, proc)
//	script, _ := sess.Load(ctx, source, instrument.NewSink(os.Stdout, logger))
//	_, err := script.Call(ctx, "decrypt", src, tmp)
//	sess.Close()
//
// Script.Call blocks the caller. Messages reach the MessageHandler on the
// runtime's own thread while a call is in flight, so handlers must be safe
// for concurrent use; Sink is.
package instrument
