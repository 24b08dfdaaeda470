// Package fridart binds the instrument runtime interfaces to frida-core
// through frida-go. It is the only package that links the native SDK; the
// rest of the module talks to instrument.Runtime.
package fridart
