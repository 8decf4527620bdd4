// Package procexec runs external tools (Blender, the solver) and streams
// their combined output line by line to a callback.
//
// Callers depend on the Executor interface so tests can substitute a stub.
package procexec
