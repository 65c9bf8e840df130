//go:build !snmemory_debug

package assert

// Enabled is true when the module was built with the snmemory_debug tag.
const Enabled = false

// Trace is a no-op in release builds.
func Trace(pkg, op, format string, args ...any) {}
