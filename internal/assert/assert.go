// Package assert provides contract-violation checks shared by every
// allocator package.
//
// Unlike the debug-gated helpers elsewhere in this codebase, Assert always
// panics on a false condition: the conditions it checks (out-of-order stack
// free, a pool free outside the buffer, a mark outside the allocator's
// buffer, ...) are function contracts, not instrumentation, so they stay
// live in release builds. No allocator checks for a double free as such.
package assert

import "fmt"

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("snmemory: contract violation: "+format, args...))
	}
}
