//go:build snmemory_debug

package assert

import (
	"fmt"
	"os"

	"github.com/timandy/routine"
)

// Enabled is true when the module was built with the snmemory_debug tag.
const Enabled = true

// Trace prints a one-line diagnostic for an allocator operation.
//
// It is a no-op unless the snmemory_debug build tag is set, so hot paths
// that call Trace pay nothing in a release build.
func Trace(pkg, op, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s/%s [g%d]: %s\n", pkg, op, routine.Goid(), msg)
}
