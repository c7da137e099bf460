//go:build !release

package assert

import "fmt"

// That panics with the formatted message if cond is false. Internal invariants of the ECS are
// checked with That; release builds compile it away.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
