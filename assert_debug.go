//go:build feather2d_debug

package feather2d

import "fmt"

// debugAsserts enables the sanity checks of the step. Build with -tags feather2d_debug.
const debugAsserts = true

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("feather2d: "+format, args...))
	}
}
