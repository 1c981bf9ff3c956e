//go:build !feather2d_debug

package feather2d

const debugAsserts = false

func assertf(bool, string, ...any) {}
