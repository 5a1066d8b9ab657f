//go:build !windows

package creon

// processElevated is always false off Windows: the terminal only runs there.
func processElevated() bool { return false }
