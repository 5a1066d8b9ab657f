//go:build windows

package creon

import "golang.org/x/sys/windows"

// processElevated reports whether the current process token is elevated.
// The terminal rejects automation from non-administrator processes.
func processElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
