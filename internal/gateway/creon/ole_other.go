//go:build !windows

package creon

import "errors"

// NewOLE is only available on Windows, where the terminal runs.
func NewOLE() (Dispatcher, error) {
	return nil, errors.New("creon: COM automation requires windows")
}
