package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OpenDaily tees the logger into <dir>/<YYYYMMDD>.log next to stdout. An
// empty dir keeps stdout only and returns a nil file.
func OpenDaily(dir string, now time.Time) (*os.File, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, now.Format("20060102")+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	SetOutput(io.MultiWriter(os.Stdout, file))
	return file, nil
}
