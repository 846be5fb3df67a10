package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var resumeExtensions = []string{".json", ".yaml", ".yml"}

// CheckResumeFile verifies that filename is a regular, readable file no
// larger than maxSize bytes. A maxSize of zero or less disables the limit.
func CheckResumeFile(filename string, maxSize int64) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat file %s: %w", filename, err)
	}
	switch {
	case info.IsDir():
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	case maxSize > 0 && info.Size() > maxSize:
		return fmt.Errorf("file %s is %s, limit is %s", filename, FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}
	return nil
}

// EnsureParentDir creates the directory that will hold filename.
// An empty filename means stdout and needs nothing.
func EnsureParentDir(filename string) error {
	if filename == "" {
		return nil
	}
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// IsResumeFile reports whether filename has a JSON or YAML extension.
func IsResumeFile(filename string) bool {
	return slices.Contains(resumeExtensions, strings.ToLower(filepath.Ext(filename)))
}

// FormatFileSize renders a byte count with a binary unit, e.g. "1.5 KB".
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
