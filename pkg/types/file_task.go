package types

import (
	"fmt"
	"path/filepath"
)

// EntryKind distinguishes regular files from directories in a run.
type EntryKind int

const (
	// KindFile is a regular file whose content and name may be converted.
	KindFile EntryKind = iota
	// KindDir is a directory whose name may be converted.
	KindDir
)

// String returns "file" or "dir".
func (k EntryKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// FileTask is one filesystem entry discovered under the run root.
type FileTask struct {
	Path  string    `json:"path"`  // Absolute path at discovery time
	Kind  EntryKind `json:"kind"`  // File or directory
	Depth int       `json:"depth"` // Number of path components below the root
}

// Name returns the base name of the entry
func (t FileTask) Name() string {
	return filepath.Base(t.Path)
}

// IsDir reports whether the task is a directory
func (t FileTask) IsDir() bool {
	return t.Kind == KindDir
}

// String returns a human-readable representation
func (t FileTask) String() string {
	return fmt.Sprintf("%s %s (depth %d)", t.Kind, t.Path, t.Depth)
}
