// Package backup snapshots a directory tree before it is converted in place.
package backup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	cp "github.com/otiai10/copy"

	"convertzh/internal/errors"
	"convertzh/internal/log"
)

// DefaultTimestampFormat names backups like "docs_backup_20240131_150405".
const DefaultTimestampFormat = "20060102_150405"

// Stats describes a finished snapshot.
type Stats struct {
	Path     string
	Files    int
	Dirs     int
	Symlinks int
	Bytes    int64
	Elapsed  time.Duration
}

// String renders the stats for the run report.
func (s Stats) String() string {
	return fmt.Sprintf("%d files, %s", s.Files, humanize.IBytes(uint64(s.Bytes)))
}

// Manager creates backups.
type Manager struct {
	timestampFormat string
	now             func() time.Time
	logger          *log.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimestampFormat sets the Go time layout used in generated names.
func WithTimestampFormat(layout string) Option {
	return func(m *Manager) {
		if layout != "" {
			m.timestampFormat = layout
		}
	}
}

// WithClock replaces time.Now for generated names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager.
func New(logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	m := &Manager{
		timestampFormat: DefaultTimestampFormat,
		now:             time.Now,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Destination returns the generated backup path for root: a sibling named
// "<name>_backup_<timestamp>".
func (m *Manager) Destination(root string) string {
	root = filepath.Clean(root)
	name := fmt.Sprintf("%s_backup_%s", filepath.Base(root), m.now().Format(m.timestampFormat))
	return filepath.Join(filepath.Dir(root), name)
}

// Snapshot copies root to dest, or to Destination(root) when dest is empty.
// The destination must not exist and must not lie inside root. On failure
// nothing is left behind at dest.
func (m *Manager) Snapshot(root, dest string) (Stats, error) {
	start := time.Now()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Stats{}, errors.NewBackupError(root, dest, err)
	}
	if dest == "" {
		dest = m.Destination(absRoot)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return Stats{}, errors.NewBackupError(root, dest, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return Stats{}, errors.NewBackupError(absRoot, absDest, err)
	}
	if !info.IsDir() {
		return Stats{}, errors.NewBackupError(absRoot, absDest, errors.ErrInvalidPath)
	}
	if Within(absRoot, absDest) {
		return Stats{}, errors.NewBackupError(absRoot, absDest,
			errors.NewFileError("backup destination is inside the source tree", absDest, errors.InvalidPath, nil))
	}
	if _, err := os.Lstat(absDest); err == nil {
		return Stats{}, errors.NewBackupError(absRoot, absDest, fs.ErrExist)
	} else if !os.IsNotExist(err) {
		return Stats{}, errors.NewBackupError(absRoot, absDest, err)
	}

	m.logger.With(log.F("source", absRoot), log.F("dest", absDest)).Info("creating backup")
	stats, err := copyTree(absRoot, absDest)
	if err != nil {
		if rmErr := os.RemoveAll(absDest); rmErr != nil {
			m.logger.With(log.F("dest", absDest)).WithError(rmErr).Error("cannot remove partial backup")
		}
		return Stats{}, errors.NewBackupError(absRoot, absDest, err)
	}
	stats.Path = absDest
	stats.Elapsed = time.Since(start)

	m.logger.With(
		log.F("dest", absDest),
		log.F("files", stats.Files),
		log.F("size", humanize.IBytes(uint64(stats.Bytes))),
	).Info("backup complete")
	return stats, nil
}

// Within reports whether path is root or lies beneath it. Both must be
// absolute and clean.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// copyTree copies src to dest. Symlinks are recreated as links; devices,
// sockets and pipes are left out. Modes and modification times are kept.
func copyTree(src, dest string) (Stats, error) {
	var stats Stats
	opts := cp.Options{
		OnSymlink:         func(string) cp.SymlinkAction { return cp.Shallow },
		PermissionControl: cp.PerservePermission,
		PreserveTimes:     true,
		Sync:              true,
		Skip: func(info os.FileInfo, path, _ string) (bool, error) {
			mode := info.Mode()
			switch {
			case path == src:
			case mode&fs.ModeSymlink != 0:
				stats.Symlinks++
			case mode.IsDir():
				stats.Dirs++
			case mode.IsRegular():
				stats.Files++
				stats.Bytes += info.Size()
			default:
				return true, nil
			}
			return false, nil
		},
	}
	if err := cp.Copy(src, dest, opts); err != nil {
		return stats, err
	}
	return stats, nil
}
