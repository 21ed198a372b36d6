package process

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"convertzh/internal/backup"
	"convertzh/internal/errors"
	"convertzh/internal/log"
	"convertzh/pkg/types"
)

// compileExcludes compiles patterns with '/' as separator, so "*" never
// crosses a directory boundary when matched against a relative path.
func compileExcludes(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.NewConfigError("invalid exclude pattern "+p, "exclude", errors.InvalidConfig, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// excluded matches both the base name and the slash-separated path relative
// to the root.
func (e *Engine) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		base = rel[i+1:]
	}
	for _, g := range e.exclude {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

func (e *Engine) eligibleExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range e.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// ValidateRoot checks that root is an existing directory and returns its
// absolute, clean form.
func ValidateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.NewFileError("invalid root", root, errors.InvalidPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileError("directory not found", abs, errors.FileNotFound, err)
		}
		return "", errors.NewFileError("cannot access directory", abs, errors.FileAccessDenied, err)
	}
	if !info.IsDir() {
		return "", errors.NewFileError("not a directory", abs, errors.InvalidPath, nil)
	}
	return abs, nil
}

// Scan walks root and returns the eligible files plus every directory that
// leads to one, deepest entries first. Ties are broken by path so the order
// is stable across runs.
func (e *Engine) Scan(root string) ([]types.FileTask, error) {
	abs, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	var backupDir string
	if e.opts.BackupDir != "" {
		if b, err := filepath.Abs(e.opts.BackupDir); err == nil && backup.Within(abs, b) {
			backupDir = b
		}
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return err
			}
			e.logger.With(log.F("path", path)).WithError(err).Warn("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == abs {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == backupDir || e.excluded(rel) {
				e.logger.With(log.F("path", path)).Debug("pruned directory")
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !e.eligibleExt(d.Name()) || e.excluded(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.NewFileError("cannot scan directory", abs, errors.FileOperationFailed, err)
	}

	if len(files) == 0 {
		return nil, errors.Wrapf(errors.ErrNoEligibleFiles, "scan %s", abs)
	}

	dirs := make(map[string]bool)
	tasks := make([]types.FileTask, 0, len(files)*2)
	for _, f := range files {
		tasks = append(tasks, types.FileTask{Path: f, Kind: types.KindFile, Depth: depth(abs, f)})
		for dir := filepath.Dir(f); dir != abs && !dirs[dir]; dir = filepath.Dir(dir) {
			dirs[dir] = true
			tasks = append(tasks, types.FileTask{Path: dir, Kind: types.KindDir, Depth: depth(abs, dir)})
		}
	}

	SortBottomUp(tasks)
	e.logger.With(log.F("root", abs), log.F("files", len(files)), log.F("dirs", len(dirs))).Info("scan complete")
	return tasks, nil
}

// SortBottomUp orders tasks by depth descending, then by path.
func SortBottomUp(tasks []types.FileTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Depth != tasks[j].Depth {
			return tasks[i].Depth > tasks[j].Depth
		}
		return tasks[i].Path < tasks[j].Path
	})
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
