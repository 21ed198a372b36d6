// Package process walks a directory tree and converts eligible text files and
// entry names in place, deepest entries first.
package process

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/renameio/v2/maybe"

	"convertzh/internal/convert"
	"convertzh/internal/errors"
	"convertzh/internal/log"
	"convertzh/pkg/types"
)

// maxRenameAttempts bounds the search for a free "name_(n).ext".
const maxRenameAttempts = 1000

// Engine handles conversion operations
type Engine struct {
	opts      types.RunOptions
	decoder   Decoder
	converter convert.Converter
	logger    *log.Logger
	exclude   []glob.Glob

	// writeFile replaces the content of path; swapped in tests.
	writeFile func(path string, data []byte, perm fs.FileMode) error
}

// NewWithOptions creates an Engine bound to one run's options. The options
// are copied and never change afterwards.
func NewWithOptions(opts types.RunOptions, decoder Decoder, converter convert.Converter, logger *log.Logger) (*Engine, error) {
	if decoder == nil || converter == nil {
		return nil, errors.New("engine needs a decoder and a converter")
	}
	if logger == nil {
		logger = log.Discard()
	}
	switch opts.Collision {
	case "":
		opts.Collision = types.CollisionSkip
	case types.CollisionSkip, types.CollisionRename:
	default:
		return nil, errors.NewConfigError("unknown collision strategy: "+opts.Collision, "collision", errors.InvalidConfig, nil)
	}

	exts := make([]string, 0, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		return nil, errors.NewConfigError("at least one extension is required", "extensions", errors.InvalidConfig, nil)
	}
	opts.Extensions = exts
	opts.Exclude = append([]string(nil), opts.Exclude...)

	exclude, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}

	return &Engine{
		opts:      opts,
		decoder:   decoder,
		converter: converter,
		logger:    logger,
		exclude:   exclude,
		writeFile: replaceFile,
	}, nil
}

// Options returns the run options the engine was built with.
func (e *Engine) Options() types.RunOptions {
	return e.opts
}

// IsDryRun returns whether the engine is in dry run mode
func (e *Engine) IsDryRun() bool {
	return e.opts.DryRun
}

// Process scans root and converts every eligible entry.
func (e *Engine) Process(root string) ([]types.ConversionResult, error) {
	tasks, err := e.Scan(root)
	if err != nil {
		return nil, err
	}
	return e.ProcessTasks(tasks), nil
}

// ProcessTasks handles tasks in the given order. Callers pass the order
// produced by Scan so a directory is renamed only after everything below it.
func (e *Engine) ProcessTasks(tasks []types.FileTask) []types.ConversionResult {
	results := make([]types.ConversionResult, 0, len(tasks))
	for _, task := range tasks {
		var result types.ConversionResult
		if task.IsDir() {
			result = e.processDir(task)
		} else {
			result = e.processFile(task)
		}
		if result.Error != nil {
			e.logger.With(log.F("path", task.Path)).WithError(result.Error).Error("entry failed")
		}
		results = append(results, result)
	}
	return results
}

func (e *Engine) processFile(task types.FileTask) types.ConversionResult {
	result := types.ConversionResult{
		Kind:         types.KindFile,
		OriginalPath: task.Path,
		NewPath:      task.Path,
	}
	logger := e.logger.With(log.F("path", task.Path))

	if e.opts.ConvertContent {
		decoded, err := e.decoder.DecodeFile(task.Path)
		if err != nil {
			result.Error = err
			return result
		}
		result.Encoding = decoded.Encoding
		if decoded.Lenient() {
			logger.With(log.F("encoding", decoded.Encoding)).Warn("invalid bytes replaced while decoding")
		}

		converted, err := e.converter.Convert(decoded.Text)
		if err != nil {
			result.Error = errors.NewFileError("conversion failed", task.Path, errors.ConversionFailed, err)
			return result
		}
		result.ContentChanged = converted != decoded.Text
		result.Reencoded = !decoded.Canonical
		result.ChangedLines = ChangedLines(decoded.Text, converted)

		if result.ContentChanged || result.Reencoded {
			if e.opts.DryRun {
				logger.With(log.F("lines", result.ChangedLines)).Info("would convert content")
			} else {
				info, err := os.Stat(task.Path)
				if err != nil {
					result.Error = errors.NewFileError("cannot stat file", task.Path, errors.FileOperationFailed, err)
					return result
				}
				if err := e.writeFile(task.Path, []byte(converted), info.Mode().Perm()); err != nil {
					result.Error = errors.NewFileError("cannot write file", task.Path, errors.FileOperationFailed, err)
					return result
				}
				result.Written = true
				logger.With(log.F("encoding", decoded.Encoding), log.F("lines", result.ChangedLines)).Info("converted content")
			}
		}
	}

	if e.opts.RenameEntries {
		name, err := e.converter.ConvertName(task.Name())
		if err != nil {
			result.Error = errors.NewFileError("cannot convert name", task.Path, errors.ConversionFailed, err)
			return result
		}
		e.rename(&result, name)
	}
	return result
}

func (e *Engine) processDir(task types.FileTask) types.ConversionResult {
	result := types.ConversionResult{
		Kind:         types.KindDir,
		OriginalPath: task.Path,
		NewPath:      task.Path,
	}
	if !e.opts.RenameEntries {
		return result
	}
	name, err := e.converter.ConvertDirName(task.Name())
	if err != nil {
		result.Error = errors.NewFileError("cannot convert name", task.Path, errors.ConversionFailed, err)
		return result
	}
	e.rename(&result, name)
	return result
}

// rename moves result.OriginalPath to newName in the same directory,
// applying the collision strategy. It records the outcome in result.
func (e *Engine) rename(result *types.ConversionResult, newName string) {
	src := result.OriginalPath
	if newName == "" || newName == filepath.Base(src) {
		return
	}
	dest := filepath.Join(filepath.Dir(src), newName)
	logger := e.logger.With(log.F("from", src), log.F("to", dest))

	finalDest, err := e.handleCollision(src, dest)
	if err != nil {
		result.Error = err
		return
	}
	// If finalDest is empty, it means we're skipping the rename
	if finalDest == "" {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("%s already exists", newName)
		return
	}
	result.NewPath = finalDest

	if e.opts.DryRun {
		logger.Info("would rename")
		return
	}
	if err := os.Rename(src, finalDest); err != nil {
		result.NewPath = src
		result.Error = errors.NewFileError("rename failed", src, errors.FileOperationFailed, err)
		return
	}
	result.Renamed = true
	logger.Info("renamed")
}

// handleCollision implements collision resolution strategies.
// It returns the final destination path and an error if any.
// If the entry should be skipped, it returns an empty string and nil error.
func (e *Engine) handleCollision(src, dest string) (string, error) {
	_, err := os.Lstat(dest)
	if os.IsNotExist(err) {
		return dest, nil
	}
	if err != nil {
		return "", errors.NewFileError("error checking destination", dest, errors.FileAccessDenied, err)
	}

	switch e.opts.Collision {
	case types.CollisionRename:
		return e.findUniqueDestName(dest)
	default:
		e.logger.With(log.F("from", src), log.F("to", dest)).Warn("target exists, rename skipped")
		return "", nil
	}
}

// findUniqueDestName finds a unique name by adding a counter to the stem.
// Directories get the counter at the end of the whole name.
func (e *Engine) findUniqueDestName(originalPath string) (string, error) {
	ext := filepath.Ext(originalPath)
	if info, err := os.Lstat(originalPath); err == nil && info.IsDir() {
		ext = ""
	}
	base := strings.TrimSuffix(originalPath, ext)

	for counter := 1; counter <= maxRenameAttempts; counter++ {
		newName := fmt.Sprintf("%s_(%d)%s", base, counter, ext)
		if _, err := os.Lstat(newName); os.IsNotExist(err) {
			e.logger.With(log.F("to", newName)).Info("target exists, using numbered name")
			return newName, nil
		}
	}
	return "", errors.NewFileError(
		fmt.Sprintf("no free name after %d attempts", maxRenameAttempts),
		originalPath, errors.RenameCollision, nil)
}

// ChangedLines counts the lines that differ between before and after,
// comparing line by line and counting any extra lines in the longer text.
func ChangedLines(before, after string) int {
	if before == after {
		return 0
	}
	a := strings.Split(before, "\n")
	b := strings.Split(after, "\n")
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	changed := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			changed++
		}
	}
	if len(a) > len(b) {
		changed += len(a) - len(b)
	} else {
		changed += len(b) - len(a)
	}
	return changed
}

// replaceFile swaps in the new content through a synced temporary file in
// the same directory, so a failed write never leaves a truncated file.
func replaceFile(path string, data []byte, perm fs.FileMode) error {
	return maybe.WriteFile(path, data, perm)
}
