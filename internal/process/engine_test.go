package process

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertzh/internal/convert"
	"convertzh/internal/convert/converttest"
	"convertzh/internal/encoding"
	"convertzh/internal/errors"
	"convertzh/internal/report"
	"convertzh/pkg/testutils"
	"convertzh/pkg/types"
)

func testConverter() convert.Converter {
	return converttest.NewTable(map[string]string{
		"说":  "說",
		"鼠标": "滑鼠",
		"后台": "後臺",
		"软件": "軟體",
	})
}

func newTestEngine(t *testing.T, modify func(*types.RunOptions)) *Engine {
	t.Helper()
	opts := types.DefaultRunOptions()
	opts.SkipConfirm = true
	if modify != nil {
		modify(&opts)
	}
	det, err := encoding.New(encoding.WithoutStatistics())
	require.NoError(t, err)
	e, err := NewWithOptions(opts, det, testConverter(), nil)
	require.NoError(t, err)
	return e
}

func taskPaths(root string, tasks []types.FileTask) []string {
	var out []string
	for _, task := range tasks {
		rel, _ := filepath.Rel(root, task.Path)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestNewWithOptions(t *testing.T) {
	det, err := encoding.New()
	require.NoError(t, err)

	t.Run("normalizes extensions", func(t *testing.T) {
		opts := types.DefaultRunOptions()
		opts.Extensions = []string{"TXT", " .Md ", ""}
		e, err := NewWithOptions(opts, det, testConverter(), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{".txt", ".md"}, e.Options().Extensions)
	})

	t.Run("empty collision defaults to skip", func(t *testing.T) {
		opts := types.DefaultRunOptions()
		opts.Collision = ""
		e, err := NewWithOptions(opts, det, testConverter(), nil)
		require.NoError(t, err)
		assert.Equal(t, types.CollisionSkip, e.Options().Collision)
	})

	tests := []struct {
		name   string
		modify func(*types.RunOptions)
	}{
		{"unknown collision", func(o *types.RunOptions) { o.Collision = "overwrite" }},
		{"no extensions", func(o *types.RunOptions) { o.Extensions = nil }},
		{"bad exclude", func(o *types.RunOptions) { o.Exclude = []string{"[abc"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := types.DefaultRunOptions()
			tt.modify(&opts)
			_, err := NewWithOptions(opts, det, testConverter(), nil)
			assert.True(t, errors.IsInvalidConfig(err))
		})
	}

	_, err = NewWithOptions(types.DefaultRunOptions(), nil, testConverter(), nil)
	assert.Error(t, err)
}

func TestScanBottomUp(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"a/b/c/d.txt": "d",
		"a/x.txt":     "x",
		"top.txt":     "top",
		"a/b/skip.md": "md",
		".git/h.txt":  "hidden",
		"empty/e.md":  "no eligible files below",
		"UPPER.TXT":   "case-insensitive extension",
	})

	e := newTestEngine(t, nil)
	tasks, err := e.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a/b/c/d.txt",
		"a/b/c",
		"a/b",
		"a/x.txt",
		"UPPER.TXT",
		"a",
		"top.txt",
	}, taskPaths(root, tasks))

	for i, task := range tasks {
		if !task.IsDir() {
			continue
		}
		for j, other := range tasks {
			if strings.HasPrefix(other.Path, task.Path+string(filepath.Separator)) {
				assert.Less(t, j, i, "%s must come before its parent %s", other.Path, task.Path)
			}
		}
	}
	assert.Equal(t, types.KindDir, tasks[1].Kind)
	assert.Equal(t, 4, tasks[0].Depth)
}

func TestScanErrors(t *testing.T) {
	e := newTestEngine(t, nil)

	t.Run("missing root", func(t *testing.T) {
		_, err := e.Scan(filepath.Join(t.TempDir(), "missing"))
		assert.True(t, errors.IsFileNotFound(err))
	})

	t.Run("root is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "f.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		_, err := e.Scan(path)
		assert.True(t, errors.IsKind(err, errors.InvalidPath))
	})

	t.Run("no eligible files", func(t *testing.T) {
		root := t.TempDir()
		testutils.CreateTestFilesWithContent(t, root, map[string]string{"a/readme.md": "x"})
		_, err := e.Scan(root)
		assert.True(t, errors.IsNoEligibleFiles(err))
		assert.ErrorIs(t, err, errors.ErrNoEligibleFiles)
		assert.Contains(t, err.Error(), root)

		_, err = e.Process(root)
		assert.True(t, errors.IsNoEligibleFiles(err))
	})
}

func TestScanFilters(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"keep.txt":            "k",
		"drafts/d.txt":        "d",
		"notes/old.bak.txt":   "b",
		"notes/new.txt":       "n",
		"backups/copy/a.txt":  "a",
		"deep/drafts/x.txt":   "x",
		"deep/other/keep.txt": "k",
	})
	require.NoError(t, os.Symlink(filepath.Join(root, "keep.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "notes"), filepath.Join(root, "linkdir")))

	e := newTestEngine(t, func(o *types.RunOptions) {
		o.Exclude = []string{"drafts", "*.bak.txt"}
		o.BackupDir = filepath.Join(root, "backups")
	})
	tasks, err := e.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"deep/other/keep.txt",
		"deep/other",
		"notes/new.txt",
		"deep",
		"keep.txt",
		"notes",
	}, taskPaths(root, tasks))
}

func TestProcessNested(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"小说/故事.txt": "鼠标\n故事\n",
	})

	e := newTestEngine(t, nil)
	results, err := e.Process(root)
	require.NoError(t, err)
	require.Len(t, results, 2)

	file, dir := results[0], results[1]
	assert.Equal(t, types.KindFile, file.Kind)
	assert.Equal(t, filepath.Join(root, "小说", "故事.txt"), file.OriginalPath)
	assert.True(t, file.ContentChanged)
	assert.True(t, file.Written)
	assert.Equal(t, 1, file.ChangedLines)
	assert.False(t, file.Renamed)

	assert.Equal(t, types.KindDir, dir.Kind)
	assert.Equal(t, filepath.Join(root, "小說"), dir.NewPath)
	assert.True(t, dir.Renamed)

	assert.NoDirExists(t, filepath.Join(root, "小说"))
	assert.Equal(t, "滑鼠\n故事\n", testutils.ReadFile(t, filepath.Join(root, "小說", "故事.txt")))

	summary := types.Summarize(results)
	assert.Equal(t, 2, summary.Changed)
	assert.Equal(t, types.OutcomeCompleted, summary.Outcome())
}

func TestProcessRenamesFilesAndDirectoriesAtEveryDepth(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"后台/软件/说明.txt": "软件",
		"后台/说明.txt":    "后台",
		"说明.txt":       "说",
	})

	e := newTestEngine(t, nil)
	results, err := e.Process(root)
	require.NoError(t, err)
	for _, r := range results {
		assert.NoError(t, r.Error, r.OriginalPath)
	}

	snap := testutils.SnapshotTree(t, root)
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	assert.ElementsMatch(t, []string{"後臺", "後臺/軟體", "後臺/軟體/說明.txt", "後臺/說明.txt", "說明.txt"}, paths)
	assert.Equal(t, "軟體", snap["後臺/軟體/說明.txt"].Content)
	assert.Equal(t, "後臺", snap["後臺/說明.txt"].Content)
	assert.Equal(t, "說", snap["說明.txt"].Content)
}

func TestProcessGB18030(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "鼠标.txt"), testutils.GB18030(t, "鼠标"))

	e := newTestEngine(t, nil)
	results, err := e.Process(root)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	require.NoError(t, r.Error)
	assert.Equal(t, "gbk", r.Encoding)
	assert.True(t, r.ContentChanged)
	assert.True(t, r.Reencoded)
	assert.True(t, r.Renamed)
	assert.Equal(t, filepath.Join(root, "滑鼠.txt"), r.NewPath)

	data, err := os.ReadFile(filepath.Join(root, "滑鼠.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("滑鼠"), data)
}

func TestProcessReencodesUnchangedText(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "plain.txt")
	testutils.WriteFile(t, path, testutils.GB18030(t, "故事"))

	results, err := newTestEngine(t, nil).Process(root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].ContentChanged)
	assert.True(t, results[0].Reencoded)
	assert.True(t, results[0].Written)
	assert.Equal(t, "故事", testutils.ReadFile(t, path))
}

func TestProcessDryRun(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, root)
	testutils.WriteFile(t, filepath.Join(root, "小说", "gb.txt"), testutils.GB18030(t, "鼠标"))
	before := testutils.SnapshotTree(t, root)

	e := newTestEngine(t, func(o *types.RunOptions) { o.DryRun = true })
	assert.True(t, e.IsDryRun())
	results, err := e.Process(root)
	require.NoError(t, err)

	assert.Equal(t, before, testutils.SnapshotTree(t, root))

	var dirPreview *types.ConversionResult
	for i := range results {
		assert.False(t, results[i].Written)
		assert.False(t, results[i].Renamed)
		if results[i].OriginalPath == filepath.Join(root, "小说") {
			dirPreview = &results[i]
		}
	}
	require.NotNil(t, dirPreview)
	assert.Equal(t, filepath.Join(root, "小說"), dirPreview.NewPath)
	assert.True(t, dirPreview.NameChanged())
}

func TestProcessIdempotent(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, root)
	testutils.WriteFile(t, filepath.Join(root, "后台", "gb.txt"), testutils.GB18030(t, "鼠标和软件"))

	e := newTestEngine(t, nil)
	_, err := e.Process(root)
	require.NoError(t, err)
	first := testutils.SnapshotTree(t, root)

	results, err := e.Process(root)
	require.NoError(t, err)
	assert.Equal(t, first, testutils.SnapshotTree(t, root))

	summary := types.Summarize(results)
	assert.Zero(t, summary.Changed)
	assert.Equal(t, types.OutcomeNoChanges, summary.Outcome())
}

func TestProcessCollisionSkip(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"后台.txt": "后台",
		"後臺.txt": "existing",
	})

	results, err := newTestEngine(t, nil).Process(root)
	require.NoError(t, err)

	var skipped types.ConversionResult
	for _, r := range results {
		if r.OriginalPath == filepath.Join(root, "后台.txt") {
			skipped = r
		}
	}
	assert.True(t, skipped.Skipped)
	assert.Contains(t, skipped.SkipReason, "後臺.txt")
	assert.True(t, skipped.Written, "content is still converted")
	assert.Equal(t, skipped.OriginalPath, skipped.NewPath)

	assert.Equal(t, "後臺", testutils.ReadFile(t, filepath.Join(root, "后台.txt")))
	assert.Equal(t, "existing", testutils.ReadFile(t, filepath.Join(root, "後臺.txt")))
	summary := types.Summarize(results)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Changed)
}

func TestProcessOnlySkippedRenames(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"后台.txt": "plain",
		"後臺.txt": "existing",
	})

	results, err := newTestEngine(t, nil).Process(root)
	require.NoError(t, err)

	summary := types.Summarize(results)
	assert.Zero(t, summary.Changed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, types.OutcomeNoChanges, summary.Outcome())

	var buf strings.Builder
	report.New(&buf, root).Summary(summary, false)
	out := testutils.StripANSI(buf.String())
	assert.Contains(t, out, "No changes made: 1 rename skipped")
	assert.NotContains(t, out, "No changes needed")
}

func TestProcessCollisionRename(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"后台.txt":     "后台",
		"後臺.txt":     "existing",
		"後臺_(1).txt": "taken too",
		"小说/a.txt":   "a",
		"小說/b.txt":   "b",
	})

	e := newTestEngine(t, func(o *types.RunOptions) { o.Collision = types.CollisionRename })
	results, err := e.Process(root)
	require.NoError(t, err)
	for _, r := range results {
		assert.NoError(t, r.Error)
		assert.False(t, r.Skipped)
	}

	assert.Equal(t, "後臺", testutils.ReadFile(t, filepath.Join(root, "後臺_(2).txt")))
	assert.Equal(t, "existing", testutils.ReadFile(t, filepath.Join(root, "後臺.txt")))
	assert.FileExists(t, filepath.Join(root, "小說_(1)", "a.txt"))
	assert.FileExists(t, filepath.Join(root, "小說", "b.txt"))
}

func TestProcessWriteErrorDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"a/后台.txt": "后台",
		"b/后台.txt": "后台",
	})
	bad := filepath.Join(root, "a", "后台.txt")

	e := newTestEngine(t, nil)
	e.writeFile = func(path string, data []byte, perm fs.FileMode) error {
		if path == bad {
			return os.ErrPermission
		}
		return replaceFile(path, data, perm)
	}

	results, err := e.Process(root)
	require.NoError(t, err)

	summary := types.Summarize(results)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, types.OutcomeCompletedWithErrors, summary.Outcome())

	for _, r := range results {
		if r.OriginalPath == bad {
			require.Error(t, r.Error)
			assert.ErrorIs(t, r.Error, os.ErrPermission)
			var fileErr *errors.FileError
			require.True(t, errors.As(r.Error, &fileErr))
			assert.Equal(t, bad, fileErr.Path())
		}
	}
	assert.Equal(t, "后台", testutils.ReadFile(t, bad), "failed file is neither rewritten nor renamed")
	assert.Equal(t, "後臺", testutils.ReadFile(t, filepath.Join(root, "b", "後臺.txt")))
}

func TestProcessMissingFileIsCaptured(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, nil)
	results := e.ProcessTasks([]types.FileTask{
		{Path: filepath.Join(root, "gone.txt"), Kind: types.KindFile, Depth: 1},
	})
	require.Len(t, results, 1)
	assert.True(t, errors.IsFileNotFound(results[0].Error))
}

func TestProcessToggles(t *testing.T) {
	files := map[string]string{"小说/后台.txt": "鼠标"}

	t.Run("names only", func(t *testing.T) {
		root := t.TempDir()
		testutils.CreateTestFilesWithContent(t, root, files)
		e := newTestEngine(t, func(o *types.RunOptions) { o.ConvertContent = false })
		_, err := e.Process(root)
		require.NoError(t, err)
		assert.Equal(t, "鼠标", testutils.ReadFile(t, filepath.Join(root, "小說", "後臺.txt")))
	})

	t.Run("content only", func(t *testing.T) {
		root := t.TempDir()
		testutils.CreateTestFilesWithContent(t, root, files)
		e := newTestEngine(t, func(o *types.RunOptions) { o.RenameEntries = false })
		results, err := e.Process(root)
		require.NoError(t, err)
		assert.Equal(t, "滑鼠", testutils.ReadFile(t, filepath.Join(root, "小说", "后台.txt")))
		for _, r := range results {
			assert.False(t, r.NameChanged())
		}
	})

	t.Run("nothing", func(t *testing.T) {
		root := t.TempDir()
		testutils.CreateTestFilesWithContent(t, root, files)
		before := testutils.SnapshotTree(t, root)
		e := newTestEngine(t, func(o *types.RunOptions) { o.RenameEntries, o.ConvertContent = false, false })
		results, err := e.Process(root)
		require.NoError(t, err)
		assert.Equal(t, before, testutils.SnapshotTree(t, root))
		assert.Equal(t, types.OutcomeNoChanges, types.Summarize(results).Outcome())
	})
}

func TestProcessPreservesMode(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "private.txt")
	require.NoError(t, os.WriteFile(path, []byte("鼠标"), 0600))
	require.NoError(t, os.Chmod(path, 0600))

	_, err := newTestEngine(t, nil).Process(root)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestReplaceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("旧内容很长很长"), 0640))
	require.NoError(t, os.Chmod(path, 0640))

	require.NoError(t, replaceFile(path, []byte("新"), 0640))
	assert.Equal(t, "新", testutils.ReadFile(t, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0640), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	err = replaceFile(filepath.Join(dir, "missing", "b.txt"), []byte("x"), 0644)
	assert.Error(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "missing"))
}

func TestChangedLines(t *testing.T) {
	assert.Equal(t, 0, ChangedLines("a\nb", "a\nb"))
	assert.Equal(t, 1, ChangedLines("a\nb\nc", "a\nB\nc"))
	assert.Equal(t, 2, ChangedLines("a\nb", "A\nB"))
	assert.Equal(t, 1, ChangedLines("a", "a\n"))
	assert.Equal(t, 1, ChangedLines("", "x"))
}
