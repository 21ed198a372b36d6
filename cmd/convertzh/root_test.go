package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertzh/internal/convert"
	"convertzh/internal/convert/converttest"
	"convertzh/internal/errors"
	"convertzh/pkg/testutils"
)

func useTableConverter(t *testing.T) {
	t.Helper()
	convert.SetFactory(converttest.Factory(map[string]string{
		"说":  "說",
		"鼠标": "滑鼠",
		"后台": "後臺",
		"软件": "軟體",
	}))
	t.Cleanup(convert.ResetFactory)
}

func stubPrompt(t *testing.T, tty bool, answer bool) *[]string {
	t.Helper()
	var prompts []string
	origInteractive, origConfirm := interactive, confirm
	interactive = func(io.Reader) bool { return tty }
	confirm = func(in io.Reader, out io.Writer, prompt string) (bool, error) {
		prompts = append(prompts, prompt)
		return answer, nil
	}
	t.Cleanup(func() { interactive, confirm = origInteractive, origConfirm })
	return &prompts
}

// runCmd executes the root command with an isolated, absent config file.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return testutils.StripANSI(out.String()), err
}

func novelTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "docs")
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"小说/故事.txt": "鼠标\n",
	})
	testutils.WriteFile(t, filepath.Join(root, "后台.txt"), testutils.GB18030(t, "软件"))
	return root
}

func TestConvertWithYes(t *testing.T) {
	useTableConverter(t)
	stubPrompt(t, false, false)
	root := novelTree(t)

	out, err := runCmd(t, root, "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Found 2 files and 1 directory")
	assert.Contains(t, out, "Conversion completed: 3 entries changed")
	assert.Equal(t, "滑鼠\n", testutils.ReadFile(t, filepath.Join(root, "小說", "故事.txt")))
	assert.Equal(t, "軟體", testutils.ReadFile(t, filepath.Join(root, "後臺.txt")))
	assert.NoDirExists(t, filepath.Join(root, "小说"))
}

func TestDryRun(t *testing.T) {
	useTableConverter(t)
	prompts := stubPrompt(t, true, true)
	root := novelTree(t)
	before := testutils.SnapshotTree(t, root)

	out, err := runCmd(t, root, "--dry-run", "--backup")
	require.NoError(t, err)

	assert.Equal(t, before, testutils.SnapshotTree(t, root))
	assert.Empty(t, *prompts, "dry run never asks")
	assert.Contains(t, out, "Rename: 小说 -> 小說")
	assert.Contains(t, out, "Encoding: gbk -> utf-8")
	assert.Contains(t, out, "Dry run: 3 entries would change")

	siblings, err := os.ReadDir(filepath.Dir(root))
	require.NoError(t, err)
	assert.Len(t, siblings, 1, "dry run never creates a backup")
}

func TestConfirmation(t *testing.T) {
	useTableConverter(t)

	t.Run("non-interactive without --yes aborts", func(t *testing.T) {
		stubPrompt(t, false, true)
		root := novelTree(t)
		before := testutils.SnapshotTree(t, root)

		out, err := runCmd(t, root)
		assert.ErrorIs(t, err, errAborted)
		assert.True(t, isSilent(err))
		assert.Contains(t, out, "Aborted before making changes")
		assert.Equal(t, before, testutils.SnapshotTree(t, root))
	})

	t.Run("declined", func(t *testing.T) {
		prompts := stubPrompt(t, true, false)
		root := novelTree(t)
		before := testutils.SnapshotTree(t, root)

		out, err := runCmd(t, root)
		require.NoError(t, err)
		assert.Equal(t, []string{"Convert 3 entries in place?"}, *prompts)
		assert.Contains(t, out, "Aborted before making changes")
		assert.Equal(t, before, testutils.SnapshotTree(t, root))
	})

	t.Run("accepted", func(t *testing.T) {
		prompts := stubPrompt(t, true, true)
		root := novelTree(t)

		_, err := runCmd(t, root, "--backup")
		require.NoError(t, err)
		assert.Equal(t, []string{"Back up and convert 3 entries in place?"}, *prompts)
		assert.DirExists(t, filepath.Join(root, "小說"))
	})
}

func TestBackupFlag(t *testing.T) {
	useTableConverter(t)
	stubPrompt(t, false, false)

	t.Run("backup holds the originals", func(t *testing.T) {
		root := novelTree(t)
		before := testutils.SnapshotTree(t, root)
		dest := filepath.Join(t.TempDir(), "snapshot")

		out, err := runCmd(t, root, "--yes", "--backup-dir", dest)
		require.NoError(t, err)
		assert.Contains(t, out, "Backup created at "+dest)
		assert.Equal(t, before, testutils.SnapshotTree(t, dest))
		assert.DirExists(t, filepath.Join(root, "小說"))
	})

	t.Run("failed backup is fatal", func(t *testing.T) {
		root := novelTree(t)
		before := testutils.SnapshotTree(t, root)
		dest := t.TempDir()

		out, err := runCmd(t, root, "--yes", "--backup-dir", dest)
		require.Error(t, err)
		assert.True(t, errors.IsBackupFailed(err))
		assert.Contains(t, out, "Aborted before making changes")
		assert.Equal(t, before, testutils.SnapshotTree(t, root))
	})
}

func TestConvertErrors(t *testing.T) {
	useTableConverter(t)
	stubPrompt(t, false, false)

	t.Run("missing directory", func(t *testing.T) {
		_, err := runCmd(t, filepath.Join(t.TempDir(), "missing"), "--yes")
		assert.True(t, errors.IsFileNotFound(err))
	})

	t.Run("no eligible files", func(t *testing.T) {
		root := t.TempDir()
		testutils.CreateTestFilesWithContent(t, root, map[string]string{"a.md": "说"})
		out, err := runCmd(t, root, "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "No eligible files found")
		assert.Contains(t, out, "No changes needed")
	})

	t.Run("bad collision flag", func(t *testing.T) {
		_, err := runCmd(t, novelTree(t), "--yes", "--collision", "overwrite")
		assert.True(t, errors.IsInvalidConfig(err))
	})

	t.Run("nothing to do", func(t *testing.T) {
		out, err := runCmd(t, novelTree(t), "--yes", "--no-content", "--no-rename")
		require.NoError(t, err)
		assert.Contains(t, out, "Nothing to do")
	})
}

func TestFlagsOverrideConfig(t *testing.T) {
	useTableConverter(t)
	stubPrompt(t, false, false)
	root := t.TempDir()
	testutils.CreateTestFilesWithContent(t, root, map[string]string{
		"说明.md":  "鼠标",
		"说明.txt": "鼠标",
	})

	_, err := runCmd(t, root, "--yes", "--ext", ".md", "--no-content")
	require.NoError(t, err)
	assert.Equal(t, "鼠标", testutils.ReadFile(t, filepath.Join(root, "說明.md")))
	assert.FileExists(t, filepath.Join(root, "说明.txt"))
}

func TestDetectCmd(t *testing.T) {
	dir := t.TempDir()
	gb := filepath.Join(dir, "gb.txt")
	testutils.WriteFile(t, gb, testutils.GB18030(t, "鼠标"))
	utf := filepath.Join(dir, "utf.txt")
	testutils.WriteFile(t, utf, []byte("hello"))

	out, err := runCmd(t, "detect", "-v", gb, utf)
	require.NoError(t, err)
	assert.Regexp(t, `gb\.txt: (gbk|gb18030) `, out)
	assert.Contains(t, out, "utf.txt: utf-8")
	assert.Contains(t, out, "ok")

	out, err = runCmd(t, "detect", filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, out, "missing.txt")
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetArgs(append([]string{"--config", path}, args...))
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run("config", "init")
	assert.Error(t, err, "existing file is not overwritten")

	_, err = run("config", "init", "--force")
	assert.NoError(t, err)

	t.Setenv("CONVERTZH_PROFILE", "s2tw")
	out, err = run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "profile: s2tw")
	assert.Contains(t, out, "min_confidence: 50")
}
