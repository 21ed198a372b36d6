package testutils

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Entry is one node of a snapshot taken with SnapshotTree.
type Entry struct {
	Mode    fs.FileMode
	Content string
	Link    string
}

// CreateTestFilesWithContent creates files below dir, creating parent
// directories as needed. Keys are slash-separated relative paths.
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), []byte(content))
	}
}

// CreateTestFilesWithDefault creates a small nested tree of Simplified
// Chinese text files, plus one file that is never eligible.
func CreateTestFilesWithDefault(t *testing.T, dir string) {
	t.Helper()
	CreateTestFilesWithContent(t, dir, map[string]string{
		"小说/故事.txt":      "这是一个关于鼠标的故事。\n",
		"小说/第一章/开始.txt":  "软件开发\n网络\n",
		"笔记.txt":         "plain ascii\n",
		"图片/说明.md":       "不会被处理\n",
		".hidden/后台.txt": "隐藏\n",
	})
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

// GB18030 encodes s as GB18030 bytes.
func GB18030(t *testing.T, s string) []byte {
	t.Helper()
	out, err := simplifiedchinese.GB18030.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

// SnapshotTree records every entry below root keyed by slash-separated
// relative path. Two equal snapshots mean the tree was not touched.
func SnapshotTree(t *testing.T, root string) map[string]Entry {
	t.Helper()
	snap := make(map[string]Entry)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		e := Entry{Mode: info.Mode()}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			e.Link, err = os.Readlink(path)
		case info.Mode().IsRegular():
			var data []byte
			data, err = os.ReadFile(path)
			e.Content = string(data)
		}
		if err != nil {
			return err
		}
		snap[filepath.ToSlash(rel)] = e
		return nil
	})
	require.NoError(t, err)
	return snap
}

// ReadFile returns the content of path as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	var result []rune
	inEscape := false
	for _, r := range str {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		result = append(result, r)
	}
	return string(result)
}
