// Package converttest provides a Converter for tests that need no OpenCC
// dictionaries.
package converttest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"convertzh/internal/convert"
	"convertzh/internal/log"
)

// Table is a Converter backed by a fixed phrase table. Longer phrases win
// over shorter ones at the same position.
type Table struct {
	phrases []string
	table   map[string]string
}

var _ convert.Converter = (*Table)(nil)

// NewTable builds a Table from source->target phrase pairs.
func NewTable(pairs map[string]string) *Table {
	t := &Table{table: make(map[string]string, len(pairs))}
	for from, to := range pairs {
		if from == "" {
			continue
		}
		t.table[from] = to
		t.phrases = append(t.phrases, from)
	}
	sort.Slice(t.phrases, func(i, j int) bool {
		if len(t.phrases[i]) != len(t.phrases[j]) {
			return len(t.phrases[i]) > len(t.phrases[j])
		}
		return t.phrases[i] < t.phrases[j]
	})
	return t
}

func (t *Table) Convert(text string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		matched := false
		for _, p := range t.phrases {
			if strings.HasPrefix(text[i:], p) {
				b.WriteString(t.table[p])
				i += len(p)
				matched = true
				break
			}
		}
		if !matched {
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
			i += size
		}
	}
	return b.String(), nil
}

func (t *Table) ConvertName(name string) (string, error) {
	return convert.ConvertFileName(t, name)
}

func (t *Table) ConvertDirName(name string) (string, error) {
	return t.Convert(name)
}

// Factory returns a convert.Factory that ignores the profile and always
// builds a Table from pairs.
func Factory(pairs map[string]string) convert.Factory {
	return func(string, *log.Logger) (convert.Converter, error) {
		return NewTable(pairs), nil
	}
}
