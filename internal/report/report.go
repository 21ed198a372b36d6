// Package report renders scan listings, dry-run previews and run summaries
// for the terminal.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"convertzh/internal/backup"
	"convertzh/internal/errors"
	"convertzh/pkg/types"
)

// DefaultCandidateLimit is how many eligible files are listed before asking
// for confirmation.
const DefaultCandidateLimit = 10

// Printer writes reports for one root directory. Paths are shown relative to
// the root.
type Printer struct {
	out  io.Writer
	root string
}

// New creates a Printer.
func New(out io.Writer, root string) *Printer {
	return &Printer{out: out, root: root}
}

func (p *Printer) rel(path string) string {
	if p.root == "" {
		return path
	}
	rel, err := filepath.Rel(p.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.out, s)
}

// Candidates lists up to limit eligible files found by a scan.
func (p *Printer) Candidates(tasks []types.FileTask, limit int) {
	var files []types.FileTask
	dirs := 0
	for _, t := range tasks {
		if t.IsDir() {
			dirs++
			continue
		}
		files = append(files, t)
	}

	p.println(TitleStyle.Render("Scan"))
	p.println(fmt.Sprintf("Found %s and %s under %s",
		plural(len(files), "file"), plural(dirs, "directory"), PathStyle.Render(p.root)))
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	for i, f := range files {
		if i == limit {
			p.println(StatusStyle.Render(fmt.Sprintf("  ... and %d more", len(files)-limit)))
			break
		}
		p.println("  " + p.rel(f.Path))
	}
}

// Preview prints what a dry run would change. Entries needing no change are
// left out.
func (p *Printer) Preview(results []types.ConversionResult) {
	p.println(TitleStyle.Render("Dry run"))
	shown := 0
	for _, r := range results {
		lines := describe(r)
		if len(lines) == 0 {
			continue
		}
		shown++
		p.println("  " + PathStyle.Render(p.rel(r.OriginalPath)))
		for _, l := range lines {
			p.println(DetailStyle.Render(l))
		}
	}
	if shown == 0 {
		p.println(StatusStyle.Render("  nothing would change"))
	}
}

func describe(r types.ConversionResult) []string {
	var lines []string
	if errors.IsRenameCollision(r.Error) {
		return []string{WarningStyle.Render("Rename blocked: " + r.Error.Error())}
	}
	if r.Error != nil {
		return []string{ErrorStyle.Render("Error: " + r.Error.Error())}
	}
	if r.ContentChanged {
		lines = append(lines, fmt.Sprintf("Content: %s would change", plural(r.ChangedLines, "line")))
	}
	if r.Reencoded {
		lines = append(lines, fmt.Sprintf("Encoding: %s -> utf-8", r.Encoding))
	}
	if r.Skipped {
		lines = append(lines, WarningStyle.Render("Rename skipped: "+r.SkipReason))
	} else if r.NameChanged() {
		lines = append(lines, fmt.Sprintf("Rename: %s -> %s", filepath.Base(r.OriginalPath), filepath.Base(r.NewPath)))
	}
	return lines
}

// Failures lists every entry that ended in an error.
func (p *Printer) Failures(results []types.ConversionResult) {
	for _, r := range results {
		if r.Failed() {
			p.println(ErrorStyle.Render(fmt.Sprintf("✗ %s: %v", p.rel(r.OriginalPath), r.Error)))
		}
	}
}

// Backup reports a finished snapshot.
func (p *Printer) Backup(stats backup.Stats) {
	p.println(SuccessStyle.Render(fmt.Sprintf("✓ Backup created at %s (%s)", stats.Path, stats)))
}

// Summary prints the final outcome of a run.
func (p *Printer) Summary(s types.Summary, dryRun bool) {
	var headline string
	switch s.Outcome() {
	case types.OutcomeAborted:
		headline = WarningStyle.Render("Aborted before making changes")
	case types.OutcomeCompletedWithErrors:
		headline = ErrorStyle.Render(fmt.Sprintf("Completed with %s", plural(s.Failed, "error")))
	case types.OutcomeNoChanges:
		if s.Skipped > 0 {
			headline = WarningStyle.Render(fmt.Sprintf("No changes made: %s skipped because the target exists", plural(s.Skipped, "rename")))
		} else {
			headline = SuccessStyle.Render("No changes needed")
		}
	default:
		if dryRun {
			headline = fmt.Sprintf("Dry run: %s would change", plural(s.Changed, "entry"))
		} else {
			headline = fmt.Sprintf("Conversion completed: %s changed", plural(s.Changed, "entry"))
		}
		if s.Skipped > 0 {
			headline = WarningStyle.Render(fmt.Sprintf("%s, %s skipped", headline, plural(s.Skipped, "rename")))
		} else {
			headline = SuccessStyle.Render(headline)
		}
	}

	body := []string{headline}
	if s.Total > 0 {
		counts := fmt.Sprintf("%s processed: %d changed, %d unchanged, %d failed",
			plural(s.Total, "entry"), s.Changed, s.Unchanged, s.Failed)
		if s.Skipped > 0 {
			counts += fmt.Sprintf(" (%s skipped)", plural(s.Skipped, "rename"))
		}
		body = append(body, StatusStyle.Render(counts))
	}
	p.println(SummaryBox.Render(strings.Join(body, "\n")))
}

// Message prints a single status line.
func (p *Printer) Message(msg string) {
	p.println(StatusStyle.Render(msg))
}

// plural formats n with a noun, e.g. "1 file", "3 files", "2 entries".
func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	switch {
	case strings.HasSuffix(noun, "y"):
		noun = strings.TrimSuffix(noun, "y") + "ies"
	default:
		noun += "s"
	}
	return humanize.Comma(int64(n)) + " " + noun
}
