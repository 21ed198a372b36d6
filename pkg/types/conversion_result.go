package types

import "path/filepath"

// ConversionResult holds the outcome of processing a single entry
type ConversionResult struct {
	Kind           EntryKind `json:"kind"`
	OriginalPath   string    `json:"original_path"`
	NewPath        string    `json:"new_path"`
	Encoding       string    `json:"encoding,omitempty"`
	ContentChanged bool      `json:"content_changed"`
	Reencoded      bool      `json:"reencoded"`     // Source bytes were not canonical UTF-8
	ChangedLines   int       `json:"changed_lines"` // Preview only
	Written        bool      `json:"written"`
	Renamed        bool      `json:"renamed"`
	Skipped        bool      `json:"skipped"`
	SkipReason     string    `json:"skip_reason,omitempty"`
	Error          error     `json:"-"`
}

// NameChanged reports whether the entry has (or would have) a new name.
func (r ConversionResult) NameChanged() bool {
	return filepath.Base(r.OriginalPath) != filepath.Base(r.NewPath)
}

// Changed reports whether the entry needed any change.
func (r ConversionResult) Changed() bool {
	return r.ContentChanged || r.Reencoded || r.NameChanged()
}

// Failed reports whether processing the entry ended in an error.
func (r ConversionResult) Failed() bool {
	return r.Error != nil
}

// Outcome classifies a whole run for the final report.
type Outcome string

const (
	OutcomeNoChanges           Outcome = "no-changes"
	OutcomeCompleted           Outcome = "completed"
	OutcomeCompletedWithErrors Outcome = "completed-with-errors"
	OutcomeAborted             Outcome = "aborted"
)

// Summary aggregates the results of a run.
type Summary struct {
	Total     int  `json:"total"`
	Files     int  `json:"files"`
	Dirs      int  `json:"dirs"`
	Changed   int  `json:"changed"`
	Unchanged int  `json:"unchanged"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Aborted   bool `json:"aborted"`
}

// Summarize counts results. Every entry is exactly one of failed, changed or
// unchanged. Skipped counts blocked renames on top of that, so a file whose
// content was rewritten but whose rename was skipped is changed and skipped.
func Summarize(results []ConversionResult) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		if r.Kind == KindDir {
			s.Dirs++
		} else {
			s.Files++
		}
		if r.Skipped {
			s.Skipped++
		}
		switch {
		case r.Failed():
			s.Failed++
		case r.Changed():
			s.Changed++
		default:
			s.Unchanged++
		}
	}
	return s
}

// Succeeded is the number of entries processed without error.
func (s Summary) Succeeded() int {
	return s.Total - s.Failed
}

// Outcome returns the run classification shown to the user.
func (s Summary) Outcome() Outcome {
	switch {
	case s.Aborted:
		return OutcomeAborted
	case s.Failed > 0:
		return OutcomeCompletedWithErrors
	case s.Changed == 0:
		return OutcomeNoChanges
	default:
		return OutcomeCompleted
	}
}
