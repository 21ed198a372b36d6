package types

// Collision strategies applied when a converted name already exists.
const (
	CollisionSkip   = "skip"
	CollisionRename = "rename"
)

// RunOptions is the configuration snapshot of a single run. It is built once
// by the shell, from flags or a prompt, and is never modified afterwards.
type RunOptions struct {
	DryRun         bool     `yaml:"dry_run" json:"dry_run"`
	Backup         bool     `yaml:"backup" json:"backup"`
	BackupDir      string   `yaml:"backup_dir" json:"backup_dir,omitempty"`
	SkipConfirm    bool     `yaml:"skip_confirm" json:"skip_confirm"`
	ConvertContent bool     `yaml:"convert_content" json:"convert_content"`
	RenameEntries  bool     `yaml:"rename_entries" json:"rename_entries"`
	Verbosity      int      `yaml:"verbosity" json:"verbosity"`
	Extensions     []string `yaml:"extensions" json:"extensions"`
	Exclude        []string `yaml:"exclude" json:"exclude,omitempty"`
	Collision      string   `yaml:"collision" json:"collision"`
}

// DefaultRunOptions converts both content and names of .txt files.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		ConvertContent: true,
		RenameEntries:  true,
		Extensions:     []string{".txt"},
		Exclude:        []string{".*"},
		Collision:      CollisionSkip,
	}
}

// Mutates reports whether a run with these options may touch the filesystem.
func (o RunOptions) Mutates() bool {
	return !o.DryRun && (o.ConvertContent || o.RenameEntries)
}
