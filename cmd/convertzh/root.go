package main

import (
	stderrors "errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"convertzh/internal/backup"
	"convertzh/internal/config"
	"convertzh/internal/convert"
	"convertzh/internal/encoding"
	"convertzh/internal/errors"
	"convertzh/internal/log"
	"convertzh/internal/process"
	"convertzh/internal/report"
	"convertzh/pkg/types"
)

// silentError marks a failure that was already reported to the user; the
// process still exits with status 1.
type silentError struct{ msg string }

func (e *silentError) Error() string { return e.msg }

var (
	errAborted   = &silentError{"aborted before making changes"}
	errRunFailed = &silentError{"completed with errors"}
)

func isSilent(err error) bool {
	var s *silentError
	return stderrors.As(err, &s)
}

type rootFlags struct {
	configFile string
	dryRun     bool
	backup     bool
	backupDir  string
	yes        bool
	noRename   bool
	noContent  bool
	verbose    int
	logFile    string
	logJSON    bool
	extensions []string
	exclude    []string
	profile    string
	collision  string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "convertzh [directory]",
		Short: "Convert Simplified Chinese text files to Taiwan Traditional Chinese",
		Long: `convertzh converts the content and names of text files below a directory
from Simplified Chinese to Taiwan-standard Traditional Chinese. Files of any
common Chinese encoding are read and written back as UTF-8. Directories are
renamed after everything inside them.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runConvert(cmd, f, root)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (default is $HOME/.config/convertzh/config.yaml)")
	pf.CountVarP(&f.verbose, "verbose", "v", "increase verbosity (-v info, -vv debug)")
	pf.StringVar(&f.logFile, "log-file", "", "also write a debug log to this file")
	pf.BoolVar(&f.logJSON, "log-json", false, "log as JSON lines")

	fl := rootCmd.Flags()
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "show what would change without touching any file")
	fl.BoolVarP(&f.backup, "backup", "b", false, "copy the directory before converting")
	fl.StringVar(&f.backupDir, "backup-dir", "", "backup destination (default <dir>_backup_<timestamp>)")
	fl.BoolVarP(&f.yes, "yes", "y", false, "do not ask for confirmation")
	fl.BoolVar(&f.noRename, "no-rename", false, "keep file and directory names")
	fl.BoolVar(&f.noContent, "no-content", false, "keep file contents")
	fl.StringSliceVar(&f.extensions, "ext", nil, "file extensions to convert (repeatable, default .txt)")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "glob of names or relative paths to skip (repeatable, default .*)")
	fl.StringVar(&f.profile, "profile", "", "OpenCC conversion profile (default s2twp)")
	fl.StringVar(&f.collision, "collision", "", "when a converted name exists: skip or rename")

	rootCmd.AddCommand(NewDetectCmd(f))
	rootCmd.AddCommand(NewConfigCmd(f))

	return rootCmd
}

// loadConfig reads --config or the default location.
func loadConfig(f *rootFlags) (*config.Config, error) {
	if f.configFile != "" {
		return config.Load(f.configFile)
	}
	return config.LoadConfig()
}

func newLogger(cmd *cobra.Command, f *rootFlags, cfg *config.Config) (*log.Logger, error) {
	opts := []log.Option{log.WithOutput(cmd.ErrOrStderr()), log.WithVerbosity(f.verbose)}
	if f.logJSON || cfg.Logging.JSON {
		opts = append(opts, log.WithJSON())
	}
	logFile := cfg.Logging.File
	if f.logFile != "" {
		logFile = f.logFile
	}
	if logFile != "" {
		opts = append(opts, log.WithFile(logFile))
	}
	return log.NewLogger(opts...)
}

func newDetector(cfg *config.Config, logger *log.Logger) (*encoding.Detector, error) {
	return encoding.New(
		encoding.WithCandidates(cfg.Encoding.Candidates...),
		encoding.WithMinConfidence(cfg.Encoding.MinConfidence),
		encoding.WithLogger(logger),
	)
}

// runOptions layers explicitly set flags over the configuration.
func runOptions(cmd *cobra.Command, f *rootFlags, cfg *config.Config) types.RunOptions {
	opts := cfg.RunOptions()
	fl := cmd.Flags()
	if fl.Changed("dry-run") {
		opts.DryRun = f.dryRun
	}
	if fl.Changed("backup") {
		opts.Backup = f.backup
	}
	if fl.Changed("backup-dir") {
		opts.BackupDir = f.backupDir
		opts.Backup = true
	}
	opts.SkipConfirm = f.yes
	if f.noRename {
		opts.RenameEntries = false
	}
	if f.noContent {
		opts.ConvertContent = false
	}
	opts.Verbosity = f.verbose
	if len(f.extensions) > 0 {
		opts.Extensions = f.extensions
	}
	if fl.Changed("exclude") {
		opts.Exclude = f.exclude
	}
	if f.collision != "" {
		opts.Collision = f.collision
	}
	return opts
}

func runConvert(cmd *cobra.Command, f *rootFlags, root string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, f, cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	opts := runOptions(cmd, f, cfg)
	profile := cfg.Convert.Profile
	if f.profile != "" {
		profile = f.profile
	}

	absRoot, err := process.ValidateRoot(root)
	if err != nil {
		return err
	}
	printer := report.New(out, absRoot)

	detector, err := newDetector(cfg, logger)
	if err != nil {
		return err
	}
	converter, err := convert.CurrentFactory(profile, logger)
	if err != nil {
		return err
	}
	engine, err := process.NewWithOptions(opts, detector, converter, logger)
	if err != nil {
		return err
	}

	tasks, err := engine.Scan(absRoot)
	if errors.IsNoEligibleFiles(err) {
		printer.Message("No eligible files found")
		printer.Summary(types.Summary{}, opts.DryRun)
		return nil
	}
	if err != nil {
		return err
	}
	printer.Candidates(tasks, report.DefaultCandidateLimit)

	if opts.DryRun {
		results := engine.ProcessTasks(tasks)
		printer.Preview(results)
		printer.Summary(types.Summarize(results), true)
		return nil
	}

	if !opts.Mutates() {
		printer.Message("Nothing to do: both content and name conversion are disabled")
		return nil
	}

	if !opts.SkipConfirm {
		in := cmd.InOrStdin()
		if !interactive(in) {
			logger.Warn("not running in a terminal and --yes was not given")
			printer.Summary(types.Summary{Aborted: true}, false)
			return errAborted
		}
		ok, err := confirm(in, out, confirmPrompt(len(tasks), opts.Backup))
		if err != nil {
			return err
		}
		if !ok {
			printer.Summary(types.Summary{Aborted: true}, false)
			return nil
		}
	}

	if opts.Backup {
		mgr := backup.New(logger, backup.WithTimestampFormat(cfg.Backup.TimestampFormat))
		stats, err := mgr.Snapshot(absRoot, opts.BackupDir)
		if err != nil {
			logger.WithError(err).Error("backup failed")
			printer.Summary(types.Summary{Aborted: true}, false)
			return err
		}
		printer.Backup(stats)
	}

	results := engine.ProcessTasks(tasks)
	summary := types.Summarize(results)
	printer.Failures(results)
	printer.Summary(summary, false)
	if summary.Failed > 0 {
		return errRunFailed
	}
	return nil
}

// writer helpers shared by subcommands
func fprintln(w io.Writer, s string) {
	io.WriteString(w, s+"\n")
}

func errorText(s string) string {
	return report.ErrorStyle.Render(s)
}

func stdinIsFile(in io.Reader) (*os.File, bool) {
	file, ok := in.(*os.File)
	return file, ok
}
