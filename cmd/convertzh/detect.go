package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"convertzh/internal/report"
)

// NewDetectCmd creates the detect command, which shows how each file would
// be decoded without converting anything.
func NewDetectCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE...",
		Short: "Show the encoding each file would be read with",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, f, cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			detector, err := newDetector(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				result, err := detector.DecodeFile(path)
				if err != nil {
					fprintln(out, errorText(fmt.Sprintf("%s: %v", path, err)))
					failed++
					continue
				}

				last := result.Guesses[len(result.Guesses)-1]
				line := fmt.Sprintf("%s: %s (%s", report.PathStyle.Render(path), result.Encoding, last.Source)
				if last.Confidence > 0 {
					line += fmt.Sprintf(", confidence %d", last.Confidence)
				}
				line += ")"
				if result.Lenient() {
					line += " " + report.WarningStyle.Render("invalid bytes replaced")
				}
				fprintln(out, line)

				if f.verbose > 0 {
					for _, g := range result.Guesses {
						status := "rejected"
						if g.OK {
							status = "ok"
						}
						fprintln(out, report.DetailStyle.Render(fmt.Sprintf("%-9s %-9s %s", g.Source, g.Encoding, status)))
					}
				}
			}
			if failed > 0 {
				return errRunFailed
			}
			return nil
		},
	}
}
