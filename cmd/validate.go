// =============================================================================
// Receipt Scanner - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which loads the main
// configuration and every parsing profile without processing any file.
//
// COMMAND USAGE:
//   receipts validate
//
// =============================================================================

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and parsing profiles",
	Long: `Load the main configuration and every parsing profile, report the first
problem found, and print the settings that will be used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, logger, err := setup()
		if err != nil {
			return err
		}

		profiles, err := loadProfiles(mainConfig, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== Configuration ===")
		fmt.Fprintf(out, "Input directory:   %s\n", mainConfig.InputDir)
		fmt.Fprintf(out, "Output directory:  %s\n", mainConfig.OutputDir)
		fmt.Fprintf(out, "Logs directory:    %s\n", mainConfig.LogsDir)
		fmt.Fprintf(out, "Reports directory: %s\n", mainConfig.ReportsDir)
		fmt.Fprintf(out, "OCR language:      %s (psm %d)\n", mainConfig.OCR.Language, mainConfig.OCR.PageSegMode)
		fmt.Fprintf(out, "Concurrency:       %d\n", mainConfig.MaxConcurrency)

		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(out, "\n=== Parsing Profiles (%d) ===\n", len(profiles))
		for _, name := range names {
			p := profiles[name]
			patterns := "(fallback)"
			if len(p.FileMatchingPatterns) > 0 {
				patterns = strings.Join(p.FileMatchingPatterns, ", ")
			}
			fmt.Fprintf(out, "  %s: strategy=%s price=%s keywords=%d rules=%d files=%s\n",
				p.Name, p.Strategy, p.PriceKind, len(p.IgnoreKeywords), len(p.NameRules), patterns)
		}

		fmt.Fprintln(out, "\nConfiguration is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
