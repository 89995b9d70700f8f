// =============================================================================
// Receipt Scanner - Summarize Command
// =============================================================================
//
// This file defines the 'summarize' command, which prints every CSV receipt
// log in the logs directory together with its validation issues.
//
// COMMAND USAGE:
//   receipts summarize [--strict]
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/receipt-scanner/internal/logstore"
	"github.com/ginjaninja78/receipt-scanner/internal/pipeline"
	"github.com/ginjaninja78/receipt-scanner/internal/validation"
)

// strict promotes validation warnings to errors.
var strict bool

// summarizeCmd represents the 'summarize' command.
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print the receipt logs",
	Long: `Read every CSV receipt log in the logs directory and print its items,
subtotal, cash and change, followed by any consistency problems: a subtotal
that does not match the items, or change that is not cash minus subtotal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, logger, err := setup()
		if err != nil {
			return err
		}

		validator := validation.NewValidator(validation.Options{
			Tolerance:             validation.DefaultTolerance,
			TreatWarningsAsErrors: strict,
		})

		summaries, err := pipeline.SummarizeLogs(mainConfig.LogsDir, validator)
		if errors.Is(err, logstore.ErrNoLogs) {
			fmt.Fprintf(cmd.OutOrStdout(), "No logs found in %s.\n", mainConfig.LogsDir)
			return nil
		}
		if err != nil {
			return err
		}

		logger.Debug().Int("receipts", len(summaries)).Msg("receipt logs read")
		return pipeline.WriteSummaries(cmd.OutOrStdout(), summaries, mainConfig.Currency)
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().BoolVar(
		&strict,
		"strict",
		false,
		"Report validation warnings as errors",
	)
}
