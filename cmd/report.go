// =============================================================================
// Receipt Scanner - Report Command
// =============================================================================
//
// This file defines the 'report' command, which merges the text files in the
// output directory into one table and renders the summary charts.
//
// COMMAND USAGE:
//   receipts report [--top-n N] [--no-charts] [--merge-similar]
//
// OUTPUT (reports directory):
//   merged_receipts.csv     Item,Quantity,Price,Total
//   quantity_per_item.png   Total Quantity Sold per Item
//   sales_per_item.png      Total Sales Amount per Item
//   top_items.png           Top N Items by Quantity Sold
//   receipts_report.xlsx    the same data and charts as a workbook
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/receipt-scanner/internal/logstore"
	"github.com/ginjaninja78/receipt-scanner/internal/pipeline"
	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

var (
	// topN overrides report.top_n.
	topN int

	// noCharts disables the PNG charts.
	noCharts bool

	// mergeSimilar overrides report.merge_similar_names.
	mergeSimilar bool
)

// reportCmd represents the 'report' command.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Merge the scanned receipts and draw the charts",
	Long: `Read every text file in the output directory, extract the line items with
the matching parsing profile and merge them into one table. The merged rows
are written to a CSV file; the totals per item are drawn as PNG charts and
written to an XLSX workbook with native charts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, logger, err := setup()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("top-n") {
			if topN < 1 {
				return fmt.Errorf("--top-n must be at least 1, got %d", topN)
			}
			mainConfig.Report.TopN = topN
		}
		if noCharts {
			mainConfig.Report.Charts = false
		}
		if cmd.Flags().Changed("merge-similar") {
			mainConfig.Report.MergeSimilarNames = mergeSimilar
		}

		profiles, err := loadProfiles(mainConfig, logger)
		if err != nil {
			return err
		}

		reporter := pipeline.NewReporter(profiles, pipeline.NewReportOptions(mainConfig), logger)
		report, err := reporter.Run(cmd.Context())
		if errors.Is(err, logstore.ErrNoLogs) {
			fmt.Fprintf(cmd.OutOrStdout(), "No text files found in %s.\n", mainConfig.OutputDir)
			return nil
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== Report Complete ===")
		fmt.Fprintf(out, "Receipts merged: %d\n", report.Files)
		fmt.Fprintf(out, "Line items:      %d\n", report.Table.Len())
		fmt.Fprintf(out, "Quantity:        %d\n", report.Table.TotalQuantity())
		fmt.Fprintf(out, "Grand total:     %s\n", types.FormatMoney(report.GrandTotal, mainConfig.Currency))
		fmt.Fprintf(out, "Merged CSV:      %s\n", report.MergedFile)
		for _, path := range report.ChartFiles {
			fmt.Fprintf(out, "Chart:           %s\n", path)
		}
		if report.WorkbookFile != "" {
			fmt.Fprintf(out, "Workbook:        %s\n", report.WorkbookFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVar(
		&topN,
		"top-n",
		5,
		"Number of items in the top items chart",
	)
	reportCmd.Flags().BoolVar(
		&noCharts,
		"no-charts",
		false,
		"Skip the PNG charts",
	)
	reportCmd.Flags().BoolVar(
		&mergeSimilar,
		"merge-similar",
		false,
		"Merge OCR spelling variants of the same item name",
	)
}
