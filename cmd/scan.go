// =============================================================================
// Receipt Scanner - Scan and Log Commands
// =============================================================================
//
// This file defines the 'scan' and 'log' commands, which run the OCR stage
// over receipt images.
//
// COMMAND USAGE:
//   receipts scan [image...] [flags]
//   receipts log <image-or-text...> [flags]
//
// SCAN PIPELINE (per file, concurrently):
//   1. Preprocess the image and detect text regions
//   2. Recognize each region with Tesseract
//   3. scan: write <name>_<timestamp>.txt to the output directory
//      log:  parse the receipt and write <name>_<timestamp>.csv to the logs
//            directory
//   4. Optionally archive the image
//
// After the batch a summary is printed, and the run summary and the error
// log are written to the logs directory.
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/receipt-scanner/internal/config"
	"github.com/ginjaninja78/receipt-scanner/internal/ocr/tesseract"
	"github.com/ginjaninja78/receipt-scanner/internal/pipeline"
	"github.com/ginjaninja78/receipt-scanner/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// archiveInputs overrides the archive_inputs setting.
	archiveInputs bool

	// wholeImage overrides the ocr.whole_image setting.
	wholeImage bool

	// alsoLog makes 'scan' write the CSV receipt log as well.
	alsoLog bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

// scanCmd represents the 'scan' command.
var scanCmd = &cobra.Command{
	Use:   "scan [image...]",
	Short: "OCR receipt images into text files",
	Long: `Run OCR over receipt images and write the recognized text blocks to the
output directory, one file per image, blocks separated by a blank line.

With no arguments every .jpg, .jpeg and .png file in the input directory is
scanned.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args, true, alsoLog)
	},
}

// logCmd represents the 'log' command.
var logCmd = &cobra.Command{
	Use:   "log <image-or-text...>",
	Short: "Parse receipts into CSV receipt logs",
	Long: `Read each receipt, extract its line items and the subtotal, cash and change
fields, and write them to the logs directory as a CSV receipt log.

Images go through OCR first. A .txt file written by 'receipts scan' is parsed
directly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args, false, true)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(logCmd)

	for _, c := range []*cobra.Command{scanCmd, logCmd} {
		c.Flags().BoolVar(
			&archiveInputs,
			"archive",
			false,
			"Move scanned images to the archive directory",
		)
		c.Flags().BoolVar(
			&wholeImage,
			"whole-image",
			false,
			"Skip region detection and recognize the whole image at once",
		)
	}

	scanCmd.Flags().BoolVar(
		&alsoLog,
		"log",
		false,
		"Also write the CSV receipt log of each image",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runScan is shared by 'scan' and 'log'.
func runScan(cmd *cobra.Command, args []string, writeText, writeLog bool) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	mainConfig, logger, err := setup()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("archive") {
		mainConfig.ArchiveInputs = archiveInputs
	}
	if cmd.Flags().Changed("whole-image") {
		mainConfig.OCR.WholeImage = wholeImage
	}

	if err := mainConfig.EnsureDirectories(); err != nil {
		return err
	}

	profiles, err := loadProfiles(mainConfig, logger)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.ArchiveDir, mainConfig.ArchiveTimestampSubdirs)

	inputFiles := args
	if len(inputFiles) == 0 {
		inputFiles, err = files.DiscoverInputImages()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
		if len(inputFiles) == 0 {
			fmt.Printf("No receipt images found in %s.\n", mainConfig.InputDir)
			return nil
		}
	}

	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	opts := pipeline.NewScanOptions(mainConfig)
	opts.WriteText = writeText
	opts.WriteLog = writeLog

	scanner := pipeline.NewScanner(tesseract.New(), profiles, files, opts, logger)
	results := scanner.RunBatch(cmd.Context(), inputFiles, mainConfig.MaxConcurrency)

	// =========================================================================
	// STEP 4: PRINT RESULTS AND WRITE LOGS
	// =========================================================================

	return reportResults(mainConfig, results, startTime, logger)
}

// reportResults prints the outcome of a batch and writes the run summary and
// the error log.
//
// RETURNS:
//   - An error when every file failed.
func reportResults(mainConfig *config.MainConfig, results []pipeline.Result, startTime time.Time, logger zerolog.Logger) error {
	for _, result := range results {
		name := filepath.Base(result.FilePath)
		if !result.Success {
			fmt.Printf("  ✗ %s: %v\n", name, result.Error)
			continue
		}

		outputs := []string{}
		if result.TextFile != "" {
			outputs = append(outputs, result.TextFile)
		}
		if result.LogFile != "" {
			outputs = append(outputs, result.LogFile)
		}
		fmt.Printf("  ✓ %s -> %v (%d item(s), %d issue(s))\n", name, outputs, result.Stats.Items, len(result.Issues))
	}

	summary, entries := pipeline.BuildRunSummary(results, startTime, time.Now())

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Line items:      %d\n", summary.TotalItems)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if _, err := utils.WriteSummaryLog(summary, mainConfig.LogsDir); err != nil {
		logger.Warn().Err(err).Msg("failed to write run summary")
	}

	if len(entries) > 0 {
		errorLog, err := utils.WriteErrorLog(entries, mainConfig.LogsDir)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to write error log")
		} else {
			fmt.Printf("\nErrors and validation issues have been logged to %s\n", errorLog)
		}
	}

	if summary.TotalFiles > 0 && summary.SuccessfulFiles == 0 {
		return fmt.Errorf("all %d file(s) failed", summary.TotalFiles)
	}
	return nil
}
