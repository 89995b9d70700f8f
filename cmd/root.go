// =============================================================================
// Receipt Scanner - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (receipts)
//   ├── scanCmd      (receipts scan)      image -> text file
//   ├── logCmd       (receipts log)       image or text -> CSV receipt log
//   ├── summarizeCmd (receipts summarize) CSV logs -> printed summaries
//   ├── reportCmd    (receipts report)    text files -> merged CSV + charts
//   ├── validateCmd  (receipts validate)  check configuration and profiles
//   └── versionCmd   (receipts version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration through Viper
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/receipt-scanner/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "receipts",

	Short: "Receipt Scanner - Extract line items from receipt photos and report on them",

	Long: `Receipt Scanner reads photographed retail receipts with OCR, extracts the
item, quantity and price of every line together with the subtotal, cash and
change fields, and aggregates many receipts into a merged CSV, charts and an
XLSX workbook.

Key Features:
  - Image preprocessing and text region detection before OCR
  - Per-layout parsing profiles with name normalization rules
  - Consistency checks on subtotal, cash and change
  - Concurrent processing of image batches
  - PNG charts and a workbook with native charts

Example Usage:
  receipts scan photos/cafe.jpg      # OCR one receipt into ./output
  receipts scan                      # OCR every image in the input directory
  receipts log photos/cafe.jpg       # Write the CSV receipt log into ./logs
  receipts summarize                 # Print every receipt log
  receipts report                    # Merge ./output and draw the charts
  receipts validate                  # Check configuration and profiles`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print the help message.
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
// SIGINT and SIGTERM cancel the context passed to the commands.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	// --config flag: Allows the user to specify a custom configuration file.
	// A missing file is not an error; defaults and RECEIPTS_* environment
	// variables apply.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// setup loads the main configuration and builds the logger.
func setup() (*config.MainConfig, zerolog.Logger, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load main config: %w", err)
	}

	if verbose {
		mainConfig.LogLevel = "debug"
	}

	logger := config.NewLogger(mainConfig.LogLevel, mainConfig.LogFormat, os.Stderr)
	logger.Debug().Str("config", cfgFile).Msg("configuration loaded")

	return mainConfig, logger, nil
}

// loadProfiles loads the parsing profiles named by the main configuration.
func loadProfiles(mainConfig *config.MainConfig, logger zerolog.Logger) (map[string]*config.Profile, error) {
	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load parsing profiles: %w", err)
	}
	logger.Debug().Int("profiles", len(profiles)).Str("dir", mainConfig.ProfilesDir).Msg("profiles loaded")
	return profiles, nil
}
