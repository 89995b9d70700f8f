// =============================================================================
// Receipt Scanner - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Receipt Scanner CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   receipts scan [image...]   - OCR receipt images into text files
//   receipts log <file...>     - Parse receipts into CSV receipt logs
//   receipts summarize         - Print every receipt log
//   receipts report            - Merge receipts, write the CSV, charts and workbook
//   receipts validate          - Validate configuration and parsing profiles
//   receipts version           - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core logic (OCR, parsing, aggregation, charts)
//   - pkg/           : Shared file utilities
//   - configs/       : Parsing profile YAML files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/receipt-scanner/cmd"
)

func main() {
	cmd.Execute()
}
