// =============================================================================
// Receipt Scanner - Log Store
// =============================================================================
//
// This module reads and writes the flat files produced for each receipt:
//
//   - Text files (<name>_<timestamp>.txt): the cleaned OCR text blocks of one
//     image, separated by a blank line.
//   - Receipt logs (<name>_<timestamp>.csv): one "name,quantity,total" row per
//     item, then "Subtotal,<v>", "Cash,<v>" and "Change,<v>" rows.
//   - The merged file (merged_receipts.csv): every item of every receipt with
//     an "Item,Quantity,Price,Total" header.
//
// None of these formats carries a version or a schema. Readers are lenient:
// rows that cannot be understood are skipped, not reported.
//
// =============================================================================

package logstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TextExtension is the extension of OCR text files.
const TextExtension = ".txt"

// =============================================================================
// TEXT BLOCK FILES
// =============================================================================

// WriteTextBlocks writes OCR text blocks to path.
//
// PARAMETERS:
//   - path: The output file path. Its directory is created if needed.
//   - blocks: The text blocks, in reading order.
//
// RETURNS:
//   - An error if the file cannot be written.
//
// FORMAT:
//   Every block is followed by one blank line, so a file with blocks
//   "A" and "B" reads "A\n\nB\n\n".
func WriteTextBlocks(path string, blocks []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create text file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, block := range blocks {
		if _, err := writer.WriteString(block + "\n\n"); err != nil {
			return fmt.Errorf("failed to write text file: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write text file: %w", err)
	}
	return nil
}

// ReadTextBlocks reads a file written by WriteTextBlocks back into blocks.
func ReadTextBlocks(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var blocks []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}
