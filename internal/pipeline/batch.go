package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ginjaninja78/receipt-scanner/pkg/utils"
)

// =============================================================================
// BATCH PROCESSING
// =============================================================================

// RunBatch scans every path with at most concurrency files in flight.
//
// Unless ContinueOnError is set, the first failure cancels the files that
// have not started yet; they are reported with the context error.
//
// RETURNS:
//   - One Result per path, sorted by path.
func (s *Scanner) RunBatch(ctx context.Context, paths []string, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Create a WaitGroup to wait for all goroutines to complete.
	var wg sync.WaitGroup

	// The semaphore bounds the number of images decoded at once.
	sem := make(chan struct{}, concurrency)

	// The channel is buffered to prevent blocking.
	results := make(chan Result, len(paths))

	for _, path := range paths {
		wg.Add(1)

		go func(filePath string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- Result{FilePath: filePath, Error: ctx.Err()}
				return
			}

			if err := ctx.Err(); err != nil {
				results <- Result{FilePath: filePath, Error: err}
				return
			}

			result := s.Run(ctx, filePath)
			if !result.Success && !s.opts.ContinueOnError {
				cancel()
			}
			results <- result
		}(path)
	}

	// Close the results channel once every worker is done.
	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]Result, 0, len(paths))
	for result := range results {
		collected = append(collected, result)
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].FilePath < collected[j].FilePath
	})
	return collected
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// BuildRunSummary turns batch results into a run summary and the error log
// entries for the failed files and the validation issues.
func BuildRunSummary(results []Result, start, end time.Time) (utils.RunSummary, []utils.ErrorLogEntry) {
	summary := utils.RunSummary{
		StartTime:  start,
		EndTime:    end,
		TotalFiles: len(results),
	}
	var entries []utils.ErrorLogEntry

	for _, r := range results {
		summary.TotalRegions += r.Stats.Regions
		summary.TotalBlocks += r.Stats.Blocks
		summary.TotalItems += r.Stats.Items
		summary.Issues += len(r.Issues)

		if !r.Success {
			summary.FailedFiles++
			msg := "unknown error"
			if r.Error != nil {
				msg = r.Error.Error()
			}
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    r.FilePath,
				ErrorMessage: msg,
			})
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    end,
				FileName:     r.FilePath,
				ErrorType:    "scan",
				ErrorMessage: msg,
			})
			continue
		}

		summary.SuccessfulFiles++
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   r.FilePath,
			TextFile:    r.TextFile,
			LogFile:     r.LogFile,
			ArchivePath: r.ArchivePath,
			Regions:     r.Stats.Regions,
			Items:       r.Stats.Items,
			ProcessTime: r.Stats.ProcessingTime,
		})

		for _, issue := range r.Issues {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    end,
				FileName:     r.FilePath,
				ErrorType:    "validation " + issue.Severity,
				ErrorMessage: issue.Message,
				LineNumber:   issue.LineNumber,
				FieldName:    issue.Field,
				FieldValue:   issue.Value,
			})
		}
	}

	return summary, entries
}
