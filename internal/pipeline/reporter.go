package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/receipt-scanner/internal/aggregate"
	"github.com/ginjaninja78/receipt-scanner/internal/chart"
	"github.com/ginjaninja78/receipt-scanner/internal/config"
	"github.com/ginjaninja78/receipt-scanner/internal/logstore"
	"github.com/ginjaninja78/receipt-scanner/internal/receiptparser"
	"github.com/ginjaninja78/receipt-scanner/internal/types"
)

// =============================================================================
// REPORTER
// =============================================================================

// ReportOptions controls what Reporter.Run produces.
type ReportOptions struct {
	// TextDir holds the text-block files to merge.
	TextDir string

	// ReportsDir receives the merged CSV, the charts and the workbook.
	ReportsDir string

	// MergedFileName is the merged CSV file name.
	MergedFileName string

	// WorkbookName is the XLSX file name. Empty skips the workbook.
	WorkbookName string

	// Charts enables the PNG charts.
	Charts bool

	// Chart sets the PNG dimensions.
	Chart chart.Options

	// TopN is the number of items in the top items chart.
	TopN int

	// SimilarityDistance merges OCR spelling variants when positive.
	SimilarityDistance int
}

// NewReportOptions builds ReportOptions from the main configuration.
func NewReportOptions(cfg *config.MainConfig) ReportOptions {
	opts := ReportOptions{
		TextDir:        cfg.OutputDir,
		ReportsDir:     cfg.ReportsDir,
		MergedFileName: cfg.Report.MergedFileName,
		WorkbookName:   cfg.Report.WorkbookName,
		Charts:         cfg.Report.Charts,
		Chart: chart.Options{
			Width:  cfg.Report.ChartWidth,
			Height: cfg.Report.ChartHeight,
		},
		TopN: cfg.Report.TopN,
	}
	if cfg.Report.MergeSimilarNames {
		opts.SimilarityDistance = cfg.Report.SimilarityDistance
	}
	return opts
}

// Report describes the files written by Reporter.Run.
type Report struct {
	// Files is the number of text files merged.
	Files int

	// Table holds the merged rows.
	Table *aggregate.Table

	// GrandTotal is the sum of every line total.
	GrandTotal decimal.Decimal

	// MergedFile is the path of the merged CSV.
	MergedFile string

	// ChartFiles are the paths of the PNG charts, if any.
	ChartFiles []string

	// WorkbookFile is the path of the workbook, if any.
	WorkbookFile string
}

// Reporter merges the text files of many receipts into one report.
type Reporter struct {
	opts     ReportOptions
	profiles map[string]*config.Profile
	logger   zerolog.Logger
}

// NewReporter creates a Reporter.
func NewReporter(profiles map[string]*config.Profile, opts ReportOptions, logger zerolog.Logger) *Reporter {
	return &Reporter{
		opts:     opts,
		profiles: profiles,
		logger:   logger,
	}
}

// Run reads every text file in TextDir, merges their items and writes the
// merged CSV, the charts and the workbook.
//
// RETURNS:
//   - The report.
//   - logstore.ErrNoLogs (wrapped) if TextDir is missing or holds no text
//     files.
//   - An error if a file cannot be read or an output cannot be written.
func (r *Reporter) Run(ctx context.Context) (*Report, error) {
	paths, err := logstore.ListFiles(r.opts.TextDir, logstore.TextExtension)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", r.opts.TextDir, logstore.ErrNoLogs)
	}

	var items []types.LineItem
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		profile := config.MatchProfile(path, r.profiles)
		parser, err := receiptparser.New(profile, r.logger)
		if err != nil {
			return nil, err
		}

		fileItems, err := parser.ParseItemsFile(path)
		if err != nil {
			return nil, err
		}
		r.logger.Debug().Str("file", path).Int("items", len(fileItems)).Msg("merged text file")
		items = append(items, fileItems...)
	}

	table := aggregate.NewTable(items).MergeSimilarNames(r.opts.SimilarityDistance)
	report := &Report{
		Files:      len(paths),
		Table:      table,
		GrandTotal: table.GrandTotal(),
	}

	mergedName := r.opts.MergedFileName
	if mergedName == "" {
		mergedName = "merged_receipts.csv"
	}
	report.MergedFile = filepath.Join(r.opts.ReportsDir, mergedName)
	if err := logstore.WriteMerged(report.MergedFile, table.Items()); err != nil {
		return nil, err
	}

	if r.opts.Charts {
		chartFiles, err := chart.WriteCharts(r.opts.ReportsDir, table, r.opts.TopN, r.opts.Chart)
		if err != nil {
			return nil, fmt.Errorf("failed to write charts: %w", err)
		}
		report.ChartFiles = chartFiles
	}

	if r.opts.WorkbookName != "" {
		report.WorkbookFile = filepath.Join(r.opts.ReportsDir, r.opts.WorkbookName)
		if err := chart.WriteWorkbook(report.WorkbookFile, table, r.opts.TopN); err != nil {
			return nil, err
		}
	}

	r.logger.Info().
		Int("files", report.Files).
		Int("items", table.Len()).
		Str("total", report.GrandTotal.StringFixed(2)).
		Msg("report written")

	return report, nil
}
