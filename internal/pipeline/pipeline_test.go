package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/receipt-scanner/internal/chart"
	"github.com/ginjaninja78/receipt-scanner/internal/config"
	"github.com/ginjaninja78/receipt-scanner/internal/logstore"
	"github.com/ginjaninja78/receipt-scanner/internal/ocr"
	"github.com/ginjaninja78/receipt-scanner/internal/validation"
	"github.com/ginjaninja78/receipt-scanner/pkg/utils"
)

const cafeReceipt = `Corner Cafe
Latte 2 4.50
Bagel 1 2.25
Subtotal 11.25
Cash 20.00
Change 8.75`

// fixedEngine returns the same text for every image.
type fixedEngine struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (e *fixedEngine) Name() string { return "fixed" }

func (e *fixedEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return ocr.Result{}, e.err
	}
	return ocr.Result{InputID: in.ID, Text: e.text}, nil
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, 10, 90, 20), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func testOptions(dir string) ScanOptions {
	return ScanOptions{
		OutputDir:       filepath.Join(dir, "output"),
		LogsDir:         filepath.Join(dir, "logs"),
		FileNameFormat:  "{name}_{timestamp}",
		WriteText:       true,
		WriteLog:        true,
		ContinueOnError: true,
		WholeImage:      true,
		Languages:       []string{"eng"},
		PageSegMode:     6,
		Validation:      validation.DefaultOptions(),
	}
}

func newTestScanner(engine ocr.Engine, files *utils.FileManager, opts ScanOptions) *Scanner {
	s := NewScanner(engine, map[string]*config.Profile{"default": config.DefaultProfile()}, files, opts, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC) }
	return s
}

func TestNewScanOptions(t *testing.T) {
	cfg := &config.MainConfig{
		OutputDir:     "out",
		LogsDir:       "logs",
		ArchiveInputs: true,
		OCR:           config.OCRSettings{Language: "eng+spa", PageSegMode: 4},
		Preprocess:    config.PreprocessSettings{BlurSigma: 2, DilateKernel: 3, MinRegionArea: 50, UpscaleMinWidth: 800},
	}

	opts := NewScanOptions(cfg)
	assert.Equal(t, []string{"eng", "spa"}, opts.Languages)
	assert.Equal(t, 4, opts.PageSegMode)
	assert.True(t, opts.Archive)
	assert.Equal(t, 3, opts.Preprocess.DilateKernel)
	assert.Equal(t, 800, opts.Preprocess.UpscaleMinWidth)
	assert.False(t, opts.WriteText)
	assert.False(t, opts.WriteLog)
}

func TestScannerRun_Image(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input", "cafe.png")
	writeImage(t, input)

	opts := testOptions(dir)
	opts.Archive = true
	files := utils.NewFileManager(filepath.Join(dir, "input"), filepath.Join(dir, "archive"), false)
	engine := &fixedEngine{text: cafeReceipt}

	result := newTestScanner(engine, files, opts).Run(context.Background(), input)
	require.NoError(t, result.Error)
	require.True(t, result.Success)

	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, 1, result.Stats.Blocks)
	assert.Equal(t, 2, result.Stats.Items)
	assert.Empty(t, result.Issues)

	assert.Equal(t, filepath.Join(dir, "output", "cafe_20240115_143022.txt"), result.TextFile)
	blocks, err := logstore.ReadTextBlocks(result.TextFile)
	require.NoError(t, err)
	assert.Equal(t, []string{cafeReceipt}, blocks)

	assert.Equal(t, filepath.Join(dir, "logs", "cafe_20240115_143022.csv"), result.LogFile)
	receipt, err := logstore.ReadReceiptLog(result.LogFile)
	require.NoError(t, err)
	require.Len(t, receipt.Items, 2)
	assert.Equal(t, "9.00", receipt.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "8.75", receipt.Change.StringFixed(2))

	assert.Equal(t, filepath.Join(dir, "archive", "cafe.png"), result.ArchivePath)
	assert.NoFileExists(t, input)
}

func TestScannerRun_TextInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "output", "bar_20240101_000000.txt")
	require.NoError(t, logstore.WriteTextBlocks(input, []string{"Lager 3 5.00\nSubtotal 15.00\nCash 10.00\nChange 1.00"}))

	opts := testOptions(dir)
	opts.Archive = true
	result := newTestScanner(nil, nil, opts).Run(context.Background(), input)
	require.NoError(t, result.Error)

	assert.Empty(t, result.TextFile, "text inputs are not rewritten")
	assert.Empty(t, result.ArchivePath)
	assert.FileExists(t, result.LogFile)

	rules := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		rules = append(rules, issue.Rule)
	}
	assert.Equal(t, []string{"cash_covers_subtotal", "change_matches_cash"}, rules)
}

func TestScannerRun_Failures(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cafe.png")
	writeImage(t, input)

	t.Run("engine error", func(t *testing.T) {
		boom := errors.New("tesseract exploded")
		result := newTestScanner(&fixedEngine{err: boom}, nil, testOptions(dir)).Run(context.Background(), input)
		assert.False(t, result.Success)
		assert.ErrorIs(t, result.Error, boom)
	})

	t.Run("nothing recognized", func(t *testing.T) {
		result := newTestScanner(&fixedEngine{text: "Thank you!"}, nil, testOptions(dir)).Run(context.Background(), input)
		assert.False(t, result.Success)
		assert.Error(t, result.Error)
	})

	t.Run("not an image", func(t *testing.T) {
		bad := filepath.Join(dir, "broken.jpg")
		require.NoError(t, os.WriteFile(bad, []byte("not a jpeg"), 0644))
		result := newTestScanner(&fixedEngine{text: cafeReceipt}, nil, testOptions(dir)).Run(context.Background(), bad)
		assert.False(t, result.Success)
	})

	t.Run("no engine", func(t *testing.T) {
		result := newTestScanner(nil, nil, testOptions(dir)).Run(context.Background(), input)
		assert.False(t, result.Success)
	})
}

func TestScannerRun_TextOnly(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cafe.png")
	writeImage(t, input)

	opts := testOptions(dir)
	opts.WriteLog = false
	result := newTestScanner(&fixedEngine{text: "Thank you!"}, nil, opts).Run(context.Background(), input)
	require.NoError(t, result.Error)
	assert.NotEmpty(t, result.TextFile)
	assert.Empty(t, result.LogFile)
	assert.Nil(t, result.Receipt)
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "c.png"),
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
	}
	writeImage(t, paths[0])
	writeImage(t, paths[1])
	require.NoError(t, os.WriteFile(paths[2], []byte("garbage"), 0644))

	opts := testOptions(dir)
	opts.FileNameFormat = "{name}"
	results := newTestScanner(&fixedEngine{text: cafeReceipt}, nil, opts).RunBatch(context.Background(), paths, 2)
	require.Len(t, results, 3)

	assert.Equal(t, paths[1], results[0].FilePath)
	assert.Equal(t, paths[2], results[1].FilePath)
	assert.Equal(t, paths[0], results[2].FilePath)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)

	summary, entries := BuildRunSummary(results, time.Now(), time.Now())
	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.SuccessfulFiles)
	assert.Equal(t, 1, summary.FailedFiles)
	assert.Equal(t, 4, summary.TotalItems)
	require.Len(t, entries, 1)
	assert.Equal(t, paths[2], entries[0].FileName)
	assert.Equal(t, "scan", entries[0].ErrorType)
}

func TestRunBatch_SameBaseName(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "input", "receipt.png"),
		filepath.Join(dir, "other", "receipt.png"),
	}
	for _, path := range paths {
		writeImage(t, path)
	}

	opts := testOptions(dir)
	results := newTestScanner(&fixedEngine{text: cafeReceipt}, nil, opts).RunBatch(context.Background(), paths, 2)
	require.Len(t, results, 2)
	require.True(t, results[0].Success)
	require.True(t, results[1].Success)

	assert.NotEqual(t, results[0].TextFile, results[1].TextFile)
	assert.NotEqual(t, results[0].LogFile, results[1].LogFile)
	assert.ElementsMatch(t,
		[]string{
			filepath.Join(dir, "logs", "receipt_20240115_143022.csv"),
			filepath.Join(dir, "logs", "receipt_20240115_143022_2.csv"),
		},
		[]string{results[0].LogFile, results[1].LogFile},
	)
	for _, result := range results {
		assert.FileExists(t, result.TextFile)
		assert.FileExists(t, result.LogFile)
		assert.Equal(t,
			strings.TrimSuffix(filepath.Base(result.TextFile), logstore.TextExtension),
			strings.TrimSuffix(filepath.Base(result.LogFile), logstore.LogExtension),
			"text file and log share a name",
		)
	}

	summaries, err := SummarizeLogs(opts.LogsDir, validation.NewValidator(validation.DefaultOptions()))
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestRunBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "a.png")
	writeImage(t, input)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fixedEngine{text: cafeReceipt}
	results := newTestScanner(engine, nil, testOptions(dir)).RunBatch(ctx, []string{input}, 0)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, context.Canceled)
	assert.Zero(t, engine.calls)
}

func TestReporterRun(t *testing.T) {
	dir := t.TempDir()
	textDir := filepath.Join(dir, "output")
	require.NoError(t, logstore.WriteTextBlocks(filepath.Join(textDir, "a.txt"), []string{"Latte 2 4.50\nBagel 1 2.25", "Subtotal 11.25"}))
	require.NoError(t, logstore.WriteTextBlocks(filepath.Join(textDir, "b.txt"), []string{"Latte 1 4.50\nLate 1 4.50\nThank you"}))

	opts := ReportOptions{
		TextDir:            textDir,
		ReportsDir:         filepath.Join(dir, "reports"),
		MergedFileName:     "merged_receipts.csv",
		WorkbookName:       "report.xlsx",
		Charts:             true,
		Chart:              chart.Options{Width: 300, Height: 200},
		TopN:               2,
		SimilarityDistance: 1,
	}
	report, err := NewReporter(nil, opts, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, "20.25", report.GrandTotal.StringFixed(2))
	assert.Len(t, report.ChartFiles, 3)
	assert.FileExists(t, report.WorkbookFile)

	merged, err := logstore.ReadMerged(report.MergedFile)
	require.NoError(t, err)
	require.Len(t, merged, 4)

	groups := report.Table.ByItem()
	require.Len(t, groups, 2)
	assert.Equal(t, "Latte", groups[0].Name)
	assert.Equal(t, 4, groups[0].Quantity)
}

func TestReporterRun_NoText(t *testing.T) {
	dir := t.TempDir()
	opts := ReportOptions{TextDir: filepath.Join(dir, "missing"), ReportsDir: dir, TopN: 5}

	_, err := NewReporter(nil, opts, zerolog.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, logstore.ErrNoLogs)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0755))
	opts.TextDir = filepath.Join(dir, "empty")
	_, err = NewReporter(nil, opts, zerolog.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, logstore.ErrNoLogs)
}

func TestNewReportOptions(t *testing.T) {
	cfg := &config.MainConfig{
		OutputDir:  "out",
		ReportsDir: "reports",
		Report:     config.ReportSettings{TopN: 3, SimilarityDistance: 2},
	}
	assert.Zero(t, NewReportOptions(cfg).SimilarityDistance)

	cfg.Report.MergeSimilarNames = true
	opts := NewReportOptions(cfg)
	assert.Equal(t, 2, opts.SimilarityDistance)
	assert.Equal(t, "out", opts.TextDir)
	assert.Equal(t, 3, opts.TopN)
}

func TestSummarizeLogs(t *testing.T) {
	dir := t.TempDir()
	_, err := SummarizeLogs(filepath.Join(dir, "missing"), validation.NewValidator(validation.DefaultOptions()))
	assert.ErrorIs(t, err, logstore.ErrNoLogs)

	input := filepath.Join(dir, "cafe.png")
	writeImage(t, input)
	opts := testOptions(dir)
	opts.WriteText = false
	result := newTestScanner(&fixedEngine{text: cafeReceipt}, nil, opts).Run(context.Background(), input)
	require.NoError(t, result.Error)

	summaries, err := SummarizeLogs(opts.LogsDir, validation.NewValidator(validation.DefaultOptions()))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Empty(t, summaries[0].Issues)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, summaries, "USD"))
	out := buf.String()
	assert.Contains(t, out, "=== cafe_20240115_143022.csv ===")
	assert.Contains(t, out, "Subtotal:    $11.25")
	assert.Contains(t, out, "No validation issues.")
	assert.Contains(t, out, "Amount:     $11.25")
}
