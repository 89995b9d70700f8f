// =============================================================================
// Receipt Scanner - Scan Pipeline
// =============================================================================
//
// This module orchestrates the OCR stage for a single receipt image, from
// decoding the photo to writing the text file and the receipt log.
//
// SCAN PIPELINE:
//   1. Decode the image (or read the blocks of an existing .txt file)
//   2. Preprocess and detect text regions
//   3. Recognize each region with the OCR engine
//   4. Write the text-block file
//   5. Parse the receipt summary and write the CSV log
//   6. Validate the receipt
//   7. Archive the input image
//
// CONCURRENCY:
//   A Scanner holds no per-image state, so RunBatch calls Run from several
//   goroutines at once. Output names are reserved through one shared
//   utils.OutputNames, so inputs with the same base name never overwrite
//   each other's files.
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/receipt-scanner/internal/config"
	"github.com/ginjaninja78/receipt-scanner/internal/imageprep"
	"github.com/ginjaninja78/receipt-scanner/internal/logstore"
	"github.com/ginjaninja78/receipt-scanner/internal/ocr"
	"github.com/ginjaninja78/receipt-scanner/internal/receiptparser"
	"github.com/ginjaninja78/receipt-scanner/internal/types"
	"github.com/ginjaninja78/receipt-scanner/internal/validation"
	"github.com/ginjaninja78/receipt-scanner/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of scanning a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// TextFile is the path to the generated text-block file.
	// Empty when no text file was written.
	TextFile string

	// LogFile is the path to the generated CSV receipt log.
	// Empty when no log was written.
	LogFile string

	// ArchivePath is where the input image was moved to, if it was.
	ArchivePath string

	// Receipt is the parsed receipt summary when a log was requested.
	Receipt *types.Receipt

	// Issues are the validation findings for Receipt.
	Issues []*validation.Issue

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats Stats
}

// Stats contains statistics about the processing of one file.
type Stats struct {
	// Regions is the number of text regions detected in the image.
	Regions int

	// Blocks is the number of regions that produced text.
	Blocks int

	// Items is the number of line items parsed.
	Items int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// SCANNER STRUCTURE
// =============================================================================

// ScanOptions controls what Run produces.
type ScanOptions struct {
	// OutputDir receives the text-block files.
	OutputDir string

	// LogsDir receives the CSV receipt logs.
	LogsDir string

	// FileNameFormat names the generated files. See
	// utils.GenerateOutputFileName.
	FileNameFormat string

	// WriteText writes the text-block file of each image.
	WriteText bool

	// WriteLog parses the receipt and writes its CSV log.
	WriteLog bool

	// Archive moves each successfully scanned image to the archive.
	Archive bool

	// ContinueOnError keeps a batch going after a failed file.
	ContinueOnError bool

	// WholeImage skips region detection.
	WholeImage bool

	// Languages and PageSegMode are passed to the OCR engine.
	Languages   []string
	PageSegMode int

	// Preprocess configures image preprocessing.
	Preprocess imageprep.Options

	// Validation configures the receipt checks.
	Validation validation.Options
}

// NewScanOptions builds ScanOptions from the main configuration.
// The caller chooses WriteText and WriteLog.
func NewScanOptions(cfg *config.MainConfig) ScanOptions {
	return ScanOptions{
		OutputDir:       cfg.OutputDir,
		LogsDir:         cfg.LogsDir,
		FileNameFormat:  cfg.FileNameFormat,
		Archive:         cfg.ArchiveInputs,
		ContinueOnError: cfg.ContinueOnError,
		WholeImage:      cfg.OCR.WholeImage,
		Languages:       splitLanguages(cfg.OCR.Language),
		PageSegMode:     cfg.OCR.PageSegMode,
		Preprocess: imageprep.Options{
			BlurSigma:       cfg.Preprocess.BlurSigma,
			DilateKernel:    cfg.Preprocess.DilateKernel,
			MinRegionArea:   cfg.Preprocess.MinRegionArea,
			UpscaleMinWidth: cfg.Preprocess.UpscaleMinWidth,
		},
		Validation: validation.DefaultOptions(),
	}
}

// splitLanguages turns "eng+spa" into ["eng", "spa"].
func splitLanguages(language string) []string {
	var langs []string
	for _, l := range strings.Split(language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// Scanner runs the scan pipeline for receipt images.
type Scanner struct {
	opts      ScanOptions
	engine    ocr.Engine
	profiles  map[string]*config.Profile
	files     *utils.FileManager
	validator *validation.Validator
	names     *utils.OutputNames
	logger    zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewScanner creates a Scanner.
//
// PARAMETERS:
//   - engine: The OCR engine. Only needed for image inputs.
//   - profiles: The parsing profiles, see config.LoadProfiles.
//   - files: Archives the inputs when opts.Archive is set. May be nil
//     otherwise.
//   - opts: What to produce.
//   - logger: The logger.
func NewScanner(engine ocr.Engine, profiles map[string]*config.Profile, files *utils.FileManager, opts ScanOptions, logger zerolog.Logger) *Scanner {
	return &Scanner{
		opts:      opts,
		engine:    engine,
		profiles:  profiles,
		files:     files,
		validator: validation.NewValidator(opts.Validation),
		names:     utils.NewOutputNames(),
		logger:    logger,
		now:       time.Now,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run scans one file. Image files go through OCR; a .txt file is taken to
// be a text-block file written by an earlier scan and is only parsed.
//
// RETURNS:
//   - A Result describing the outcome. Run never panics on bad input; the
//     error is reported in Result.Error.
func (s *Scanner) Run(ctx context.Context, path string) (result Result) {
	startTime := time.Now()
	result = Result{FilePath: path}
	logger := s.logger.With().Str("file", path).Logger()

	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEP 1-3: OBTAIN THE TEXT BLOCKS
	// =========================================================================

	isText := strings.EqualFold(filepath.Ext(path), logstore.TextExtension)

	var blocks []string
	if isText {
		var err error
		blocks, err = logstore.ReadTextBlocks(path)
		if err != nil {
			result.Error = err
			return result
		}
		result.Stats.Blocks = len(blocks)
	} else {
		recognized, regions, err := s.recognize(ctx, path)
		if err != nil {
			result.Error = err
			return result
		}
		blocks = ocr.Texts(recognized)
		result.Stats.Regions = regions
		result.Stats.Blocks = len(recognized)
	}

	logger.Debug().
		Int("regions", result.Stats.Regions).
		Int("blocks", result.Stats.Blocks).
		Msg("text extracted")

	// The text file and the log share one reserved name.
	stem := s.names.Reserve(utils.GenerateOutputFileName(s.opts.FileNameFormat, path, "", s.now()))

	// =========================================================================
	// STEP 4: WRITE THE TEXT FILE
	// =========================================================================

	if s.opts.WriteText && !isText {
		textPath := filepath.Join(s.opts.OutputDir, withExtension(stem, logstore.TextExtension))
		if err := logstore.WriteTextBlocks(textPath, blocks); err != nil {
			result.Error = err
			return result
		}
		result.TextFile = textPath
		logger.Info().Str("output", textPath).Int("blocks", len(blocks)).Msg("wrote text file")
	}

	// =========================================================================
	// STEP 5-6: PARSE, LOG AND VALIDATE THE RECEIPT
	// =========================================================================

	if s.opts.WriteLog {
		receipt, err := s.parseReceipt(path, blocks, logger)
		if err != nil {
			result.Error = err
			return result
		}
		result.Receipt = receipt
		result.Stats.Items = len(receipt.Items)

		logPath := filepath.Join(s.opts.LogsDir, withExtension(stem, logstore.LogExtension))
		if err := logstore.WriteReceiptLog(logPath, receipt); err != nil {
			result.Error = err
			return result
		}
		result.LogFile = logPath

		result.Issues = s.validator.Validate(receipt)
		for _, issue := range result.Issues {
			logger.Warn().Str("rule", issue.Rule).Msg(issue.Message)
		}

		logger.Info().
			Str("output", logPath).
			Int("items", len(receipt.Items)).
			Int("issues", len(result.Issues)).
			Msg("wrote receipt log")
	}

	// =========================================================================
	// STEP 7: ARCHIVE THE INPUT
	// =========================================================================

	if s.opts.Archive && !isText && s.files != nil {
		archived, err := s.files.ArchiveInputFile(path)
		if err != nil {
			// The outputs exist; a failed move does not fail the scan.
			logger.Warn().Err(err).Msg("failed to archive input")
		} else {
			result.ArchivePath = archived
		}
	}

	result.Success = true
	return result
}

// withExtension appends ext to name unless name already ends with it.
func withExtension(name, ext string) string {
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name
	}
	return name + ext
}

// recognize loads the image, finds its text regions and runs OCR on them.
func (s *Scanner) recognize(ctx context.Context, path string) ([]ocr.Block, int, error) {
	if s.engine == nil {
		return nil, 0, fmt.Errorf("%s: no OCR engine configured", path)
	}

	img, err := imageprep.Load(path)
	if err != nil {
		return nil, 0, err
	}

	var regions []image.Rectangle
	if s.opts.WholeImage {
		img = imageprep.Upscale(img, s.opts.Preprocess.UpscaleMinWidth)
	} else {
		var prepared *imageprep.Prepared
		prepared, regions = imageprep.Detect(img, s.opts.Preprocess)
		img = prepared.Image
	}

	recognizer := ocr.NewRecognizer(s.engine, s.opts.Languages, s.opts.PageSegMode, s.logger)
	blocks, err := recognizer.RecognizeRegions(ctx, img, regions)
	if err != nil {
		return nil, len(regions), fmt.Errorf("%s: %w", path, err)
	}
	return blocks, len(regions), nil
}

// parseReceipt parses the blocks with the profile matching path.
func (s *Scanner) parseReceipt(path string, blocks []string, logger zerolog.Logger) (*types.Receipt, error) {
	profile := config.MatchProfile(path, s.profiles)
	parser, err := receiptparser.New(profile, logger)
	if err != nil {
		return nil, err
	}

	receipt, err := parser.ParseReceipt(strings.NewReader(strings.Join(blocks, "\n")), path)
	if err != nil {
		if errors.Is(err, receiptparser.ErrNoItems) {
			logger.Warn().Str("profile", profile.Name).Msg("no receipt data recognized")
		}
		return nil, err
	}
	return receipt, nil
}
