// =============================================================================
// Receipt Scanner - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the parsing profiles
// that describe individual receipt layouts.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings, loaded with
//      Viper so that every key can be overridden from the environment
//      (RECEIPTS_OUTPUT_DIR, RECEIPTS_OCR_LANGUAGE, ...).
//   2. Parsing Profiles (configs/*.yaml): Receipt-layout specific rules
//      (see profiles.go).
//
// A missing main config file is not an error: the defaults below reproduce
// the fixed folders the tool has always used (./output, ./logs).
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "RECEIPTS"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for receipt images when no path is given.
	// Default: "./input"
	InputDir string `mapstructure:"input_dir"`

	// OutputDir receives the OCR text files, one per image.
	// The report command reads its input from here.
	// Default: "./output"
	OutputDir string `mapstructure:"output_dir"`

	// LogsDir receives the per-receipt CSV logs.
	// Default: "./logs"
	LogsDir string `mapstructure:"logs_dir"`

	// ReportsDir receives the merged CSV, the charts and the workbook.
	// Default: "./output"
	ReportsDir string `mapstructure:"reports_dir"`

	// ArchiveDir is where processed images are moved when archiving is on.
	// Default: "./input_archive"
	ArchiveDir string `mapstructure:"archive_dir"`

	// ProfilesDir contains the parsing profile YAML files.
	// Default: "./configs"
	ProfilesDir string `mapstructure:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "console" for humans or "json" for machines.
	// Default: "console"
	LogFormat string `mapstructure:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// FileNameFormat defines the base name of generated text and CSV files.
	// Placeholders:
	//   {name}      - Input file name without extension
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {uuid}      - A random UUID
	// Default: "{name}_{timestamp}"
	FileNameFormat string `mapstructure:"file_name_format"`

	// Currency is the ISO-4217 code used when printing amounts.
	// Default: "USD"
	Currency string `mapstructure:"currency"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of images processed at once.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `mapstructure:"max_concurrency"`

	// ContinueOnError keeps a batch going when one file fails.
	// Default: true
	ContinueOnError bool `mapstructure:"continue_on_error"`

	// ArchiveInputs moves every successfully scanned image to ArchiveDir.
	// Default: false
	ArchiveInputs bool `mapstructure:"archive_inputs"`

	// ArchiveTimestampSubdirs files archived images under YYYY/MM/DD.
	// Default: false
	ArchiveTimestampSubdirs bool `mapstructure:"archive_timestamp_subdirs"`

	// OCR contains the OCR engine settings.
	OCR OCRSettings `mapstructure:"ocr"`

	// Preprocess contains the image preprocessing settings.
	Preprocess PreprocessSettings `mapstructure:"preprocess"`

	// Report contains the aggregation and chart settings.
	Report ReportSettings `mapstructure:"report"`
}

// OCRSettings configures the OCR engine.
type OCRSettings struct {
	// Language is the Tesseract language code, e.g. "eng" or "eng+spa".
	Language string `mapstructure:"language"`

	// PageSegMode is the Tesseract page segmentation mode.
	// 6 assumes a single uniform block of text, which suits a cropped region.
	PageSegMode int `mapstructure:"page_seg_mode"`

	// WholeImage skips region detection and recognizes the full image once.
	WholeImage bool `mapstructure:"whole_image"`
}

// PreprocessSettings configures image preprocessing and region detection.
type PreprocessSettings struct {
	// BlurSigma is the Gaussian blur sigma applied before thresholding.
	BlurSigma float64 `mapstructure:"blur_sigma"`

	// DilateKernel is the side of the square dilation kernel in pixels.
	DilateKernel int `mapstructure:"dilate_kernel"`

	// MinRegionArea drops detected regions smaller than this many pixels.
	MinRegionArea int `mapstructure:"min_region_area"`

	// UpscaleMinWidth upscales images narrower than this before OCR.
	// Set to 0 to disable.
	UpscaleMinWidth int `mapstructure:"upscale_min_width"`
}

// ReportSettings configures the report command.
type ReportSettings struct {
	// TopN is the number of items shown in the top items chart.
	TopN int `mapstructure:"top_n"`

	// MergedFileName is the name of the merged CSV file.
	MergedFileName string `mapstructure:"merged_file_name"`

	// WorkbookName is the name of the XLSX workbook. Empty disables it.
	WorkbookName string `mapstructure:"workbook_name"`

	// Charts enables the PNG charts.
	Charts bool `mapstructure:"charts"`

	// ChartWidth and ChartHeight are the PNG chart dimensions in pixels.
	ChartWidth  int `mapstructure:"chart_width"`
	ChartHeight int `mapstructure:"chart_height"`

	// MergeSimilarNames collapses OCR spelling variants of the same item.
	MergeSimilarNames bool `mapstructure:"merge_similar_names"`

	// SimilarityDistance is the largest Levenshtein distance treated as
	// the same item when MergeSimilarNames is on.
	SimilarityDistance int `mapstructure:"similarity_distance"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// defaults lists every configuration key with its default value.
// Registering every key with Viper is what makes environment overrides work
// for keys that are absent from the config file.
var defaults = map[string]interface{}{
	"input_dir":                    "./input",
	"output_dir":                   "./output",
	"logs_dir":                     "./logs",
	"reports_dir":                  "./output",
	"archive_dir":                  "./input_archive",
	"profiles_dir":                 "./configs",
	"log_level":                    "info",
	"log_format":                   "console",
	"file_name_format":             "{name}_{timestamp}",
	"currency":                     "USD",
	"max_concurrency":              4,
	"continue_on_error":            true,
	"archive_inputs":               false,
	"archive_timestamp_subdirs":    false,
	"ocr.language":                 "eng",
	"ocr.page_seg_mode":            6,
	"ocr.whole_image":              false,
	"preprocess.blur_sigma":        1.1,
	"preprocess.dilate_kernel":     5,
	"preprocess.min_region_area":   100,
	"preprocess.upscale_min_width": 1000,
	"report.top_n":                 5,
	"report.merged_file_name":      "merged_receipts.csv",
	"report.workbook_name":         "receipts_report.xlsx",
	"report.charts":                true,
	"report.chart_width":           900,
	"report.chart_height":          600,
	"report.merge_similar_names":   false,
	"report.similarity_distance":   2,
}

// validLogLevels are the accepted values for LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. The file may be
//     missing, in which case defaults and environment variables are used.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file exists but cannot be parsed, or if the
//     resulting configuration is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Environment variables take precedence over the config file.
	// ocr.language is read from RECEIPTS_OCR_LANGUAGE.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if filepath.Ext(configPath) == "" {
				v.SetConfigType("yaml")
			}
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var config MainConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration.
	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("unknown log level %q", config.LogLevel)
	}
	if config.LogFormat != "console" && config.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", config.LogFormat)
	}
	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if config.Report.TopN < 1 {
		return fmt.Errorf("report.top_n must be at least 1, got %d", config.Report.TopN)
	}
	if config.Preprocess.DilateKernel < 1 {
		return fmt.Errorf("preprocess.dilate_kernel must be at least 1, got %d", config.Preprocess.DilateKernel)
	}
	if config.Report.MergedFileName == "" {
		return fmt.Errorf("report.merged_file_name must not be empty")
	}
	if strings.TrimSpace(config.FileNameFormat) == "" {
		return fmt.Errorf("file_name_format must not be empty")
	}
	return nil
}

// EnsureDirectories creates the working directories if they don't exist.
//
// The OCR commands write to OutputDir and LogsDir; the report command reads
// OutputDir and writes ReportsDir. InputDir and ArchiveDir are created on
// demand by the file manager.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{
		c.OutputDir,
		c.LogsDir,
		c.ReportsDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
