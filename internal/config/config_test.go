package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfig_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./logs", cfg.LogsDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "{name}_{timestamp}", cfg.FileNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.False(t, cfg.ArchiveTimestampSubdirs)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 6, cfg.OCR.PageSegMode)
	assert.InDelta(t, 1.1, cfg.Preprocess.BlurSigma, 1e-9)
	assert.Equal(t, 5, cfg.Preprocess.DilateKernel)
	assert.Equal(t, 5, cfg.Report.TopN)
	assert.Equal(t, "merged_receipts.csv", cfg.Report.MergedFileName)
}

func TestLoadMainConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
output_dir: /tmp/receipts/out
log_level: DEBUG
max_concurrency: 2
archive_timestamp_subdirs: true
ocr:
  language: eng+spa
report:
  top_n: 3
`)

	t.Setenv("RECEIPTS_LOGS_DIR", "/tmp/receipts/logs")
	t.Setenv("RECEIPTS_REPORT_TOP_N", "8")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/receipts/out", cfg.OutputDir)
	assert.Equal(t, "/tmp/receipts/logs", cfg.LogsDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.True(t, cfg.ArchiveTimestampSubdirs)
	assert.Equal(t, "eng+spa", cfg.OCR.Language)
	assert.Equal(t, 8, cfg.Report.TopN, "environment wins over the file")
	assert.Equal(t, 6, cfg.OCR.PageSegMode, "unset nested keys keep defaults")
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorMsg string
	}{
		{
			name:     "unknown log level",
			content:  "log_level: loud\n",
			errorMsg: "unknown log level",
		},
		{
			name:     "zero concurrency",
			content:  "max_concurrency: 0\n",
			errorMsg: "max_concurrency",
		},
		{
			name:     "zero top n",
			content:  "report:\n  top_n: 0\n",
			errorMsg: "top_n",
		},
		{
			name:     "unknown log format",
			content:  "log_format: xml\n",
			errorMsg: "unknown log format",
		},
		{
			name:     "broken yaml",
			content:  "output_dir: [unterminated\n",
			errorMsg: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			_, err := LoadMainConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &MainConfig{
		OutputDir:  filepath.Join(root, "output"),
		LogsDir:    filepath.Join(root, "logs"),
		ReportsDir: filepath.Join(root, "reports"),
	}

	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.OutputDir, cfg.LogsDir, cfg.ReportsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("file", "a.jpg").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"file":"a.jpg"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestLoadMainConfig_RepositoryConfig(t *testing.T) {
	cfg, err := LoadMainConfig("../../config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, 5, cfg.Report.TopN)
	assert.Equal(t, "eng", cfg.OCR.Language)
}
