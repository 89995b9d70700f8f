// Package ocr recognizes the text of receipt images.
//
// The Engine interface hides the OCR provider. The Tesseract engine lives in
// the tesseract subpackage so that code depending only on this package does
// not need cgo or the Tesseract libraries.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/receipt-scanner/internal/imageprep"
)

// ErrEmptyImage is returned for an image with no pixels.
var ErrEmptyImage = errors.New("image is empty")

// Input is a single image submitted for OCR.
type Input struct {
	// ID is echoed back in the Result.
	ID string
	// Image is the PNG-encoded image.
	Image []byte
	// Languages are Tesseract language codes, e.g. "eng".
	Languages []string
	// PageSegMode is the Tesseract page segmentation mode. Zero means the
	// engine default.
	PageSegMode int
}

// Result is the OCR output for one Input.
type Result struct {
	InputID string
	Text    string
}

// Engine is an OCR provider: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// Block is the cleaned text of one image region.
type Block struct {
	Region image.Rectangle
	Text   string
}

// Recognizer runs an Engine over the text regions of an image.
type Recognizer struct {
	engine      Engine
	languages   []string
	pageSegMode int
	logger      zerolog.Logger
}

// NewRecognizer creates a Recognizer.
func NewRecognizer(engine Engine, languages []string, pageSegMode int, logger zerolog.Logger) *Recognizer {
	return &Recognizer{
		engine:      engine,
		languages:   languages,
		pageSegMode: pageSegMode,
		logger:      logger.With().Str("engine", engine.Name()).Logger(),
	}
}

// RecognizeRegions crops each region out of img, recognizes it and returns
// the non-empty cleaned blocks in region order. With no regions the whole
// image is recognized as one block.
func (r *Recognizer) RecognizeRegions(ctx context.Context, img image.Image, regions []image.Rectangle) ([]Block, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if len(regions) == 0 {
		regions = []image.Rectangle{img.Bounds()}
	}

	blocks := make([]Block, 0, len(regions))
	for i, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		region = region.Intersect(img.Bounds())
		if region.Empty() {
			continue
		}

		data, err := imageprep.EncodePNG(imageprep.Crop(img, region))
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i+1, err)
		}

		res, err := r.engine.Recognize(ctx, Input{
			ID:          fmt.Sprintf("region-%d", i+1),
			Image:       data,
			Languages:   r.languages,
			PageSegMode: r.pageSegMode,
		})
		if err != nil {
			return nil, fmt.Errorf("recognize region %d: %w", i+1, err)
		}

		text := CleanText(res.Text)
		if text == "" {
			r.logger.Debug().Int("region", i+1).Msg("region has no text")
			continue
		}
		blocks = append(blocks, Block{Region: region, Text: text})
	}

	return blocks, nil
}

// Texts returns the text of each block.
func Texts(blocks []Block) []string {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return texts
}

// CleanText trims every line of OCR output and drops blank lines.
func CleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
