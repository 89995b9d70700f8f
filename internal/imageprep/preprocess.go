// =============================================================================
// Receipt Scanner - Image Preprocessing
// =============================================================================
//
// This module prepares a receipt photo for OCR and finds the text regions on
// it. Recognizing each region on its own gives Tesseract a single uniform
// block to work on, which reads receipts far better than the whole photo.
//
// PROCESS:
//   1. Upscale narrow photos so glyphs are large enough to recognize
//   2. Convert to grayscale and apply a Gaussian blur to reduce noise
//   3. Binarize with Otsu's threshold; dark pixels (text) become foreground
//   4. Dilate the foreground with a square kernel so glyphs merge into blocks
//   5. Find connected foreground components and return their bounding boxes
//
// =============================================================================

package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Options configures preprocessing and region detection.
type Options struct {
	// BlurSigma is the Gaussian blur sigma. Zero disables blurring.
	BlurSigma float64

	// DilateKernel is the side of the square dilation kernel in pixels.
	// Values below 2 disable dilation.
	DilateKernel int

	// MinRegionArea drops regions whose bounding box is smaller than this.
	MinRegionArea int

	// UpscaleMinWidth upscales images narrower than this. Zero disables it.
	UpscaleMinWidth int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BlurSigma:       1.1,
		DilateKernel:    5,
		MinRegionArea:   100,
		UpscaleMinWidth: 1000,
	}
}

// Prepared is the result of Preprocess.
type Prepared struct {
	// Image is the (possibly upscaled) photo. Regions are in its coordinates.
	Image image.Image

	// Gray is the blurred grayscale image.
	Gray *image.Gray

	// Mask is the dilated binary mask: 255 for text, 0 for background.
	Mask *image.Gray

	// Threshold is the Otsu threshold that produced the mask.
	Threshold uint8
}

// =============================================================================
// LOADING AND ENCODING
// =============================================================================

// Load decodes a JPEG or PNG image from disk, applying the EXIF orientation
// phone cameras record.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	return img, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop returns the part of img inside r.
func Crop(img image.Image, r image.Rectangle) image.Image {
	return imaging.Crop(img, r)
}

// =============================================================================
// PREPROCESSING
// =============================================================================

// Preprocess runs steps 1 to 4 on img.
func Preprocess(img image.Image, opts Options) *Prepared {
	img = Upscale(img, opts.UpscaleMinWidth)

	var gray image.Image = imaging.Grayscale(img)
	if opts.BlurSigma > 0 {
		gray = imaging.Blur(gray, opts.BlurSigma)
	}
	g := toGray(gray)

	threshold := OtsuThreshold(g)
	mask := Binarize(g, threshold)
	mask = Dilate(mask, opts.DilateKernel)

	return &Prepared{
		Image:     img,
		Gray:      g,
		Mask:      mask,
		Threshold: threshold,
	}
}

// Upscale scales img up with Catmull-Rom so that it is at least minWidth
// pixels wide, keeping the aspect ratio. Wider images are returned as is.
func Upscale(img image.Image, minWidth int) image.Image {
	b := img.Bounds()
	if minWidth <= 0 || b.Dx() == 0 || b.Dx() >= minWidth {
		return img
	}

	height := b.Dy() * minWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, minWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// toGray copies img into an *image.Gray with origin (0, 0).
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g.SetGray(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
		}
	}
	return g
}

// OtsuThreshold returns the gray level that maximizes the between-class
// variance of the image histogram. Pixels at or below it form one class.
func OtsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	var (
		sumBelow  float64
		weightLow int
		best      float64
		threshold int
	)
	for t := 0; t < 256; t++ {
		weightLow += hist[t]
		if weightLow == 0 {
			continue
		}
		weightHigh := total - weightLow
		if weightHigh == 0 {
			break
		}
		sumBelow += float64(t * hist[t])

		meanLow := sumBelow / float64(weightLow)
		meanHigh := (sumAll - sumBelow) / float64(weightHigh)
		diff := meanLow - meanHigh
		variance := float64(weightLow) * float64(weightHigh) * diff * diff
		if variance > best {
			best = variance
			threshold = t
		}
	}
	return uint8(threshold)
}

// Binarize returns a mask where pixels at or below threshold are 255 and
// all others are 0. Receipts print dark text on light paper, so text ends up
// as foreground.
func Binarize(g *image.Gray, threshold uint8) *image.Gray {
	b := g.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y).Y <= threshold {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}

// Dilate grows the foreground of mask with a kernel x kernel square,
// joining the glyphs of one printed line into a single blob.
func Dilate(mask *image.Gray, kernel int) *image.Gray {
	if kernel < 2 {
		return mask
	}
	dilated := effect.Dilate(mask, float64(kernel-1)/2)

	out := image.NewGray(image.Rect(0, 0, dilated.Bounds().Dx(), dilated.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), dilated, dilated.Bounds().Min, draw.Src)
	return out
}
