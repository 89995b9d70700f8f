package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ginjaninja78/receipt-scanner/internal/imageprep"
	"github.com/ginjaninja78/receipt-scanner/internal/ocr"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestEngineRecognize(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 200, 60))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 35),
	}
	d.DrawString("LATTE 2 4.50")

	data, err := imageprep.EncodePNG(imageprep.Upscale(img, 800))
	require.NoError(t, err)

	res, err := New().Recognize(context.Background(), ocr.Input{
		ID:          "latte",
		Image:       data,
		Languages:   []string{"eng"},
		PageSegMode: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, "latte", res.InputID)
	assert.Contains(t, strings.ToUpper(res.Text), "LATTE")
}

func TestEngineRecognize_EmptyInput(t *testing.T) {
	_, err := New().Recognize(context.Background(), ocr.Input{})
	assert.ErrorIs(t, err, ocr.ErrEmptyImage)
}
