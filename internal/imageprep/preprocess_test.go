package imageprep

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// receiptImage draws dark rectangles on a white page.
func receiptImage(w, h int, boxes ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	for _, b := range boxes {
		draw.Draw(img, b, &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	}
	return img
}

func maskWith(w, h int, boxes ...image.Rectangle) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for _, b := range boxes {
		draw.Draw(m, b, &image.Uniform{C: color.Gray{Y: 255}}, image.Point{}, draw.Src)
	}
	return m
}

func TestOtsuThreshold_Bimodal(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range g.Pix {
		if i%3 == 0 {
			g.Pix[i] = 20
		} else {
			g.Pix[i] = 220
		}
	}

	threshold := OtsuThreshold(g)
	assert.GreaterOrEqual(t, threshold, uint8(20))
	assert.Less(t, threshold, uint8(220))

	mask := Binarize(g, threshold)
	for i := range g.Pix {
		if g.Pix[i] == 20 {
			assert.Equal(t, uint8(255), mask.Pix[i])
		} else {
			assert.Equal(t, uint8(0), mask.Pix[i])
		}
	}
}

func TestOtsuThreshold_Uniform(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range g.Pix {
		g.Pix[i] = 200
	}
	assert.Equal(t, uint8(0), OtsuThreshold(g))
}

func TestDilate(t *testing.T) {
	mask := maskWith(9, 9, image.Rect(4, 4, 5, 5))

	out := Dilate(mask, 3)
	assert.Equal(t, mask.Bounds(), out.Bounds())
	assert.Equal(t, uint8(255), out.GrayAt(4, 4).Y)
	assert.Equal(t, uint8(255), out.GrayAt(3, 4).Y)
	assert.Equal(t, uint8(255), out.GrayAt(5, 4).Y)
	assert.Equal(t, uint8(255), out.GrayAt(4, 3).Y)
	assert.Equal(t, uint8(255), out.GrayAt(4, 5).Y)
	assert.Equal(t, uint8(0), out.GrayAt(2, 4).Y)
	assert.Equal(t, uint8(0), out.GrayAt(4, 6).Y)
	assert.Equal(t, uint8(0), out.GrayAt(0, 0).Y)

	wide := Dilate(mask, 5)
	assert.Equal(t, uint8(255), wide.GrayAt(2, 4).Y)
	assert.Equal(t, uint8(0), wide.GrayAt(1, 4).Y)

	assert.Same(t, mask, Dilate(mask, 1))
}

func TestDetectRegions_ReadingOrder(t *testing.T) {
	mask := maskWith(100, 60,
		image.Rect(60, 5, 90, 15),  // top right
		image.Rect(5, 5, 40, 15),   // top left
		image.Rect(5, 30, 90, 45),  // second line
		image.Rect(50, 55, 52, 57), // speck
	)

	regions := DetectRegions(mask, 20)
	require.Len(t, regions, 3)
	assert.Equal(t, image.Rect(5, 5, 40, 15), regions[0])
	assert.Equal(t, image.Rect(60, 5, 90, 15), regions[1])
	assert.Equal(t, image.Rect(5, 30, 90, 45), regions[2])

	assert.Len(t, DetectRegions(mask, 0), 4)
}

func TestDetectRegions_DiagonalIsConnected(t *testing.T) {
	mask := maskWith(10, 10, image.Rect(1, 1, 2, 2), image.Rect(2, 2, 3, 3))
	regions := DetectRegions(mask, 0)
	require.Len(t, regions, 1)
	assert.Equal(t, image.Rect(1, 1, 3, 3), regions[0])
}

func TestDetect(t *testing.T) {
	img := receiptImage(300, 200,
		image.Rect(20, 20, 200, 40),
		image.Rect(20, 100, 260, 120),
	)

	opts := DefaultOptions()
	opts.UpscaleMinWidth = 0

	prepared, regions := Detect(img, opts)
	require.Len(t, regions, 2)
	assert.Less(t, regions[0].Min.Y, regions[1].Min.Y)
	assert.True(t, regions[0].Overlaps(image.Rect(20, 20, 200, 40)))
	assert.True(t, regions[1].Overlaps(image.Rect(20, 100, 260, 120)))
	assert.Equal(t, img.Bounds(), prepared.Mask.Bounds())
}

func TestUpscale(t *testing.T) {
	img := receiptImage(100, 50)

	up := Upscale(img, 400)
	assert.Equal(t, 400, up.Bounds().Dx())
	assert.Equal(t, 200, up.Bounds().Dy())

	assert.Same(t, img, Upscale(img, 50))
	assert.Same(t, img, Upscale(img, 0))
}

func TestLoadAndEncode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.png")
	require.NoError(t, imaging.Save(receiptImage(40, 20, image.Rect(5, 5, 10, 10)), path))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	data, err := EncodePNG(Crop(img, image.Rect(5, 5, 10, 10)))
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
