package imageprep

import (
	"image"
	"sort"
)

// neighbours8 are the offsets of the 8-connected neighbourhood.
var neighbours8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// DetectRegions finds the connected foreground components of mask and
// returns their bounding boxes in reading order: top to bottom, then left to
// right. Boxes with an area below minArea are dropped.
func DetectRegions(mask *image.Gray, minArea int) []image.Rectangle {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)

	var regions []image.Rectangle
	var stack []int

	for start := 0; start < w*h; start++ {
		sx, sy := start%w, start/w
		if visited[start] || mask.Pix[sy*mask.Stride+sx] == 0 {
			continue
		}

		visited[start] = true
		stack = append(stack[:0], start)
		box := image.Rect(sx, sy, sx+1, sy+1)

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%w, p/w

			if x < box.Min.X {
				box.Min.X = x
			}
			if x+1 > box.Max.X {
				box.Max.X = x + 1
			}
			if y+1 > box.Max.Y {
				box.Max.Y = y + 1
			}

			for _, n := range neighbours8 {
				nx, ny := x+n[0], y+n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				q := ny*w + nx
				if visited[q] || mask.Pix[ny*mask.Stride+nx] == 0 {
					continue
				}
				visited[q] = true
				stack = append(stack, q)
			}
		}

		if box.Dx()*box.Dy() >= minArea {
			regions = append(regions, box.Add(b.Min))
		}
	}

	SortReadingOrder(regions)
	return regions
}

// SortReadingOrder sorts boxes top to bottom, then left to right.
func SortReadingOrder(regions []image.Rectangle) {
	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Min.Y != regions[j].Min.Y {
			return regions[i].Min.Y < regions[j].Min.Y
		}
		return regions[i].Min.X < regions[j].Min.X
	})
}

// Detect runs Preprocess and DetectRegions.
func Detect(img image.Image, opts Options) (*Prepared, []image.Rectangle) {
	prepared := Preprocess(img, opts)
	return prepared, DetectRegions(prepared.Mask, opts.MinRegionArea)
}
