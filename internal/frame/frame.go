// Package frame holds the pixel formats and the small deterministic helpers
// the analysis and blending paths are built on.
//
// Ingest frames are packed UYVY 4:2:2: two bytes per pixel, chroma at even
// byte offsets shared by pixel pairs, luma at odd offsets. Program frames for
// the transition engine are packed BGRA, four bytes per pixel.
package frame

import (
	"github.com/screener/screener-go/internal/errors"
)

const (
	// UYVYBytesPerPixel is the packed 4:2:2 stride per pixel.
	UYVYBytesPerPixel = 2
	// BGRABytesPerPixel is the program frame stride per pixel.
	BGRABytesPerPixel = 4

	// UYVYNeutralChroma is the chroma byte of a black UYVY frame.
	UYVYNeutralChroma = 0x80
	// UYVYBlackLuma is the luma byte of a black UYVY frame.
	UYVYBlackLuma = 0x10
)

// UYVYSize returns the byte length of a packed UYVY frame.
func UYVYSize(width, height int) int {
	return width * height * UYVYBytesPerPixel
}

// BGRASize returns the byte length of a packed BGRA frame.
func BGRASize(width, height int) int {
	return width * height * BGRABytesPerPixel
}

// FillUYVYBlack writes broadcast black (80 10 80 10 ...) over the buffer.
// A trailing odd byte, if any, gets the chroma value.
func FillUYVYBlack(pixels []byte) {
	for i := 0; i+1 < len(pixels); i += 2 {
		pixels[i] = UYVYNeutralChroma
		pixels[i+1] = UYVYBlackLuma
	}
	if len(pixels)%2 == 1 {
		pixels[len(pixels)-1] = UYVYNeutralChroma
	}
}

// ROI is a fractional region-of-interest rectangle. All fields are fractions
// of the frame dimensions in [0,1].
type ROI struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// FullROI covers the whole frame.
func FullROI() ROI {
	return ROI{Left: 0, Top: 0, Width: 1, Height: 1}
}

// Valid reports whether the rectangle has positive area and stays in bounds.
func (r ROI) Valid() bool {
	return r.Left >= 0 && r.Top >= 0 &&
		r.Width > 0 && r.Height > 0 &&
		r.Left+r.Width <= 1.0 && r.Top+r.Height <= 1.0
}

// Resolve converts the fractional rectangle to pixel coordinates for a frame
// of the given dimensions. The result always has at least one pixel in each
// dimension and never exceeds the frame.
func (r ROI) Resolve(width, height int) (x, y, w, h int) {
	x = int(r.Left * float64(width))
	y = int(r.Top * float64(height))
	w = int(r.Width * float64(width))
	h = int(r.Height * float64(height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if x+w > width {
		w = width - x
	}
	if y+h > height {
		h = height - y
	}
	return x, y, w, h
}

// DownsampleLuma crops the ROI out of a packed UYVY frame and block-averages
// its luma channel down to dstW x dstH, writing one byte per analysis pixel
// into dst. dst must hold dstW*dstH bytes. Deterministic: equal inputs
// produce equal outputs.
func DownsampleLuma(pixels []byte, width, height int, roi ROI, dstW, dstH int, dst []byte) error {
	if width <= 0 || height <= 0 {
		return errors.Newf("invalid frame dimensions %dx%d", width, height).
			Component("frame").
			Category(errors.CategoryFrameProcessing).
			Build()
	}
	if len(pixels) < UYVYSize(width, height) {
		return errors.Newf("frame buffer too small: got %d, want %d", len(pixels), UYVYSize(width, height)).
			Component("frame").
			Category(errors.CategoryFrameProcessing).
			Build()
	}
	if !roi.Valid() {
		return errors.Newf("invalid ROI %+v", roi).
			Component("frame").
			Category(errors.CategoryFrameProcessing).
			Build()
	}
	if len(dst) < dstW*dstH {
		return errors.Newf("analysis buffer too small: got %d, want %d", len(dst), dstW*dstH).
			Component("frame").
			Category(errors.CategoryFrameProcessing).
			Build()
	}

	roiX, roiY, roiW, roiH := roi.Resolve(width, height)
	stride := width * UYVYBytesPerPixel

	for dy := 0; dy < dstH; dy++ {
		// Source row span of this analysis row within the ROI.
		sy0 := roiY + dy*roiH/dstH
		sy1 := roiY + (dy+1)*roiH/dstH
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		for dx := 0; dx < dstW; dx++ {
			sx0 := roiX + dx*roiW/dstW
			sx1 := roiX + (dx+1)*roiW/dstW
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			var sum, count int
			for sy := sy0; sy < sy1; sy++ {
				row := sy * stride
				for sx := sx0; sx < sx1; sx++ {
					sum += int(pixels[row+sx*UYVYBytesPerPixel+1])
					count++
				}
			}
			dst[dy*dstW+dx] = byte(sum / count)
		}
	}
	return nil
}

// SAD returns the sum of absolute differences between two equal-length luma
// planes.
func SAD(a, b []byte) (int64, error) {
	if len(a) != len(b) {
		return 0, errors.Newf("plane length mismatch: %d vs %d", len(a), len(b)).
			Component("frame").
			Category(errors.CategoryFrameProcessing).
			Build()
	}
	var total int64
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		total += int64(d)
	}
	return total, nil
}
